package setups

import (
	"fmt"

	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/structure"
)

// The scalp variants are fast-timeframe analogues of the swing
// archetypes: tighter zones, tighter invariant tolerances, and short
// expiry. They run independently of their swing counterparts.

// scalpRangeFadeGen fades the nearest key level on the fast timeframe
// when momentum is flat
type scalpRangeFadeGen struct{}

func (g *scalpRangeFadeGen) Archetype() Archetype { return ArchetypeScalpRangeFade }

func (g *scalpRangeFadeGen) Generate(ctx *GenContext) (*TradeSetup, *Skip) {
	if m := ctx.Features.Entry.Momentum; m > 0.3 || m < -0.3 {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "momentum too strong for a fade"}
	}
	atr := ctx.atrFor(g.Archetype())
	if atr <= 0 {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no fast volatility proxy"}
	}

	below, above := ctx.NearestLevels()
	if below == nil || above == nil {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no levels to fade between"}
	}
	mid := (below.Price + above.Price) / 2

	var side Side
	var edge float64
	switch {
	case ctx.Price-below.Price <= 0.5*atr:
		side = SideLong
		edge = below.Price
	case above.Price-ctx.Price <= 0.5*atr:
		side = SideShort
		edge = above.Price
	default:
		return nil, &Skip{Archetype: g.Archetype(), Reason: "price not pressed against a level"}
	}

	var zone Zone
	var stop float64
	if side == SideLong {
		zone = Zone{Lo: edge - 0.15*atr, Hi: edge + 0.2*atr}
		stop = edge - 0.5*atr
	} else {
		zone = Zone{Lo: edge - 0.2*atr, Hi: edge + 0.15*atr}
		stop = edge + 0.5*atr
	}

	return ctx.build(candidateInput{
		archetype: g.Archetype(),
		side:      side,
		mode:      ModeLimit,
		zone:      zone,
		stop:      stop,
		stopBasis: "beyond faded level",
		targets: []TakeProfitLeg{
			{Price: mid, Portion: 1.0, Label: "inter-level midpoint"},
		},
		anchor: edge,
		checklist: []ChecklistItem{
			{Key: CheckPreTrigger, OK: false, Note: "price not yet in fade zone"},
			{Key: CheckCloseConfirm, OK: false, Note: "awaiting rejection close"},
		},
		tags:    []string{"scalp", "range"},
		summary: fmt.Sprintf("scalp fade %s off %.8g", side, edge),
	}), nil
}

// scalpSnapbackGen fades a very fresh fast-timeframe liquidity sweep
// with a tight stop beyond the wick
type scalpSnapbackGen struct{}

func (g *scalpSnapbackGen) Archetype() Archetype { return ArchetypeScalpSnapback }

const snapbackFreshnessBars = 3

func (g *scalpSnapbackGen) Generate(ctx *GenContext) (*TradeSetup, *Skip) {
	sweep := ctx.FreshSweep(market.TF5m, snapbackFreshnessBars)
	if sweep == nil {
		sweep = ctx.FreshSweep(market.TF15m, snapbackFreshnessBars)
	}
	if sweep == nil {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no fresh fast-timeframe sweep"}
	}
	atr := ctx.atrFor(g.Archetype())
	if atr <= 0 {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no fast volatility proxy"}
	}

	level := sweep.Level
	var side Side
	var zone Zone
	var stop, tp1 float64
	if sweep.Direction == structure.DirectionUp {
		side = SideLong
		zone = Zone{Lo: level - 0.1*atr, Hi: level + 0.15*atr}
		stop = sweep.WickLow - 0.1*atr
		tp1 = level + atr
	} else {
		side = SideShort
		zone = Zone{Lo: level - 0.15*atr, Hi: level + 0.1*atr}
		stop = sweep.WickHigh + 0.1*atr
		tp1 = level - atr
	}

	return ctx.build(candidateInput{
		archetype: g.Archetype(),
		side:      side,
		mode:      ModeLimit,
		zone:      zone,
		stop:      stop,
		stopBasis: "beyond sweep wick",
		targets: []TakeProfitLeg{
			{Price: tp1, Portion: 1.0, Label: "snapback target"},
		},
		anchor: level,
		checklist: []ChecklistItem{
			{Key: CheckSweep, OK: true, Note: fmt.Sprintf("fast sweep of %.8g reclaimed", level)},
			{Key: CheckPreTrigger, OK: false, Note: "price not yet back at the level"},
			{Key: CheckCloseConfirm, OK: false, Note: "awaiting reclaim close"},
		},
		tags:    []string{"scalp", "sweep"},
		summary: fmt.Sprintf("liquidity snapback %s off %.8g", side, level),
	}), nil
}

// scalpMomentumGen joins a fast trend on a shallow pullback when
// momentum and bias agree
type scalpMomentumGen struct{}

func (g *scalpMomentumGen) Archetype() Archetype { return ArchetypeScalpMomentum }

func (g *scalpMomentumGen) Generate(ctx *GenContext) (*TradeSetup, *Skip) {
	side, ok := ctx.BiasSide()
	if !ok {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no directional bias resolved"}
	}
	m := ctx.Features.Entry.Momentum
	agrees := (side == SideLong && m >= 0.4) || (side == SideShort && m <= -0.4)
	if !agrees {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "fast momentum not aligned with bias"}
	}
	atr := ctx.atrFor(g.Archetype())
	if atr <= 0 {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no fast volatility proxy"}
	}

	var zone Zone
	var stop, tp1, tp2 float64
	if side == SideLong {
		zone = Zone{Lo: ctx.Price - 0.6*atr, Hi: ctx.Price - 0.2*atr}
		stop = ctx.Price - 1.2*atr
		tp1 = ctx.Price + 1.0*atr
		tp2 = ctx.Price + 2.0*atr
	} else {
		zone = Zone{Lo: ctx.Price + 0.2*atr, Hi: ctx.Price + 0.6*atr}
		stop = ctx.Price + 1.2*atr
		tp1 = ctx.Price - 1.0*atr
		tp2 = ctx.Price - 2.0*atr
	}

	return ctx.build(candidateInput{
		archetype: g.Archetype(),
		side:      side,
		mode:      ModeMarket,
		zone:      zone,
		stop:      stop,
		stopBasis: "beyond pullback depth",
		targets: []TakeProfitLeg{
			{Price: tp1, Portion: 0.6, Label: "TP1"},
			{Price: tp2, Portion: 0.4, Label: "TP2"},
		},
		anchor: ctx.Price,
		checklist: []ChecklistItem{
			{Key: CheckPreTrigger, OK: false, Note: "awaiting shallow pullback"},
			{Key: CheckCloseConfirm, OK: false, Note: "awaiting continuation close"},
		},
		tags:    []string{"scalp", "momentum"},
		summary: fmt.Sprintf("momentum pullback %s, momentum %.2f", side, m),
	}), nil
}

// scalpReaction1hGen trades the first reaction off a key level when
// price arrives at it with the bias not opposing; confirmation is
// demanded on the 1h close
type scalpReaction1hGen struct{}

func (g *scalpReaction1hGen) Archetype() Archetype { return ArchetypeScalpReaction1h }

func (g *scalpReaction1hGen) Generate(ctx *GenContext) (*TradeSetup, *Skip) {
	atr := ctx.ATR
	if atr <= 0 {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no volatility proxy available"}
	}

	below, above := ctx.NearestLevels()
	var side Side
	var level *structure.KeyLevel
	switch {
	case below != nil && ctx.Price-below.Price <= 0.35*atr:
		side = SideLong
		level = below
	case above != nil && above.Price-ctx.Price <= 0.35*atr:
		side = SideShort
		level = above
	default:
		return nil, &Skip{Archetype: g.Archetype(), Reason: "price not at a 1h reaction level"}
	}

	bias := ctx.Features.Bias.Direction
	if (side == SideLong && bias == market.BiasBearish) || (side == SideShort && bias == market.BiasBullish) {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "bias opposes the reaction direction"}
	}

	fast := ctx.atrFor(g.Archetype())
	var zone Zone
	var stop, tp1 float64
	if side == SideLong {
		zone = Zone{Lo: level.Price - 0.2*fast, Hi: level.Price + 0.3*fast}
		stop = level.Price - 0.8*fast
		tp1 = level.Price + 1.5*fast
	} else {
		zone = Zone{Lo: level.Price - 0.3*fast, Hi: level.Price + 0.2*fast}
		stop = level.Price + 0.8*fast
		tp1 = level.Price - 1.5*fast
	}

	return ctx.build(candidateInput{
		archetype: g.Archetype(),
		side:      side,
		mode:      ModeLimit,
		zone:      zone,
		stop:      stop,
		stopBasis: "beyond reaction level",
		targets: []TakeProfitLeg{
			{Price: tp1, Portion: 1.0, Label: "reaction target"},
		},
		anchor: level.Price,
		checklist: []ChecklistItem{
			{Key: CheckPreTrigger, OK: false, Note: "price not yet in reaction zone"},
			{Key: CheckCloseConfirm, OK: false, Note: "awaiting 1h reaction close"},
		},
		tags:    []string{"scalp", "level"},
		summary: fmt.Sprintf("1h reaction %s off %.8g", side, level.Price),
	}), nil
}
