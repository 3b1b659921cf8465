package setups

import (
	"fmt"

	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/structure"
)

// breakoutRetestGen trades a fresh fast-timeframe BOS by waiting for
// the retest of the broken level. The entry zone is the retest band
// around the level, never the break candle itself.
type breakoutRetestGen struct{}

func (g *breakoutRetestGen) Archetype() Archetype { return ArchetypeBreakoutRetest }

func (g *breakoutRetestGen) Generate(ctx *GenContext) (*TradeSetup, *Skip) {
	bos := ctx.FreshBOS(market.TF15m, ctx.Params.BOSFreshness)
	if bos == nil {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no fresh break of structure"}
	}
	atr := ctx.atrFor(g.Archetype())
	if atr <= 0 {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no volatility proxy available"}
	}

	level := bos.Level
	var side Side
	var zone Zone
	if bos.Direction == structure.DirectionUp {
		side = SideLong
		zone = Zone{
			Lo: level * (1 - ctx.Params.RetestBandLoBps/10000),
			Hi: level * (1 + ctx.Params.RetestBandHiBps/10000),
		}
	} else {
		side = SideShort
		zone = Zone{
			Lo: level * (1 - ctx.Params.RetestBandHiBps/10000),
			Hi: level * (1 + ctx.Params.RetestBandLoBps/10000),
		}
	}

	var stop, tp1, tp2 float64
	var stopBasis string
	below, above := ctx.NearestLevels()
	if side == SideLong {
		stop = level - ctx.Params.StopATR*atr
		stopBasis = "below broken level"
		tp1 = level + 2*atr
		if above != nil && above.Price > zone.Hi && above.Price < tp1 {
			tp1 = above.Price
		}
		tp2 = level + 3*atr
	} else {
		stop = level + ctx.Params.StopATR*atr
		stopBasis = "above broken level"
		tp1 = level - 2*atr
		if below != nil && below.Price < zone.Lo && below.Price > tp1 {
			tp1 = below.Price
		}
		tp2 = level - 3*atr
	}

	checklist := []ChecklistItem{
		{Key: CheckBOS, OK: true, Note: fmt.Sprintf("%s BOS at %.8g", bos.Direction, level)},
		{Key: CheckRetest, OK: false, Note: "awaiting retest of broken level"},
		{Key: CheckCloseConfirm, OK: false, Note: "awaiting confirming close beyond level"},
		{Key: CheckPreTrigger, OK: false, Note: "price not yet in retest band"},
	}

	return ctx.build(candidateInput{
		archetype: g.Archetype(),
		side:      side,
		mode:      ModeLimit,
		zone:      zone,
		stop:      stop,
		stopBasis: stopBasis,
		targets: []TakeProfitLeg{
			{Price: tp1, Portion: 0.5, Label: "TP1"},
			{Price: tp2, Portion: 0.5, Label: "TP2"},
		},
		anchor:    level,
		checklist: checklist,
		tags:      []string{"breakout"},
		summary:   fmt.Sprintf("retest of %.8g after %s BOS", level, bos.Direction),
	}), nil
}

// squeezeBreakoutGen is the legacy fallback: when volatility bands
// have compressed below the squeeze threshold and no fresh BOS exists,
// it positions for the expansion in the bias direction
type squeezeBreakoutGen struct{}

func (g *squeezeBreakoutGen) Archetype() Archetype { return ArchetypeSqueezeBreakout }

func (g *squeezeBreakoutGen) Generate(ctx *GenContext) (*TradeSetup, *Skip) {
	if ctx.FreshBOS(market.TF15m, ctx.Params.BOSFreshness) != nil {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "fresh BOS available, breakout archetype preferred"}
	}
	if ctx.BBWidth <= 0 || ctx.BBWidth > ctx.Params.SqueezeWidthMax {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "volatility bands not in squeeze"}
	}
	atr := ctx.atrFor(g.Archetype())
	if atr <= 0 {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no volatility proxy available"}
	}

	side, ok := ctx.BiasSide()
	if !ok {
		// Fall back to the mean-deviation sign
		switch {
		case ctx.Features.Entry.Momentum > 0.1:
			side = SideLong
		case ctx.Features.Entry.Momentum < -0.1:
			side = SideShort
		default:
			return nil, &Skip{Archetype: g.Archetype(), Reason: "no direction for squeeze expansion"}
		}
	}

	var zone Zone
	var stop, tp1, tp2 float64
	var stopBasis string
	if side == SideLong {
		zone = Zone{Lo: ctx.Price + 0.1*atr, Hi: ctx.Price + 0.5*atr}
		stop = ctx.Price - ctx.Params.StopATR*atr
		stopBasis = "below squeeze base"
		tp1 = ctx.Price + 2*atr
		tp2 = ctx.Price + 3.5*atr
	} else {
		zone = Zone{Lo: ctx.Price - 0.5*atr, Hi: ctx.Price - 0.1*atr}
		stop = ctx.Price + ctx.Params.StopATR*atr
		stopBasis = "above squeeze base"
		tp1 = ctx.Price - 2*atr
		tp2 = ctx.Price - 3.5*atr
	}

	checklist := []ChecklistItem{
		{Key: CheckPreTrigger, OK: false, Note: "awaiting expansion through zone"},
		{Key: CheckCloseConfirm, OK: false, Note: "awaiting expansion close"},
	}

	return ctx.build(candidateInput{
		archetype: g.Archetype(),
		side:      side,
		mode:      ModeMarket,
		zone:      zone,
		stop:      stop,
		stopBasis: stopBasis,
		targets: []TakeProfitLeg{
			{Price: tp1, Portion: 0.6, Label: "TP1"},
			{Price: tp2, Portion: 0.4, Label: "TP2"},
		},
		anchor:    ctx.Price,
		checklist: checklist,
		tags:      []string{"squeeze", "fallback"},
		summary:   fmt.Sprintf("squeeze expansion %s, band width %.4f", side, ctx.BBWidth),
	}), nil
}
