package setups

import (
	"fmt"

	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/structure"
)

// sweepReversalGen fades a fresh liquidity sweep back toward the
// opposite swing extreme. It carries the highest risk/reward floor of
// all archetypes and skips outright when no opposite target exists.
type sweepReversalGen struct{}

func (g *sweepReversalGen) Archetype() Archetype { return ArchetypeSweepReversal }

func (g *sweepReversalGen) Generate(ctx *GenContext) (*TradeSetup, *Skip) {
	sweep := ctx.FreshSweep(market.TF15m, ctx.Params.SweepFreshnessBars)
	if sweep == nil {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no fresh liquidity sweep"}
	}
	atr := ctx.atrFor(g.Archetype())
	if atr <= 0 {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no volatility proxy available"}
	}
	analysis := ctx.Analysis(market.TF15m)
	if analysis == nil {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no structural read for sweep timeframe"}
	}

	var side Side
	var target *structure.SwingPoint
	if sweep.Direction == structure.DirectionUp {
		side = SideLong
		target = analysis.LastSwingHigh
	} else {
		side = SideShort
		target = analysis.LastSwingLow
	}
	if target == nil {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no opposite swing target for sweep reversal"}
	}

	level := sweep.Level
	var zone Zone
	var stop, tp2 float64
	var stopBasis string
	if side == SideLong {
		zone = Zone{Lo: level - 0.1*atr, Hi: level + 0.25*atr}
		stop = sweep.WickLow - 0.2*atr
		stopBasis = "beyond sweep wick low"
		tp2 = target.Price + atr
	} else {
		zone = Zone{Lo: level - 0.25*atr, Hi: level + 0.1*atr}
		stop = sweep.WickHigh + 0.2*atr
		stopBasis = "beyond sweep wick high"
		tp2 = target.Price - atr
	}

	checklist := []ChecklistItem{
		{Key: CheckSweep, OK: true, Note: fmt.Sprintf("liquidity sweep of %.8g reclaimed", level)},
		{Key: CheckCloseConfirm, OK: false, Note: "awaiting reclaim close"},
		{Key: CheckPreTrigger, OK: false, Note: "price not yet back in reclaim zone"},
	}

	return ctx.build(candidateInput{
		archetype: g.Archetype(),
		side:      side,
		mode:      ModeLimit,
		zone:      zone,
		stop:      stop,
		stopBasis: stopBasis,
		targets: []TakeProfitLeg{
			{Price: target.Price, Portion: 0.6, Label: "opposite swing"},
			{Price: tp2, Portion: 0.4, Label: "extension"},
		},
		anchor:    level,
		checklist: checklist,
		tags:      []string{"sweep", "reversal"},
		summary:   fmt.Sprintf("sweep reversal %s off %.8g", side, level),
	}), nil
}

// failedSweepGen trades continuation after a displacement wick through
// a freshly broken level failed to reverse it: the stop hides beyond
// the displacement extreme
type failedSweepGen struct{}

func (g *failedSweepGen) Archetype() Archetype { return ArchetypeFailedSweep }

// RecentConfirmed is how many trailing confirmed candles are scanned
// for the displacement wick
const displacementLookback = 6

func (g *failedSweepGen) Generate(ctx *GenContext) (*TradeSetup, *Skip) {
	bos := ctx.FreshBOS(market.TF15m, ctx.Params.BOSFreshness)
	if bos == nil {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no fresh break of structure"}
	}
	atr := ctx.atrFor(g.Archetype())
	if atr <= 0 {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no volatility proxy available"}
	}

	wick, found := ctx.displacementWick(bos)
	if !found {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no displacement wick through broken level"}
	}

	level := bos.Level
	var side Side
	var zone Zone
	var stop, tp1, tp2 float64
	var stopBasis string
	if bos.Direction == structure.DirectionUp {
		side = SideLong
		zone = Zone{Lo: level - 0.15*atr, Hi: level + 0.25*atr}
		stop = wick - 0.15*atr
		stopBasis = "beyond displacement wick"
		tp1 = level + 2*atr
		tp2 = level + 3*atr
	} else {
		side = SideShort
		zone = Zone{Lo: level - 0.25*atr, Hi: level + 0.15*atr}
		stop = wick + 0.15*atr
		stopBasis = "beyond displacement wick"
		tp1 = level - 2*atr
		tp2 = level - 3*atr
	}

	checklist := []ChecklistItem{
		{Key: CheckBOS, OK: true, Note: fmt.Sprintf("%s BOS at %.8g survived displacement", bos.Direction, level)},
		{Key: CheckCloseConfirm, OK: false, Note: "awaiting continuation close"},
		{Key: CheckPreTrigger, OK: false, Note: "price not yet in continuation zone"},
	}

	return ctx.build(candidateInput{
		archetype: g.Archetype(),
		side:      side,
		mode:      ModeMarket,
		zone:      zone,
		stop:      stop,
		stopBasis: stopBasis,
		targets: []TakeProfitLeg{
			{Price: tp1, Portion: 0.5, Label: "TP1"},
			{Price: tp2, Portion: 0.5, Label: "TP2"},
		},
		anchor:    level,
		checklist: checklist,
		tags:      []string{"sweep", "continuation"},
		summary:   fmt.Sprintf("failed sweep continuation %s through %.8g", side, level),
	}), nil
}

// displacementWick scans the recent confirmed fast-timeframe candles
// for a wick through the BOS level whose close stayed beyond it,
// returning the wick extreme
func (c *GenContext) displacementWick(bos *structure.StructureEvent) (float64, bool) {
	a := c.Analysis(market.TF15m)
	if a == nil {
		return 0, false
	}
	candles := c.recentConfirmed(market.TF15m, displacementLookback)
	var extreme float64
	found := false
	for _, candle := range candles {
		if candle.OpenTime < bos.Time {
			continue
		}
		if bos.Direction == structure.DirectionUp {
			if candle.Low < bos.Level && candle.Close > bos.Level {
				if !found || candle.Low < extreme {
					extreme = candle.Low
				}
				found = true
			}
		} else {
			if candle.High > bos.Level && candle.Close < bos.Level {
				if !found || candle.High > extreme {
					extreme = candle.High
				}
				found = true
			}
		}
	}
	return extreme, found
}

// recentConfirmed returns up to n trailing confirmed candles for a
// timeframe
func (c *GenContext) recentConfirmed(tf market.Timeframe, n int) []market.Candle {
	confirmed := market.Confirmed(c.Candles[tf])
	if len(confirmed) > n {
		confirmed = confirmed[len(confirmed)-n:]
	}
	return confirmed
}
