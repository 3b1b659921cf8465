package setups

import (
	"fmt"

	"trade-setup-engine/internal/structure"
)

// trendPullbackGen proposes limit entries into a pullback toward the
// nearest key level in the direction of the resolved higher-timeframe
// bias
type trendPullbackGen struct{}

func (g *trendPullbackGen) Archetype() Archetype { return ArchetypeTrendPullback }

func (g *trendPullbackGen) Generate(ctx *GenContext) (*TradeSetup, *Skip) {
	side, ok := ctx.BiasSide()
	if !ok {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no directional bias resolved"}
	}
	if !ctx.Features.Bias.Complete {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "higher-timeframe bias window incomplete"}
	}
	atr := ctx.atrFor(g.Archetype())
	if atr <= 0 {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no volatility proxy available"}
	}

	below, above := ctx.NearestLevels()
	var level *structure.KeyLevel
	if side == SideLong {
		level = below
	} else {
		level = above
	}
	if level == nil {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no key level to pull back into"}
	}

	band := ctx.Params.ZoneATR * atr
	zone := Zone{Lo: level.Price - band, Hi: level.Price + band}

	var stop, tp1, tp2 float64
	var stopBasis string
	if side == SideLong {
		stop = zone.Lo - ctx.Params.StopATR*atr
		stopBasis = "below pullback level"
		if above != nil {
			tp1 = above.Price
		} else {
			tp1 = ctx.Price + 1.5*atr
		}
		tp2 = ctx.Price + 2.5*atr
	} else {
		stop = zone.Hi + ctx.Params.StopATR*atr
		stopBasis = "above pullback level"
		if below != nil {
			tp1 = below.Price
		} else {
			tp1 = ctx.Price - 1.5*atr
		}
		tp2 = ctx.Price - 2.5*atr
	}

	checklist := []ChecklistItem{
		{Key: CheckPreTrigger, OK: false, Note: "price not yet in pullback zone"},
		{Key: CheckCloseConfirm, OK: false, Note: "awaiting confirming close in trend direction"},
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
		anchor:    level.Price,
		checklist: checklist,
		tags:      []string{"trend"},
		summary:   fmt.Sprintf("pullback into %.8g with %s bias", level.Price, ctx.Features.Bias.Direction),
	}), nil
}
