package setups

import (
	"fmt"

	"trade-setup-engine/internal/market"
)

// rangeMeanRevertGen fades a range edge back toward the midpoint when
// the bias regime is non-directional and price sits near a bound
type rangeMeanRevertGen struct{}

func (g *rangeMeanRevertGen) Archetype() Archetype { return ArchetypeRangeMeanRevert }

func (g *rangeMeanRevertGen) Generate(ctx *GenContext) (*TradeSetup, *Skip) {
	if ctx.Features.Bias.Direction.Directional() {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "bias is directional, range fade stands down"}
	}
	atr := ctx.atrFor(g.Archetype())
	if atr <= 0 {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no volatility proxy available"}
	}

	below, above := ctx.NearestLevels()
	if below == nil || above == nil {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "no range bounds located"}
	}
	if above.Price-below.Price < 2*atr {
		return nil, &Skip{Archetype: g.Archetype(), Reason: "range too narrow against volatility"}
	}

	mid := (below.Price + above.Price) / 2
	edgeBand := ctx.Params.RangeEdgeATR * atr

	var side Side
	var edge float64
	switch {
	case ctx.Price-below.Price <= edgeBand:
		side = SideLong
		edge = below.Price
	case above.Price-ctx.Price <= edgeBand:
		side = SideShort
		edge = above.Price
	default:
		return nil, &Skip{Archetype: g.Archetype(), Reason: "price not near a range edge"}
	}

	var zone Zone
	var stop float64
	var stopBasis string
	var rangeCheck ChecklistItem
	if side == SideLong {
		zone = Zone{Lo: edge - 0.25*atr, Hi: edge + 0.35*atr}
		stop = edge - ctx.Params.StopATR*atr
		stopBasis = "below range low"
		rangeCheck = ChecklistItem{Key: CheckRangeLow, OK: true, Note: fmt.Sprintf("range low %.8g holding", edge)}
	} else {
		zone = Zone{Lo: edge - 0.35*atr, Hi: edge + 0.25*atr}
		stop = edge + ctx.Params.StopATR*atr
		stopBasis = "above range high"
		rangeCheck = ChecklistItem{Key: CheckRangeHigh, OK: true, Note: fmt.Sprintf("range high %.8g holding", edge)}
	}

	checklist := []ChecklistItem{
		rangeCheck,
		{Key: CheckCloseConfirm, OK: false, Note: "awaiting rejection close at the edge"},
		{Key: CheckPreTrigger, OK: false, Note: "price not yet in edge zone"},
	}

	return ctx.build(candidateInput{
		archetype: g.Archetype(),
		side:      side,
		mode:      ModeLimit,
		zone:      zone,
		stop:      stop,
		stopBasis: stopBasis,
		targets: []TakeProfitLeg{
			{Price: mid, Portion: 1.0, Label: "range midpoint"},
		},
		anchor:    edge,
		checklist: checklist,
		tags:      []string{"range"},
		summary:   fmt.Sprintf("fade %s edge %.8g toward midpoint %.8g", side, edge, mid),
		entryTF:   market.TF1h,
	}), nil
}
