package setups

import (
	"fmt"

	"trade-setup-engine/internal/confluence"
	"trade-setup-engine/internal/market"
)

// Machine-readable rejection codes for hard invariant violations
const (
	CodeInvalidPrices  = "INVALID_PRICES"
	CodeZoneInverted   = "ZONE_INVERTED"
	CodeStopInsideZone = "STOP_INSIDE_ZONE"
	CodeRiskBelowNoise = "RISK_BELOW_NOISE"
	CodeRiskAboveCap   = "RISK_ABOVE_ATR_CAP"
	CodeTargetTooClose = "TP_BELOW_FLOOR"
	CodeRRBelowFloor   = "RR_BELOW_FLOOR"
)

// Soft-conflict tags; these annotate, never reject
const (
	TagBiasConflict      = "bias_conflict"
	TagOrderflowConflict = "orderflow_conflict"
	TagWeakConsensus     = "weak_consensus"
)

const maxSoftConflicts = 4

// Rejection is one hard invariant violation
type Rejection struct {
	Archetype Archetype `json:"archetype"`
	Code      string    `json:"code"`
	Note      string    `json:"note"`
}

// Validator applies the hard geometric invariants and the soft
// conflict annotations, and centrally attaches confidence so the
// archetypes do not duplicate grading logic.
type Validator struct {
	scorer *confluence.Scorer
}

// NewValidator creates a validator sharing the context scorer
func NewValidator(scorer *confluence.Scorer) *Validator {
	return &Validator{scorer: scorer}
}

// Validate checks one candidate. A nil rejection slice means the
// candidate survives; survivors come back annotated with soft-conflict
// tags, reasons, and their confidence block. Validation never panics
// and never mutates a rejected candidate.
func (v *Validator) Validate(s *TradeSetup, ctx *GenContext, cs confluence.ContextScore) []Rejection {
	if rejs := v.hardInvariants(s, ctx); len(rejs) > 0 {
		return rejs
	}
	conflicts := v.annotateConflicts(s, ctx)
	v.attachConfidence(s, ctx, cs, conflicts)
	return nil
}

func (v *Validator) hardInvariants(s *TradeSetup, ctx *GenContext) []Rejection {
	var rejs []Rejection
	reject := func(code, note string) {
		rejs = append(rejs, Rejection{Archetype: s.Archetype, Code: code, Note: note})
	}

	zone := s.Entry.Zone
	if zone.Lo <= 0 || zone.Hi <= 0 || s.Stop.Price <= 0 {
		reject(CodeInvalidPrices, "non-positive zone or stop price")
		return rejs
	}
	if zone.Lo >= zone.Hi {
		reject(CodeZoneInverted, fmt.Sprintf("zone lo %.8g >= hi %.8g", zone.Lo, zone.Hi))
		return rejs
	}

	atr := ctx.atrFor(s.Archetype)

	// The stop must sit strictly outside the zone in the trade
	// direction; scalps are allowed a small rounding tolerance
	tolerance := 0.0
	if s.Archetype.Scalp() {
		tolerance = ctx.Params.ScalpStopTolerance * atr
	}
	if s.Side == SideLong && s.Stop.Price > zone.Lo+tolerance {
		reject(CodeStopInsideZone, fmt.Sprintf("stop %.8g inside long zone [%.8g, %.8g]", s.Stop.Price, zone.Lo, zone.Hi))
	}
	if s.Side == SideShort && s.Stop.Price < zone.Hi-tolerance {
		reject(CodeStopInsideZone, fmt.Sprintf("stop %.8g inside short zone [%.8g, %.8g]", s.Stop.Price, zone.Lo, zone.Hi))
	}

	if atr > 0 {
		risk := s.RiskDistance()
		if risk < ctx.Params.NoiseFloorATR*atr {
			reject(CodeRiskBelowNoise, fmt.Sprintf("risk %.8g below noise floor %.8g", risk, ctx.Params.NoiseFloorATR*atr))
		}
		if risk > ctx.Params.RiskCapATR*atr {
			reject(CodeRiskAboveCap, fmt.Sprintf("risk %.8g above ATR cap %.8g", risk, ctx.Params.RiskCapATR*atr))
		}

		if len(s.TakeProfits) > 0 {
			var entryEdge float64
			if s.Side == SideLong {
				entryEdge = zone.Hi
			} else {
				entryEdge = zone.Lo
			}
			reward := (s.TakeProfits[0].Price - entryEdge) * s.Direction()
			if reward < ctx.Params.TPFloorATR*atr {
				reject(CodeTargetTooClose, fmt.Sprintf("first target reward %.8g below floor %.8g", reward, ctx.Params.TPFloorATR*atr))
			}
		}
	}

	// The base archetype floor is a hard invariant regardless of
	// status; the regime/bias-tightened floor additionally gates
	// anything claiming READY. FORMING candidates may sit between
	// the two while they build.
	base := s.Archetype.RRFloorBase()
	floor := s.Archetype.RRFloor(ctx.Features.Bias.VolatilityRegime, ctx.Features.Bias.Complete)
	if s.RiskRewardMin < base {
		reject(CodeRRBelowFloor, fmt.Sprintf("rr %.2f below archetype floor %.2f", s.RiskRewardMin, base))
	} else if s.Status == StatusReady && s.RiskRewardMin < floor {
		reject(CodeRRBelowFloor, fmt.Sprintf("rr %.2f below tightened floor %.2f", s.RiskRewardMin, floor))
	}
	return rejs
}

// annotateConflicts adds bounded soft-conflict tags and reasons;
// conflicts lower confidence but never reject
func (v *Validator) annotateConflicts(s *TradeSetup, ctx *GenContext) int {
	conflicts := 0
	addTag := func(tag, reason string) {
		if conflicts >= maxSoftConflicts {
			return
		}
		conflicts++
		s.Tags = append(s.Tags, tag)
		s.Confidence.Reasons = append(s.Confidence.Reasons, reason)
	}

	bias := ctx.Features.Bias
	if bias.Strength >= 0.6 {
		opposed := (s.Side == SideLong && bias.Direction == market.BiasBearish) ||
			(s.Side == SideShort && bias.Direction == market.BiasBullish)
		if opposed {
			addTag(TagBiasConflict, fmt.Sprintf("strong %s bias opposes %s setup", bias.Direction, s.Side))
		}
	}

	flowSign := ctx.Features.OrderflowSign()
	if flowSign != 0 {
		opposed := (s.Side == SideLong && flowSign < 0) || (s.Side == SideShort && flowSign > 0)
		imb := ctx.Features.Orderflow.Imbalance
		if imb < 0 {
			imb = -imb
		}
		if opposed && imb > 0.5 {
			addTag(TagOrderflowConflict, "strong opposing orderflow")
		}
	}

	if ctx.Features.Cross.ConsensusScore < 0.3 {
		addTag(TagWeakConsensus, "weak cross-exchange consensus")
	}
	return conflicts
}

// attachConfidence derives the confidence block from the context
// score, the candidate's risk/reward cushion, and its conflicts. The
// extended grade is attached here, centrally.
func (v *Validator) attachConfidence(s *TradeSetup, ctx *GenContext, cs confluence.ContextScore, conflicts int) {
	floor := s.Archetype.RRFloor(ctx.Features.Bias.VolatilityRegime, ctx.Features.Bias.Complete)
	cushion := (s.RiskRewardMin - floor) * 4
	if cushion > 10 {
		cushion = 10
	}
	if cushion < 0 {
		cushion = 0
	}

	score := cs.Score + cushion - 5*float64(conflicts)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	s.Confidence.Score = score
	s.Confidence.Grade = confluence.GradeForScore(score)
	s.Confidence.GradePlus = v.scorer.GradePlusFor(cs, ctx.Features.Quality, s.RiskRewardMin, ctx.Features.Bias.Complete)
}
