// Package confluence computes the 0-100 market-quality context score,
// its letter grade, and the execution-oriented extended grade from the
// feature summary and higher-timeframe structure.
package confluence

import (
	"fmt"

	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/structure"
)

const (
	baseScore = 50.0

	thresholdGradeA = 85.0
	thresholdGradeB = 70.0
	thresholdGradeC = 50.0
)

// ContextScore is the scored market-quality context
type ContextScore struct {
	Score          float64      `json:"score"`      // 0-100
	Grade          market.Grade `json:"grade"`      // A-D
	GradePlus      market.Grade `json:"grade_plus"` // A+/A/B/C, execution oriented
	Reasons        []string     `json:"reasons"`
	MajorConflicts int          `json:"major_conflicts"`
}

// Scorer computes context scores from features plus structure.
// Seven independently capped themes sum onto a base of 50; data
// quality dominates.
type Scorer struct{}

// NewScorer creates a context scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the context score. htf is the structural read of the
// bias timeframe, may be nil.
func (s *Scorer) Score(features *market.FeatureSummary, htf *structure.Analysis) ContextScore {
	cs := ContextScore{Reasons: make([]string, 0, 8)}

	total := baseScore
	total += s.dataQualityTheme(features, &cs)
	total += s.directionalClarityTheme(features, &cs)
	total += s.trendPersistenceTheme(features, &cs)
	total += s.volatilityTheme(features, &cs)
	total += s.crossConsensusTheme(features, &cs)
	total += s.orderflowTheme(features, &cs)
	total += s.structureTheme(features, htf, &cs)

	cs.Score = clamp(total, 0, 100)
	cs.Grade = gradeFor(cs.Score)
	cs.GradePlus = s.basePlusGrade(cs, features)
	return cs
}

// dataQualityTheme: -35..+12, the dominant theme
func (s *Scorer) dataQualityTheme(f *market.FeatureSummary, cs *ContextScore) float64 {
	switch f.Quality.DataQualityGrade {
	case market.GradeA:
		if f.Quality.PrimaryFeedOk && f.Quality.SecondaryFeedOk {
			return 12
		}
		return 8
	case market.GradeB:
		return 4
	case market.GradeC:
		cs.Reasons = append(cs.Reasons, "data quality degraded (C)")
		cs.MajorConflicts++
		return -15
	default:
		cs.Reasons = append(cs.Reasons, "data quality unreliable (D)")
		cs.MajorConflicts++
		return -35
	}
}

// directionalClarityTheme: -10..+18
func (s *Scorer) directionalClarityTheme(f *market.FeatureSummary, cs *ContextScore) float64 {
	if !f.Bias.Direction.Directional() {
		cs.Reasons = append(cs.Reasons, "no directional bias resolved")
		return -10
	}
	strength := clamp(f.Bias.Strength, 0, 1)
	pts := strength * 18
	if !f.Bias.Complete {
		pts *= 0.5
		cs.Reasons = append(cs.Reasons, "bias window incomplete")
	}
	return clamp(pts, -10, 18)
}

// trendPersistenceTheme: -8..+16 via ADX and EMA slope agreement
func (s *Scorer) trendPersistenceTheme(f *market.FeatureSummary, cs *ContextScore) float64 {
	adx := f.Bias.ADX
	var pts float64
	switch {
	case adx < 15:
		pts = -8
		cs.Reasons = append(cs.Reasons, fmt.Sprintf("trendless tape (ADX %.1f)", adx))
	case adx < 20:
		pts = -3
	case adx < 25:
		pts = 4
	case adx < 35:
		pts = 10
	case adx < 50:
		pts = 16
	default:
		// Extreme ADX readings mark exhaustion more often than strength
		pts = 10
	}

	slopeAgrees := (f.Bias.Direction == market.BiasBullish && f.Bias.EMASlope > 0) ||
		(f.Bias.Direction == market.BiasBearish && f.Bias.EMASlope < 0)
	if f.Bias.Direction.Directional() && !slopeAgrees {
		pts -= 4
		cs.Reasons = append(cs.Reasons, "EMA slope disagrees with bias")
	}
	return clamp(pts, -8, 16)
}

// volatilityTheme: -12..+10, penalizing both dead and extreme regimes
func (s *Scorer) volatilityTheme(f *market.FeatureSummary, cs *ContextScore) float64 {
	switch f.Bias.VolatilityRegime {
	case market.RegimeDead:
		cs.Reasons = append(cs.Reasons, "dead volatility regime")
		return -12
	case market.RegimeLow:
		return -4
	case market.RegimeNormal:
		return 10
	case market.RegimeElevated:
		return 4
	case market.RegimeExtreme:
		cs.Reasons = append(cs.Reasons, "extreme volatility regime")
		cs.MajorConflicts++
		return -12
	default:
		return 0
	}
}

// crossConsensusTheme: -12..+12 from cross-exchange agreement
func (s *Scorer) crossConsensusTheme(f *market.FeatureSummary, cs *ContextScore) float64 {
	consensus := clamp(f.Cross.ConsensusScore, 0, 1)
	pts := (consensus - 0.5) * 24 // 0 -> -12, 1 -> +12

	z := f.Cross.DeviationZ
	if z < 0 {
		z = -z
	}
	if z > 2.5 {
		pts -= 6
		cs.Reasons = append(cs.Reasons, fmt.Sprintf("cross-exchange deviation stretched (z=%.1f)", f.Cross.DeviationZ))
	}
	if consensus < 0.3 {
		cs.Reasons = append(cs.Reasons, "weak cross-exchange consensus")
		cs.MajorConflicts++
	}
	return clamp(pts, -12, 12)
}

// orderflowTheme: -12..+12 for orderflow alignment with bias
func (s *Scorer) orderflowTheme(f *market.FeatureSummary, cs *ContextScore) float64 {
	sign := f.OrderflowSign()
	if sign == 0 || !f.Bias.Direction.Directional() {
		return 0
	}
	aligned := (sign > 0 && f.Bias.Direction == market.BiasBullish) ||
		(sign < 0 && f.Bias.Direction == market.BiasBearish)

	magnitude := clamp(absFloat(f.Orderflow.Imbalance), 0, 1)
	pts := 6 + 6*magnitude
	if aligned {
		return clamp(pts, -12, 12)
	}
	cs.Reasons = append(cs.Reasons, "orderflow opposes bias")
	if magnitude > 0.5 {
		cs.MajorConflicts++
	}
	return clamp(-pts, -12, 12)
}

// structureTheme: -4..+6 for higher-timeframe structure corroboration
func (s *Scorer) structureTheme(f *market.FeatureSummary, htf *structure.Analysis, cs *ContextScore) float64 {
	if htf == nil || !f.Bias.Direction.Directional() {
		return 0
	}
	agrees := (f.Bias.Direction == market.BiasBullish && htf.Trend == structure.TrendUp) ||
		(f.Bias.Direction == market.BiasBearish && htf.Trend == structure.TrendDown)
	disagrees := (f.Bias.Direction == market.BiasBullish && htf.Trend == structure.TrendDown) ||
		(f.Bias.Direction == market.BiasBearish && htf.Trend == structure.TrendUp)
	switch {
	case agrees:
		return 6
	case disagrees:
		cs.Reasons = append(cs.Reasons, "higher-timeframe structure opposes bias")
		return -4
	default:
		return 0
	}
}

// basePlusGrade derives the extended grade from the base score before
// any per-setup nudges. It never exceeds what the base score supports.
func (s *Scorer) basePlusGrade(cs ContextScore, f *market.FeatureSummary) market.Grade {
	var plus market.Grade
	switch {
	case cs.Score >= 90:
		plus = market.GradeAPlus
	case cs.Score >= 80:
		plus = market.GradeA
	case cs.Score >= 65:
		plus = market.GradeB
	default:
		plus = market.GradeC
	}
	if !f.Quality.DataQualityGrade.AtLeast(market.GradeB) || cs.MajorConflicts >= 2 {
		plus = market.GradeC
	}
	return plus
}

// GradePlusFor applies the per-setup nudges to the extended grade:
// strong risk/reward with a complete bias lifts one notch (capped by
// the base grade), poor risk/reward or an incomplete bias drops one.
func (s *Scorer) GradePlusFor(cs ContextScore, quality market.QualityFeatures, riskReward float64, biasComplete bool) market.Grade {
	plus := cs.GradePlus
	if plus == market.GradeC {
		return plus
	}
	if riskReward >= 3.0 && biasComplete && plus == market.GradeA && cs.Score >= 88 {
		plus = market.GradeAPlus
	}
	if riskReward < 1.5 || !biasComplete {
		plus = demote(plus)
	}
	// The nudge must never exceed what the base score supports
	if plus == market.GradeAPlus && cs.Score < 88 {
		plus = market.GradeA
	}
	return plus
}

func demote(g market.Grade) market.Grade {
	switch g {
	case market.GradeAPlus:
		return market.GradeA
	case market.GradeA:
		return market.GradeB
	default:
		return market.GradeC
	}
}

// GradeForScore maps a 0-100 score onto the A-D grade ladder
func GradeForScore(score float64) market.Grade {
	return gradeFor(score)
}

func gradeFor(score float64) market.Grade {
	switch {
	case score >= thresholdGradeA:
		return market.GradeA
	case score >= thresholdGradeB:
		return market.GradeB
	case score >= thresholdGradeC:
		return market.GradeC
	default:
		return market.GradeD
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
