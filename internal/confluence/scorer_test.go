package confluence

import (
	"testing"

	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/structure"
)

// cleanFeatures returns a strongly aligned bullish feature set
func cleanFeatures() *market.FeatureSummary {
	return &market.FeatureSummary{
		Quality: market.QualityFeatures{
			DataQualityGrade: market.GradeA,
			PrimaryFeedOk:    true,
			SecondaryFeedOk:  true,
		},
		Bias: market.BiasFeatures{
			Timeframe:        market.TF4h,
			Direction:        market.BiasBullish,
			Strength:         0.9,
			Complete:         true,
			VolatilityRegime: market.RegimeNormal,
			ADX:              38,
			EMASlope:         0.002,
		},
		Entry: market.EntryFeatures{
			Timeframe:  market.TF15m,
			Momentum:   0.5,
			Volatility: 0.01,
		},
		Orderflow: market.OrderflowFeatures{
			Imbalance:       0.6,
			AggressionRatio: 1.4,
			Delta:           1200,
		},
		Cross: market.CrossFeatures{
			DeviationBps:   3,
			DeviationZ:     0.4,
			ConsensusScore: 0.9,
		},
	}
}

func bullishHTF() *structure.Analysis {
	return &structure.Analysis{Timeframe: market.TF4h, Trend: structure.TrendUp}
}

func TestScoreCleanContext(t *testing.T) {
	scorer := NewScorer()
	cs := scorer.Score(cleanFeatures(), bullishHTF())

	if cs.Score < 85 {
		t.Errorf("clean aligned context scored %.1f, want >= 85", cs.Score)
	}
	if cs.Grade != market.GradeA {
		t.Errorf("grade = %s, want A", cs.Grade)
	}
	if cs.MajorConflicts != 0 {
		t.Errorf("major conflicts = %d, want 0", cs.MajorConflicts)
	}
}

func TestScoreDataQualityDominates(t *testing.T) {
	scorer := NewScorer()
	f := cleanFeatures()
	f.Quality.DataQualityGrade = market.GradeD
	cs := scorer.Score(f, bullishHTF())

	clean := scorer.Score(cleanFeatures(), bullishHTF())
	if cs.Score >= clean.Score {
		t.Errorf("grade-D data quality scored %.1f, clean scored %.1f; want lower", cs.Score, clean.Score)
	}
	if cs.Grade == market.GradeA {
		t.Errorf("grade = %s, grade-D data quality must not score an A context", cs.Grade)
	}
	if cs.GradePlus != market.GradeC {
		t.Errorf("gradePlus = %s, want C cap under bad data", cs.GradePlus)
	}
}

func TestScoreClampsToRange(t *testing.T) {
	scorer := NewScorer()

	worst := &market.FeatureSummary{
		Quality: market.QualityFeatures{DataQualityGrade: market.GradeD},
		Bias: market.BiasFeatures{
			Direction:        market.BiasNeutral,
			VolatilityRegime: market.RegimeExtreme,
			ADX:              5,
		},
		Orderflow: market.OrderflowFeatures{Imbalance: -0.9, AggressionRatio: 0.4, Delta: -5000},
		Cross:     market.CrossFeatures{ConsensusScore: 0.05, DeviationZ: 4},
	}
	cs := scorer.Score(worst, nil)
	if cs.Score < 0 || cs.Score > 100 {
		t.Fatalf("score %.1f escaped [0,100]", cs.Score)
	}
	if cs.Grade != market.GradeD {
		t.Errorf("grade = %s, want D for worst-case features", cs.Grade)
	}
}

func TestScoreOrderflowOpposition(t *testing.T) {
	scorer := NewScorer()
	f := cleanFeatures()
	f.Orderflow = market.OrderflowFeatures{Imbalance: -0.7, AggressionRatio: 0.5, Delta: -3000}
	cs := scorer.Score(f, bullishHTF())

	aligned := scorer.Score(cleanFeatures(), bullishHTF())
	if cs.Score >= aligned.Score {
		t.Errorf("opposed orderflow scored %.1f, aligned scored %.1f; want lower", cs.Score, aligned.Score)
	}
	if cs.MajorConflicts == 0 {
		t.Error("strong opposed orderflow should count as a major conflict")
	}
}

func TestTwoMajorConflictsCapGradePlus(t *testing.T) {
	scorer := NewScorer()
	f := cleanFeatures()
	f.Orderflow = market.OrderflowFeatures{Imbalance: -0.8, AggressionRatio: 0.4, Delta: -4000}
	f.Cross.ConsensusScore = 0.1
	cs := scorer.Score(f, bullishHTF())

	if cs.MajorConflicts < 2 {
		t.Fatalf("major conflicts = %d, want >= 2", cs.MajorConflicts)
	}
	if cs.GradePlus != market.GradeC {
		t.Errorf("gradePlus = %s, want C cap with two major conflicts", cs.GradePlus)
	}
}

func TestGradePlusForNeverExceedsBase(t *testing.T) {
	scorer := NewScorer()
	cs := scorer.Score(cleanFeatures(), bullishHTF())
	quality := cleanFeatures().Quality

	tests := []struct {
		name         string
		rr           float64
		biasComplete bool
	}{
		{"high rr complete", 3.5, true},
		{"low rr complete", 1.0, true},
		{"high rr incomplete", 3.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plus := scorer.GradePlusFor(cs, quality, tt.rr, tt.biasComplete)
			if plus == market.GradeAPlus && cs.Score < 88 {
				t.Errorf("gradePlus A+ with base score %.1f", cs.Score)
			}
		})
	}
}

func TestGradePlusDemotesOnPoorRiskReward(t *testing.T) {
	scorer := NewScorer()
	cs := scorer.Score(cleanFeatures(), bullishHTF())
	quality := cleanFeatures().Quality

	good := scorer.GradePlusFor(cs, quality, 2.5, true)
	poor := scorer.GradePlusFor(cs, quality, 1.0, true)
	if poor.AtLeast(good) && good != poor {
		t.Errorf("poor RR grade %s should not outrank good RR grade %s", poor, good)
	}
	if poor == good {
		t.Errorf("poor RR should demote the extended grade, both = %s", good)
	}
}
