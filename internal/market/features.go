package market

// Grade represents a letter quality grade
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
)

// AtLeast reports whether g ranks at or above other on the A+..D scale
func (g Grade) AtLeast(other Grade) bool {
	return g.rank() >= other.rank()
}

func (g Grade) rank() int {
	switch g {
	case GradeAPlus:
		return 4
	case GradeA:
		return 3
	case GradeB:
		return 2
	case GradeC:
		return 1
	case GradeD:
		return 0
	default:
		return -1
	}
}

// BiasDirection represents the resolved directional bias
type BiasDirection string

const (
	BiasBullish BiasDirection = "bullish"
	BiasBearish BiasDirection = "bearish"
	BiasNeutral BiasDirection = "neutral"
)

// Directional reports whether the bias resolves to a trade direction
func (b BiasDirection) Directional() bool {
	return b == BiasBullish || b == BiasBearish
}

// VolatilityRegime classifies current volatility
type VolatilityRegime string

const (
	RegimeDead     VolatilityRegime = "dead"
	RegimeLow      VolatilityRegime = "low"
	RegimeNormal   VolatilityRegime = "normal"
	RegimeElevated VolatilityRegime = "elevated"
	RegimeExtreme  VolatilityRegime = "extreme"
)

// QualityFeatures carries the upstream feed-reliability assessment
type QualityFeatures struct {
	DataQualityGrade Grade `json:"data_quality_grade"`
	PrimaryFeedOk    bool  `json:"primary_feed_ok"`
	SecondaryFeedOk  bool  `json:"secondary_feed_ok"`
}

// BiasFeatures carries the higher-timeframe directional bias summary
type BiasFeatures struct {
	Timeframe        Timeframe        `json:"timeframe"`
	Direction        BiasDirection    `json:"direction"`
	Strength         float64          `json:"strength"` // 0.0 to 1.0
	Complete         bool             `json:"complete"` // bias window fully formed
	VolatilityRegime VolatilityRegime `json:"volatility_regime"`
	ADX              float64          `json:"adx"`
	EMASlope         float64          `json:"ema_slope"` // normalized slope, sign = direction
}

// EntryFeatures carries fast-timeframe entry context
type EntryFeatures struct {
	Timeframe  Timeframe `json:"timeframe"`
	Momentum   float64   `json:"momentum"`   // -1.0 to 1.0
	Volatility float64   `json:"volatility"` // ATR as fraction of price
}

// OrderflowFeatures carries aggregated order-book / trade-flow readings
type OrderflowFeatures struct {
	Imbalance       float64 `json:"imbalance"`        // -1.0 to 1.0, book imbalance
	AggressionRatio float64 `json:"aggression_ratio"` // taker buy / taker sell
	Delta           float64 `json:"delta"`            // signed taker volume delta
}

// CrossFeatures carries cross-exchange consensus readings
type CrossFeatures struct {
	DeviationBps   float64 `json:"deviation_bps"`
	DeviationZ     float64 `json:"deviation_z"`
	ConsensusScore float64 `json:"consensus_score"` // 0.0 to 1.0
}

// FeatureSummary is the pre-computed feature bundle consumed alongside a
// snapshot. It is produced by the upstream feature layer, never here.
type FeatureSummary struct {
	Quality   QualityFeatures   `json:"quality"`
	Bias      BiasFeatures      `json:"bias"`
	Entry     EntryFeatures     `json:"entry"`
	Orderflow OrderflowFeatures `json:"orderflow"`
	Cross     CrossFeatures     `json:"cross"`
}

// OrderflowSign returns the net directional sign of orderflow: +1 buy
// pressure, -1 sell pressure, 0 mixed
func (f *FeatureSummary) OrderflowSign() int {
	buyVotes := 0
	if f.Orderflow.Imbalance > 0.1 {
		buyVotes++
	} else if f.Orderflow.Imbalance < -0.1 {
		buyVotes--
	}
	if f.Orderflow.Delta > 0 {
		buyVotes++
	} else if f.Orderflow.Delta < 0 {
		buyVotes--
	}
	if f.Orderflow.AggressionRatio > 1.1 {
		buyVotes++
	} else if f.Orderflow.AggressionRatio > 0 && f.Orderflow.AggressionRatio < 0.9 {
		buyVotes--
	}
	switch {
	case buyVotes >= 2:
		return 1
	case buyVotes <= -2:
		return -1
	default:
		return 0
	}
}
