package setups

import (
	"time"

	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/structure"
)

// Params holds the generation tunables. All distances scale to the
// volatility proxy (ATR) or to price in basis points.
type Params struct {
	BOSFreshness       time.Duration `json:"bos_freshness"`        // max BOS age for breakout archetypes
	SweepFreshnessBars int           `json:"sweep_freshness_bars"` // max sweep age in bars
	RetestBandLoBps    float64       `json:"retest_band_lo_bps"`   // retest zone below the level
	RetestBandHiBps    float64       `json:"retest_band_hi_bps"`   // retest zone above the level
	ZoneATR            float64       `json:"zone_atr"`             // generic zone half-height
	StopATR            float64       `json:"stop_atr"`             // stop distance beyond structure
	SqueezeWidthMax    float64       `json:"squeeze_width_max"`    // Bollinger width squeeze threshold
	RangeEdgeATR       float64       `json:"range_edge_atr"`       // proximity to a range edge
	NoiseFloorATR      float64       `json:"noise_floor_atr"`      // minimum risk distance
	RiskCapATR         float64       `json:"risk_cap_atr"`         // maximum risk distance
	TPFloorATR         float64       `json:"tp_floor_atr"`         // minimum first-target reward
	ScalpStopTolerance float64       `json:"scalp_stop_tolerance"` // stop-inside-zone slack for scalps, ATR fraction
}

// DefaultParams returns the production defaults
func DefaultParams() Params {
	return Params{
		BOSFreshness:       90 * time.Minute,
		SweepFreshnessBars: 6,
		RetestBandLoBps:    8,
		RetestBandHiBps:    6,
		ZoneATR:            0.25,
		StopATR:            0.8,
		SqueezeWidthMax:    0.02,
		RangeEdgeATR:       0.75,
		NoiseFloorATR:      0.15,
		RiskCapATR:         3.0,
		TPFloorATR:         0.5,
		ScalpStopTolerance: 0.1,
	}
}

// GenContext bundles everything a generator may consult. Generators
// are pure functions over this context: same context, same candidate.
type GenContext struct {
	Symbol     string
	Now        time.Time
	Price      float64
	Features   *market.FeatureSummary
	Candles    map[market.Timeframe][]market.Candle
	Structures map[market.Timeframe]*structure.Analysis
	Levels     []structure.KeyLevel
	ATR        float64 // entry-timeframe volatility proxy, absolute
	FastATR    float64 // fast-timeframe proxy for scalp archetypes
	BBWidth    float64 // Bollinger width squeeze proxy
	Params     Params
}

// Analysis returns the structural read for a timeframe, or nil
func (c *GenContext) Analysis(tf market.Timeframe) *structure.Analysis {
	return c.Structures[tf]
}

// BiasSide maps the resolved bias direction to a trade side
func (c *GenContext) BiasSide() (Side, bool) {
	switch c.Features.Bias.Direction {
	case market.BiasBullish:
		return SideLong, true
	case market.BiasBearish:
		return SideShort, true
	default:
		return "", false
	}
}

// FreshBOS returns the last BOS on a timeframe if it is younger than
// maxAge, else nil
func (c *GenContext) FreshBOS(tf market.Timeframe, maxAge time.Duration) *structure.StructureEvent {
	a := c.Analysis(tf)
	if a == nil || a.LastBOS == nil {
		return nil
	}
	age := c.Now.Sub(time.UnixMilli(a.LastBOS.Time))
	if age < 0 || age > maxAge {
		return nil
	}
	return a.LastBOS
}

// FreshSweep returns the last sweep on a timeframe if it is younger
// than maxBars bars, else nil
func (c *GenContext) FreshSweep(tf market.Timeframe, maxBars int) *structure.SweepEvent {
	a := c.Analysis(tf)
	if a == nil || a.LastSweep == nil {
		return nil
	}
	age := c.Now.Sub(time.UnixMilli(a.LastSweep.Time))
	if age < 0 || age > time.Duration(maxBars)*tf.Duration() {
		return nil
	}
	return a.LastSweep
}

// NearestLevels returns the key levels straddling the current price
func (c *GenContext) NearestLevels() (below, above *structure.KeyLevel) {
	return structure.NearestLevels(c.Levels, c.Price)
}

// atrFor picks the volatility proxy appropriate to the archetype
func (c *GenContext) atrFor(a Archetype) float64 {
	if a.Scalp() && c.FastATR > 0 {
		return c.FastATR
	}
	return c.ATR
}

// Skip records why an archetype declined to produce a candidate; the
// bounded set of skips becomes the readiness diagnostic
type Skip struct {
	Archetype Archetype `json:"archetype"`
	Reason    string    `json:"reason"`
}

// Generator proposes at most one candidate setup per evaluation
type Generator interface {
	Archetype() Archetype
	Generate(ctx *GenContext) (*TradeSetup, *Skip)
}

// Generators returns the full catalog in generation order
func Generators() []Generator {
	return []Generator{
		&trendPullbackGen{},
		&breakoutRetestGen{},
		&squeezeBreakoutGen{},
		&sweepReversalGen{},
		&failedSweepGen{},
		&rangeMeanRevertGen{},
		&scalpRangeFadeGen{},
		&scalpSnapbackGen{},
		&scalpMomentumGen{},
		&scalpReaction1hGen{},
	}
}
