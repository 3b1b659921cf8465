package setups

import (
	"time"

	"trade-setup-engine/internal/market"
)

// Archetype identifies one setup-generation strategy from the fixed
// catalog
type Archetype string

const (
	ArchetypeTrendPullback   Archetype = "trend_pullback"
	ArchetypeBreakoutRetest  Archetype = "breakout_retest"
	ArchetypeSqueezeBreakout Archetype = "squeeze_breakout"
	ArchetypeSweepReversal   Archetype = "sweep_reversal"
	ArchetypeFailedSweep     Archetype = "failed_sweep_continuation"
	ArchetypeRangeMeanRevert Archetype = "range_mean_revert"
	ArchetypeScalpRangeFade  Archetype = "scalp_range_fade"
	ArchetypeScalpSnapback   Archetype = "scalp_liquidity_snapback"
	ArchetypeScalpMomentum   Archetype = "scalp_momentum_pullback"
	ArchetypeScalpReaction1h Archetype = "scalp_1h_reaction"
)

type archetypeSpec struct {
	scalp     bool
	expiry    time.Duration
	rrFloor   float64
	entryTF   market.Timeframe
	triggerTF market.Timeframe
}

var archetypeSpecs = map[Archetype]archetypeSpec{
	ArchetypeTrendPullback:   {scalp: false, expiry: 8 * time.Hour, rrFloor: 1.8, entryTF: market.TF1h, triggerTF: market.TF1h},
	ArchetypeBreakoutRetest:  {scalp: false, expiry: 4 * time.Hour, rrFloor: 1.6, entryTF: market.TF15m, triggerTF: market.TF15m},
	ArchetypeSqueezeBreakout: {scalp: false, expiry: 6 * time.Hour, rrFloor: 1.5, entryTF: market.TF15m, triggerTF: market.TF15m},
	// Sweep reversals fight the tape; they demand the highest floor
	ArchetypeSweepReversal:   {scalp: false, expiry: 3 * time.Hour, rrFloor: 2.5, entryTF: market.TF15m, triggerTF: market.TF15m},
	ArchetypeFailedSweep:     {scalp: false, expiry: 3 * time.Hour, rrFloor: 1.8, entryTF: market.TF15m, triggerTF: market.TF15m},
	ArchetypeRangeMeanRevert: {scalp: false, expiry: 6 * time.Hour, rrFloor: 1.4, entryTF: market.TF1h, triggerTF: market.TF1h},
	ArchetypeScalpRangeFade:  {scalp: true, expiry: 45 * time.Minute, rrFloor: 1.2, entryTF: market.TF5m, triggerTF: market.TF5m},
	ArchetypeScalpSnapback:   {scalp: true, expiry: 45 * time.Minute, rrFloor: 1.2, entryTF: market.TF5m, triggerTF: market.TF1m},
	ArchetypeScalpMomentum:   {scalp: true, expiry: 90 * time.Minute, rrFloor: 1.2, entryTF: market.TF5m, triggerTF: market.TF5m},
	ArchetypeScalpReaction1h: {scalp: true, expiry: 2 * time.Hour, rrFloor: 1.3, entryTF: market.TF15m, triggerTF: market.TF1h},
}

// Scalp reports whether the archetype is a fast scalp variant with
// relaxed zone/risk floors and short expiry
func (a Archetype) Scalp() bool {
	return archetypeSpecs[a].scalp
}

// Expiry returns the fixed expiry horizon attached at creation
func (a Archetype) Expiry() time.Duration {
	if spec, ok := archetypeSpecs[a]; ok {
		return spec.expiry
	}
	return 4 * time.Hour
}

// EntryTimeframe returns the default entry timeframe
func (a Archetype) EntryTimeframe() market.Timeframe {
	if spec, ok := archetypeSpecs[a]; ok {
		return spec.entryTF
	}
	return market.TF15m
}

// TriggerTimeframe returns the declared close-confirm timeframe
func (a Archetype) TriggerTimeframe() market.Timeframe {
	if spec, ok := archetypeSpecs[a]; ok {
		return spec.triggerTF
	}
	return market.TF15m
}

// RRFloorBase returns the archetype's minimum acceptable risk/reward
// before any regime or bias tightening. Candidates below this floor
// are structurally unviable and never publish.
func (a Archetype) RRFloorBase() float64 {
	if spec, ok := archetypeSpecs[a]; ok {
		return spec.rrFloor
	}
	return 1.5
}

// RRFloor returns the minimum acceptable risk/reward for the archetype
// under the given regime. The floor tightens in dead or extreme
// volatility and when the higher-timeframe bias window is incomplete.
func (a Archetype) RRFloor(regime market.VolatilityRegime, biasComplete bool) float64 {
	floor := a.RRFloorBase()
	switch regime {
	case market.RegimeDead, market.RegimeExtreme:
		floor += 0.3
	}
	if !biasComplete {
		floor += 0.4
	}
	return floor
}

// Catalog lists every archetype in generation order
func Catalog() []Archetype {
	return []Archetype{
		ArchetypeTrendPullback,
		ArchetypeBreakoutRetest,
		ArchetypeSqueezeBreakout,
		ArchetypeSweepReversal,
		ArchetypeFailedSweep,
		ArchetypeRangeMeanRevert,
		ArchetypeScalpRangeFade,
		ArchetypeScalpSnapback,
		ArchetypeScalpMomentum,
		ArchetypeScalpReaction1h,
	}
}
