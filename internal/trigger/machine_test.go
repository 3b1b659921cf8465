package trigger

import (
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/setups"
)

var baseNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestMachine() *Machine {
	return NewMachine(DefaultConfig(), zerolog.Nop())
}

// breakoutSetup is a READY breakout-retest long off a broken 100.00
// level: retest band [99.92, 100.06], stop 99.20
func breakoutSetup(now time.Time) *setups.TradeSetup {
	return &setups.TradeSetup{
		ID:               "f1e2d3c4b5a69788",
		Symbol:           "BTCUSDT",
		Archetype:        setups.ArchetypeBreakoutRetest,
		Side:             setups.SideLong,
		Status:           setups.StatusReady,
		BiasTimeframe:    market.TF4h,
		EntryTimeframe:   market.TF15m,
		TriggerTimeframe: market.TF15m,
		Entry: setups.EntryPlan{
			Mode: setups.ModeLimit,
			Zone: setups.Zone{Lo: 99.92, Hi: 100.06},
			Trigger: setups.TriggerPlan{
				Tier:      setups.TierApproaching,
				Timeframe: market.TF15m,
				Checklist: []setups.ChecklistItem{
					{Key: setups.CheckBOS, OK: true, Note: "up BOS at 100"},
					{Key: setups.CheckRetest, OK: false, Note: "awaiting retest of broken level"},
					{Key: setups.CheckCloseConfirm, OK: false, Note: "awaiting confirming close beyond level"},
					{Key: setups.CheckPreTrigger, OK: false, Note: "price not yet in retest band"},
				},
			},
		},
		Stop: setups.StopPlan{Price: 99.20, Basis: "below broken level"},
		TakeProfits: []setups.TakeProfitLeg{
			{Price: 102, Portion: 0.5, Label: "TP1"},
			{Price: 103, Portion: 0.5, Label: "TP2"},
		},
		RiskRewardMin: 2.25,
		Confidence:    setups.Confidence{Score: 75, Grade: market.GradeB, GradePlus: market.GradeB},
		AnchorPrice:   100,
		CreatedAt:     now.Add(-time.Hour),
		ExpiresAt:     now.Add(3 * time.Hour),
	}
}

func confirmedBar(openTime time.Time, o, h, l, c float64) market.Candle {
	return market.Candle{
		OpenTime: openTime.UnixMilli(),
		Open:     o, High: h, Low: l, Close: c,
		Volume: 100, Confirmed: true,
	}
}

// tick builds a TickInput with the given mid price and 15m candles,
// plus a single settled 4h status bar
func tick(now time.Time, mid float64, m15 ...market.Candle) TickInput {
	return TickInput{
		Snapshot: &market.Snapshot{
			Symbol: "BTCUSDT",
			Timeframes: []market.TimeframeSeries{
				{Timeframe: market.TF15m, Candles: m15},
				{Timeframe: market.TF4h, Candles: []market.Candle{
					confirmedBar(baseNow.Add(-4*time.Hour), 99, 101, 98, 100),
				}},
			},
			Price: market.PriceQuote{Mid: mid, Bid: mid - 0.01, Ask: mid + 0.01, Timestamp: now},
		},
		Features: &market.FeatureSummary{
			Quality: market.QualityFeatures{DataQualityGrade: market.GradeA, PrimaryFeedOk: true, SecondaryFeedOk: true},
			Bias:    market.BiasFeatures{Timeframe: market.TF4h, Direction: market.BiasBullish, Strength: 0.8, Complete: true, VolatilityRegime: market.RegimeNormal},
		},
		Now: now,
	}
}

func TestBreakoutRetestTriggersOnConfirmingClose(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)

	// First tick: price retests into the band; the candle closing at
	// this tick becomes the confirmation baseline
	baseline := confirmedBar(baseNow.Add(-15*time.Minute), 100.4, 100.5, 99.9, 99.95)
	s := breakoutSetup(baseNow)
	m.Step(s, tick(baseNow, 99.98, baseline), cache)

	if s.Status != setups.StatusReady {
		t.Fatalf("status = %s after retest tick, want READY", s.Status)
	}
	if s.Entry.Trigger.Tier != setups.TierTouched {
		t.Fatalf("tier = %s inside the zone, want TOUCHED", s.Entry.Trigger.Tier)
	}
	if !setups.ChecklistItemOK(s.Entry.Trigger.Checklist, setups.CheckRetest) {
		t.Error("retest checklist entry should pass inside the band")
	}

	// Second tick: a strictly newer 15m close at 100.30 with a strong
	// body beyond the level confirms the trigger
	later := baseNow.Add(15 * time.Minute)
	confirming := confirmedBar(baseNow, 99.95, 100.35, 99.90, 100.30)
	s2 := breakoutSetup(baseNow)
	m.Step(s2, tick(later, 100.28, baseline, confirming), cache)

	if s2.Status != setups.StatusTriggered {
		t.Fatalf("status = %s after confirming close, want TRIGGERED", s2.Status)
	}
	if s2.Entry.Trigger.Tier != setups.TierConfirmed {
		t.Errorf("tier = %s, want CONFIRMED", s2.Entry.Trigger.Tier)
	}
	if s2.Execution == nil || s2.Execution.State != setups.ExecWaitFill {
		t.Errorf("execution = %+v, want WAIT_FILL on a triggered limit setup", s2.Execution)
	}
}

func TestBaselineCloseCannotTrigger(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)

	// The candle already satisfies the confirmation rule, but it is the
	// one observed when READY was first seen
	confirming := confirmedBar(baseNow.Add(-15*time.Minute), 99.95, 100.35, 99.90, 100.30)
	s := breakoutSetup(baseNow)
	m.Step(s, tick(baseNow, 100.00, confirming), cache)

	if s.Status != setups.StatusReady {
		t.Fatalf("status = %s, the baseline close must never trigger", s.Status)
	}
}

func TestHardInvalidationPreemptsCloseConfirm(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)

	baseline := confirmedBar(baseNow.Add(-15*time.Minute), 100.4, 100.5, 99.9, 99.95)
	s := breakoutSetup(baseNow)
	m.Step(s, tick(baseNow, 99.98, baseline), cache)

	// A perfect confirming close arrives, but mid has breached the stop
	later := baseNow.Add(15 * time.Minute)
	confirming := confirmedBar(baseNow, 99.95, 100.35, 99.90, 100.30)
	s2 := breakoutSetup(baseNow)
	m.Step(s2, tick(later, 99.10, baseline, confirming), cache)

	if s2.Status != setups.StatusInvalidated {
		t.Fatalf("status = %s, stop breach must pre-empt any pending confirmation", s2.Status)
	}
	if s2.Execution.State != setups.ExecNoTrade {
		t.Errorf("execution = %s, want NO_TRADE on a terminal setup", s2.Execution.State)
	}
}

func TestExpiryProducesNoTrade(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)

	baseline := confirmedBar(baseNow.Add(-15*time.Minute), 100.4, 100.5, 99.9, 99.95)
	s := breakoutSetup(baseNow)
	s.ExpiresAt = baseNow.Add(-time.Minute)
	m.Step(s, tick(baseNow, 99.98, baseline), cache)

	if s.Status != setups.StatusExpired {
		t.Fatalf("status = %s, want EXPIRED", s.Status)
	}
	if s.Execution.State != setups.ExecNoTrade {
		t.Errorf("execution = %s, want NO_TRADE", s.Execution.State)
	}
}

func TestExtendedGradeCForcesMonitor(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)

	baseline := confirmedBar(baseNow.Add(-15*time.Minute), 100.4, 100.5, 99.9, 99.95)
	s := breakoutSetup(baseNow)
	s.Confidence.GradePlus = market.GradeC
	m.Step(s, tick(baseNow, 99.98, baseline), cache)

	if s.Status != setups.StatusReady {
		t.Fatalf("status = %s, grading must not mutate status", s.Status)
	}
	if s.Execution.State != setups.ExecMonitor {
		t.Errorf("execution = %s, want MONITOR at extended grade C", s.Execution.State)
	}
	if s.Execution.CanPlaceLimit {
		t.Error("canPlaceLimit must be false under MONITOR")
	}
}

func TestStaleCandlesBlockTriggering(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)

	// Last confirmed 15m close is two hours old: well beyond 2 bars +
	// grace. Even a rule-satisfying close must not trigger.
	stale := confirmedBar(baseNow.Add(-2*time.Hour), 99.95, 100.35, 99.90, 100.30)
	s := breakoutSetup(baseNow)
	m.Step(s, tick(baseNow, 99.98, stale), cache)

	if s.Status == setups.StatusTriggered {
		t.Fatal("stale candles must never trigger a setup")
	}
	if setups.ChecklistItemOK(s.Entry.Trigger.Checklist, setups.CheckFreshData) {
		t.Error("fresh_data must be flagged as failing on stale candles")
	}
}

func TestTierMonotonicWithHysteresis(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)
	baseline := confirmedBar(baseNow.Add(-15*time.Minute), 100.4, 100.5, 99.9, 99.95)

	steps := []struct {
		mid  float64
		want setups.Tier
	}{
		{99.98, setups.TierTouched},  // inside the zone
		{100.10, setups.TierTouched}, // just outside, within hysteresis
		{101.00, setups.TierTouched}, // far away, tier must not regress
	}
	for i, st := range steps {
		s := breakoutSetup(baseNow)
		in := tick(baseNow.Add(time.Duration(i)*time.Minute), st.mid, baseline)
		m.Step(s, in, cache)
		if s.Entry.Trigger.Tier != st.want {
			t.Fatalf("step %d (mid %.2f): tier = %s, want %s", i, st.mid, s.Entry.Trigger.Tier, st.want)
		}
	}
}

func TestStepIdempotentOnUnchangedSnapshot(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)
	baseline := confirmedBar(baseNow.Add(-15*time.Minute), 100.4, 100.5, 99.9, 99.95)
	in := tick(baseNow, 99.98, baseline)

	first := breakoutSetup(baseNow)
	m.Step(first, in, cache)
	second := breakoutSetup(baseNow)
	m.Step(second, in, cache)

	if first.Status != second.Status {
		t.Errorf("status drifted: %s vs %s", first.Status, second.Status)
	}
	if first.Entry.Trigger.Tier != second.Entry.Trigger.Tier {
		t.Errorf("tier drifted: %s vs %s", first.Entry.Trigger.Tier, second.Entry.Trigger.Tier)
	}
	if !reflect.DeepEqual(first.Entry.Trigger.Checklist, second.Entry.Trigger.Checklist) {
		t.Errorf("checklist drifted:\n%+v\nvs\n%+v", first.Entry.Trigger.Checklist, second.Entry.Trigger.Checklist)
	}
	if !reflect.DeepEqual(first.Execution, second.Execution) {
		t.Errorf("execution drifted:\n%+v\nvs\n%+v", first.Execution, second.Execution)
	}
	if !reflect.DeepEqual(first.Telemetry, second.Telemetry) {
		t.Errorf("telemetry drifted:\n%+v\nvs\n%+v", first.Telemetry, second.Telemetry)
	}
}

func TestStatusStabilizationHoldsUntilNewBar(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)
	baseline := confirmedBar(baseNow.Add(-15*time.Minute), 100.4, 100.5, 99.9, 99.95)

	// Establish READY on the current 4h status bar
	s := breakoutSetup(baseNow)
	m.Step(s, tick(baseNow, 101.0, baseline), cache)
	if s.Status != setups.StatusReady {
		t.Fatalf("status = %s, want READY", s.Status)
	}

	// Sub-bar downgrade to FORMING with no new 4h bar: held at READY
	flicker := breakoutSetup(baseNow)
	flicker.Status = setups.StatusForming
	m.Step(flicker, tick(baseNow.Add(time.Minute), 101.0, baseline), cache)
	if flicker.Status != setups.StatusReady {
		t.Fatalf("status = %s, sub-bar flicker must be suppressed", flicker.Status)
	}

	// A new settled 4h bar lets the downgrade through
	later := baseNow.Add(5 * time.Minute)
	in := tick(later, 101.0, baseline)
	in.Snapshot.Timeframes[1].Candles = append(in.Snapshot.Timeframes[1].Candles,
		confirmedBar(baseNow, 100, 101.5, 99.5, 101))
	downgraded := breakoutSetup(baseNow)
	downgraded.Status = setups.StatusForming
	m.Step(downgraded, in, cache)
	if downgraded.Status != setups.StatusForming {
		t.Fatalf("status = %s, a new status bar must release the hold", downgraded.Status)
	}
}

func TestPausedEngineBlocksExecution(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)
	baseline := confirmedBar(baseNow.Add(-15*time.Minute), 100.4, 100.5, 99.9, 99.95)

	s := breakoutSetup(baseNow)
	in := tick(baseNow, 99.98, baseline)
	in.Paused = true
	m.Step(s, in, cache)

	if s.Execution.State != setups.ExecBlocked {
		t.Fatalf("execution = %s, want BLOCKED while paused", s.Execution.State)
	}
	if s.Execution.CanEnterMarket || s.Execution.CanPlaceLimit {
		t.Error("no order permission may survive a global gate")
	}
	if s.Status != setups.StatusReady {
		t.Error("gating must not mutate the canonical status")
	}
}

func TestStalePriceFeedBlocksExecution(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)
	baseline := confirmedBar(baseNow.Add(-15*time.Minute), 100.4, 100.5, 99.9, 99.95)

	s := breakoutSetup(baseNow)
	in := tick(baseNow, 99.98, baseline)
	in.Snapshot.Price.Timestamp = baseNow.Add(-20 * time.Minute)
	m.Step(s, in, cache)

	if s.Execution.State != setups.ExecBlocked {
		t.Fatalf("execution = %s, want BLOCKED on a stale price feed", s.Execution.State)
	}
}

func TestGradeAPlacesLimitOnTouch(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)
	baseline := confirmedBar(baseNow.Add(-15*time.Minute), 100.4, 100.5, 99.9, 99.95)

	s := breakoutSetup(baseNow)
	s.Confidence.Grade = market.GradeA
	s.Confidence.GradePlus = market.GradeA
	m.Step(s, tick(baseNow, 99.98, baseline), cache)

	if s.Execution.State != setups.ExecPlaceLimit {
		t.Fatalf("execution = %s, grade A with a touched zone should place the limit", s.Execution.State)
	}
	if !s.Execution.CanPlaceLimit {
		t.Error("canPlaceLimit must be true under PLACE_LIMIT")
	}
}

func TestFormingDisplayConfidenceSoftened(t *testing.T) {
	m := newTestMachine()
	cache := NewRuntimeCache(0)
	baseline := confirmedBar(baseNow.Add(-15*time.Minute), 100.4, 100.5, 99.9, 99.95)

	forming := breakoutSetup(baseNow)
	forming.Status = setups.StatusForming
	m.Step(forming, tick(baseNow, 101.0, baseline), cache)
	if forming.DisplayConfidence >= forming.Confidence.Score {
		t.Errorf("display confidence %.1f should sit below raw %.1f while forming",
			forming.DisplayConfidence, forming.Confidence.Score)
	}

	ready := breakoutSetup(baseNow)
	cache.Reset()
	m.Step(ready, tick(baseNow, 101.0, baseline), cache)
	if ready.DisplayConfidence != ready.Confidence.Score {
		t.Errorf("READY confidence must never be rescaled: display %.1f, raw %.1f",
			ready.DisplayConfidence, ready.Confidence.Score)
	}
}
