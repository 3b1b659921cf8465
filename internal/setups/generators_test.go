package setups

import (
	"testing"
	"time"

	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/structure"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

// testFeatures returns a clean bullish feature set
func testFeatures() *market.FeatureSummary {
	return &market.FeatureSummary{
		Quality: market.QualityFeatures{DataQualityGrade: market.GradeA, PrimaryFeedOk: true, SecondaryFeedOk: true},
		Bias: market.BiasFeatures{
			Timeframe:        market.TF4h,
			Direction:        market.BiasBullish,
			Strength:         0.8,
			Complete:         true,
			VolatilityRegime: market.RegimeNormal,
			ADX:              30,
			EMASlope:         0.001,
		},
		Entry:     market.EntryFeatures{Timeframe: market.TF15m, Momentum: 0.5, Volatility: 0.01},
		Orderflow: market.OrderflowFeatures{Imbalance: 0.4, AggressionRatio: 1.3, Delta: 800},
		Cross:     market.CrossFeatures{ConsensusScore: 0.85, DeviationZ: 0.3},
	}
}

// testContext builds a bullish context with a fresh 15m BOS at 100.00
// and key levels at 95 and 105
func testContext() *GenContext {
	bosTime := testNow.Add(-30 * time.Minute).UnixMilli()
	fifteen := &structure.Analysis{
		Timeframe: market.TF15m,
		Trend:     structure.TrendUp,
		LastBOS: &structure.StructureEvent{
			Kind:      structure.EventBOS,
			Direction: structure.DirectionUp,
			Timeframe: market.TF15m,
			Time:      bosTime,
			Level:     100.0,
			Close:     100.5,
		},
		LastSwingHigh: &structure.SwingPoint{Kind: structure.SwingHigh, Price: 105.0, Time: bosTime - 3_600_000},
		LastSwingLow:  &structure.SwingPoint{Kind: structure.SwingLow, Price: 98.0, Time: bosTime - 1_800_000},
		BullishBreak:  true,
	}
	return &GenContext{
		Symbol:   "BTCUSDT",
		Now:      testNow,
		Price:    100.30,
		Features: testFeatures(),
		Candles:  map[market.Timeframe][]market.Candle{},
		Structures: map[market.Timeframe]*structure.Analysis{
			market.TF15m: fifteen,
			market.TF4h:  {Timeframe: market.TF4h, Trend: structure.TrendUp},
		},
		Levels: []structure.KeyLevel{
			{Price: 95.0, Kind: structure.LevelSupport, Strength: 3},
			{Price: 105.0, Kind: structure.LevelResistance, Strength: 2},
		},
		ATR:     1.0,
		FastATR: 0.4,
		Params:  DefaultParams(),
	}
}

func TestBreakoutRetestGenerator(t *testing.T) {
	gen := &breakoutRetestGen{}
	setup, skip := gen.Generate(testContext())
	if skip != nil {
		t.Fatalf("unexpected skip: %s", skip.Reason)
	}
	if setup.Side != SideLong {
		t.Errorf("side = %s, want long after up BOS", setup.Side)
	}
	// Retest band around the broken level, not the break itself
	if setup.Entry.Zone.Lo < 99.91 || setup.Entry.Zone.Lo > 99.93 {
		t.Errorf("zone lo = %.4f, want ~99.92", setup.Entry.Zone.Lo)
	}
	if setup.Entry.Zone.Hi < 100.05 || setup.Entry.Zone.Hi > 100.07 {
		t.Errorf("zone hi = %.4f, want ~100.06", setup.Entry.Zone.Hi)
	}
	if setup.Stop.Price >= setup.Entry.Zone.Lo {
		t.Error("stop must sit below the long entry zone")
	}
	if setup.Status != StatusReady {
		t.Errorf("status = %s, want READY with rr %.2f", setup.Status, setup.RiskRewardMin)
	}
	if !ChecklistItemOK(setup.Entry.Trigger.Checklist, CheckBOS) {
		t.Error("bos checklist entry should pass at creation")
	}
	if ChecklistItemOK(setup.Entry.Trigger.Checklist, CheckRetest) {
		t.Error("retest checklist entry must start pending")
	}
}

func TestBreakoutRetestRequiresFreshBOS(t *testing.T) {
	ctx := testContext()
	ctx.Structures[market.TF15m].LastBOS.Time = testNow.Add(-3 * time.Hour).UnixMilli()
	gen := &breakoutRetestGen{}
	setup, skip := gen.Generate(ctx)
	if setup != nil {
		t.Fatal("stale BOS must not produce a breakout candidate")
	}
	if skip == nil || skip.Archetype != ArchetypeBreakoutRetest {
		t.Fatal("expected a readiness skip for the breakout archetype")
	}
}

func TestTrendPullbackGenerator(t *testing.T) {
	gen := &trendPullbackGen{}
	setup, skip := gen.Generate(testContext())
	if skip != nil {
		t.Fatalf("unexpected skip: %s", skip.Reason)
	}
	if setup.Side != SideLong {
		t.Errorf("side = %s, want long with bullish bias", setup.Side)
	}
	if !setup.Entry.Zone.Contains(95.0) {
		t.Errorf("zone %+v should wrap the support level", setup.Entry.Zone)
	}
	if setup.Stop.Price >= setup.Entry.Zone.Lo {
		t.Error("stop must sit below the pullback zone")
	}
}

func TestTrendPullbackSkipsIncompleteBias(t *testing.T) {
	ctx := testContext()
	ctx.Features.Bias.Complete = false
	gen := &trendPullbackGen{}
	setup, skip := gen.Generate(ctx)
	if setup != nil {
		t.Fatal("incomplete bias window must not produce a pullback candidate")
	}
	if skip == nil {
		t.Fatal("expected a readiness skip")
	}
}

func TestSqueezeDefersToFreshBOS(t *testing.T) {
	ctx := testContext()
	ctx.BBWidth = 0.01 // in squeeze, but a fresh BOS exists
	gen := &squeezeBreakoutGen{}
	if setup, _ := gen.Generate(ctx); setup != nil {
		t.Fatal("squeeze archetype is a fallback and must defer to a fresh BOS")
	}

	ctx.Structures[market.TF15m].LastBOS = nil
	setup, skip := gen.Generate(ctx)
	if skip != nil {
		t.Fatalf("unexpected skip: %s", skip.Reason)
	}
	if setup.Side != SideLong {
		t.Errorf("side = %s, want long from bullish bias", setup.Side)
	}
}

func TestSweepReversalGenerator(t *testing.T) {
	ctx := testContext()
	ctx.Structures[market.TF15m].LastSweep = &structure.SweepEvent{
		Direction: structure.DirectionUp,
		Timeframe: market.TF15m,
		Time:      testNow.Add(-20 * time.Minute).UnixMilli(),
		Level:     98.0,
		WickHigh:  98.4,
		WickLow:   97.2,
		Close:     98.5,
	}
	gen := &sweepReversalGen{}
	setup, skip := gen.Generate(ctx)
	if skip != nil {
		t.Fatalf("unexpected skip: %s", skip.Reason)
	}
	if setup.Side != SideLong {
		t.Errorf("side = %s, want long off a swept low", setup.Side)
	}
	if setup.Stop.Price >= 97.2 {
		t.Errorf("stop %.2f must hide beyond the sweep wick low 97.2", setup.Stop.Price)
	}
	if setup.TakeProfits[0].Price != 105.0 {
		t.Errorf("tp1 = %.2f, want the opposite swing at 105", setup.TakeProfits[0].Price)
	}
}

func TestSweepReversalNeedsOppositeTarget(t *testing.T) {
	ctx := testContext()
	ctx.Structures[market.TF15m].LastSweep = &structure.SweepEvent{
		Direction: structure.DirectionUp,
		Timeframe: market.TF15m,
		Time:      testNow.Add(-20 * time.Minute).UnixMilli(),
		Level:     98.0,
		WickHigh:  98.4,
		WickLow:   97.2,
		Close:     98.5,
	}
	ctx.Structures[market.TF15m].LastSwingHigh = nil
	gen := &sweepReversalGen{}
	setup, skip := gen.Generate(ctx)
	if setup != nil {
		t.Fatal("no opposite swing target must not produce a reversal candidate")
	}
	if skip == nil {
		t.Fatal("expected a readiness skip")
	}
}

func TestRangeMeanRevertGenerator(t *testing.T) {
	ctx := testContext()
	ctx.Features.Bias.Direction = market.BiasNeutral
	ctx.Price = 95.5 // near the lower bound

	gen := &rangeMeanRevertGen{}
	setup, skip := gen.Generate(ctx)
	if skip != nil {
		t.Fatalf("unexpected skip: %s", skip.Reason)
	}
	if setup.Side != SideLong {
		t.Errorf("side = %s, want long at the range low", setup.Side)
	}
	if setup.TakeProfits[0].Price != 100.0 {
		t.Errorf("target = %.2f, want the 100.00 range midpoint", setup.TakeProfits[0].Price)
	}
}

func TestRangeMeanRevertStandsDownWhenDirectional(t *testing.T) {
	ctx := testContext()
	ctx.Price = 95.5
	gen := &rangeMeanRevertGen{}
	if setup, _ := gen.Generate(ctx); setup != nil {
		t.Fatal("directional bias must suppress the range fade")
	}
}

func TestScalpMomentumGenerator(t *testing.T) {
	ctx := testContext()
	ctx.Features.Entry.Momentum = 0.6
	gen := &scalpMomentumGen{}
	setup, skip := gen.Generate(ctx)
	if skip != nil {
		t.Fatalf("unexpected skip: %s", skip.Reason)
	}
	if !setup.Archetype.Scalp() {
		t.Error("momentum pullback must be a scalp archetype")
	}
	if setup.ExpiresAt.Sub(setup.CreatedAt) > 2*time.Hour {
		t.Error("scalp expiry horizon should be short")
	}
}

func TestGeneratorsAreDeterministic(t *testing.T) {
	for _, gen := range Generators() {
		a, skipA := gen.Generate(testContext())
		b, skipB := gen.Generate(testContext())
		if (a == nil) != (b == nil) {
			t.Fatalf("%s: candidate presence differs across identical contexts", gen.Archetype())
		}
		if a != nil && a.ID != b.ID {
			t.Errorf("%s: id differs across identical contexts", gen.Archetype())
		}
		if (skipA == nil) != (skipB == nil) {
			t.Errorf("%s: skip presence differs across identical contexts", gen.Archetype())
		}
	}
}
