package setups

import (
	"testing"

	"trade-setup-engine/internal/market"
)

func TestSetupIDStableUnderFloatJitter(t *testing.T) {
	base := SetupID("BTCUSDT", ArchetypeBreakoutRetest, SideLong, market.TF4h, market.TF15m, market.TF15m, 65000.1)
	jittered := SetupID("BTCUSDT", ArchetypeBreakoutRetest, SideLong, market.TF4h, market.TF15m, market.TF15m, 65000.1000000004)
	if base != jittered {
		t.Error("float jitter below the rounding step changed the setup id")
	}
}

func TestSetupIDDiscriminates(t *testing.T) {
	base := SetupID("BTCUSDT", ArchetypeBreakoutRetest, SideLong, market.TF4h, market.TF15m, market.TF15m, 65000)
	tests := []struct {
		name string
		id   string
	}{
		{"different symbol", SetupID("ETHUSDT", ArchetypeBreakoutRetest, SideLong, market.TF4h, market.TF15m, market.TF15m, 65000)},
		{"different archetype", SetupID("BTCUSDT", ArchetypeTrendPullback, SideLong, market.TF4h, market.TF15m, market.TF15m, 65000)},
		{"different side", SetupID("BTCUSDT", ArchetypeBreakoutRetest, SideShort, market.TF4h, market.TF15m, market.TF15m, 65000)},
		{"different anchor", SetupID("BTCUSDT", ArchetypeBreakoutRetest, SideLong, market.TF4h, market.TF15m, market.TF15m, 66000)},
		{"different trigger tf", SetupID("BTCUSDT", ArchetypeBreakoutRetest, SideLong, market.TF4h, market.TF15m, market.TF1h, 65000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.id == base {
				t.Error("distinct canonical key collided with base id")
			}
		})
	}
}

func TestSetupIDDeterministic(t *testing.T) {
	a := SetupID("SOLUSDT", ArchetypeSweepReversal, SideShort, market.TF4h, market.TF15m, market.TF15m, 142.37)
	b := SetupID("SOLUSDT", ArchetypeSweepReversal, SideShort, market.TF4h, market.TF15m, market.TF15m, 142.37)
	if a != b {
		t.Error("identical canonical keys produced different ids")
	}
	if len(a) != 16 {
		t.Errorf("id length = %d, want 16 hex chars", len(a))
	}
}
