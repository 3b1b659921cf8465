package setups

// Tier is the trigger-readiness stage of a setup. It is strictly
// monotonic within a setup's lifetime: merges can only move it forward.
type Tier int

const (
	TierApproaching Tier = iota
	TierTouched
	TierConfirmed
)

func (t Tier) String() string {
	switch t {
	case TierTouched:
		return "TOUCHED"
	case TierConfirmed:
		return "CONFIRMED"
	default:
		return "APPROACHING"
	}
}

// MarshalText serializes the tier for JSON output
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a tier name; unknown names map to APPROACHING
func (t *Tier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "TOUCHED":
		*t = TierTouched
	case "CONFIRMED":
		*t = TierConfirmed
	default:
		*t = TierApproaching
	}
	return nil
}

// MergeTier applies the monotonic merge rule: the result is always
// max(prev, candidate), and a confirmed trigger forces CONFIRMED
// regardless of the candidate tier.
func MergeTier(prev, candidate Tier, confirmed bool) Tier {
	if confirmed {
		return TierConfirmed
	}
	if candidate > prev {
		return candidate
	}
	return prev
}
