package trigger

import (
	"time"

	"trade-setup-engine/internal/market"
	"trade-setup-engine/internal/setups"
)

// PriorityScore orders setups for an operator's attention, clamped to
// [0, 100]. Distance to the entry zone dominates; lifecycle status,
// trigger readiness, data quality, and confidence contribute; setups
// close to expiry bleed priority. The score is display-only and never
// feeds back into status or execution state.
func PriorityScore(s *setups.TradeSetup, mid float64, features *market.FeatureSummary, now time.Time) float64 {
	score := zoneDistanceScore(s, mid)

	switch s.Status {
	case setups.StatusTriggered:
		score += 25
	case setups.StatusReady:
		score += 20
	case setups.StatusForming:
		score += 8
	}

	switch s.Entry.Trigger.Tier {
	case setups.TierConfirmed:
		score += 10
	case setups.TierTouched:
		score += 6
	}

	switch features.Quality.DataQualityGrade {
	case market.GradeAPlus, market.GradeA:
		score += 5
	case market.GradeB:
		score += 2
	case market.GradeC:
		score -= 5
	default:
		score -= 15
	}

	score += s.Confidence.Score * 0.2

	score -= expiryPenalty(s, now)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// zoneDistanceScore is the dominant term: 40 points inside the zone,
// decaying with basis-point distance outside it
func zoneDistanceScore(s *setups.TradeSetup, mid float64) float64 {
	if mid <= 0 {
		return 0
	}
	zone := s.Entry.Zone
	var dist float64
	switch {
	case zone.Contains(mid):
		dist = 0
	case mid < zone.Lo:
		dist = zone.Lo - mid
	default:
		dist = mid - zone.Hi
	}
	bps := dist / mid * 10000
	return 40 / (1 + bps/25)
}

// expiryPenalty grows as the setup approaches its expiry: zero through
// the first three quarters of its life, scaling to 10 at expiry, 30
// once past it
func expiryPenalty(s *setups.TradeSetup, now time.Time) float64 {
	horizon := s.ExpiresAt.Sub(s.CreatedAt)
	if horizon <= 0 {
		return 0
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 30
	}
	fraction := float64(remaining) / float64(horizon)
	if fraction >= 0.25 {
		return 0
	}
	return 10 * (0.25 - fraction) / 0.25
}
