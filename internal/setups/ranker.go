package setups

import (
	"sort"
)

// Rank orders accepted candidates for publishing: status rank first,
// then confidence score, then minimum risk/reward, then zone tightness
// (narrower zones rank higher), with the stable id as the canonical
// final tie-break. The ranker is the single place preferred-setup
// selection happens; the priority scorer orders display only.
func Rank(candidates []*TradeSetup) {
	sort.SliceStable(candidates, func(a, b int) bool {
		sa, sb := candidates[a], candidates[b]
		if ra, rb := sa.Status.Rank(), sb.Status.Rank(); ra != rb {
			return ra > rb
		}
		if sa.Confidence.Score != sb.Confidence.Score {
			return sa.Confidence.Score > sb.Confidence.Score
		}
		if sa.RiskRewardMin != sb.RiskRewardMin {
			return sa.RiskRewardMin > sb.RiskRewardMin
		}
		if ta, tb := zoneTightness(sa), zoneTightness(sb); ta != tb {
			return ta < tb
		}
		return sa.ID < sb.ID
	})
}

// zoneTightness is the zone height relative to its midpoint; smaller
// is tighter
func zoneTightness(s *TradeSetup) float64 {
	mid := s.Entry.Zone.Mid()
	if mid <= 0 {
		return 1
	}
	return s.Entry.Zone.Width() / mid
}

// Publish returns the bounded top-N after ranking, plus the preferred
// setup id (the highest-ranked survivor, empty when none)
func Publish(candidates []*TradeSetup, topN int) (published []*TradeSetup, preferredID string) {
	Rank(candidates)
	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	if len(candidates) > 0 {
		preferredID = candidates[0].ID
	}
	return candidates, preferredID
}
