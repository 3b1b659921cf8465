package setups

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"trade-setup-engine/internal/market"
)

// SetupID derives the stable identity hash for a setup. The same
// structural idea must keep the same id across re-evaluations, so the
// anchor price is rounded through decimal before hashing: float jitter
// below the rounding step cannot produce a new identity.
func SetupID(symbol string, archetype Archetype, side Side, biasTF, entryTF, triggerTF market.Timeframe, anchor float64) string {
	key := strings.Join([]string{
		symbol,
		string(archetype),
		string(side),
		string(biasTF),
		string(entryTF),
		string(triggerTF),
		roundAnchor(anchor),
	}, "|")
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

// roundAnchor renders the anchor price at a precision scaled to its
// magnitude, so the rounding step stays near 2 bps of price across
// assets from sub-cent alts to six-figure majors
func roundAnchor(anchor float64) string {
	d := decimal.NewFromFloat(anchor)
	var places int32
	switch {
	case anchor >= 10000:
		places = 0
	case anchor >= 1000:
		places = 1
	case anchor >= 100:
		places = 2
	case anchor >= 10:
		places = 3
	case anchor >= 1:
		places = 4
	case anchor >= 0.01:
		places = 6
	default:
		places = 8
	}
	return d.Round(places).String()
}
