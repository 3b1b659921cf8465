package structure

import (
	"sort"

	"trade-setup-engine/internal/market"
)

// LevelKind distinguishes support from resistance levels
type LevelKind string

const (
	LevelSupport    LevelKind = "support"
	LevelResistance LevelKind = "resistance"
)

// KeyLevel is a clustered pivot price with its cluster size as strength
type KeyLevel struct {
	Price    float64   `json:"price"`
	Kind     LevelKind `json:"kind"`
	Strength int       `json:"strength"`
}

// LevelLocator clusters pivot extremes into key support/resistance
// levels
type LevelLocator struct {
	halfWindow int
	epsilonBps float64
	maxLevels  int
}

// NewLevelLocator creates a locator. epsilonBps is the relative
// clustering band in basis points (default 12); maxLevels caps the
// output by strength.
func NewLevelLocator(halfWindow int, epsilonBps float64, maxLevels int) *LevelLocator {
	if halfWindow <= 0 {
		halfWindow = 2
	}
	if epsilonBps <= 0 {
		epsilonBps = 12
	}
	if maxLevels <= 0 {
		maxLevels = 8
	}
	return &LevelLocator{halfWindow: halfWindow, epsilonBps: epsilonBps, maxLevels: maxLevels}
}

type levelCluster struct {
	avg  float64
	n    int
	kind LevelKind
}

// Locate detects raw pivot highs/lows over the trailing lookback bars
// and clusters their prices within the epsilon band, merging by running
// average weighted by cluster size. The result is the top maxLevels
// clusters by strength, sorted by price ascending.
func (l *LevelLocator) Locate(candles []market.Candle, lookback int) []KeyLevel {
	confirmed := market.Confirmed(candles)
	if lookback > 0 && len(confirmed) > lookback {
		confirmed = confirmed[len(confirmed)-lookback:]
	}
	w := l.halfWindow
	if len(confirmed) < 2*w+1 {
		return nil
	}

	var clusters []*levelCluster
	add := func(price float64, kind LevelKind) {
		for _, cl := range clusters {
			if cl.kind != kind {
				continue
			}
			band := cl.avg * l.epsilonBps / 10000
			diff := price - cl.avg
			if diff < 0 {
				diff = -diff
			}
			if diff <= band {
				cl.avg = (cl.avg*float64(cl.n) + price) / float64(cl.n+1)
				cl.n++
				return
			}
		}
		clusters = append(clusters, &levelCluster{avg: price, n: 1, kind: kind})
	}

	for i := w; i < len(confirmed)-w; i++ {
		isHigh := true
		isLow := true
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if confirmed[j].High >= confirmed[i].High {
				isHigh = false
			}
			if confirmed[j].Low <= confirmed[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			add(confirmed[i].High, LevelResistance)
		} else if isLow {
			add(confirmed[i].Low, LevelSupport)
		}
	}
	if len(clusters) == 0 {
		return nil
	}

	// Keep the strongest clusters, then present them in price order
	sort.SliceStable(clusters, func(a, b int) bool {
		return clusters[a].n > clusters[b].n
	})
	if len(clusters) > l.maxLevels {
		clusters = clusters[:l.maxLevels]
	}
	levels := make([]KeyLevel, 0, len(clusters))
	for _, cl := range clusters {
		levels = append(levels, KeyLevel{Price: cl.avg, Kind: cl.kind, Strength: cl.n})
	}
	sort.Slice(levels, func(a, b int) bool {
		return levels[a].Price < levels[b].Price
	})
	return levels
}

// NearestLevels returns the closest level strictly below and the
// closest strictly above the given price. Input must be sorted by
// price ascending, as Locate returns it.
func NearestLevels(levels []KeyLevel, price float64) (below, above *KeyLevel) {
	for i := range levels {
		if levels[i].Price < price {
			below = &levels[i]
		} else if levels[i].Price > price && above == nil {
			above = &levels[i]
		}
	}
	return below, above
}
