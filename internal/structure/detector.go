// Package structure implements market-structure detection: swing
// highs/lows via a symmetric fractal window, break-of-structure vs
// change-of-character classification, liquidity sweeps, and key
// support/resistance level location.
package structure

import (
	"trade-setup-engine/internal/market"
)

// Trend represents the tracked structural trend of a timeframe
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendRange   Trend = "range"
	TrendUnknown Trend = "unknown"
)

// SwingKind distinguishes swing highs from swing lows
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// SwingPoint represents a confirmed fractal extreme
type SwingPoint struct {
	Kind     SwingKind `json:"kind"`
	Time     int64     `json:"time"` // epoch millis of the swing candle
	Price    float64   `json:"price"`
	Strength int       `json:"strength"` // bars dominated on the weaker side
}

// EventKind distinguishes structural break types
type EventKind string

const (
	EventBOS   EventKind = "bos"   // continuation break
	EventCHOCH EventKind = "choch" // reversal break, flips trend
)

// Direction is the direction of a break or sweep
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// StructureEvent records a close beyond a tracked swing extreme
type StructureEvent struct {
	Kind      EventKind        `json:"kind"`
	Direction Direction        `json:"direction"`
	Timeframe market.Timeframe `json:"timeframe"`
	Time      int64            `json:"time"`
	Level     float64          `json:"level"` // the broken swing price
	Close     float64          `json:"close"`
}

// SweepEvent records a wick through a swing extreme with the close
// reclaiming back inside
type SweepEvent struct {
	Direction Direction        `json:"direction"` // direction price is expected to reverse toward
	Timeframe market.Timeframe `json:"timeframe"`
	Time      int64            `json:"time"`
	Level     float64          `json:"level"`
	WickHigh  float64          `json:"wick_high"`
	WickLow   float64          `json:"wick_low"`
	Close     float64          `json:"close"`
}

// Analysis is the full structural read of one timeframe
type Analysis struct {
	Timeframe     market.Timeframe `json:"timeframe"`
	Trend         Trend            `json:"trend"`
	LastSwingHigh *SwingPoint      `json:"last_swing_high,omitempty"`
	LastSwingLow  *SwingPoint      `json:"last_swing_low,omitempty"`
	RecentSwings  []SwingPoint     `json:"recent_swings,omitempty"`
	LastBOS       *StructureEvent  `json:"last_bos,omitempty"`
	LastCHOCH     *StructureEvent  `json:"last_choch,omitempty"`
	LastSweep     *SweepEvent      `json:"last_sweep,omitempty"`
	BullishBreak  bool             `json:"bullish_break"` // most recent break direction up
	BearishBreak  bool             `json:"bearish_break"`
}

// LastBreak returns the most recent structure event of either kind
func (a *Analysis) LastBreak() *StructureEvent {
	if a.LastBOS == nil {
		return a.LastCHOCH
	}
	if a.LastCHOCH == nil {
		return a.LastBOS
	}
	if a.LastCHOCH.Time > a.LastBOS.Time {
		return a.LastCHOCH
	}
	return a.LastBOS
}

const maxRecentSwings = 12

// Detector detects swings, breaks, and sweeps on a single timeframe.
// It is stateless: Analyze re-walks the full confirmed history each
// call, so re-running on identical candles yields identical results.
type Detector struct {
	halfWindow int
}

// NewDetector creates a detector with the given fractal half-window.
// A candle is a swing high iff no candle within +/- halfWindow bars has
// an equal-or-greater high (symmetric rule for lows).
func NewDetector(halfWindow int) *Detector {
	if halfWindow <= 0 {
		halfWindow = 2
	}
	return &Detector{halfWindow: halfWindow}
}

// Analyze walks the confirmed candles of one timeframe and returns the
// structural read. prevTrend seeds the trend for incremental use; pass
// TrendUnknown for a stateless full re-read. The seed only affects how
// the first break of the walk is classified (a break against a seeded
// trend reads as CHOCH where an unseeded walk reads BOS); every later
// event follows the trend the walk itself has resolved.
func (d *Detector) Analyze(tf market.Timeframe, candles []market.Candle, prevTrend Trend) *Analysis {
	analysis := &Analysis{Timeframe: tf, Trend: prevTrend}
	if analysis.Trend == "" || analysis.Trend == TrendUnknown {
		analysis.Trend = TrendRange
	}

	confirmed := market.Confirmed(candles)
	if len(confirmed) < 2*d.halfWindow+1 {
		return analysis
	}

	swings := d.findSwings(confirmed)
	if len(swings) == 0 {
		return analysis
	}

	// Expose the most recent swings for downstream consumers, capped
	start := 0
	if len(swings) > maxRecentSwings {
		start = len(swings) - maxRecentSwings
	}
	for _, s := range swings[start:] {
		analysis.RecentSwings = append(analysis.RecentSwings, s.SwingPoint)
	}
	for i := range swings {
		s := swings[i].SwingPoint
		if s.Kind == SwingHigh {
			analysis.LastSwingHigh = &s
		} else {
			analysis.LastSwingLow = &s
		}
	}

	d.walkBreaks(analysis, confirmed, swings)
	d.detectSweep(analysis, confirmed)

	if last := analysis.LastBreak(); last != nil {
		analysis.BullishBreak = last.Direction == DirectionUp
		analysis.BearishBreak = last.Direction == DirectionDown
	}
	return analysis
}

// swingMark ties a swing point to the candle index it occurred at, so
// the break walk can re-arm extremes only once the fractal is complete
type swingMark struct {
	SwingPoint
	index int
}

// findSwings scans for fractal extremes. The returned slice is ordered
// by candle index.
func (d *Detector) findSwings(candles []market.Candle) []swingMark {
	w := d.halfWindow
	var swings []swingMark
	for i := w; i < len(candles)-w; i++ {
		isHigh := true
		isLow := true
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			swings = append(swings, swingMark{
				SwingPoint: SwingPoint{
					Kind:     SwingHigh,
					Time:     candles[i].OpenTime,
					Price:    candles[i].High,
					Strength: d.dominanceSpan(candles, i, true),
				},
				index: i,
			})
		} else if isLow {
			swings = append(swings, swingMark{
				SwingPoint: SwingPoint{
					Kind:     SwingLow,
					Time:     candles[i].OpenTime,
					Price:    candles[i].Low,
					Strength: d.dominanceSpan(candles, i, false),
				},
				index: i,
			})
		}
	}
	return swings
}

// dominanceSpan counts how many bars on the weaker side the extreme
// dominates beyond the fractal window, capped at 10. A rough measure
// of swing significance.
func (d *Detector) dominanceSpan(candles []market.Candle, i int, high bool) int {
	const maxSpan = 10
	left, right := 0, 0
	for j := i - 1; j >= 0 && left < maxSpan; j-- {
		if high && candles[j].High >= candles[i].High {
			break
		}
		if !high && candles[j].Low <= candles[i].Low {
			break
		}
		left++
	}
	for j := i + 1; j < len(candles) && right < maxSpan; j++ {
		if high && candles[j].High >= candles[i].High {
			break
		}
		if !high && candles[j].Low <= candles[i].Low {
			break
		}
		right++
	}
	if left < right {
		return left
	}
	return right
}

// walkBreaks walks candles left-to-right maintaining the current
// unconsumed swing extremes. A swing only becomes visible halfWindow
// bars after its own candle (the fractal needs that many future bars),
// which keeps the walk non-repainting. A close beyond the tracked
// extreme in the prevailing trend direction emits BOS; against it,
// CHOCH, which flips the trend. The consumed extreme is cleared so
// price staying beyond it cannot re-trigger.
func (d *Detector) walkBreaks(analysis *Analysis, candles []market.Candle, swings []swingMark) {
	w := d.halfWindow
	trend := analysis.Trend
	var curHigh, curLow *swingMark
	next := 0

	for i := range candles {
		// Arm swings whose fractal window completed at this bar
		for next < len(swings) && swings[next].index+w <= i {
			s := swings[next]
			if s.Kind == SwingHigh {
				curHigh = &s
			} else {
				curLow = &s
			}
			next++
		}

		c := candles[i]
		if curHigh != nil && c.Close > curHigh.Price {
			kind := EventBOS
			if trend == TrendDown {
				kind = EventCHOCH
			}
			ev := &StructureEvent{
				Kind:      kind,
				Direction: DirectionUp,
				Timeframe: analysis.Timeframe,
				Time:      c.OpenTime,
				Level:     curHigh.Price,
				Close:     c.Close,
			}
			if kind == EventBOS {
				analysis.LastBOS = ev
			} else {
				analysis.LastCHOCH = ev
			}
			trend = TrendUp
			curHigh = nil
		}
		if curLow != nil && c.Close < curLow.Price {
			kind := EventBOS
			if trend == TrendUp {
				kind = EventCHOCH
			}
			ev := &StructureEvent{
				Kind:      kind,
				Direction: DirectionDown,
				Timeframe: analysis.Timeframe,
				Time:      c.OpenTime,
				Level:     curLow.Price,
				Close:     c.Close,
			}
			if kind == EventBOS {
				analysis.LastBOS = ev
			} else {
				analysis.LastCHOCH = ev
			}
			trend = TrendDown
			curLow = nil
		}
	}
	analysis.Trend = trend
}

// detectSweep evaluates the last confirmed candle against the last
// known swing extremes: a wick through the extreme with the close back
// inside is a liquidity sweep
func (d *Detector) detectSweep(analysis *Analysis, candles []market.Candle) {
	last := candles[len(candles)-1]

	// Use swings strictly older than the last candle as sweep targets
	var refHigh, refLow *SwingPoint
	for i := range analysis.RecentSwings {
		s := &analysis.RecentSwings[i]
		if s.Time >= last.OpenTime {
			continue
		}
		if s.Kind == SwingHigh {
			refHigh = s
		} else {
			refLow = s
		}
	}
	if refHigh == nil && analysis.LastSwingHigh != nil && analysis.LastSwingHigh.Time < last.OpenTime {
		refHigh = analysis.LastSwingHigh
	}
	if refLow == nil && analysis.LastSwingLow != nil && analysis.LastSwingLow.Time < last.OpenTime {
		refLow = analysis.LastSwingLow
	}

	if refHigh != nil && last.High > refHigh.Price && last.Close < refHigh.Price {
		analysis.LastSweep = &SweepEvent{
			Direction: DirectionDown,
			Timeframe: analysis.Timeframe,
			Time:      last.OpenTime,
			Level:     refHigh.Price,
			WickHigh:  last.High,
			WickLow:   last.Low,
			Close:     last.Close,
		}
		return
	}
	if refLow != nil && last.Low < refLow.Price && last.Close > refLow.Price {
		analysis.LastSweep = &SweepEvent{
			Direction: DirectionUp,
			Timeframe: analysis.Timeframe,
			Time:      last.OpenTime,
			Level:     refLow.Price,
			WickHigh:  last.High,
			WickLow:   last.Low,
			Close:     last.Close,
		}
	}
}
