package market

import (
	"time"
)

// Timeframe represents different chart timeframes
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// Duration returns the bar duration for a timeframe
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether the timeframe is a known chart interval
func (tf Timeframe) Valid() bool {
	return tf.Duration() > 0
}

// Candle represents a single OHLCV bar.
// Confirmed is false for the in-progress bar; only confirmed candles
// feed structural computation (swings, breaks, close anchors).
type Candle struct {
	OpenTime  int64   `json:"open_time"` // epoch millis
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Confirmed bool    `json:"confirmed"`
}

// Bullish reports whether the candle closed above its open
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Range returns high minus low
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// BodyStrength returns |close-open| / (high-low), 0 for degenerate bars
func (c Candle) BodyStrength() float64 {
	r := c.Range()
	if r <= 0 {
		return 0
	}
	body := c.Close - c.Open
	if body < 0 {
		body = -body
	}
	return body / r
}

// Confirmed filters a candle series down to confirmed bars, preserving order
func Confirmed(candles []Candle) []Candle {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if c.Confirmed {
			out = append(out, c)
		}
	}
	return out
}

// LastConfirmed returns the most recent confirmed candle
func LastConfirmed(candles []Candle) (Candle, bool) {
	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].Confirmed {
			return candles[i], true
		}
	}
	return Candle{}, false
}

// PriceQuote is the live top-of-book snapshot for a symbol
type PriceQuote struct {
	Mid       float64   `json:"mid"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Timestamp time.Time `json:"timestamp"`
}

// TimeframeSeries holds the candle history for one timeframe
type TimeframeSeries struct {
	Timeframe Timeframe `json:"timeframe"`
	Candles   []Candle  `json:"candles"`
}

// Snapshot is the unified per-symbol market snapshot consumed from the
// upstream collector layer
type Snapshot struct {
	Symbol     string            `json:"symbol"`
	Timeframes []TimeframeSeries `json:"timeframes"`
	Price      PriceQuote        `json:"price"`
}

// Series returns the candles for a timeframe, or nil if absent
func (s *Snapshot) Series(tf Timeframe) []Candle {
	if s == nil {
		return nil
	}
	for i := range s.Timeframes {
		if s.Timeframes[i].Timeframe == tf {
			return s.Timeframes[i].Candles
		}
	}
	return nil
}

// HasSeries reports whether the snapshot carries any candles for a timeframe
func (s *Snapshot) HasSeries(tf Timeframe) bool {
	return len(s.Series(tf)) > 0
}
