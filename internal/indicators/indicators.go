// Package indicators wraps the talib primitives the engine needs with
// guards for short candle histories. All functions operate on confirmed
// candles only; callers are responsible for filtering.
package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"trade-setup-engine/internal/market"
)

// Closes extracts the close series
func Closes(candles []market.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high series
func Highs(candles []market.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low series
func Lows(candles []market.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// ATR returns the latest average true range over the period, or 0 when
// the history is too short
func ATR(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) <= period {
		return simpleRange(candles)
	}
	out := talib.Atr(Highs(candles), Lows(candles), Closes(candles), period)
	return lastFinite(out)
}

// ATRPercent returns ATR as a fraction of the last close
func ATRPercent(candles []market.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	last := candles[len(candles)-1].Close
	if last <= 0 {
		return 0
	}
	return ATR(candles, period) / last
}

// EMA returns the latest exponential moving average of closes
func EMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	out := talib.Ema(Closes(candles), period)
	return lastFinite(out)
}

// EMASlope returns the normalized slope of the EMA over lookback bars:
// (ema_now - ema_then) / (lookback * ema_then), positive when rising
func EMASlope(candles []market.Candle, period, lookback int) float64 {
	if period <= 0 || lookback <= 0 || len(candles) < period+lookback {
		return 0
	}
	out := talib.Ema(Closes(candles), period)
	now := out[len(out)-1]
	then := out[len(out)-1-lookback]
	if then == 0 || math.IsNaN(now) || math.IsNaN(then) {
		return 0
	}
	return (now - then) / (float64(lookback) * then)
}

// ADX returns the latest average directional index, or 0 when the
// history is too short
func ADX(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < 2*period+1 {
		return 0
	}
	out := talib.Adx(Highs(candles), Lows(candles), Closes(candles), period)
	return lastFinite(out)
}

// BollingerWidth returns (upper-lower)/middle for the latest bar, a
// squeeze proxy. Returns 0 when the history is too short.
func BollingerWidth(candles []market.Candle, period int, stdDev float64) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	upper, middle, lower := talib.BBands(Closes(candles), period, stdDev, stdDev, talib.SMA)
	m := lastFinite(middle)
	if m == 0 {
		return 0
	}
	return (lastFinite(upper) - lastFinite(lower)) / m
}

// simpleRange approximates volatility from raw candle ranges when the
// history is too short for a proper ATR
func simpleRange(candles []market.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candles {
		sum += c.Range()
	}
	return sum / float64(len(candles))
}

func lastFinite(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		v := series[i]
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}
