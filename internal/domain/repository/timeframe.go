package repository

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1h Timeframe = "1h"
	TF4h Timeframe = "4h"
	TF1d Timeframe = "1d"
	TF1w Timeframe = "1w"
	TF1M Timeframe = "1M"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1h, TF4h, TF1d, TF1w, TF1M:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF4h }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// DefaultVisibleCandles is the trailing candle count shown when a chart opens.
// Zero means the whole series is fitted into view.
func DefaultVisibleCandles(tf Timeframe) int {
	switch tf {
	case TF1h:
		return 48
	case TF4h:
		return 42
	case TF1d:
		return 30
	case TF1w:
		return 26
	default:
		return 0
	}
}
