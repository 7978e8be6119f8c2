package util

import (
	"strconv"
	"time"
)

const (
	hourSeconds = int64(3600)
	daySeconds  = 24 * hourSeconds
)

// twitterLayout is the created_at layout used by the legacy Twitter API.
const twitterLayout = "Mon Jan 02 15:04:05 -0700 2006"

// ParseTime tries RFC3339, RFC3339Nano, the Twitter layout, YYYY-MM-DD and unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(twitterLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		if ts > 1e11 { // ms
			ts /= 1000
		}
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// IntervalSeconds returns the fixed width of a candle interval, 0 for calendar intervals.
func IntervalSeconds(tf string) int64 {
	switch tf {
	case "1h":
		return hourSeconds
	case "4h":
		return 4 * hourSeconds
	case "1d":
		return daySeconds
	case "1w", "1M":
		return 0
	default:
		return hourSeconds
	}
}

// AlignTimestamp maps a unix timestamp (seconds) to the start of its enclosing candle.
// Weeks start Monday 00:00 UTC and months on the 1st 00:00 UTC. Unknown timeframes align as 1h.
func AlignTimestamp(ts int64, tf string) int64 {
	switch tf {
	case "1w":
		t := time.Unix(ts, 0).UTC()
		dow := int(t.Weekday())
		offset := dow - 1
		if dow == 0 {
			offset = 6
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -offset).Unix()
	case "1M":
		t := time.Unix(ts, 0).UTC()
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Unix()
	default:
		iv := IntervalSeconds(tf)
		return floorDiv(ts, iv) * iv
	}
}

// floorDiv rounds toward negative infinity so pre-epoch timestamps align downwards too.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
