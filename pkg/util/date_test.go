package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
	got, ok = ParseTime(strconv.FormatInt(ts*1000, 10))
	if !ok || got.Unix() != ts {
		t.Fatalf("millisecond input not normalized: %v", got.Unix())
	}
}

func TestParseTimeTwitterLayout(t *testing.T) {
	got, ok := ParseTime("Wed Oct 10 20:19:24 +0000 2018")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestAlignTimestampFixedIntervals(t *testing.T) {
	ts := time.Date(2024, 3, 14, 13, 47, 9, 0, time.UTC).Unix()
	cases := map[string]time.Time{
		"1h": time.Date(2024, 3, 14, 13, 0, 0, 0, time.UTC),
		"4h": time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC),
		"1d": time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
	}
	for tf, want := range cases {
		if got := AlignTimestamp(ts, tf); got != want.Unix() {
			t.Errorf("%s: got %v want %v", tf, time.Unix(got, 0).UTC(), want)
		}
	}
}

func TestAlignTimestampWeekStartsMonday(t *testing.T) {
	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC).Unix()
	// Thursday and the following Sunday both belong to the week starting Monday the 11th.
	thursday := time.Date(2024, 3, 14, 13, 47, 9, 0, time.UTC).Unix()
	sunday := time.Date(2024, 3, 17, 23, 59, 59, 0, time.UTC).Unix()
	if got := AlignTimestamp(thursday, "1w"); got != monday {
		t.Fatalf("thursday aligned to %v", time.Unix(got, 0).UTC())
	}
	if got := AlignTimestamp(sunday, "1w"); got != monday {
		t.Fatalf("sunday aligned to %v", time.Unix(got, 0).UTC())
	}
	if got := AlignTimestamp(monday, "1w"); got != monday {
		t.Fatalf("monday not a fixed point: %v", time.Unix(got, 0).UTC())
	}
}

func TestAlignTimestampMonth(t *testing.T) {
	ts := time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC).Unix()
	want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Unix()
	if got := AlignTimestamp(ts, "1M"); got != want {
		t.Fatalf("got %v", time.Unix(got, 0).UTC())
	}
}

func TestAlignTimestampIdempotent(t *testing.T) {
	base := time.Date(2023, 12, 31, 22, 15, 0, 0, time.UTC).Unix()
	for _, tf := range []string{"1h", "4h", "1d", "1w", "1M"} {
		for i := int64(0); i < 200; i++ {
			ts := base + i*7919
			once := AlignTimestamp(ts, tf)
			if twice := AlignTimestamp(once, tf); twice != once {
				t.Fatalf("%s: align not idempotent for %d: %d != %d", tf, ts, twice, once)
			}
			if once > ts {
				t.Fatalf("%s: aligned value %d after input %d", tf, once, ts)
			}
		}
	}
}

func TestAlignTimestampMonotonic(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	for _, tf := range []string{"1h", "4h", "1d", "1w", "1M"} {
		prev := AlignTimestamp(start, tf)
		for ts := start; ts < start+90*daySeconds; ts += 1800 {
			cur := AlignTimestamp(ts, tf)
			if cur < prev {
				t.Fatalf("%s: aligned value decreased at %d", tf, ts)
			}
			prev = cur
		}
	}
}
