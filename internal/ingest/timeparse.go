package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"candleservice/pkg/timezone"
)

// layouts carrying their own offset.
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999 -0700 MST", // time.Time.String()
	time.RFC1123Z,
	"Mon Jan 02 2006 15:04:05 GMT-0700", // JavaScript Date.toString(), zone name stripped
}

// minEpochDigits keeps compact dates such as "20240301" from being read as
// epoch seconds.
const minEpochDigits = 9

// layouts without offset, read in the default location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05.999999999",
	"2006/01/02 15:04",
}

// ParseTimestamp converts a free-form tick timestamp to a UTC instant.
// A trailing zone abbreviation ("2024-03-01 09:00:00 JST") is honoured; a
// timestamp without any zone information is read in loc. Integer inputs of at
// least nine digits are Unix epoch seconds, or milliseconds when larger than
// 1e11.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrMalformedRow)
	}
	if loc == nil {
		loc = time.UTC
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if len(strings.TrimLeft(s, "+-")) < minEpochDigits {
			return time.Time{}, fmt.Errorf("%w: timestamp %q too short for epoch seconds", ErrMalformedRow, s)
		}
		if n > 1e11 || n < -1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	// "... GMT+0900 (Japan Standard Time)"
	if i := strings.Index(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	// "<naive> <ABBR>"
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		if zone, ok := timezone.Abbreviation(s[i+1:]); ok {
			if t, ok := parseNaive(strings.TrimSpace(s[:i]), zone); ok {
				return t.UTC(), nil
			}
		}
	}

	if t, ok := parseNaive(s, loc); ok {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: unrecognised timestamp %q", ErrMalformedRow, s)
}

func parseNaive(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
