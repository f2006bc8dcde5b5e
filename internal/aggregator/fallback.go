package aggregator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"candleservice/internal/index"
)

// Fallback selects the bucket used when the requested hour has no bucket.
type Fallback string

const (
	// FallbackLexical picks the neighbouring key that shares the longest
	// string prefix with the requested key. It is not a time distance: for
	// "2024-03-01T00" it prefers "2024-03-01T20" over "2024-02-29T23".
	FallbackLexical Fallback = "lexical"
	// FallbackTemporal picks the key whose hour is closest in time.
	FallbackTemporal Fallback = "temporal"
	// FallbackNone disables both the whole-bucket and nearest-bucket fallbacks.
	FallbackNone Fallback = "none"
)

// ParseFallback maps a configured name to a Fallback. The empty string
// selects FallbackLexical.
func ParseFallback(name string) (Fallback, error) {
	switch Fallback(strings.ToLower(strings.TrimSpace(name))) {
	case "", FallbackLexical:
		return FallbackLexical, nil
	case FallbackTemporal:
		return FallbackTemporal, nil
	case FallbackNone:
		return FallbackNone, nil
	default:
		return "", fmt.Errorf("unknown candle fallback %q (want lexical, temporal or none)", name)
	}
}

func (f Fallback) nearest(keys []string, target string) (string, bool) {
	switch f {
	case FallbackLexical:
		return nearestLexical(keys, target)
	case FallbackTemporal:
		return nearestTemporal(keys, target)
	default:
		return "", false
	}
}

// nearestLexical compares the two neighbours of target's insertion point in
// the sorted keys by common-prefix length. Ties go to the earlier key.
func nearestLexical(keys []string, target string) (string, bool) {
	if len(keys) == 0 {
		return "", false
	}
	i := sort.SearchStrings(keys, target)
	switch {
	case i == 0:
		return keys[0], true
	case i == len(keys):
		return keys[len(keys)-1], true
	}
	before, after := keys[i-1], keys[i]
	if commonPrefix(after, target) > commonPrefix(before, target) {
		return after, true
	}
	return before, true
}

// nearestTemporal returns the key whose hour has the smallest absolute
// distance to target. Ties go to the earlier key.
func nearestTemporal(keys []string, target string) (string, bool) {
	want, err := index.ParseBucketKey(target)
	if err != nil || len(keys) == 0 {
		return "", false
	}
	var (
		best     string
		bestDist time.Duration = -1
	)
	for _, k := range keys {
		t, err := index.ParseBucketKey(k)
		if err != nil {
			continue
		}
		d := t.Sub(want)
		if d < 0 {
			d = -d
		}
		// keys are sorted ascending, so strict < keeps the earlier key on ties
		if bestDist < 0 || d < bestDist {
			best, bestDist = k, d
		}
	}
	return best, bestDist >= 0
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
