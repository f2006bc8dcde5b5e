package index

import (
	"fmt"
	"time"
)

// keyLayout renders an hour bucket as a fixed-width, zero-padded string
// ("2024-03-01T09"), so string order equals chronological order.
const keyLayout = "2006-01-02T15"

// BucketKey truncates t to its hour in UTC and returns the bucket key.
// UTC is the only time reference used for keys.
func BucketKey(t time.Time) string {
	return t.UTC().Format(keyLayout)
}

// ParseBucketKey returns the UTC start of the hour named by key.
func ParseBucketKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(keyLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid bucket key %q: %w", key, err)
	}
	return t, nil
}

