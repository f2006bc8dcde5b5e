package index

import "time"

// Tick is one observed price for one instrument code at one instant.
// Time must already be normalised to UTC by the ingestion layer.
type Tick struct {
	Time  time.Time `json:"time"`  // Instant of the observation (UTC)
	Code  string    `json:"code"`  // Instrument code (e.g., "7203")
	Price float64   `json:"price"` // Observed price
}

// Entry is a single (time, price) pair stored inside an hour bucket.
type Entry struct {
	Time  time.Time
	Price float64
}

// Stats describes the ticks that went into an index build.
type Stats struct {
	TotalRows   int           `json:"total_rows"`   // rows offered to the builder (accepted + skipped)
	IndexedRows int           `json:"indexed_rows"` // rows stored in a bucket
	SkippedRows int           `json:"skipped_rows"` // rows rejected (bad timestamp, bad price)
	Codes       int           `json:"codes"`        // distinct instrument codes
	Buckets     int           `json:"buckets"`      // distinct (code, hour) buckets
	MinTime     time.Time     `json:"min_time"`     // earliest indexed tick (zero if empty)
	MaxTime     time.Time     `json:"max_time"`     // latest indexed tick (zero if empty)
	BuildTime   time.Duration `json:"build_time"`   // time spent from first Add to Build
}
