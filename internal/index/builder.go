package index

import (
	"math"
	"sort"
	"time"
)

// Builder accumulates ticks into hour buckets. It is not safe for concurrent
// use and must not be used after Build.
type Builder struct {
	data    map[string]map[string][]Entry
	stats   Stats
	started time.Time
	built   bool
}

func NewBuilder() *Builder {
	return &Builder{
		data: make(map[string]map[string][]Entry),
	}
}

// Add stores t in the bucket for (t.Code, BucketKey(t.Time)). Ticks with an
// empty code, a zero time or a NaN/Inf price are counted as skipped and
// reported back as false.
func (b *Builder) Add(t Tick) bool {
	if b.built {
		panic("index: Add called after Build")
	}
	if b.started.IsZero() {
		b.started = time.Now()
	}
	b.stats.TotalRows++

	if t.Code == "" || t.Time.IsZero() || math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		b.stats.SkippedRows++
		return false
	}

	ts := t.Time.UTC()
	key := BucketKey(ts)

	buckets, ok := b.data[t.Code]
	if !ok {
		buckets = make(map[string][]Entry)
		b.data[t.Code] = buckets
	}
	buckets[key] = append(buckets[key], Entry{Time: ts, Price: t.Price})

	b.stats.IndexedRows++
	if b.stats.MinTime.IsZero() || ts.Before(b.stats.MinTime) {
		b.stats.MinTime = ts
	}
	if ts.After(b.stats.MaxTime) {
		b.stats.MaxTime = ts
	}
	return true
}

// Skip records a row that never became a tick (e.g. an unparseable timestamp)
// so that it shows up in the build statistics.
func (b *Builder) Skip() {
	if b.started.IsZero() {
		b.started = time.Now()
	}
	b.stats.TotalRows++
	b.stats.SkippedRows++
}

// Build finalises the index. Every bucket is sorted by time (stable, so ticks
// with equal timestamps keep their arrival order) and the per-code key lists
// are sorted for nearest-bucket lookups.
func (b *Builder) Build() *Index {
	b.built = true

	keys := make(map[string][]string, len(b.data))
	buckets := 0
	for code, byKey := range b.data {
		list := make([]string, 0, len(byKey))
		for key, entries := range byKey {
			sort.SliceStable(entries, func(i, j int) bool {
				return entries[i].Time.Before(entries[j].Time)
			})
			list = append(list, key)
		}
		sort.Strings(list)
		keys[code] = list
		buckets += len(list)
	}

	stats := b.stats
	stats.Codes = len(b.data)
	stats.Buckets = buckets
	if !b.started.IsZero() {
		stats.BuildTime = time.Since(b.started)
	}

	idx := &Index{data: b.data, keys: keys, stats: stats}
	b.data = nil
	return idx
}
