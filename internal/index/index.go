// Package index holds the hour-bucketed tick index the candle aggregator
// reads from. An Index is immutable once built and may be shared freely
// between goroutines.
package index

import "sort"

// Index maps code → hour bucket key → time-ordered entries.
type Index struct {
	data  map[string]map[string][]Entry
	keys  map[string][]string // sorted bucket keys per code
	stats Stats
}

// Empty returns an index with no codes. It is what callers get when the tick
// source is unavailable.
func Empty() *Index {
	return &Index{
		data: map[string]map[string][]Entry{},
		keys: map[string][]string{},
	}
}

// HasCode reports whether any tick was indexed for code.
func (x *Index) HasCode(code string) bool {
	_, ok := x.data[code]
	return ok
}

// Bucket returns the entries stored for (code, key) and whether the bucket
// exists. The returned slice is shared with the index and must not be modified.
func (x *Index) Bucket(code, key string) ([]Entry, bool) {
	byKey, ok := x.data[code]
	if !ok {
		return nil, false
	}
	entries, ok := byKey[key]
	return entries, ok
}

// Keys returns the sorted bucket keys for code. The slice must not be modified.
func (x *Index) Keys(code string) []string {
	return x.keys[code]
}

// Codes returns all indexed codes in sorted order.
func (x *Index) Codes() []string {
	out := make([]string, 0, len(x.data))
	for code := range x.data {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func (x *Index) Stats() Stats {
	return x.stats
}

// Len returns the number of indexed entries.
func (x *Index) Len() int {
	return x.stats.IndexedRows
}
