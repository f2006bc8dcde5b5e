// Package aggregator reduces the ticks of one hour bucket to an
// open/high/low/close candle.
package aggregator

import (
	"fmt"
	"time"

	"candleservice/internal/index"
)

// Window is the length of the query window.
const Window = time.Hour

// Candle is the OHLC summary returned for a query. The all-zero value means
// "no data"; a genuine zero price cannot be told apart from it.
type Candle struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// IsZero reports whether c is the no-data sentinel.
func (c Candle) IsZero() bool {
	return c == Candle{}
}

// Resolution tells which lookup path produced a candle.
type Resolution string

const (
	ResolutionExact   Resolution = "exact"   // ticks inside [start, start+1h)
	ResolutionBucket  Resolution = "bucket"  // bucket exists, window filter was empty
	ResolutionNearest Resolution = "nearest" // no bucket, nearest existing bucket used
	ResolutionMiss    Resolution = "miss"    // nothing found, zero candle
)

// Aggregator answers candle queries against an index. It holds no mutable
// state and is safe for concurrent use.
type Aggregator struct {
	fallback Fallback
}

func New(fallback Fallback) *Aggregator {
	return &Aggregator{fallback: fallback}
}

// NewFromString builds an Aggregator from a configured fallback name.
func NewFromString(name string) (*Aggregator, error) {
	fb, err := ParseFallback(name)
	if err != nil {
		return nil, err
	}
	return New(fb), nil
}

func (a *Aggregator) Fallback() Fallback {
	return a.fallback
}

// Query computes the candle for code over [start, start+1h). start is
// interpreted as an instant; its location does not matter.
func (a *Aggregator) Query(idx *index.Index, code string, start time.Time) (Candle, Resolution) {
	if idx == nil || !idx.HasCode(code) {
		return Candle{}, ResolutionMiss
	}

	start = start.UTC()
	end := start.Add(Window)
	key := index.BucketKey(start)

	if entries, ok := idx.Bucket(code, key); ok {
		if c, ok := reduce(inWindow(entries, start, end)); ok {
			return c, ResolutionExact
		}
		if a.fallback == FallbackNone {
			return Candle{}, ResolutionMiss
		}
		// window and bucket disagree (start not hour-aligned): use the whole bucket
		if c, ok := reduce(entries); ok {
			return c, ResolutionBucket
		}
		return Candle{}, ResolutionMiss
	}

	if a.fallback == FallbackNone {
		return Candle{}, ResolutionMiss
	}
	nearest, ok := a.fallback.nearest(idx.Keys(code), key)
	if !ok {
		return Candle{}, ResolutionMiss
	}
	entries, _ := idx.Bucket(code, nearest)
	if c, ok := reduce(entries); ok {
		return c, ResolutionNearest
	}
	return Candle{}, ResolutionMiss
}

// HourStart converts calendar components in loc to the UTC start instant of
// that hour. Components that time.Date would normalise (month 13, Feb 30,
// hour 24) are rejected.
func HourStart(year, month, day, hour int, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t := time.Date(year, time.Month(month), day, hour, 0, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day || t.Hour() != hour {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d %02d:00 in %s", year, month, day, hour, loc)
	}
	return t.UTC(), nil
}

// inWindow returns the entries with start <= t < end. entries is sorted, so
// the result keeps chronological order.
func inWindow(entries []index.Entry, start, end time.Time) []index.Entry {
	var out []index.Entry
	for _, e := range entries {
		if !e.Time.Before(start) && e.Time.Before(end) {
			out = append(out, e)
		}
	}
	return out
}

// reduce computes OHLC: open and close are positional, high and low numeric.
func reduce(entries []index.Entry) (Candle, bool) {
	if len(entries) == 0 {
		return Candle{}, false
	}
	c := Candle{
		Open:  entries[0].Price,
		High:  entries[0].Price,
		Low:   entries[0].Price,
		Close: entries[len(entries)-1].Price,
	}
	for _, e := range entries[1:] {
		if e.Price > c.High {
			c.High = e.Price
		}
		if e.Price < c.Low {
			c.Low = e.Price
		}
	}
	return c, true
}
