// Package timezone resolves the zone names and abbreviations found in tick
// files and query parameters.
package timezone

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // IANA names must resolve on hosts without zoneinfo
)

// abbreviations maps common zone abbreviations to fixed offsets (in seconds).
// time.Parse cannot be trusted with these: an unknown abbreviation yields a
// fabricated zone with offset 0.
var abbreviations = map[string]int{
	"UTC":  0,
	"GMT":  0,
	"Z":    0,
	"JST":  9 * 3600,
	"KST":  9 * 3600,
	"HKT":  8 * 3600,
	"SGT":  8 * 3600,
	"IST":  5*3600 + 1800,
	"CET":  1 * 3600,
	"CEST": 2 * 3600,
	"BST":  1 * 3600,
	"EST":  -5 * 3600,
	"EDT":  -4 * 3600,
	"CST":  -6 * 3600,
	"CDT":  -5 * 3600,
	"PST":  -8 * 3600,
	"PDT":  -7 * 3600,
}

// Abbreviation returns a fixed zone for a known abbreviation (case-insensitive).
func Abbreviation(abbr string) (*time.Location, bool) {
	abbr = strings.ToUpper(strings.TrimSpace(abbr))
	offset, ok := abbreviations[abbr]
	if !ok {
		return nil, false
	}
	if offset == 0 {
		return time.UTC, true
	}
	return time.FixedZone(abbr, offset), true
}

// Load resolves name as an abbreviation first ("JST"), then as an IANA name
// ("Asia/Tokyo"). The empty string is UTC.
func Load(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	if loc, ok := Abbreviation(name); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}
