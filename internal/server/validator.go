package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"candleservice/internal/aggregator"
	"candleservice/pkg/timezone"
)

// ErrInvalidQuery wraps every validation failure of a candle query.
var ErrInvalidQuery = errors.New("invalid candle query")

// CandleQuery is a validated GET /candle request.
type CandleQuery struct {
	Code     string
	Start    time.Time // UTC start of the requested hour
	Location *time.Location
}

// Validator checks candle query parameters.
type Validator struct {
	defaultLoc *time.Location
}

// NewValidator returns a validator that reads hours in defaultTZ unless the
// request names a zone.
func NewValidator(defaultTZ string) (*Validator, error) {
	loc, err := timezone.Load(defaultTZ)
	if err != nil {
		return nil, fmt.Errorf("server default timezone: %w", err)
	}
	return &Validator{defaultLoc: loc}, nil
}

// ValidateCandleQuery turns raw query parameters into a CandleQuery.
func (v *Validator) ValidateCandleQuery(code, year, month, day, hour, tz string) (CandleQuery, error) {
	code = sanitize(code)
	if code == "" {
		return CandleQuery{}, fmt.Errorf("%w: code is required", ErrInvalidQuery)
	}

	parts := [4]int{}
	for i, p := range []struct{ name, raw string }{
		{"year", year}, {"month", month}, {"day", day}, {"hour", hour},
	} {
		raw := strings.TrimSpace(p.raw)
		if raw == "" {
			return CandleQuery{}, fmt.Errorf("%w: %s is required", ErrInvalidQuery, p.name)
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return CandleQuery{}, fmt.Errorf("%w: %s must be an integer", ErrInvalidQuery, p.name)
		}
		parts[i] = n
	}

	loc := v.defaultLoc
	if tz = strings.TrimSpace(tz); tz != "" {
		l, err := timezone.Load(tz)
		if err != nil {
			return CandleQuery{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalidQuery, tz)
		}
		loc = l
	}

	start, err := aggregator.HourStart(parts[0], parts[1], parts[2], parts[3], loc)
	if err != nil {
		return CandleQuery{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return CandleQuery{Code: code, Start: start, Location: loc}, nil
}

// sanitize trims whitespace and drops control characters.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
