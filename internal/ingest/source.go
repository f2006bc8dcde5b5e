// Package ingest turns raw tick rows from a source (CSV file, SQL table,
// WebSocket feed) into an index.Index.
package ingest

import (
	"context"
	"errors"
)

// RawRow is one unparsed tick as delivered by a source.
type RawRow struct {
	Time  string // free-form timestamp, optionally with a zone suffix
	Code  string // instrument code
	Price string // decimal price
}

// ErrMalformedRow marks a row that cannot become a tick. It is recovered
// locally: the row is dropped and ingestion continues.
var ErrMalformedRow = errors.New("malformed row")

// Source opens a stream of raw rows.
type Source interface {
	// Name identifies the source in logs (e.g. "csv:order_books.csv").
	Name() string
	// Open starts reading. An error here means the source is unavailable.
	Open(ctx context.Context) (RowReader, error)
}

// RowReader yields rows until it returns io.EOF. An error wrapping
// ErrMalformedRow affects only that row; any other error ends the stream.
type RowReader interface {
	Next() (RawRow, error)
	Close() error
}

// Unavailable returns a source whose Open always fails with err. It stands in
// for a source that could not be set up, so loading still yields an empty
// index.
func Unavailable(name string, err error) Source {
	return unavailableSource{name: name, err: err}
}

type unavailableSource struct {
	name string
	err  error
}

func (s unavailableSource) Name() string { return s.name }

func (s unavailableSource) Open(context.Context) (RowReader, error) {
	return nil, s.err
}

func (s unavailableSource) IsHealthy(context.Context) bool { return false }
