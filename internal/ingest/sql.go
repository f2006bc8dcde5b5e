package ingest

import (
	"context"
	"io"
	"strconv"
	"time"

	"candleservice/pkg/storage/tickdb"
)

// SQLSource reads the order_books table through a tickdb.Client. name labels
// the source in logs.
type SQLSource struct {
	client *tickdb.Client
	name   string
}

func NewSQLSource(client *tickdb.Client, name string) *SQLSource {
	return &SQLSource{client: client, name: name}
}

func (s *SQLSource) Name() string {
	return s.name
}

// IsHealthy pings the underlying database.
func (s *SQLSource) IsHealthy(ctx context.Context) bool {
	return s.client.IsHealthy(ctx)
}

func (s *SQLSource) Open(ctx context.Context) (RowReader, error) {
	cur, err := s.client.Cursor(ctx)
	if err != nil {
		return nil, err
	}
	return &sqlReader{cur: cur}, nil
}

type sqlReader struct {
	cur *tickdb.TickCursor
	rec tickdb.TickRecord
}

func (r *sqlReader) Next() (RawRow, error) {
	ok, err := r.cur.Next(&r.rec)
	if err != nil {
		return RawRow{}, err
	}
	if !ok {
		return RawRow{}, io.EOF
	}
	return RawRow{
		Time:  r.rec.Time.UTC().Format(time.RFC3339Nano),
		Code:  r.rec.Code,
		Price: strconv.FormatFloat(r.rec.Price, 'f', -1, 64),
	}, nil
}

func (r *sqlReader) Close() error {
	return r.cur.Close()
}
