package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVSource reads ticks from a CSV file with a header row naming at least the
// time, code and price columns. Column order and extra columns (such as id)
// do not matter.
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Name() string {
	return "csv:" + s.Path
}

func (s *CSVSource) Open(ctx context.Context) (RowReader, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	r, err := newCSVReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

type csvReader struct {
	r      *csv.Reader
	closer io.Closer
	cols   map[string]int
	width  int
}

func newCSVReader(in io.Reader) (*csvReader, error) {
	r := csv.NewReader(bufio.NewReader(in))
	r.FieldsPerRecord = -1 // row width is checked per row
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: missing header row")
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		cols[name] = i
	}
	width := 0
	for _, want := range []string{"time", "code", "price"} {
		i, ok := cols[want]
		if !ok {
			return nil, fmt.Errorf("csv: header has no %q column", want)
		}
		width = max(width, i+1)
	}

	return &csvReader{r: r, cols: cols, width: width}, nil
}

func (c *csvReader) Next() (RawRow, error) {
	rec, err := c.r.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return RawRow{}, fmt.Errorf("%w: line %d: %v", ErrMalformedRow, perr.Line, perr.Err)
		}
		return RawRow{}, err
	}
	if len(rec) < c.width {
		line, _ := c.r.FieldPos(0)
		return RawRow{}, fmt.Errorf("%w: line %d: expected at least %d fields, got %d", ErrMalformedRow, line, c.width, len(rec))
	}
	return RawRow{
		Time:  rec[c.cols["time"]],
		Code:  rec[c.cols["code"]],
		Price: rec[c.cols["price"]],
	}, nil
}

func (c *csvReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
