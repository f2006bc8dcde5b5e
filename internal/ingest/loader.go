package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"candleservice/internal/index"

	"go.uber.org/zap"
)

// Options tunes Load.
type Options struct {
	// Location applies to timestamps without zone information. Nil means UTC.
	Location *time.Location
	// ProgressEvery logs a progress line every N rows; 0 disables it.
	ProgressEvery int
}

// ParseRow validates a raw row and converts it to a tick. Errors wrap
// ErrMalformedRow.
func ParseRow(row RawRow, loc *time.Location) (index.Tick, error) {
	code := strings.TrimSpace(row.Code)
	if code == "" {
		return index.Tick{}, fmt.Errorf("%w: empty code", ErrMalformedRow)
	}

	ts, err := ParseTimestamp(row.Time, loc)
	if err != nil {
		return index.Tick{}, err
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(row.Price), 64)
	if err != nil {
		return index.Tick{}, fmt.Errorf("%w: price %q: %v", ErrMalformedRow, row.Price, err)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return index.Tick{}, fmt.Errorf("%w: price %q is not finite", ErrMalformedRow, row.Price)
	}

	return index.Tick{Time: ts, Code: code, Price: price}, nil
}

// Load reads every row of src into a new index. It never fails: an
// unavailable source yields an empty index, a malformed row is skipped, and a
// stream that breaks midway keeps the rows read so far.
func Load(ctx context.Context, src Source, opts Options, logger *zap.Logger) *index.Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("source", src.Name()))
	logger.Info("loading ticks")

	reader, err := src.Open(ctx)
	if err != nil {
		logger.Error("tick source unavailable, serving an empty index", zap.Error(err))
		return index.Empty()
	}
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("failed to close tick source", zap.Error(err))
		}
	}()

	b := index.NewBuilder()
	rows := 0
	for {
		if err := ctx.Err(); err != nil {
			logger.Warn("tick loading interrupted", zap.Int("rows", rows), zap.Error(err))
			break
		}

		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, ErrMalformedRow) {
			logger.Warn("tick source failed mid-stream, keeping rows read so far",
				zap.Int("rows", rows), zap.Error(err))
			break
		}

		rows++
		if opts.ProgressEvery > 0 && rows%opts.ProgressEvery == 0 {
			logger.Info("processed rows", zap.Int("rows", rows))
		}
		if err != nil {
			b.Skip()
			logger.Debug("skipping row", zap.Int("row", rows), zap.Error(err))
			continue
		}

		tick, err := ParseRow(row, opts.Location)
		if err != nil {
			b.Skip()
			logger.Debug("skipping row", zap.Int("row", rows), zap.Error(err))
			continue
		}
		b.Add(tick)
	}

	idx := b.Build()
	logStats(logger, idx.Stats())
	return idx
}

func logStats(logger *zap.Logger, st index.Stats) {
	fields := []zap.Field{
		zap.Int("total_rows", st.TotalRows),
		zap.Int("indexed_rows", st.IndexedRows),
		zap.Int("skipped_rows", st.SkippedRows),
		zap.Int("codes", st.Codes),
		zap.Int("buckets", st.Buckets),
		zap.Duration("build_time", st.BuildTime),
	}
	if st.IndexedRows > 0 {
		fields = append(fields,
			zap.Time("min_time", st.MinTime),
			zap.Time("max_time", st.MaxTime),
		)
	}
	logger.Info("indexed tick data", fields...)
}
