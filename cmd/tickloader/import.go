package main

import (
	"context"
	"errors"
	"io"
	"time"

	"candleservice/internal/index"
	"candleservice/internal/ingest"
	"candleservice/pkg/storage/tickdb"

	"go.uber.org/zap"
)

// importCSV copies every valid row of the CSV at path into the tick table.
// Malformed rows are skipped. It returns the inserted and skipped counts.
func importCSV(ctx context.Context, client *tickdb.Client, path string, loc *time.Location, batchSize int, log *zap.Logger) (int64, int, error) {
	if batchSize <= 0 {
		batchSize = tickdb.DefaultBatchSize
	}

	reader, err := ingest.NewCSVSource(path).Open(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	var (
		inserted int64
		skipped  int
		batch    = make([]tickdb.TickRecord, 0, batchSize)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := client.InsertTicks(ctx, batch, batchSize)
		inserted += n
		batch = batch[:0]
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return inserted, skipped, err
		}

		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err == nil {
			var tick index.Tick
			if tick, err = ingest.ParseRow(row, loc); err == nil {
				batch = append(batch, tickdb.TickRecord{Code: tick.Code, Time: tick.Time, Price: tick.Price})
			}
		}
		if err != nil {
			if !errors.Is(err, ingest.ErrMalformedRow) {
				return inserted, skipped, err
			}
			skipped++
			log.Debug("skipping row", zap.Error(err))
			continue
		}

		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return inserted, skipped, err
			}
			log.Info("imported rows", zap.Int64("inserted", inserted))
		}
	}

	return inserted, skipped, flush()
}
