// Command tickloader imports an order_books CSV file into the SQL tick table
// read by the sqlite and postgres sources.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"candleservice/config"
	"candleservice/internal/ingest"
	"candleservice/logger"
	"candleservice/pkg/storage/tickdb"
	"candleservice/pkg/timezone"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	csvPath := flag.String("csv", cfg.Source.CSV.Path, "CSV file to import")
	target := flag.String("target", "sqlite", `destination database: "sqlite" or "postgres"`)
	batch := flag.Int("batch", tickdb.DefaultBatchSize, "rows per insert batch")
	pruneBefore := flag.String("prune-before", "", "delete ticks older than this timestamp after importing")
	flag.Parse()

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := openTarget(cfg, *target)
	if err != nil {
		log.Fatal("failed to open target database", zap.String("target", *target), zap.Error(err))
	}
	defer client.Close()

	loc, err := timezone.Load(cfg.Source.Timezone)
	if err != nil {
		log.Fatal("invalid source timezone", zap.Error(err))
	}

	n, skipped, err := importCSV(ctx, client, *csvPath, loc, *batch, log)
	if err != nil {
		log.Fatal("import failed", zap.Int64("inserted", n), zap.Error(err))
	}
	log.Info("import finished", zap.String("csv", *csvPath), zap.Int64("inserted", n), zap.Int("skipped", skipped))

	if *pruneBefore != "" {
		before, err := ingest.ParseTimestamp(*pruneBefore, loc)
		if err != nil {
			log.Fatal("invalid -prune-before", zap.Error(err))
		}
		deleted, err := client.DeleteTicksBefore(ctx, before)
		if err != nil {
			log.Fatal("prune failed", zap.Error(err))
		}
		log.Info("pruned old ticks", zap.Time("before", before), zap.Int64("deleted", deleted))
	}
}

func openTarget(cfg *config.Config, target string) (*tickdb.Client, error) {
	switch target {
	case "sqlite":
		client, err := tickdb.NewSQLiteClient(cfg.Source.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := client.AutoMigrateTickRecord(); err != nil {
			client.Close()
			return nil, err
		}
		return client, nil
	case "postgres":
		return tickdb.InitializePostgres(cfg.Postgres, cfg.Log.Environment, true)
	default:
		return nil, fmt.Errorf("unknown target %q", target)
	}
}
