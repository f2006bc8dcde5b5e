package refresh

import (
	"context"
	"time"

	"candleservice/internal/index"
	"candleservice/internal/memorystore"
	"candleservice/internal/metrics"

	"go.uber.org/zap"
)

// Refresher rebuilds the tick index on a fixed interval and publishes each
// result to the store.
type Refresher struct {
	Interval time.Duration
	Build    func(ctx context.Context) *index.Index
	Store    *memorystore.Store
	Metrics  *metrics.Metrics // optional
	Logger   *zap.Logger
}

// Start runs a rebuild every Interval until ctx is done. It does not build
// immediately; the caller publishes the startup index itself. The returned
// channel is closed when the loop exits.
func (r *Refresher) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if r.Logger == nil {
		r.Logger = zap.NewNop()
	}

	go func() {
		defer close(done)

		ticker := time.NewTicker(r.Interval)
		defer ticker.Stop()

		r.Logger.Info("index refresher started", zap.Duration("interval", r.Interval))
		for {
			select {
			case <-ctx.Done():
				r.Logger.Info("index refresher stopped")
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()

	return done
}

// RunOnce builds a new index and swaps it in. A build that produced no rows
// while the current snapshot has data is discarded. It reports whether the
// new index was published.
func (r *Refresher) RunOnce(ctx context.Context) bool {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	idx := r.Build(ctx)
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		logger.Warn("index rebuild cancelled, keeping current snapshot")
		r.observe(idx, elapsed, false)
		return false
	}

	if idx == nil || (idx.Len() == 0 && r.Store.Index().Len() > 0) {
		logger.Warn("index rebuild produced no rows, keeping current snapshot",
			zap.Int("current_rows", r.Store.Index().Len()))
		r.observe(idx, elapsed, false)
		return false
	}

	prev := r.Store.Swap(idx)
	logger.Info("index snapshot published",
		zap.Uint64("generation", r.Store.Current().Generation),
		zap.Int("rows", idx.Len()),
		zap.Int("previous_rows", prev.Index.Len()),
		zap.Duration("elapsed", elapsed))
	r.observe(idx, elapsed, true)
	return true
}

func (r *Refresher) observe(idx *index.Index, d time.Duration, published bool) {
	if r.Metrics == nil {
		return
	}
	var st index.Stats
	if idx != nil {
		st = idx.Stats()
	}
	r.Metrics.ObserveBuild(st, d, published)
}
