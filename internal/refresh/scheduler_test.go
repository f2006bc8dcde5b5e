package refresh

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"candleservice/internal/index"
	"candleservice/internal/memorystore"
	"candleservice/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func indexWith(n int) *index.Index {
	b := index.NewBuilder()
	for i := 0; i < n; i++ {
		b.Add(index.Tick{Time: time.Date(2024, 3, 1, 9, i, 0, 0, time.UTC), Code: "A", Price: 1})
	}
	return b.Build()
}

// go test -v --run TestRunOncePublishes
func TestRunOncePublishes(t *testing.T) {
	store := memorystore.NewStore(indexWith(1))
	m := metrics.New(nil)
	r := &Refresher{
		Build:   func(context.Context) *index.Index { return indexWith(3) },
		Store:   store,
		Metrics: m,
	}

	if !r.RunOnce(context.Background()) {
		t.Fatal("expected the rebuild to be published")
	}
	if got := store.Index().Len(); got != 3 {
		t.Errorf("rows = %d, want 3", got)
	}
	if got := testutil.ToFloat64(m.IndexRows); got != 3 {
		t.Errorf("rows gauge = %v, want 3", got)
	}
}

// go test -v --run TestRunOnceDiscardsEmptyRebuild
func TestRunOnceDiscardsEmptyRebuild(t *testing.T) {
	current := indexWith(2)
	store := memorystore.NewStore(current)
	m := metrics.New(nil)
	r := &Refresher{
		Build:   func(context.Context) *index.Index { return index.Empty() },
		Store:   store,
		Metrics: m,
	}

	if r.RunOnce(context.Background()) {
		t.Fatal("empty rebuild must not replace a populated snapshot")
	}
	if store.Index() != current {
		t.Error("current snapshot was replaced")
	}
	if got := testutil.ToFloat64(m.BuildsTotal.WithLabelValues("discarded")); got != 1 {
		t.Errorf("discarded builds = %v, want 1", got)
	}
}

// go test -v --run TestRunOnceEmptyOverEmpty
func TestRunOnceEmptyOverEmpty(t *testing.T) {
	store := memorystore.NewStore(nil)
	r := &Refresher{
		Build: func(context.Context) *index.Index { return index.Empty() },
		Store: store,
	}
	if !r.RunOnce(context.Background()) {
		t.Error("an empty rebuild over an empty snapshot should still be published")
	}
	if g := store.Current().Generation; g != 2 {
		t.Errorf("generation = %d, want 2", g)
	}
}

// go test -v --run TestStartStopsOnCancel
func TestStartStopsOnCancel(t *testing.T) {
	var builds atomic.Int32
	store := memorystore.NewStore(nil)
	r := &Refresher{
		Interval: 10 * time.Millisecond,
		Build: func(context.Context) *index.Index {
			return indexWith(int(builds.Add(1)))
		},
		Store: store,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := r.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for builds.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("refresher did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop")
	}
	if store.Index().Len() == 0 {
		t.Error("no snapshot was published")
	}
}
