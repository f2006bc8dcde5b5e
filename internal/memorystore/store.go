package memorystore

import (
	"sync"
	"sync/atomic"
	"time"

	"candleservice/internal/index"
)

// Snapshot is one published generation of the tick index.
type Snapshot struct {
	Index      *index.Index
	Generation uint64
	LoadedAt   time.Time
}

// Store holds the index snapshot the HTTP handlers read from. Readers never
// block; Swap replaces the whole snapshot at once. Writers are serialised so
// published generations only increase.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	gen     uint64
}

// NewStore returns a store serving idx. A nil idx is replaced by an empty
// index so Current never returns nil.
func NewStore(idx *index.Index) *Store {
	s := &Store{}
	s.Swap(idx)
	return s
}

// Swap publishes idx as the current snapshot and returns the previous one.
func (s *Store) Swap(idx *index.Index) *Snapshot {
	if idx == nil {
		idx = index.Empty()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	next := &Snapshot{
		Index:      idx,
		Generation: s.gen,
		LoadedAt:   time.Now().UTC(),
	}
	return s.current.Swap(next)
}

// Index returns the index of the current snapshot.
func (s *Store) Index() *index.Index {
	return s.current.Load().Index
}

func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

