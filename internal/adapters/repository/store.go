// Package repository keeps the finished distributions of the latest run so
// they can be served while the process lives.
package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/okian/azicorr/internal/domain/correlation"
	"github.com/okian/azicorr/internal/domain/observable"
)

// Record is a read-only copy of one finished distribution.
type Record struct {
	Key       string                  `json:"key"`
	Kind      string                  `json:"kind"`
	Bin       int                     `json:"bin"`
	Sub       int                     `json:"sub"`
	Low       float64                 `json:"centrality_low"`
	High      float64                 `json:"centrality_high"`
	Triggers  uint64                  `json:"triggers"`
	Valid     bool                    `json:"valid"`
	Scaled    bool                    `json:"scaled"`
	Factor    float64                 `json:"factor"`
	Entries   int64                   `json:"entries"`
	SumW      float64                 `json:"sum_w"`
	Underflow float64                 `json:"underflow"`
	Overflow  float64                 `json:"overflow"`
	Bins      []observable.BinContent `json:"bins"`

	key observable.Key
}

// Store provides access to finished results.
type Store interface {
	// Write stores r, replacing a previous result with the same key.
	Write(ctx context.Context, r correlation.Result) error
	// Close implements the sink contract; the store stays readable.
	Close() error

	// Get returns the result with the given key string.
	// Returns ErrNotFound if the key is unknown.
	Get(ctx context.Context, key string) (Record, error)
	// List returns every result ordered by bin, kind and sub-index.
	List(ctx context.Context) []Record
	// Count returns the number of stored results.
	Count(ctx context.Context) int
	// Reset drops every result before a new run.
	Reset(ctx context.Context)
}

// MemoryStore is an in-memory Store. Writers rebuild an immutable ordered
// snapshot that readers load without locking.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]Record
	snapshot atomic.Pointer[[]Record]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{records: make(map[string]Record)}
	s.publish()
	return s
}

// Write implements Store.
func (s *MemoryStore) Write(_ context.Context, r correlation.Result) error {
	if r.Dist == nil {
		return fmt.Errorf("%w: %s", ErrNoResult, r.Key)
	}
	rec := Record{
		Key:       r.Key.String(),
		Kind:      r.Key.Kind.String(),
		Bin:       r.Key.Bin,
		Sub:       r.Key.Sub,
		Low:       r.Bin.Low,
		High:      r.Bin.High,
		Triggers:  r.Triggers,
		Valid:     r.Valid,
		Scaled:    r.Dist.Scaled(),
		Factor:    r.Dist.Factor(),
		Entries:   r.Dist.Entries(),
		SumW:      r.Dist.SumW(),
		Underflow: r.Dist.Underflow(),
		Overflow:  r.Dist.Overflow(),
		Bins:      r.Dist.Bins(),
		key:       r.Key,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = rec
	s.publish()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	for _, r := range *s.snapshot.Load() {
		if r.Key == key {
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) []Record {
	snap := *s.snapshot.Load()
	out := make([]Record, len(snap))
	copy(out, snap)
	return out
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	return len(*s.snapshot.Load())
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
	s.publish()
}

// publish rebuilds the ordered snapshot. The caller holds s.mu.
func (s *MemoryStore) publish() {
	snap := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		snap = append(snap, r)
	}
	sort.Slice(snap, func(i, j int) bool {
		a, b := snap[i].key, snap[j].key
		if a.Bin != b.Bin {
			return a.Bin < b.Bin
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Sub < b.Sub
	})
	s.snapshot.Store(&snap)
}
