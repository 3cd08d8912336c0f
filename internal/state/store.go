package state

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/types"
)

// Store holds the latest leaderboard snapshot for concurrent readers.
type Store struct {
	mu       sync.RWMutex
	snapshot types.Snapshot
	byMint   map[string]int
	ready    bool
	logger   *zap.Logger

	// Statistics (accessed atomically)
	reads  uint64
	writes uint64
}

// NewStore creates an empty store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		byMint: make(map[string]int),
		logger: logger.Named("state"),
	}
}

// Set replaces the current snapshot. The records slice is copied.
func (s *Store) Set(snap types.Snapshot) {
	snap.Records = cloneRecords(snap.Records)

	index := make(map[string]int, len(snap.Records))
	for i, rec := range snap.Records {
		index[rec.Mint] = i
	}

	s.mu.Lock()
	s.snapshot = snap
	s.byMint = index
	s.ready = true
	s.mu.Unlock()

	atomic.AddUint64(&s.writes, 1)
	s.logger.Debug("Snapshot stored",
		zap.String("run_id", snap.RunID),
		zap.Int("records", len(snap.Records)))
}

// Latest returns a copy of the current snapshot and whether one exists.
func (s *Store) Latest() (types.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	atomic.AddUint64(&s.reads, 1)
	if !s.ready {
		return types.Snapshot{}, false
	}
	snap := s.snapshot
	// Return copy, not reference
	snap.Records = cloneRecords(s.snapshot.Records)
	return snap, true
}

// Record looks up one token in the current snapshot.
func (s *Store) Record(mint string) (types.TokenRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	atomic.AddUint64(&s.reads, 1)
	i, ok := s.byMint[mint]
	if !ok {
		return types.TokenRecord{}, false
	}
	return s.snapshot.Records[i], true
}

// Age reports how long ago the current snapshot was taken.
func (s *Store) Age(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return 0
	}
	return now.Sub(s.snapshot.UpdatedAt)
}

// Stats returns the record count and access counters.
func (s *Store) Stats() (records, reads, writes uint64) {
	s.mu.RLock()
	records = uint64(len(s.snapshot.Records))
	s.mu.RUnlock()

	reads = atomic.LoadUint64(&s.reads)
	writes = atomic.LoadUint64(&s.writes)
	return records, reads, writes
}

func cloneRecords(in []types.TokenRecord) []types.TokenRecord {
	if in == nil {
		return nil
	}
	out := make([]types.TokenRecord, len(in))
	copy(out, in)
	return out
}
