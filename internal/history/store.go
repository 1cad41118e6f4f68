package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/plantwatch/plantwatch/pkg/types"
)

// Entry is a snapshot together with the time it was recorded.
type Entry struct {
	Snapshot   types.Snapshot `json:"snapshot"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Store is a thread-safe, fixed-capacity window of recent snapshots, oldest
// first.
type Store struct {
	mu        sync.RWMutex
	entries   []Entry
	size      int
	retention time.Duration
	now       func() time.Time // injectable for deterministic tests
}

// New creates a Store holding at most size entries no older than retention.
// A non-positive retention disables age-based eviction.
func New(size int, retention time.Duration) *Store {
	if size < 1 {
		size = 1
	}
	return &Store{
		entries:   make([]Entry, 0, size),
		size:      size,
		retention: retention,
		now:       time.Now,
	}
}

// Put appends snap, dropping the oldest entry when the window is full.
func (s *Store) Put(snap types.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == s.size {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:s.size-1]
	}
	s.entries = append(s.entries, Entry{Snapshot: snap, RecordedAt: s.now()})
}

// Latest returns the newest entry and whether one exists.
func (s *Store) Latest() (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// List returns the entries within the retention window, oldest first.
// Stale entries that have not yet been evicted are excluded.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if s.fresh(e, s.now()) {
			out = append(out, e)
		}
	}
	return out
}

// Snapshots is List without the record times.
func (s *Store) Snapshots() []types.Snapshot {
	entries := s.List()
	out := make([]types.Snapshot, len(entries))
	for i, e := range entries {
		out[i] = e.Snapshot
	}
	return out
}

// Count returns the number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Evict removes entries older than now minus the retention and returns how
// many were removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if s.fresh(e, now) {
			kept = append(kept, e)
		}
	}
	removed := len(s.entries) - len(kept)
	s.entries = kept
	return removed
}

func (s *Store) fresh(e Entry, now time.Time) bool {
	return s.retention <= 0 || e.RecordedAt.After(now.Add(-s.retention))
}

// Run starts the background eviction loop. It ticks at half the retention
// (minimum 1 second) and blocks until ctx is cancelled. With retention
// disabled it returns immediately.
func (s *Store) Run(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	interval := s.retention / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("history: evicted stale snapshots", "count", n)
			}
		}
	}
}
