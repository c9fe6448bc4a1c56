package store

import (
	"sync"
	"sync/atomic"
	"time"

	"trade-approval-go/internal/models"
)

// record pairs a trade with its own mutex so that read-modify-write on one
// trade never blocks operations on another. The map lock is held only long
// enough to look up or remove the record pointer.
type record struct {
	mu    sync.Mutex
	trade models.Trade
	// evicted marks a record removed from the map while some caller may still
	// hold its pointer; any late write or read against it is dropped.
	evicted bool
}

// Store is the in-memory trade map. It is safe for concurrent use by the
// request path, the per-trade processing goroutines and the eviction sweeper.
// There is no durability; a restart forgets everything.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	// pending tracks trades still awaiting a decision, so the hot path never
	// walks the map to report it.
	pending atomic.Int64
}

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]*record)}
}

func (s *Store) get(id string) (*record, bool) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	return rec, ok
}

// Insert adds a new trade. The caller guarantees the id is freshly generated;
// ids are never reused, so an existing entry is never overwritten.
func (s *Store) Insert(trade models.Trade) {
	s.mu.Lock()
	if _, exists := s.records[trade.ID]; !exists {
		s.records[trade.ID] = &record{trade: trade}
		if trade.Status == models.StatusPending {
			s.pending.Add(1)
		}
	}
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of the trade, or false if it does not
// exist (never issued, or already evicted). The copy is taken under the record
// lock, so a concurrent transition or eviction can never produce a torn read.
func (s *Store) Snapshot(id string) (models.Trade, bool) {
	rec, ok := s.get(id)
	if !ok {
		return models.Trade{}, false
	}
	rec.mu.Lock()
	trade := rec.trade
	gone := rec.evicted
	rec.mu.Unlock()
	if gone {
		return models.Trade{}, false
	}
	return trade, true
}

// Transition atomically moves the trade from one status to another. If the
// current status is not `from`, nothing changes and swapped is false: the
// losing side of a decision/timeout race is a silent no-op. The returned
// snapshot always reflects the state after the call, whoever won.
func (s *Store) Transition(id string, from, to models.Status, now time.Time) (trade models.Trade, swapped, found bool) {
	rec, ok := s.get(id)
	if !ok {
		return models.Trade{}, false, false
	}
	rec.mu.Lock()
	if rec.evicted {
		rec.mu.Unlock()
		return models.Trade{}, false, false
	}
	if rec.trade.Status == from {
		rec.trade.Status = to
		decided := now
		rec.trade.DecidedAt = &decided
		swapped = true
	}
	trade = rec.trade
	rec.mu.Unlock()
	if swapped && from == models.StatusPending {
		s.pending.Add(-1)
	}
	return trade, swapped, true
}

// Fail records a processing failure: pending→error with a diagnostic message.
// A trade already decided keeps its status, and a trade that has been evicted
// absorbs the write silently.
func (s *Store) Fail(id, msg string, now time.Time) {
	rec, ok := s.get(id)
	if !ok {
		return
	}
	rec.mu.Lock()
	failed := !rec.evicted && rec.trade.Status == models.StatusPending
	if failed {
		rec.trade.Status = models.StatusError
		rec.trade.Error = msg
		decided := now
		rec.trade.DecidedAt = &decided
	}
	rec.mu.Unlock()
	if failed {
		s.pending.Add(-1)
	}
}

// EvictBefore removes every trade created before the cutoff, regardless of its
// status, and returns the removed ids. Trades at or after the cutoff are left
// untouched even when already decided.
func (s *Store) EvictBefore(cutoff time.Time) []string {
	s.mu.Lock()
	var evicted []string
	for id, rec := range s.records {
		rec.mu.Lock()
		old := rec.trade.CreatedAt.Before(cutoff)
		wasPending := rec.trade.Status == models.StatusPending
		if old {
			rec.evicted = true
		}
		rec.mu.Unlock()
		if old {
			delete(s.records, id)
			evicted = append(evicted, id)
			if wasPending {
				s.pending.Add(-1)
			}
		}
	}
	s.mu.Unlock()
	return evicted
}

// PendingCount returns the number of trades still awaiting a decision.
func (s *Store) PendingCount() int {
	return int(s.pending.Load())
}

// Len returns the total number of stored trades.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
