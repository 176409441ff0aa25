package contract

import (
	"sync"

	"github.com/rickgao/dlc-settler/internal/model"
)

// registryState holds the lock-protected contract storage.
//
// Invariant: open contains exactly the ids of records with SettledTS == 0,
// after every mutation. The open slice is order-non-preserving: removal
// swaps with the last entry, so positions are valid only as hints.
type registryState struct {
	mu sync.RWMutex

	// All known contracts indexed by id.
	records map[string]*model.Record

	// Identifiers of contracts not yet settled.
	open []string
}

func newState() *registryState {
	return &registryState{
		records: make(map[string]*model.Record),
	}
}

// add inserts a new record and appends its id to the open set (write-locked).
func (s *registryState) add(rec model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return ErrAlreadyExists
	}

	recCopy := rec
	s.records[rec.ID] = &recCopy
	s.open = append(s.open, rec.ID)
	return nil
}

// getRecord returns a record copy by id (read-locked).
func (s *registryState) getRecord(id string) (model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return model.Record{}, false
	}
	return *rec, true
}

// listOpen returns a snapshot copy of the open set (read-locked).
func (s *registryState) listOpen() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]string, len(s.open))
	copy(snapshot, s.open)
	return snapshot
}

// firstDue returns the first open-set entry due at nowTS (read-locked).
func (s *registryState) firstDue(nowTS int64) (Upkeep, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, id := range s.open {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		if rec.Due(nowTS) {
			return Upkeep{RecordID: id, Index: i}, true
		}
	}
	return Upkeep{}, false
}

// stats returns registry counters (read-locked).
func (s *registryState) stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Open:    len(s.open),
		Settled: len(s.records) - len(s.open),
	}
}

// indexOfLocked locates id in the open set, preferring the caller's hint.
// A stale hint (another removal reordered the list) falls back to a linear
// scan. Caller must hold the write lock.
func (s *registryState) indexOfLocked(id string, hint int) (int, bool) {
	if hint >= 0 && hint < len(s.open) && s.open[hint] == id {
		return hint, true
	}

	for i, oid := range s.open {
		if oid == id {
			return i, true
		}
	}
	return 0, false
}

// removeAtLocked removes the open-set entry at i by swapping with the last
// entry and truncating. O(1), does not preserve order. Caller must hold the
// write lock.
func (s *registryState) removeAtLocked(i int) {
	last := len(s.open) - 1
	s.open[i] = s.open[last]
	s.open = s.open[:last]
}
