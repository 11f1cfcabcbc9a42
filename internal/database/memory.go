package database

import (
	"sync"
	"time"

	"tabward/internal/reaper"
)

// MemoryStore is an in-memory implementation of the state and archive stores.
// Nothing survives a restart; use for tests and ephemeral runs.
type MemoryStore struct {
	mu       sync.Mutex
	activity map[string]time.Time
	locks    map[string]struct{}
	archive  []reaper.ArchivedTab // newest first
}

var (
	_ reaper.StateStore   = (*MemoryStore)(nil)
	_ reaper.ArchiveStore = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		activity: make(map[string]time.Time),
		locks:    make(map[string]struct{}),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) ListActivity() (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make(map[string]time.Time, len(s.activity))
	for id, ts := range s.activity {
		entries[id] = ts
	}
	return entries, nil
}

func (s *MemoryStore) UpsertActivity(tabID string, lastActivity time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity[tabID] = lastActivity
	return nil
}

func (s *MemoryStore) DeleteActivity(tabID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activity, tabID)
	return nil
}

func (s *MemoryStore) ListLocks() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.locks))
	for id := range s.locks {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) AddLock(tabID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks[tabID] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveLock(tabID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, tabID)
	return nil
}

func (s *MemoryStore) Prepend(rec reaper.ArchivedTab) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archive = append([]reaper.ArchivedTab{rec}, s.archive...)
	if len(s.archive) > reaper.ArchiveCap {
		s.archive = s.archive[:reaper.ArchiveCap]
	}
	return nil
}

func (s *MemoryStore) List(limit int) ([]reaper.ArchivedTab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.archive)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]reaper.ArchivedTab, n)
	copy(out, s.archive[:n])
	return out, nil
}

func (s *MemoryStore) Get(id string) (*reaper.ArchivedTab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.archive {
		if s.archive[i].ID == id {
			rec := s.archive[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.archive {
		if s.archive[i].ID == id {
			s.archive = append(s.archive[:i], s.archive[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.archive), nil
}

func (s *MemoryStore) Merge(recs []reaper.ArchivedTab) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[string]struct{}, len(s.archive))
	for _, rec := range s.archive {
		existing[rec.ID] = struct{}{}
	}
	added := 0
	for _, rec := range recs {
		if _, ok := existing[rec.ID]; ok {
			continue
		}
		s.archive = append(s.archive, rec)
		existing[rec.ID] = struct{}{}
		added++
	}
	if len(s.archive) > reaper.ArchiveCap {
		s.archive = s.archive[:reaper.ArchiveCap]
	}
	return added, nil
}
