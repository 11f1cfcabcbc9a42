package reaper

import "sort"

// LockSet tracks tabs the user has manually locked against auto-close. A lock
// is an unconditional veto, independent of activity recency. Like the Ledger
// it is owned by the engine goroutine with queued best-effort persistence.
type LockSet struct {
	ids map[string]struct{}
}

func NewLockSet() *LockSet {
	return &LockSet{ids: make(map[string]struct{})}
}

// Hydrate replaces the set contents with ids loaded from storage.
func (s *LockSet) Hydrate(ids []string) {
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Lock adds the tab to the set. Returns false if it was already locked.
func (s *LockSet) Lock(tabID string) bool {
	if _, ok := s.ids[tabID]; ok {
		return false
	}
	s.ids[tabID] = struct{}{}
	return true
}

// Unlock removes the tab from the set. Returns false if it was not locked.
func (s *LockSet) Unlock(tabID string) bool {
	if _, ok := s.ids[tabID]; !ok {
		return false
	}
	delete(s.ids, tabID)
	return true
}

// Locked reports whether the tab is locked.
func (s *LockSet) Locked(tabID string) bool {
	_, ok := s.ids[tabID]
	return ok
}

// IDs returns the locked tab ids in sorted order.
func (s *LockSet) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of locked tabs.
func (s *LockSet) Len() int { return len(s.ids) }
