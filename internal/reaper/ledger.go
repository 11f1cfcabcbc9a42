package reaper

import "time"

// Ledger maps tab ids to the time of their last registered activity. It is
// owned by the engine goroutine and is the authoritative copy; persistence is
// queued and best-effort (a failed write is logged, not fatal).
type Ledger struct {
	entries map[string]time.Time
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]time.Time)}
}

// Hydrate replaces the ledger contents with entries loaded from storage.
func (l *Ledger) Hydrate(entries map[string]time.Time) {
	l.entries = make(map[string]time.Time, len(entries))
	for id, ts := range entries {
		l.entries[id] = ts
	}
}

// Reset records activity for the tab at the given time. Last write wins.
func (l *Ledger) Reset(tabID string, now time.Time) {
	l.entries[tabID] = now
}

// Get returns the last-activity time for the tab.
func (l *Ledger) Get(tabID string) (time.Time, bool) {
	ts, ok := l.entries[tabID]
	return ts, ok
}

// Remove drops the tab's entry. Removing an absent entry is a no-op.
func (l *Ledger) Remove(tabID string) {
	delete(l.entries, tabID)
}

// TimeSince returns how long the tab has been inactive as of now.
func (l *Ledger) TimeSince(tabID string, now time.Time) (time.Duration, bool) {
	ts, ok := l.entries[tabID]
	if !ok {
		return 0, false
	}
	return now.Sub(ts), true
}

// Len returns the number of tracked tabs.
func (l *Ledger) Len() int { return len(l.entries) }
