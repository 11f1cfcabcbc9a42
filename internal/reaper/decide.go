package reaper

import "time"

// shouldClose decides whether a tab is past its inactivity threshold. Rules
// are evaluated in a fixed order and the first match decides:
//
//	locked → pinned (when excluded) → domain-excluded → active → no ledger
//	entry → threshold comparison
//
// Evaluating an active tab refreshes its ledger entry as a side effect, and a
// tab seen for the first time gets a fresh entry, so the engine never needs a
// separate "still active" subscription. Each call reads the ledger fresh, so
// an activity event handled just before the evaluation is honored.
func (e *Engine) shouldClose(tab Tab, now time.Time, threshold time.Duration) bool {
	if e.locks.Locked(tab.ID) {
		return false
	}
	if tab.Pinned && e.settings.ExcludePinned {
		return false
	}
	if IsExcluded(tab.URL, e.settings.ExcludedDomains) {
		return false
	}
	if tab.Active {
		e.touch(tab.ID)
		return false
	}
	last, ok := e.ledger.Get(tab.ID)
	if !ok {
		// First observation counts as fresh activity.
		e.touch(tab.ID)
		return false
	}
	return now.Sub(last) > threshold
}
