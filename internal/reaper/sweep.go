package reaper

import (
	"context"
	"time"
)

// closeSoonWindow is the remaining-time window under which a tab's impending
// close is logged. Diagnostics only, no behavioral effect.
const closeSoonWindow = 30 * time.Second

// sweep evaluates every open tab against the close predicate and closes the
// qualifying ones. Directory failures abandon the cycle; the next tick
// re-evaluates everything.
func (e *Engine) sweep(ctx context.Context) {
	if !e.settings.Enabled {
		e.log.Debug("auto-close disabled, skipping sweep")
		return
	}
	e.sweepCount++

	tabs, err := e.tabs.ListTabs(ctx)
	if err != nil {
		e.log.Warn("listing tabs", "error", err)
		return
	}

	now := e.clock.Now()
	threshold := e.settings.Threshold()
	closed := 0

	for _, tab := range tabs {
		if e.shouldClose(tab, now, threshold) {
			if err := e.closeTab(ctx, tab); err != nil {
				e.log.Warn("closing tab", "tab", tab.ID, "error", err)
				continue
			}
			closed++
			continue
		}
		if tab.Active {
			continue
		}
		if since, ok := e.ledger.TimeSince(tab.ID, now); ok {
			remaining := threshold - since
			if remaining > 0 && remaining < closeSoonWindow {
				e.log.Debug("tab closing soon", "tab", tab.ID, "title", tab.Title, "remaining", remaining)
			}
		}
	}

	if closed > 0 {
		e.log.Info("sweep complete", "checked", len(tabs), "closed", closed)
	}
}

// reconcile repairs ledger staleness accrued while the process was down. It
// runs exactly once, after hydration and before the first sweep. Only tabs
// with a ledger entry are considered; unseen tabs get a fresh entry on their
// first sweep instead.
func (e *Engine) reconcile(ctx context.Context) {
	tabs, err := e.tabs.ListTabs(ctx)
	if err != nil {
		e.log.Warn("listing tabs for reconciliation", "error", err)
		return
	}

	now := e.clock.Now()
	threshold := e.settings.Threshold()
	closed, continued := 0, 0

	for _, tab := range tabs {
		elapsed, ok := e.ledger.TimeSince(tab.ID, now)
		if !ok || elapsed <= threshold {
			continue
		}
		switch e.settings.DowntimePolicy {
		case DowntimeContinue:
			// Re-arm rather than close: the tab gets a full fresh threshold
			// from this point, regardless of the overshoot.
			e.touch(tab.ID)
			continued++
		default: // DowntimeAbsolute
			if tab.Active {
				continue
			}
			if tab.Pinned && e.settings.ExcludePinned {
				continue
			}
			if IsExcluded(tab.URL, e.settings.ExcludedDomains) {
				continue
			}
			if e.locks.Locked(tab.ID) {
				continue
			}
			if err := e.closeTab(ctx, tab); err != nil {
				e.log.Warn("closing expired tab", "tab", tab.ID, "error", err)
				continue
			}
			closed++
		}
	}

	if closed > 0 {
		e.log.Info("closed tabs that expired during downtime", "count", closed)
	}
	if continued > 0 {
		e.log.Info("re-armed timers after downtime", "count", continued)
	}
}
