package reaper

import (
	"context"
	"fmt"
	"time"
)

// closeTab archives the tab and then asks the directory to destroy it. The
// ordering is strict: a tab is never destroyed without a durable archive
// record, so an archive failure aborts the close and the tab is re-evaluated
// on the next sweep. A failed destroy keeps the ledger entry — the tab still
// exists and must stay tracked; the archive record remains and is deduped at
// restore time.
func (e *Engine) closeTab(ctx context.Context, tab Tab) error {
	now := e.clock.Now()
	rec := e.newArchiveRecord(tab, now)

	if err := e.archive.Prepend(rec); err != nil {
		return fmt.Errorf("archiving tab %s: %w", tab.ID, err)
	}

	if err := e.tabs.CloseTab(ctx, tab.ID); err != nil {
		e.log.Warn("destroying tab failed, keeping ledger entry", "tab", tab.ID, "error", err)
		return nil
	}

	e.closedCount++
	e.forget(tab.ID)
	e.log.Info("tab closed", "tab", tab.ID, "title", tab.Title)
	return nil
}

func (e *Engine) newArchiveRecord(tab Tab, now time.Time) ArchivedTab {
	return ArchivedTab{
		ID:          archiveID(now, e.idgen.New()),
		URL:         tab.URL,
		Title:       tab.Title,
		FaviconURL:  tab.FaviconURL,
		WindowID:    tab.WindowID,
		WindowTitle: fmt.Sprintf("Closed at %s on %s", now.Format("15:04:05"), now.Format("2006-01-02")),
		ClosedAt:    now,
		Date:        now.Format("2006-01-02"),
	}
}

// archiveID builds a record id from the close time and a random suffix so
// that two closes in the same millisecond cannot collide.
func archiveID(now time.Time, suffix string) string {
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("tab_%d_%s", now.UnixMilli(), suffix)
}
