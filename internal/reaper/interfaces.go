package reaper

import (
	"context"
	"time"
)

// Tab is a snapshot of one open browser tab. The ID is opaque and stable for
// the tab's lifetime in the host browser.
type Tab struct {
	ID         string
	URL        string
	Title      string
	FaviconURL string
	Pinned     bool
	Active     bool
	WindowID   string
}

// TabEventType identifies an activity notification from the tab directory.
type TabEventType int

const (
	TabActivatedEvent TabEventType = iota + 1
	TabUpdatedEvent
	TabRemovedEvent
)

// TabEvent is an activity notification emitted by a TabDirectory watch.
type TabEvent struct {
	Type   TabEventType
	TabID  string
	Status string // "complete" when a navigation finished
	Active bool   // true when an update marked the tab active
}

// Event converts the notification to the engine's event union.
func (ev TabEvent) Event() Event {
	switch ev.Type {
	case TabActivatedEvent:
		return TabActivated{TabID: ev.TabID}
	case TabUpdatedEvent:
		return TabUpdated{TabID: ev.TabID, Status: ev.Status, Active: ev.Active}
	case TabRemovedEvent:
		return TabRemoved{TabID: ev.TabID}
	}
	return nil
}

// TabDirectory is the host browser surface the engine drives. Implementations
// must tolerate tabs vanishing between a list and a close.
type TabDirectory interface {
	// ListTabs enumerates all open tabs.
	ListTabs(ctx context.Context) ([]Tab, error)

	// GetTab returns the tab with the given id, or nil if it no longer exists.
	GetTab(ctx context.Context, id string) (*Tab, error)

	// CloseTab asks the browser to destroy the tab.
	CloseTab(ctx context.Context, id string) error

	// OpenTab opens a new tab at the given URL (used to restore archived tabs).
	OpenTab(ctx context.Context, url string) error

	// Watch streams activity notifications until ctx is done.
	Watch(ctx context.Context, events chan<- TabEvent) error
}

// StateStore is the device-local persistence namespace holding the activity
// ledger and the lock set.
type StateStore interface {
	ListActivity() (map[string]time.Time, error)
	UpsertActivity(tabID string, lastActivity time.Time) error
	DeleteActivity(tabID string) error

	ListLocks() ([]string, error)
	AddLock(tabID string) error
	RemoveLock(tabID string) error

	Close() error
}

// ArchiveCap bounds the closed-tab archive. Oldest records beyond the cap are
// dropped on insert.
const ArchiveCap = 1000

// ArchivedTab is the durable record kept for each tab this system closes,
// enabling later restoration.
type ArchivedTab struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	FaviconURL  string    `json:"favicon"`
	WindowID    string    `json:"windowId"`
	WindowTitle string    `json:"windowTitle"`
	ClosedAt    time.Time `json:"closedAt"`
	Date        string    `json:"date"`
}

// ArchiveStore is the bounded, newest-first list of archived tabs.
type ArchiveStore interface {
	// Prepend inserts rec as the newest record and prunes beyond ArchiveCap.
	Prepend(rec ArchivedTab) error

	// List returns records newest-first. limit <= 0 returns all.
	List(limit int) ([]ArchivedTab, error)

	// Get returns the record with the given id, or nil if absent.
	Get(id string) (*ArchivedTab, error)

	Delete(id string) error
	Count() (int, error)

	// Merge inserts records not already present (by id), preserving
	// newest-first order and re-applying the cap. Returns the number added.
	Merge(recs []ArchivedTab) (int, error)
}

// SweepScheduler is the recurring wake-up primitive driving the periodic
// sweep. Installing a new schedule replaces any existing one atomically: no
// dual-firing, no gap longer than one missed tick.
type SweepScheduler interface {
	Install(interval time.Duration, fn func()) error
	Cancel() error
}
