package browser

import (
	"context"
	"sync"

	"tabward/internal/reaper"
)

// MemoryDirectory is an in-memory TabDirectory for tests and dry runs. Helper
// methods mutate the tab set and emit the notifications a real browser would.
type MemoryDirectory struct {
	mu      sync.Mutex
	tabs    map[string]reaper.Tab
	order   []string
	watched []chan<- reaper.TabEvent
}

var _ reaper.TabDirectory = (*MemoryDirectory)(nil)

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{tabs: make(map[string]reaper.Tab)}
}

func (d *MemoryDirectory) ListTabs(ctx context.Context) ([]reaper.Tab, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tabs := make([]reaper.Tab, 0, len(d.order))
	for _, id := range d.order {
		tabs = append(tabs, d.tabs[id])
	}
	return tabs, nil
}

func (d *MemoryDirectory) GetTab(ctx context.Context, id string) (*reaper.Tab, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tab, ok := d.tabs[id]
	if !ok {
		return nil, nil
	}
	return &tab, nil
}

func (d *MemoryDirectory) CloseTab(ctx context.Context, id string) error {
	d.mu.Lock()
	_, ok := d.tabs[id]
	if ok {
		d.removeLocked(id)
	}
	d.mu.Unlock()
	if ok {
		d.emit(reaper.TabEvent{Type: reaper.TabRemovedEvent, TabID: id})
	}
	return nil
}

func (d *MemoryDirectory) OpenTab(ctx context.Context, url string) error {
	d.AddTab(reaper.Tab{ID: "restored-" + url, URL: url})
	return nil
}

// Watch registers the channel for notifications and blocks until ctx is done.
func (d *MemoryDirectory) Watch(ctx context.Context, events chan<- reaper.TabEvent) error {
	d.mu.Lock()
	d.watched = append(d.watched, events)
	d.mu.Unlock()
	<-ctx.Done()
	return nil
}

// AddTab inserts or replaces a tab without emitting events.
func (d *MemoryDirectory) AddTab(tab reaper.Tab) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tabs[tab.ID]; !ok {
		d.order = append(d.order, tab.ID)
	}
	d.tabs[tab.ID] = tab
}

// SetActive marks one tab active and all others inactive, emitting an
// activated event for it.
func (d *MemoryDirectory) SetActive(id string) {
	d.mu.Lock()
	for tid, tab := range d.tabs {
		tab.Active = tid == id
		d.tabs[tid] = tab
	}
	d.mu.Unlock()
	d.emit(reaper.TabEvent{Type: reaper.TabActivatedEvent, TabID: id})
}

// CompleteNavigation emits the "navigation finished" update for a tab.
func (d *MemoryDirectory) CompleteNavigation(id string) {
	d.emit(reaper.TabEvent{Type: reaper.TabUpdatedEvent, TabID: id, Status: "complete"})
}

// RemoveTab removes a tab (as if the user closed it) and emits the removal.
func (d *MemoryDirectory) RemoveTab(id string) {
	d.mu.Lock()
	d.removeLocked(id)
	d.mu.Unlock()
	d.emit(reaper.TabEvent{Type: reaper.TabRemovedEvent, TabID: id})
}

// Has reports whether the tab is still open.
func (d *MemoryDirectory) Has(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.tabs[id]
	return ok
}

func (d *MemoryDirectory) removeLocked(id string) {
	delete(d.tabs, id)
	for i, tid := range d.order {
		if tid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *MemoryDirectory) emit(ev reaper.TabEvent) {
	d.mu.Lock()
	watched := make([]chan<- reaper.TabEvent, len(d.watched))
	copy(watched, d.watched)
	d.mu.Unlock()
	for _, ch := range watched {
		ch <- ev
	}
}
