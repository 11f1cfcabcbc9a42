package reaper

// Event is the tagged union of every external trigger the engine reacts to.
// All of them are dispatched through a single handler on a single goroutine,
// which keeps the state machine's transitions auditable in one place.
type Event interface{ isEvent() }

// TabActivated reports that a tab gained focus.
type TabActivated struct{ TabID string }

// TabUpdated reports a tab change; a "complete" status means a navigation
// finished, Active means the update brought the tab to the foreground.
type TabUpdated struct {
	TabID  string
	Status string
	Active bool
}

// TabRemoved reports that a tab was destroyed (by the user or by this system).
type TabRemoved struct{ TabID string }

// SettingsChanged carries a wholesale replacement of the settings singleton.
type SettingsChanged struct{ Settings Settings }

// sweepTick is posted by the scheduler on each wake-up.
type sweepTick struct{}

// Synchronous requests from collaborators (control API, CLI). Each carries a
// reply channel the engine answers on; callers wait with a context.

type resetRequest struct {
	tabID string
	reply chan struct{}
}

type lockRequest struct {
	tabID  string
	locked bool
	reply  chan error
}

type debugRequest struct {
	tabID string
	reply chan DebugInfo
}

type statusRequest struct{ reply chan StatusInfo }

type settingsRequest struct{ reply chan Settings }

func (TabActivated) isEvent()    {}
func (TabUpdated) isEvent()      {}
func (TabRemoved) isEvent()      {}
func (SettingsChanged) isEvent() {}
func (sweepTick) isEvent()       {}
func (resetRequest) isEvent()    {}
func (lockRequest) isEvent()     {}
func (debugRequest) isEvent()    {}
func (statusRequest) isEvent()   {}
func (settingsRequest) isEvent() {}
