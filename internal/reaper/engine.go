package reaper

import (
	"context"
	"fmt"
	"time"
)

// Engine is the inactivity-tracking and close-decision core. It owns the
// activity ledger, the lock set, and the settings singleton, and it is the
// only writer of all three. Every external trigger — tab activity
// notifications, scheduler ticks, settings reloads, control-API requests —
// enters through Dispatch and is handled sequentially by the Run loop, so no
// locks are needed around engine state.
type Engine struct {
	tabs      TabDirectory
	store     StateStore
	archive   ArchiveStore
	scheduler SweepScheduler
	log       Logger
	clock     Clock
	idgen     IDGenerator

	settings Settings
	ledger   *Ledger
	locks    *LockSet
	writes   *writeQueue

	events    chan Event
	startedAt time.Time

	sweepCount  int64
	closedCount int64
}

// NewEngine creates an Engine with the provided dependencies. settings is
// normalized before use; call Run to hydrate state and start processing.
func NewEngine(tabs TabDirectory, store StateStore, archive ArchiveStore, scheduler SweepScheduler, log Logger, clock Clock, idgen IDGenerator, settings Settings) *Engine {
	return &Engine{
		tabs:      tabs,
		store:     store,
		archive:   archive,
		scheduler: scheduler,
		log:       log,
		clock:     clock,
		idgen:     idgen,
		settings:  settings.Normalize(),
		ledger:    NewLedger(),
		locks:     NewLockSet(),
		writes:    newWriteQueue(256, log),
		events:    make(chan Event, 128),
	}
}

// Run hydrates persisted state, reconciles downtime, installs the sweep
// cadence, and then processes events until ctx is done. It returns nil on a
// clean shutdown.
func (e *Engine) Run(ctx context.Context) error {
	e.startedAt = e.clock.Now()
	go e.writes.Run(ctx)

	e.hydrate()
	e.reconcile(ctx)

	if err := e.installCadence(); err != nil {
		return fmt.Errorf("installing sweep cadence: %w", err)
	}
	defer e.scheduler.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-e.events:
			e.handle(ctx, ev)
		}
	}
}

// Dispatch posts an event to the engine. It blocks only if the event buffer
// is full (the loop drains quickly; sweep work is the slowest handler).
func (e *Engine) Dispatch(ev Event) {
	if ev == nil {
		return
	}
	e.events <- ev
}

// handle is the single transition function of the state machine.
func (e *Engine) handle(ctx context.Context, ev Event) {
	switch ev := ev.(type) {
	case TabActivated:
		e.log.Debug("tab activated", "tab", ev.TabID)
		e.touch(ev.TabID)
	case TabUpdated:
		if ev.Status == "complete" || ev.Active {
			e.touch(ev.TabID)
		}
	case TabRemoved:
		e.forget(ev.TabID)
	case SettingsChanged:
		e.applySettings(ev.Settings)
	case sweepTick:
		e.sweep(ctx)
	case resetRequest:
		e.log.Debug("manual timer reset", "tab", ev.tabID)
		e.touch(ev.tabID)
		ev.reply <- struct{}{}
	case lockRequest:
		ev.reply <- e.setLock(ev.tabID, ev.locked)
	case debugRequest:
		ev.reply <- e.debugInfo(ctx, ev.tabID)
	case statusRequest:
		ev.reply <- e.status()
	case settingsRequest:
		ev.reply <- e.settings
	}
}

// touch registers activity for the tab right now and queues a persist.
func (e *Engine) touch(tabID string) {
	now := e.clock.Now()
	e.ledger.Reset(tabID, now)
	e.writes.enqueue("upsert activity", func() error {
		return e.store.UpsertActivity(tabID, now)
	})
}

// forget drops the tab from the ledger and prunes any stale lock, queueing
// persists for both.
func (e *Engine) forget(tabID string) {
	e.ledger.Remove(tabID)
	e.writes.enqueue("delete activity", func() error {
		return e.store.DeleteActivity(tabID)
	})
	if e.locks.Unlock(tabID) {
		e.writes.enqueue("remove lock", func() error {
			return e.store.RemoveLock(tabID)
		})
	}
}

// setLock mutates the lock set. Locking a locked tab and unlocking an
// unlocked tab are no-ops.
func (e *Engine) setLock(tabID string, locked bool) error {
	if locked {
		if e.locks.Lock(tabID) {
			e.log.Info("tab locked", "tab", tabID)
			e.writes.enqueue("add lock", func() error {
				return e.store.AddLock(tabID)
			})
		}
		return nil
	}
	if e.locks.Unlock(tabID) {
		e.log.Info("tab unlocked", "tab", tabID)
		e.writes.enqueue("remove lock", func() error {
			return e.store.RemoveLock(tabID)
		})
	}
	return nil
}

// applySettings replaces the settings singleton and re-derives the sweep
// cadence. The scheduler swap is atomic from the engine's perspective: the
// old schedule is cancelled before the new one is installed.
func (e *Engine) applySettings(s Settings) {
	s = s.Normalize()
	prevDebug := e.settings.DebugMode
	e.settings = s
	if err := e.installCadence(); err != nil {
		e.log.Warn("rescheduling sweep", "error", err)
	}
	if prevDebug != s.DebugMode {
		e.log.Info("debug mode toggled", "enabled", s.DebugMode)
	}
	e.log.Info("settings applied",
		"enabled", s.Enabled,
		"threshold", s.Threshold(),
		"excludedDomains", len(s.ExcludedDomains),
		"downtimePolicy", s.DowntimePolicy,
	)
}

func (e *Engine) installCadence() error {
	interval := CheckInterval(e.settings.Threshold())
	e.log.Debug("installing sweep cadence", "interval", interval)
	return e.scheduler.Install(interval, func() {
		e.Dispatch(sweepTick{})
	})
}

// hydrate loads the ledger and lock set from storage. Storage being
// unavailable degrades to empty state, never to a startup failure.
func (e *Engine) hydrate() {
	entries, err := e.store.ListActivity()
	if err != nil {
		e.log.Warn("loading activity ledger", "error", err)
	} else {
		e.ledger.Hydrate(entries)
		e.log.Info("activity ledger hydrated", "tabs", e.ledger.Len())
	}

	locks, err := e.store.ListLocks()
	if err != nil {
		e.log.Warn("loading lock set", "error", err)
	} else {
		e.locks.Hydrate(locks)
		if e.locks.Len() > 0 {
			e.log.Info("lock set hydrated", "tabs", e.locks.Len())
		}
	}
}

// ResetTimer registers fresh activity for the tab (the explicit reset used by
// content scripts and the control API).
func (e *Engine) ResetTimer(ctx context.Context, tabID string) error {
	req := resetRequest{tabID: tabID, reply: make(chan struct{}, 1)}
	if err := e.send(ctx, req); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-req.reply:
		return nil
	}
}

// SetLock locks or unlocks the tab. Both directions are idempotent.
func (e *Engine) SetLock(ctx context.Context, tabID string, locked bool) error {
	req := lockRequest{tabID: tabID, locked: locked, reply: make(chan error, 1)}
	if err := e.send(ctx, req); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-req.reply:
		return err
	}
}

// DebugInfo returns a point-in-time snapshot of the engine's view of one tab.
func (e *Engine) DebugInfo(ctx context.Context, tabID string) (DebugInfo, error) {
	req := debugRequest{tabID: tabID, reply: make(chan DebugInfo, 1)}
	if err := e.send(ctx, req); err != nil {
		return DebugInfo{}, err
	}
	select {
	case <-ctx.Done():
		return DebugInfo{}, ctx.Err()
	case info := <-req.reply:
		return info, nil
	}
}

// Status returns engine counters for the control API.
func (e *Engine) Status(ctx context.Context) (StatusInfo, error) {
	req := statusRequest{reply: make(chan StatusInfo, 1)}
	if err := e.send(ctx, req); err != nil {
		return StatusInfo{}, err
	}
	select {
	case <-ctx.Done():
		return StatusInfo{}, ctx.Err()
	case info := <-req.reply:
		return info, nil
	}
}

// CurrentSettings returns the active merged settings.
func (e *Engine) CurrentSettings(ctx context.Context) (Settings, error) {
	req := settingsRequest{reply: make(chan Settings, 1)}
	if err := e.send(ctx, req); err != nil {
		return Settings{}, err
	}
	select {
	case <-ctx.Done():
		return Settings{}, ctx.Err()
	case s := <-req.reply:
		return s, nil
	}
}

func (e *Engine) send(ctx context.Context, ev Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case e.events <- ev:
		return nil
	}
}
