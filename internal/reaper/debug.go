package reaper

import "context"

// DebugInfo is the per-tab snapshot served to debug overlays.
type DebugInfo struct {
	TabID               string   `json:"tabId"`
	Exists              bool     `json:"exists"`
	URL                 string   `json:"url,omitempty"`
	Title               string   `json:"title,omitempty"`
	LastActivity        string   `json:"lastActivity"` // RFC 3339, or "never"
	TimeSinceActivityMs int64    `json:"timeSinceActivityMs"`
	ThresholdMs         int64    `json:"thresholdMs"`
	TimeRemainingMs     int64    `json:"timeRemainingMs"`
	IsExcluded          bool     `json:"isExcluded"`
	IsPinned            bool     `json:"isPinned"`
	IsActive            bool     `json:"isActive"`
	IsLocked            bool     `json:"isLocked"`
	Settings            Settings `json:"settings"`
}

// StatusInfo summarizes the engine for the control API.
type StatusInfo struct {
	TrackedTabs     int    `json:"trackedTabs"`
	LockedTabs      int    `json:"lockedTabs"`
	ExcludedDomains int    `json:"excludedDomains"`
	UptimeSeconds   int64  `json:"uptimeSeconds"`
	SweepCount      int64  `json:"sweepCount"`
	ClosedCount     int64  `json:"closedCount"`
	DebugMode       bool   `json:"debugMode"`
	DowntimePolicy  string `json:"downtimePolicy"`
}

func (e *Engine) debugInfo(ctx context.Context, tabID string) DebugInfo {
	now := e.clock.Now()
	thresholdMs := e.settings.Threshold().Milliseconds()

	info := DebugInfo{
		TabID:        tabID,
		LastActivity: "never",
		ThresholdMs:  thresholdMs,
		IsLocked:     e.locks.Locked(tabID),
		Settings:     e.settings,
	}

	tab, err := e.tabs.GetTab(ctx, tabID)
	if err != nil {
		e.log.Warn("looking up tab for debug info", "tab", tabID, "error", err)
	}
	if tab != nil {
		info.Exists = true
		info.URL = tab.URL
		info.Title = tab.Title
		info.IsPinned = tab.Pinned
		info.IsActive = tab.Active
		info.IsExcluded = IsExcluded(tab.URL, e.settings.ExcludedDomains)
	}

	last, ok := e.ledger.Get(tabID)
	if ok {
		info.LastActivity = last.UTC().Format("2006-01-02T15:04:05Z07:00")
		info.TimeSinceActivityMs = now.Sub(last).Milliseconds()
	}

	// An active tab always shows the full threshold: its countdown only runs
	// while it is in the background.
	switch {
	case info.IsActive || !ok:
		info.TimeRemainingMs = thresholdMs
	default:
		remaining := thresholdMs - info.TimeSinceActivityMs
		if remaining < 0 {
			remaining = 0
		}
		info.TimeRemainingMs = remaining
	}

	return info
}

func (e *Engine) status() StatusInfo {
	return StatusInfo{
		TrackedTabs:     e.ledger.Len(),
		LockedTabs:      e.locks.Len(),
		ExcludedDomains: len(e.settings.ExcludedDomains),
		UptimeSeconds:   int64(e.clock.Now().Sub(e.startedAt).Seconds()),
		SweepCount:      e.sweepCount,
		ClosedCount:     e.closedCount,
		DebugMode:       e.settings.DebugMode,
		DowntimePolicy:  string(e.settings.DowntimePolicy),
	}
}
