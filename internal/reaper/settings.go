package reaper

import "time"

// ThresholdUnit is the unit the inactivity threshold is expressed in.
type ThresholdUnit string

const (
	UnitSeconds ThresholdUnit = "seconds"
	UnitMinutes ThresholdUnit = "minutes"
	UnitHours   ThresholdUnit = "hours"
	UnitDays    ThresholdUnit = "days"
)

// DowntimePolicy governs how inactivity accrued while the process was down is
// reconciled at startup.
type DowntimePolicy string

const (
	// DowntimeAbsolute treats the threshold as wall-clock absolute: tabs that
	// expired during downtime are closed during reconciliation.
	DowntimeAbsolute DowntimePolicy = "absolute"

	// DowntimeContinue re-arms expired timers at startup instead of closing.
	DowntimeContinue DowntimePolicy = "continue"
)

// Settings is the process-wide auto-close configuration. It is replaced
// wholesale when the settings source reports a change.
type Settings struct {
	Enabled         bool           `toml:"enabled" json:"enabled"`
	ThresholdValue  int            `toml:"threshold_value" json:"thresholdValue"`
	ThresholdUnit   ThresholdUnit  `toml:"threshold_unit" json:"thresholdUnit"`
	ExcludedDomains []string       `toml:"excluded_domains" json:"excludedDomains"`
	ExcludePinned   bool           `toml:"exclude_pinned" json:"excludePinned"`
	DebugMode       bool           `toml:"debug_mode" json:"debugMode"`
	DowntimePolicy  DowntimePolicy `toml:"downtime_policy" json:"downtimePolicy"`
}

// DefaultSettings returns the hardcoded defaults stored values are merged over.
func DefaultSettings() Settings {
	return Settings{
		Enabled:         true,
		ThresholdValue:  30,
		ThresholdUnit:   UnitMinutes,
		ExcludedDomains: []string{},
		ExcludePinned:   true,
		DebugMode:       false,
		DowntimePolicy:  DowntimeAbsolute,
	}
}

// Normalize coerces malformed field values to safe defaults. ExcludedDomains
// is always a non-nil list after normalization.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.ExcludedDomains == nil {
		s.ExcludedDomains = []string{}
	}
	if s.ThresholdValue <= 0 {
		s.ThresholdValue = def.ThresholdValue
	}
	switch s.ThresholdUnit {
	case UnitSeconds, UnitMinutes, UnitHours, UnitDays:
	default:
		s.ThresholdUnit = def.ThresholdUnit
	}
	switch s.DowntimePolicy {
	case DowntimeAbsolute, DowntimeContinue:
	default:
		s.DowntimePolicy = def.DowntimePolicy
	}
	return s
}

// Threshold returns the configured inactivity threshold as a duration.
func (s Settings) Threshold() time.Duration {
	var unit time.Duration
	switch s.ThresholdUnit {
	case UnitSeconds:
		unit = time.Second
	case UnitHours:
		unit = time.Hour
	case UnitDays:
		unit = 24 * time.Hour
	default:
		unit = time.Minute
	}
	return time.Duration(s.ThresholdValue) * unit
}

// CheckInterval returns the sweep cadence for the given threshold. Short
// thresholds are checked frequently enough to fire close to on-time; long
// thresholds are not worth waking up for every few seconds.
func CheckInterval(threshold time.Duration) time.Duration {
	switch {
	case threshold < time.Minute:
		interval := threshold / 10
		if interval < time.Second {
			interval = time.Second
		}
		return interval
	case threshold < 5*time.Minute:
		return 30 * time.Second
	case threshold < 30*time.Minute:
		return time.Minute
	default:
		return 5 * time.Minute
	}
}
