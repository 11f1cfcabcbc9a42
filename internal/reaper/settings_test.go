package reaper

import (
	"testing"
	"time"
)

func TestSettings_Normalize(t *testing.T) {
	t.Run("nil excluded domains becomes empty list", func(t *testing.T) {
		s := Settings{ThresholdValue: 10, ThresholdUnit: UnitMinutes, DowntimePolicy: DowntimeAbsolute}.Normalize()
		if s.ExcludedDomains == nil {
			t.Error("ExcludedDomains is nil after Normalize()")
		}
		if len(s.ExcludedDomains) != 0 {
			t.Errorf("ExcludedDomains = %v, want empty", s.ExcludedDomains)
		}
	})

	t.Run("non-positive threshold value falls back to default", func(t *testing.T) {
		for _, v := range []int{0, -5} {
			s := Settings{ThresholdValue: v, ThresholdUnit: UnitMinutes}.Normalize()
			if s.ThresholdValue != 30 {
				t.Errorf("ThresholdValue %d normalized to %d, want 30", v, s.ThresholdValue)
			}
		}
	})

	t.Run("unknown unit falls back to minutes", func(t *testing.T) {
		s := Settings{ThresholdValue: 10, ThresholdUnit: "fortnights"}.Normalize()
		if s.ThresholdUnit != UnitMinutes {
			t.Errorf("ThresholdUnit = %q, want %q", s.ThresholdUnit, UnitMinutes)
		}
	})

	t.Run("unknown downtime policy falls back to absolute", func(t *testing.T) {
		s := Settings{ThresholdValue: 10, ThresholdUnit: UnitMinutes, DowntimePolicy: "whenever"}.Normalize()
		if s.DowntimePolicy != DowntimeAbsolute {
			t.Errorf("DowntimePolicy = %q, want %q", s.DowntimePolicy, DowntimeAbsolute)
		}
	})

	t.Run("valid settings pass through unchanged", func(t *testing.T) {
		in := Settings{
			Enabled:         true,
			ThresholdValue:  2,
			ThresholdUnit:   UnitHours,
			ExcludedDomains: []string{"example.com"},
			DowntimePolicy:  DowntimeContinue,
		}
		got := in.Normalize()
		if got.ThresholdValue != 2 || got.ThresholdUnit != UnitHours || got.DowntimePolicy != DowntimeContinue {
			t.Errorf("Normalize() = %+v, want unchanged", got)
		}
	})
}

func TestSettings_Threshold(t *testing.T) {
	tests := []struct {
		value int
		unit  ThresholdUnit
		want  time.Duration
	}{
		{45, UnitSeconds, 45 * time.Second},
		{30, UnitMinutes, 30 * time.Minute},
		{2, UnitHours, 2 * time.Hour},
		{1, UnitDays, 24 * time.Hour},
	}
	for _, tt := range tests {
		s := Settings{ThresholdValue: tt.value, ThresholdUnit: tt.unit}
		if got := s.Threshold(); got != tt.want {
			t.Errorf("Threshold(%d %s) = %v, want %v", tt.value, tt.unit, got, tt.want)
		}
	}
}

func TestCheckInterval(t *testing.T) {
	tests := []struct {
		threshold time.Duration
		want      time.Duration
	}{
		{5 * time.Second, time.Second},       // tenth would be 500ms, floored
		{50 * time.Second, 5 * time.Second},  // tenth of the threshold
		{time.Minute, 30 * time.Second},      // boundary into the 30s band
		{4 * time.Minute, 30 * time.Second},  // still under five minutes
		{5 * time.Minute, time.Minute},       // boundary into the 1m band
		{29 * time.Minute, time.Minute},      // still under thirty minutes
		{30 * time.Minute, 5 * time.Minute},  // boundary into the 5m band
		{24 * time.Hour, 5 * time.Minute},    // long thresholds stay at 5m
	}
	for _, tt := range tests {
		if got := CheckInterval(tt.threshold); got != tt.want {
			t.Errorf("CheckInterval(%v) = %v, want %v", tt.threshold, got, tt.want)
		}
	}
}
