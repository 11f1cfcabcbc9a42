package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tabward/internal/reaper"
)

func writeConfig(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func TestWatcher_DeliversReloadedPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tabward.toml")
	writeConfig(t, path, "[policy]\nthreshold_value = 10\nthreshold_unit = \"minutes\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := make(chan reaper.Settings, 8)
	w := NewWatcher(path, reaper.NewNopLogger())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(s reaper.Settings) { applied <- s })
	}()

	// The watcher needs a moment to set up before the write lands.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "[policy]\nthreshold_value = 2\nthreshold_unit = \"hours\"\n")

	select {
	case s := <-applied:
		if s.ThresholdValue != 2 || s.ThresholdUnit != reaper.UnitHours {
			t.Errorf("applied settings = %+v, want 2 hours", s)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tabward.toml")
	writeConfig(t, path, "[policy]\nthreshold_value = 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := make(chan reaper.Settings, 8)
	w := NewWatcher(path, reaper.NewNopLogger())
	go w.Run(ctx, func(s reaper.Settings) { applied <- s })

	time.Sleep(100 * time.Millisecond)
	writeConfig(t, filepath.Join(dir, "unrelated.txt"), "noise")

	select {
	case s := <-applied:
		t.Errorf("unexpected reload %+v from unrelated file", s)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_KeepsRunningOnBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tabward.toml")
	writeConfig(t, path, "[policy]\nthreshold_value = 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applied := make(chan reaper.Settings, 8)
	w := NewWatcher(path, reaper.NewNopLogger())
	go w.Run(ctx, func(s reaper.Settings) { applied <- s })

	time.Sleep(100 * time.Millisecond)

	// A broken write is skipped, a later good write still lands.
	writeConfig(t, path, "[policy\nbroken")
	writeConfig(t, path, "[policy]\nthreshold_value = 5\nthreshold_unit = \"minutes\"\n")

	deadline := time.After(10 * time.Second)
	for {
		select {
		case s := <-applied:
			if s.ThresholdValue == 5 {
				return
			}
			// Stale or coalesced event; keep waiting.
		case <-deadline:
			t.Fatal("timed out waiting for recovery reload")
		}
	}
}
