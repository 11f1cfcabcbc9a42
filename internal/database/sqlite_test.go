package database

import (
	"fmt"
	"testing"
	"time"

	"tabward/internal/reaper"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func archived(id string, closedAt time.Time) reaper.ArchivedTab {
	return reaper.ArchivedTab{
		ID:          id,
		URL:         "https://example.com/" + id,
		Title:       "Tab " + id,
		WindowTitle: "Closed at 10:30:00 on 2024-01-15",
		ClosedAt:    closedAt,
		Date:        closedAt.Format("2006-01-02"),
	}
}

func TestSQLiteStore_Activity(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	t.Run("upsert and list", func(t *testing.T) {
		if err := store.UpsertActivity("t1", base); err != nil {
			t.Fatalf("UpsertActivity() error = %v", err)
		}
		if err := store.UpsertActivity("t2", base.Add(time.Minute)); err != nil {
			t.Fatalf("UpsertActivity() error = %v", err)
		}

		entries, err := store.ListActivity()
		if err != nil {
			t.Fatalf("ListActivity() error = %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("ListActivity() returned %d entries, want 2", len(entries))
		}
		if !entries["t1"].Equal(base) {
			t.Errorf("t1 = %v, want %v", entries["t1"], base)
		}
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		later := base.Add(time.Hour)
		if err := store.UpsertActivity("t1", later); err != nil {
			t.Fatalf("UpsertActivity() error = %v", err)
		}

		entries, err := store.ListActivity()
		if err != nil {
			t.Fatalf("ListActivity() error = %v", err)
		}
		if !entries["t1"].Equal(later) {
			t.Errorf("t1 = %v, want %v", entries["t1"], later)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.DeleteActivity("t1"); err != nil {
			t.Fatalf("DeleteActivity() error = %v", err)
		}
		entries, _ := store.ListActivity()
		if _, ok := entries["t1"]; ok {
			t.Error("t1 still present after DeleteActivity()")
		}
	})

	t.Run("delete missing is a no-op", func(t *testing.T) {
		if err := store.DeleteActivity("nope"); err != nil {
			t.Errorf("DeleteActivity() error = %v", err)
		}
	})
}

func TestSQLiteStore_Locks(t *testing.T) {
	store := newTestStore(t)

	if err := store.AddLock("t1"); err != nil {
		t.Fatalf("AddLock() error = %v", err)
	}
	// Locking twice must not error.
	if err := store.AddLock("t1"); err != nil {
		t.Fatalf("second AddLock() error = %v", err)
	}
	if err := store.AddLock("t2"); err != nil {
		t.Fatalf("AddLock() error = %v", err)
	}

	locks, err := store.ListLocks()
	if err != nil {
		t.Fatalf("ListLocks() error = %v", err)
	}
	if len(locks) != 2 {
		t.Fatalf("ListLocks() = %v, want 2 entries", locks)
	}

	if err := store.RemoveLock("t1"); err != nil {
		t.Fatalf("RemoveLock() error = %v", err)
	}
	locks, _ = store.ListLocks()
	if len(locks) != 1 || locks[0] != "t2" {
		t.Errorf("ListLocks() = %v, want [t2]", locks)
	}
}

func TestSQLiteStore_Archive(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	t.Run("list returns newest first", func(t *testing.T) {
		store := newTestStore(t)
		for i := 0; i < 3; i++ {
			rec := archived(fmt.Sprintf("tab_%d", i), base.Add(time.Duration(i)*time.Minute))
			if err := store.Prepend(rec); err != nil {
				t.Fatalf("Prepend() error = %v", err)
			}
		}

		recs, err := store.List(0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(recs) != 3 {
			t.Fatalf("List() returned %d records, want 3", len(recs))
		}
		if recs[0].ID != "tab_2" || recs[2].ID != "tab_0" {
			t.Errorf("order = [%s %s %s], want newest first", recs[0].ID, recs[1].ID, recs[2].ID)
		}
	})

	t.Run("list honors limit", func(t *testing.T) {
		store := newTestStore(t)
		for i := 0; i < 5; i++ {
			store.Prepend(archived(fmt.Sprintf("tab_%d", i), base))
		}
		recs, err := store.List(2)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(recs) != 2 {
			t.Errorf("List(2) returned %d records, want 2", len(recs))
		}
	})

	t.Run("get and delete", func(t *testing.T) {
		store := newTestStore(t)
		store.Prepend(archived("tab_a", base))

		rec, err := store.Get("tab_a")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rec == nil {
			t.Fatal("Get() = nil for existing record")
		}
		if rec.URL != "https://example.com/tab_a" {
			t.Errorf("URL = %q", rec.URL)
		}
		if !rec.ClosedAt.Equal(base) {
			t.Errorf("ClosedAt = %v, want %v", rec.ClosedAt, base)
		}

		if err := store.Delete("tab_a"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		rec, err = store.Get("tab_a")
		if err != nil {
			t.Fatalf("Get() after delete error = %v", err)
		}
		if rec != nil {
			t.Error("record still present after Delete()")
		}
	})

	t.Run("cap evicts oldest beyond the limit", func(t *testing.T) {
		store := newTestStore(t)
		total := reaper.ArchiveCap + 5
		for i := 0; i < total; i++ {
			rec := archived(fmt.Sprintf("tab_%05d", i), base.Add(time.Duration(i)*time.Second))
			if err := store.Prepend(rec); err != nil {
				t.Fatalf("Prepend(%d) error = %v", i, err)
			}
		}

		n, err := store.Count()
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != reaper.ArchiveCap {
			t.Fatalf("Count() = %d, want %d", n, reaper.ArchiveCap)
		}

		// The five oldest records are gone, the newest survives.
		for i := 0; i < 5; i++ {
			rec, _ := store.Get(fmt.Sprintf("tab_%05d", i))
			if rec != nil {
				t.Errorf("oldest record tab_%05d survived the cap", i)
			}
		}
		rec, _ := store.Get(fmt.Sprintf("tab_%05d", total-1))
		if rec == nil {
			t.Error("newest record evicted")
		}
	})

	t.Run("merge skips duplicates", func(t *testing.T) {
		store := newTestStore(t)
		store.Prepend(archived("tab_a", base))

		added, err := store.Merge([]reaper.ArchivedTab{
			archived("tab_b", base.Add(time.Minute)),
			archived("tab_a", base),
			archived("tab_c", base.Add(2*time.Minute)),
		})
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if added != 2 {
			t.Errorf("Merge() added = %d, want 2", added)
		}
		if n, _ := store.Count(); n != 3 {
			t.Errorf("Count() = %d, want 3", n)
		}
	})
}

func TestMemoryStore_MatchesSQLite(t *testing.T) {
	// The memory store backs tests elsewhere; pin the behaviors the engine
	// relies on.
	store := NewMemoryStore()
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	store.UpsertActivity("t1", base)
	entries, err := store.ListActivity()
	if err != nil {
		t.Fatalf("ListActivity() error = %v", err)
	}
	if !entries["t1"].Equal(base) {
		t.Errorf("t1 = %v, want %v", entries["t1"], base)
	}

	for i := 0; i < reaper.ArchiveCap+3; i++ {
		store.Prepend(archived(fmt.Sprintf("tab_%05d", i), base))
	}
	if n, _ := store.Count(); n != reaper.ArchiveCap {
		t.Errorf("Count() = %d, want %d", n, reaper.ArchiveCap)
	}

	recs, _ := store.List(1)
	if len(recs) != 1 || recs[0].ID != fmt.Sprintf("tab_%05d", reaper.ArchiveCap+2) {
		t.Errorf("List(1) = %v, want the newest record", recs)
	}
}
