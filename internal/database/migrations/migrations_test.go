package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	tables := []string{"tab_activity", "tab_locks", "archived_tabs", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheck_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := Check(db)
	if err == nil {
		t.Error("Check() expected error for fresh database, got nil")
	}

	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("Check() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheck_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	if err := Check(db); err != nil {
		t.Errorf("Check() after migration returned error: %v", err)
	}
}

func TestUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("First Up() failed: %v", err)
	}

	if err := Up(db); err != nil {
		t.Errorf("Second Up() failed: %v (should be idempotent)", err)
	}

	if err := Check(db); err != nil {
		t.Errorf("Check() after double migration returned error: %v", err)
	}
}

func TestSchema_ArchivedTabIDUnique(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO archived_tabs (id, url, closed_at_ms, closed_date)
		VALUES ('tab_1_abc', 'https://example.com/', 1700000000000, '2023-11-14')`)
	if err != nil {
		t.Fatalf("Failed to insert archived tab: %v", err)
	}

	_, err = db.Exec(`INSERT INTO archived_tabs (id, url, closed_at_ms, closed_date)
		VALUES ('tab_1_abc', 'https://other.example/', 1700000001000, '2023-11-14')`)
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate archive id, but insert succeeded")
	}
}

func TestSchema_ArchivedTabSeqAssigned(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := Up(db); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}

	for _, id := range []string{"tab_1_a", "tab_2_b"} {
		_, err := db.Exec(`INSERT INTO archived_tabs (id, url, closed_at_ms, closed_date)
			VALUES (?, 'https://example.com/', 1700000000000, '2023-11-14')`, id)
		if err != nil {
			t.Fatalf("Failed to insert archived tab %s: %v", id, err)
		}
	}

	// Later inserts must get higher sequence numbers; newest-first ordering
	// depends on it.
	var first, second int64
	if err := db.QueryRow("SELECT seq FROM archived_tabs WHERE id = 'tab_1_a'").Scan(&first); err != nil {
		t.Fatalf("Failed to read seq: %v", err)
	}
	if err := db.QueryRow("SELECT seq FROM archived_tabs WHERE id = 'tab_2_b'").Scan(&second); err != nil {
		t.Fatalf("Failed to read seq: %v", err)
	}
	if second <= first {
		t.Errorf("seq for later insert = %d, want > %d", second, first)
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	return db
}
