package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tabward/internal/database/migrations"
	"tabward/internal/reaper"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the reaper StateStore and ArchiveStore interfaces on
// a single SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var (
	_ reaper.StateStore   = (*SQLiteStore)(nil)
	_ reaper.ArchiveStore = (*SQLiteStore)(nil)
)

// OpenSQLite opens (or creates) the state database in dataDir and applies
// pending migrations. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	var path string
	if dataDir == ":memory:" {
		path = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(dataDir, "tabward.db")
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tests that need a raw configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection avoids "database is locked" errors from the write
	// queue and API racing each other.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	return db, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Activity ledger operations

func (s *SQLiteStore) ListActivity() (map[string]time.Time, error) {
	rows, err := s.db.Query("SELECT tab_id, last_activity_ms FROM tab_activity")
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]time.Time)
	for rows.Next() {
		var tabID string
		var ms int64
		if err := rows.Scan(&tabID, &ms); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		entries[tabID] = time.UnixMilli(ms)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) UpsertActivity(tabID string, lastActivity time.Time) error {
	_, err := s.db.Exec(`INSERT INTO tab_activity (tab_id, last_activity_ms) VALUES (?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET last_activity_ms = excluded.last_activity_ms`,
		tabID, lastActivity.UnixMilli())
	if err != nil {
		return fmt.Errorf("upserting activity for %s: %w", tabID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteActivity(tabID string) error {
	if _, err := s.db.Exec("DELETE FROM tab_activity WHERE tab_id = ?", tabID); err != nil {
		return fmt.Errorf("deleting activity for %s: %w", tabID, err)
	}
	return nil
}

// Lock set operations

func (s *SQLiteStore) ListLocks() ([]string, error) {
	rows, err := s.db.Query("SELECT tab_id FROM tab_locks ORDER BY tab_id")
	if err != nil {
		return nil, fmt.Errorf("listing locks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var tabID string
		if err := rows.Scan(&tabID); err != nil {
			return nil, fmt.Errorf("scanning lock row: %w", err)
		}
		ids = append(ids, tabID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lock rows: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) AddLock(tabID string) error {
	_, err := s.db.Exec(`INSERT INTO tab_locks (tab_id, locked_at_ms) VALUES (?, ?)
		ON CONFLICT(tab_id) DO NOTHING`,
		tabID, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("adding lock for %s: %w", tabID, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveLock(tabID string) error {
	if _, err := s.db.Exec("DELETE FROM tab_locks WHERE tab_id = ?", tabID); err != nil {
		return fmt.Errorf("removing lock for %s: %w", tabID, err)
	}
	return nil
}

// Archive operations

func (s *SQLiteStore) Prepend(rec reaper.ArchivedTab) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting archive transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertArchived(tx, rec); err != nil {
		return err
	}
	if err := pruneArchive(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing archive insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(limit int) ([]reaper.ArchivedTab, error) {
	query := `SELECT id, url, title, favicon_url, window_id, window_title, closed_at_ms, closed_date
		FROM archived_tabs ORDER BY seq DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("listing archived tabs: %w", err)
	}
	defer rows.Close()

	var recs []reaper.ArchivedTab
	for rows.Next() {
		rec, err := scanArchived(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating archived tabs: %w", err)
	}
	return recs, nil
}

func (s *SQLiteStore) Get(id string) (*reaper.ArchivedTab, error) {
	row := s.db.QueryRow(`SELECT id, url, title, favicon_url, window_id, window_title, closed_at_ms, closed_date
		FROM archived_tabs WHERE id = ?`, id)
	rec, err := scanArchived(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM archived_tabs WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting archived tab %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM archived_tabs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting archived tabs: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Merge(recs []reaper.ArchivedTab) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting merge transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	// Iterate oldest-first so that newer imported records end up with higher
	// sequence numbers and keep their newest-first ordering.
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		res, err := tx.Exec(`INSERT OR IGNORE INTO archived_tabs
			(id, url, title, favicon_url, window_id, window_title, closed_at_ms, closed_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.URL, rec.Title, rec.FaviconURL, rec.WindowID, rec.WindowTitle,
			rec.ClosedAt.UnixMilli(), rec.Date)
		if err != nil {
			return 0, fmt.Errorf("merging archived tab %s: %w", rec.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("checking merge result: %w", err)
		}
		added += int(n)
	}

	if err := pruneArchive(tx); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing merge: %w", err)
	}
	return added, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArchived(row rowScanner) (reaper.ArchivedTab, error) {
	var rec reaper.ArchivedTab
	var closedAtMs int64
	err := row.Scan(&rec.ID, &rec.URL, &rec.Title, &rec.FaviconURL, &rec.WindowID,
		&rec.WindowTitle, &closedAtMs, &rec.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scanning archived tab: %w", err)
	}
	rec.ClosedAt = time.UnixMilli(closedAtMs)
	return rec, nil
}

func insertArchived(tx *sql.Tx, rec reaper.ArchivedTab) error {
	_, err := tx.Exec(`INSERT INTO archived_tabs
		(id, url, title, favicon_url, window_id, window_title, closed_at_ms, closed_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.Title, rec.FaviconURL, rec.WindowID, rec.WindowTitle,
		rec.ClosedAt.UnixMilli(), rec.Date)
	if err != nil {
		return fmt.Errorf("inserting archived tab %s: %w", rec.ID, err)
	}
	return nil
}

// pruneArchive drops the oldest records beyond the archive cap.
func pruneArchive(tx *sql.Tx) error {
	_, err := tx.Exec(`DELETE FROM archived_tabs WHERE seq NOT IN
		(SELECT seq FROM archived_tabs ORDER BY seq DESC LIMIT ?)`, reaper.ArchiveCap)
	if err != nil {
		return fmt.Errorf("pruning archive: %w", err)
	}
	return nil
}
