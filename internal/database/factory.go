package database

import (
	"fmt"

	"tabward/internal/config"
	"tabward/internal/reaper"
)

// Store is the combined persistence surface the daemon wires: the activity
// ledger and lock set namespace plus the closed-tab archive.
type Store interface {
	reaper.StateStore
	reaper.ArchiveStore
}

// NewStoreFromConfig creates a Store implementation based on the database
// config type.
func NewStoreFromConfig(cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("sqlite database requires data_dir to be set")
		}
		return OpenSQLite(cfg.DataDir)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
