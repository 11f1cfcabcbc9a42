// Package app is the application layer between the CLI and the engine. It
// constructs all dependencies from config and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"tabward/internal/api"
	"tabward/internal/archive"
	"tabward/internal/browser"
	"tabward/internal/config"
	"tabward/internal/database"
	"tabward/internal/encryption"
	"tabward/internal/reaper"
	"tabward/internal/scheduler"
	"tabward/internal/settings"
	"tabward/internal/vault"
)

// App wires the engine to its browser, store, scheduler, settings watcher,
// and control API. The caller must call Close when done.
type App struct {
	cfg        *config.Config
	configPath string
	store      database.Store
	tabs       reaper.TabDirectory
	sched      *scheduler.GocronScheduler
	engine     *reaper.Engine
	server     *http.Server
	log        reaper.Logger
	logFile    *os.File
}

// NewApp creates a fully wired App from the given config. configPath is the
// file the settings watcher observes for live policy updates.
func NewApp(ctx context.Context, cfg *config.Config, configPath string) (*App, error) {
	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}

	tabs, err := browser.NewDirectoryFromConfig(ctx, cfg.Browser, log)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating tab directory: %w", err)
	}

	sched, err := scheduler.New()
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	engine := reaper.NewEngine(tabs, store, store, sched, log,
		reaper.RealClock{}, reaper.UUIDGenerator{}, cfg.Policy)

	handler := api.NewHandler(api.Deps{
		Engine:  engine,
		Archive: store,
		Tabs:    tabs,
		Token:   cfg.API.Token,
		Log:     log,
	})
	server := &http.Server{
		Addr:    cfg.API.Listen,
		Handler: handler,
	}

	return &App{
		cfg:        cfg,
		configPath: configPath,
		store:      store,
		tabs:       tabs,
		sched:      sched,
		engine:     engine,
		server:     server,
		log:        log,
		logFile:    logFile,
	}, nil
}

// Run starts all components and blocks until ctx is cancelled or one of them
// fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.engine.Run(gctx)
	})

	// Feed browser notifications into the engine.
	tabEvents := make(chan reaper.TabEvent, 64)
	g.Go(func() error {
		return a.tabs.Watch(gctx, tabEvents)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-tabEvents:
				a.engine.Dispatch(ev.Event())
			}
		}
	})

	// Reload the policy when the config file changes.
	watcher := settings.NewWatcher(a.configPath, a.log)
	g.Go(func() error {
		return watcher.Run(gctx, func(s reaper.Settings) {
			a.engine.Dispatch(reaper.SettingsChanged{Settings: s})
		})
	})

	g.Go(func() error {
		a.log.Info("control api listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases all resources.
func (a *App) Close() error {
	var firstErr error

	if err := a.sched.Shutdown(); err != nil {
		firstErr = fmt.Errorf("shutting down scheduler: %w", err)
	}

	if closer, ok := a.tabs.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing tab directory: %w", err)
		}
	}

	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// ExportArchive snapshots the closed-tab archive to the configured vault.
// Runs standalone, without the daemon. Returns the snapshot name used and the
// number of records exported.
func ExportArchive(cfg *config.Config, name, passphrase string) (string, int, error) {
	exporter, cleanup, err := newExporter(cfg, passphrase)
	if err != nil {
		return "", 0, err
	}
	defer cleanup()
	return exporter.Export(name)
}

// ImportArchive merges a snapshot from the configured vault into the local
// archive. Returns the number of records added.
func ImportArchive(cfg *config.Config, name, passphrase string) (int, error) {
	exporter, cleanup, err := newExporter(cfg, passphrase)
	if err != nil {
		return 0, err
	}
	defer cleanup()
	return exporter.Import(name)
}

// ListArchive returns the most recent archived tabs, newest first. A limit of
// 0 returns everything.
func ListArchive(cfg *config.Config, limit int) ([]reaper.ArchivedTab, error) {
	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	defer store.Close()
	return store.List(limit)
}

// ListSnapshots returns the snapshot names stored in the configured vault.
func ListSnapshots(cfg *config.Config) ([]string, error) {
	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	return v.ListSnapshots()
}

func newExporter(cfg *config.Config, passphrase string) (*archive.Exporter, func(), error) {
	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("creating store: %w", err)
	}

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("validating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption, passphrase)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("creating encryptor: %w", err)
	}

	exporter := archive.NewExporter(store, v, enc, reaper.RealClock{}, reaper.NewNopLogger())
	return exporter, func() { store.Close() }, nil
}
