// Package daemon coordinates the recording pipeline, the HTTP API, and
// single-instance locking.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"aircheck/internal/config"
	"aircheck/internal/logging"
	"aircheck/internal/orchestrator"
	"aircheck/internal/registry"
)

// Daemon owns the orchestrator and API server lifecycles and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *registry.Store
	orc    *orchestrator.Orchestrator
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Pipeline     orchestrator.StatusSummary
	RegistryPath string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *registry.Store, orc *orchestrator.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orc == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, orchestrator, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "aircheckd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		orc:      orc,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, starts the pipeline, and begins serving the
// HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another aircheck daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.orc.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start pipeline: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.orc.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("aircheck daemon started",
		logging.String("lock", d.lockPath),
		logging.String("registry", d.store.Path()))
	return nil
}

// Stop shuts down the API, stops the pipeline, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.orc.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("aircheck daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr returns the API listen address, useful when binding to port 0.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status collects runtime information for the status endpoint.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Pipeline:     d.orc.Status(ctx),
		RegistryPath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
