package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"callbox/internal/config"
	"callbox/internal/deps"
	"callbox/internal/logging"
	"callbox/internal/pipeline"
	"callbox/internal/records"
	"callbox/internal/tags"
)

// Daemon serves the call API and enforces single-instance execution.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *records.Store
	orchestrator *pipeline.Orchestrator
	tagManager   *tags.Manager

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StorePath    string
	LockFilePath string
	Counts       map[records.Status]int
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *records.Store, orchestrator *pipeline.Orchestrator, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || orchestrator == nil {
		return nil, errors.New("daemon requires config, store, and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "callboxd.lock")
	d := &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		store:        store,
		orchestrator: orchestrator,
		tagManager:   tags.NewManager(store, logger),
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another callbox daemon instance is already running")
	}

	// A crash mid-pipeline leaves records in a processing status; no run can
	// resume them, so surface them as failed before accepting uploads.
	recovered, err := d.store.FailInterrupted(ctx, "interrupted by daemon restart")
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recover interrupted records: %w", err)
	}
	if recovered > 0 {
		d.logger.Warn("failed interrupted records from previous run",
			logging.String(logging.FieldAlert, "interrupted_records"),
			logging.Int("count", recovered))
	}

	ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("callbox daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("callbox daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	counts, err := d.store.CountByStatus(ctx)
	if err != nil {
		d.logger.Warn("status counts unavailable", logging.Error(err))
		counts = nil
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StorePath:    d.store.Path(),
		LockFilePath: d.lockPath,
		Counts:       counts,
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg)),
	}
}

// Addr reports the address the API server is bound to, empty until Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}
