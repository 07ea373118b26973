package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"shotbuddy/internal/api"
	"shotbuddy/internal/config"
	"shotbuddy/internal/logging"
	"shotbuddy/internal/preflight"
	"shotbuddy/internal/storage"
)

// Daemon owns the project store, the HTTP API and the single-instance lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *storage.Store
	board  *api.BoardService

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown chan struct{}
	stopOnce sync.Once
}

// New constructs a daemon around an opened store.
func New(cfg *config.Config, store *storage.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		board:    api.NewBoardService(store),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		shutdown: make(chan struct{}),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, starts the HTTP API and schedules a
// thumbnail refresh.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another shotbuddy daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.refreshThumbnails(d.ctx)
	}()

	d.running.Store(true)
	d.logger.Info("shotbuddy daemon started",
		logging.String("lock", d.lockPath),
		logging.String("project", d.store.Root()),
		logging.String("http", d.api.address()))
	return nil
}

// Stop shuts down the HTTP API and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if the next start reports a running instance"),
			logging.String(logging.FieldImpact, "next daemon start may be refused"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("shotbuddy daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// RequestShutdown asks the hosting process to exit. It is safe to call more
// than once.
func (d *Daemon) RequestShutdown() {
	d.stopOnce.Do(func() {
		d.logger.Info("shutdown requested")
		close(d.shutdown)
	})
}

// ShutdownRequested is closed once RequestShutdown has been called.
func (d *Daemon) ShutdownRequested() <-chan struct{} {
	return d.shutdown
}

// Board returns the API service used by both transports.
func (d *Daemon) Board() *api.BoardService {
	return d.board
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	info := d.store.Info()
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Project:      info.Name,
		ProjectPath:  d.store.Root(),
		DatabasePath: d.store.DatabasePath(),
		LockFilePath: d.lockPath,
		HTTPAddress:  d.api.address(),
		MaxShots:     d.store.MaxShots(),
	}
	if shots, err := d.store.ListShots(ctx); err == nil {
		status.ShotCount = len(shots)
	} else {
		logging.WarnWithContext(d.logger, "status could not count shots", "status_shot_count_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the board database"),
			logging.String(logging.FieldImpact, "status reports zero shots"),
		)
	}
	for _, dep := range preflight.CheckSystemDeps(d.cfg) {
		status.Dependencies = append(status.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return status
}

func (d *Daemon) refreshThumbnails(ctx context.Context) {
	report, err := d.store.RegenerateThumbnails(ctx, d.cfg.Thumbnails.Workers)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logging.WarnWithContext(d.logger, "thumbnail refresh failed", "thumbnail_refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the thumbnail cache directory"),
			logging.String(logging.FieldImpact, "some previews may be stale or missing"),
		)
		return
	}
	d.logger.Info("thumbnails refreshed",
		logging.Int("generated", report.Generated),
		logging.Int("up_to_date", report.UpToDate),
		logging.Int("unavailable", report.Unavailable),
		logging.Int("failed", report.Failed))
}
