// Package daemonrun hosts the daemon process: logging, pid file, project
// store, IPC socket and the HTTP API, until a signal or a stop request ends it.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"shotbuddy/internal/config"
	"shotbuddy/internal/daemon"
	"shotbuddy/internal/ipc"
	"shotbuddy/internal/logging"
	"shotbuddy/internal/preflight"
	"shotbuddy/internal/storage"
	"shotbuddy/internal/thumbnail"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// SocketPath overrides the configured IPC socket.
	SocketPath string
}

// Run starts the shotbuddy daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("shotbuddy-%s.log", runID))
	logger, err := newLogger(cfg, opts, logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	sessionID := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldSessionID, sessionID))

	if err := ensureCurrentLogPointer(cfg.DaemonLogPath(), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update shotbuddy.log link: %v\n", err)
	}
	logging.PruneLogs(logger, cfg.Paths.LogDir, "shotbuddy-*.log", cfg.Logging.RetentionDays, logPath)
	logPreflight(logger, cfg)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := storage.Open(cfg, thumbnail.New(cfg.Thumbnails, logger), logger)
	if err != nil {
		logger.Error("open project store", logging.Error(err))
		return err
	}
	defer store.Close()

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	select {
	case <-signalCtx.Done():
	case <-d.ShutdownRequested():
	}
	logger.Info("shotbuddy daemon shutting down")
	return nil
}

func newLogger(cfg *config.Config, opts Options, logPath string) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	console, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		Color:       logging.StdoutIsTerminal(),
		Development: opts.Development,
	})
	if err != nil {
		return nil, err
	}
	file, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{logPath},
		Development: opts.Development,
	})
	if err != nil {
		return nil, err
	}
	return slog.New(logging.TeeHandler(console.Handler(), file.Handler())), nil
}

func logPreflight(logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(context.Background(), cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the path or permissions in the config file"),
			logging.String(logging.FieldImpact, "the daemon may fail to start or to store uploads"),
		)
	}
	for _, dep := range preflight.CheckSystemDeps(cfg) {
		logger.Info("dependency snapshot",
			logging.String(logging.FieldEventType, "dependency_snapshot"),
			logging.String("dependency", dep.Name),
			logging.Bool("available", dep.Available),
			logging.String("command", dep.Command),
		)
	}
}

func ensureCurrentLogPointer(current, target string) error {
	if current == "" || target == "" {
		return nil
	}
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
