// Package daemonctl starts, stops and inspects the shotbuddy daemon from the
// CLI side of the IPC socket.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"shotbuddy/internal/api"
	"shotbuddy/internal/config"
	"shotbuddy/internal/deps"
	"shotbuddy/internal/ipc"
	"shotbuddy/internal/logging"
	"shotbuddy/internal/preflight"
	"shotbuddy/internal/storage"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	PID      int
}

// Launch starts a detached shotbuddy daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless one already answers on the socket.
func EnsureStarted(ctx context.Context, socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, err := ipc.Dial(socketPath)
	launched := false
	if err != nil {
		if launchErr := Launch(executablePath, opts); launchErr != nil {
			return StartResult{}, launchErr
		}
		client, err = WaitForClient(socketPath, waitTimeout)
		if err != nil {
			return StartResult{}, err
		}
		launched = true
	}
	defer client.Close()

	status, err := client.Status(ctx)
	if err != nil {
		return StartResult{}, fmt.Errorf("query daemon status: %w", err)
	}
	if launched {
		return StartResult{State: StartStateStarted, Launched: true, PID: status.PID}, nil
	}
	return StartResult{State: StartStateAlreadyRunning, PID: status.PID}, nil
}

// WaitForShutdown waits for daemon IPC to disappear or report not-running.
func WaitForShutdown(ctx context.Context, socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if isDaemonUnavailable(err) {
				return nil
			}
			lastErr = err
			time.Sleep(200 * time.Millisecond)
			continue
		}
		status, statusErr := client.Status(ctx)
		_ = client.Close()
		if statusErr == nil && !status.Running {
			return nil
		}
		if statusErr != nil {
			lastErr = statusErr
		} else {
			lastErr = fmt.Errorf("daemon still running")
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// ProcessInfo returns whether daemon IPC is reachable and the daemon PID when available.
func ProcessInfo(ctx context.Context, socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, err := client.Status(ctx)
	if err != nil {
		return true, 0, err
	}
	return true, status.PID, nil
}

// ForceKillProcess sends SIGKILL to daemon process and cleans pid/lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	data, err := os.ReadFile(pidPath)
	if err == nil {
		if parsed, parseErr := strconv.Atoi(strings.TrimSpace(string(data))); parseErr == nil && parsed > 0 {
			pid = parsed
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// StopAndTerminate requests daemon stop and force-kills the process if still
// alive after gracePeriod.
func StopAndTerminate(ctx context.Context, socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	pid := 0
	if status, statusErr := client.Status(ctx); statusErr == nil {
		pid = status.PID
	}
	resp, err := client.Stop(ctx)
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid, StopAcknowledged: resp.Stopped}

	_ = WaitForShutdown(ctx, socketPath, gracePeriod)
	alive, livePID, aliveErr := ProcessInfo(ctx, socketPath)
	if aliveErr != nil || !alive {
		return result, nil
	}
	if livePID == 0 {
		livePID = pid
	}
	if cfg == nil {
		return result, fmt.Errorf("daemon still running (pid %d) and no config to locate its pid file", livePID)
	}
	killedPID, err := ForceKillProcess(cfg.PIDPath(), cfg.LockPath(), livePID)
	if err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Snapshot is everything `shotbuddy status` renders.
type Snapshot struct {
	api.DaemonStatus
	SystemChecks      []api.StatusLine      `json:"systemChecks"`
	DependencySummary api.DependencySummary `json:"dependencySummary"`
}

// BuildStatusSnapshot collects daemon status, falling back to reading the
// project directly when the daemon is not running.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &Snapshot{}

	if client, err := ipc.Dial(socketPath); err == nil {
		if resp, statusErr := client.Status(ctx); statusErr == nil {
			snap.DaemonStatus = resp.DaemonStatus
		}
		_ = client.Close()
	}

	if !snap.Running {
		snap.MaxShots = cfg.Board.MaxShots
		snap.ProjectPath = cfg.Paths.ProjectDir
		snap.LockFilePath = cfg.LockPath()
		readOfflineProject(ctx, cfg, snap)
	}
	if len(snap.Dependencies) == 0 {
		snap.Dependencies = ResolveDependencies(cfg)
	}

	snap.SystemChecks = BuildSystemChecks(ctx, cfg, snap.DaemonStatus)
	snap.DependencySummary = BuildDependencySummary(snap.Dependencies)
	return snap, nil
}

func readOfflineProject(ctx context.Context, cfg *config.Config, snap *Snapshot) {
	if _, err := os.Stat(filepath.Join(cfg.Paths.ProjectDir, "project.json")); err != nil {
		return
	}
	store, err := storage.OpenProject(cfg.Paths.ProjectDir, storage.Options{
		MaxShots:     cfg.Board.MaxShots,
		ThumbnailDir: cfg.Paths.ThumbnailCacheDir,
		Logger:       logging.NewNop(),
	})
	if err != nil {
		return
	}
	defer store.Close()

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	snap.Project = store.Info().Name
	snap.ProjectPath = store.Root()
	snap.DatabasePath = store.DatabasePath()
	snap.MaxShots = store.MaxShots()
	if shots, err := store.ListShots(queryCtx); err == nil {
		snap.ShotCount = len(shots)
	}
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

// ResolveDependencies returns current dependency availability for status output.
func ResolveDependencies(cfg *config.Config) []api.DependencyStatus {
	if cfg == nil {
		return nil
	}
	checks := preflight.CheckSystemDeps(cfg)
	statuses := make([]api.DependencyStatus, 0, len(checks))
	for _, check := range checks {
		statuses = append(statuses, api.DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Detail:      check.Detail,
		})
	}
	return statuses
}

// BuildSystemChecks resolves status lines that combine runtime state and config checks.
func BuildSystemChecks(ctx context.Context, cfg *config.Config, status api.DaemonStatus) []api.StatusLine {
	lines := make([]api.StatusLine, 0, 6)
	if status.Running {
		lines = append(lines, api.StatusLine{Label: "Shotbuddy", Severity: "ok", Detail: fmt.Sprintf("Running (pid %d)", status.PID)})
		if status.HTTPAddress != "" {
			lines = append(lines, api.StatusLine{Label: "HTTP API", Severity: "ok", Detail: "http://" + status.HTTPAddress})
		} else {
			lines = append(lines, api.StatusLine{Label: "HTTP API", Severity: "info", Detail: "Disabled"})
		}
	} else {
		lines = append(lines, api.StatusLine{Label: "Shotbuddy", Severity: "warn", Detail: "Not running (run `shotbuddy start`)"})
	}

	switch {
	case status.Project != "":
		lines = append(lines, api.StatusLine{Label: "Project", Severity: "ok", Detail: fmt.Sprintf("%s (%s)", status.Project, status.ProjectPath)})
	default:
		lines = append(lines, api.StatusLine{Label: "Project", Severity: "info", Detail: "Created on first start at " + cfg.Paths.ProjectDir})
	}

	severity := "ok"
	switch {
	case status.MaxShots > 0 && status.ShotCount >= status.MaxShots:
		severity = "warn"
	case status.Project == "":
		severity = "info"
	}
	lines = append(lines, api.StatusLine{Label: "Shots", Severity: severity, Detail: fmt.Sprintf("%d of %d", status.ShotCount, status.MaxShots)})

	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		lines = append(lines, api.StatusLine{Label: result.Name, Severity: "error", Detail: result.Detail})
	}
	return lines
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(items []api.DependencyStatus) api.DependencySummary {
	if len(items) == 0 {
		return api.DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	statuses := make([]deps.Status, 0, len(items))
	for _, dep := range items {
		statuses = append(statuses, deps.Status{Name: dep.Name, Optional: dep.Optional, Available: dep.Available})
	}
	counts := deps.Tally(statuses)

	severity := "ok"
	if counts.MissingRequired > 0 {
		severity = "error"
	} else if counts.MissingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available", counts.Available, counts.Total)
	if counts.Available < counts.Total {
		detail = fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", counts.Available, counts.Total, counts.MissingRequired, counts.MissingOptional)
	}

	return api.DependencySummary{
		Total:           counts.Total,
		Available:       counts.Available,
		MissingRequired: counts.MissingRequired,
		MissingOptional: counts.MissingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}

// DependencySeverity maps availability to a status severity.
func DependencySeverity(dep api.DependencyStatus) string {
	switch {
	case dep.Available:
		return "ok"
	case dep.Optional:
		return "warn"
	default:
		return "error"
	}
}
