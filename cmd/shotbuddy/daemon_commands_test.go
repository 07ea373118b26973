package main

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"shotbuddy/internal/daemonctl"
	"shotbuddy/internal/testsupport"
)

func TestStatusWhileRunning(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.MustInsertShots(t, env.store, 2)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "System Status")
	requireContains(t, out, "[OK] Running")
	requireContains(t, out, "2 of 999")
	requireContains(t, out, "Dependencies")
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, env.store.DatabasePath())

	out, _, err = runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var snap daemonctl.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !snap.Running || snap.ShotCount != 2 || snap.HTTPAddress == "" {
		t.Fatalf("unexpected snapshot %+v", snap.DaemonStatus)
	}
}

func TestStatusAndStopWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.sock")

	out, _, err := runCLI(t, []string{"status"}, missing, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running (run `shotbuddy start`)")

	out, _, err = runCLI(t, []string{"stop"}, missing, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestStartWhenAlreadyRunning(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "Daemon already running")
}

func TestDaemonStopRequestSignalsShutdown(t *testing.T) {
	env := setupCLITestEnv(t)
	client, err := newCommandContext(&env.socketPath, &env.configPath).dialClient()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	if _, err := client.Stop(t.Context()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		select {
		case <-env.daemon.ShutdownRequested():
			return true
		default:
			return false
		}
	})
}
