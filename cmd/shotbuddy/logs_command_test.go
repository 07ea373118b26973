package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLogsCommandPrintsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := env.cfg.DaemonLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if stdout != "second\nthird\n" {
		t.Fatalf("unexpected output %q", stdout)
	}
}

func TestLogsCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	_ = os.Remove(env.cfg.DaemonLogPath())
	stdout, _, err := runCLI(t, []string{"logs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, stdout, "No log entries available")
}
