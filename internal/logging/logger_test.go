package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shotbuddy/internal/config"
	"shotbuddy/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("board loaded", logging.Int("shots", 3))

	content := readLog(t, cfg.DaemonLogPath())
	if !strings.Contains(content, "board loaded") {
		t.Fatalf("expected message in log file, got %q", content)
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("log file must not contain colour codes: %q", content)
	}
}

func TestConsoleLoggerRendersShotSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "storage")
	logger.Info("asset uploaded", logging.Shot("004"), logging.Slot("image"), logging.Version(3), logging.String("file", "004_v003.png"))

	content := readLog(t, logPath)
	for _, fragment := range []string{"INFO [storage] Shot 004 (image v3)", "asset uploaded", "file: 004_v003.png"} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("fetching prompt")
	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestColorOnlyWhenRequested(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.log")
	colored := filepath.Join(dir, "colored.log")
	for path, color := range map[string]bool{plain: false, colored: true} {
		logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{path}, Color: color})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		logger.Warn("capacity reached")
	}
	if strings.Contains(readLog(t, plain), "\x1b[") {
		t.Fatal("plain output contains ANSI codes")
	}
	if !strings.Contains(readLog(t, colored), "\x1b[33mWARN") {
		t.Fatalf("expected yellow WARN label, got %q", readLog(t, colored))
	}
}

func TestJSONLoggerCarriesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithCorrelationID(context.Background(), "req-1")
	ctx = logging.WithSessionID(ctx, "sess-9")
	logging.WithContext(ctx, logger).Info("prompt saved", logging.Shot("002"))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["correlation_id"] != "req-1" || entry["session_id"] != "sess-9" || entry["shot"] != "002" {
		t.Fatalf("unexpected json entry: %v", entry)
	}
	if entry["level"] != "info" {
		t.Fatalf("expected lower-case level, got %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestPruneLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "shotbuddy-old.log")
	live := filepath.Join(dir, "shotbuddy.log")
	fresh := filepath.Join(dir, "shotbuddy-new.log")
	for _, path := range []string{old, live, fresh} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, live} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.PruneLogs(logging.NewNop(), dir, "*.log", 5, live)
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{live, fresh} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to survive: %v", path, err)
		}
	}
	if logging.PruneLogs(nil, dir, "", 0) != 0 {
		t.Fatal("retention 0 must disable pruning")
	}
}

func TestNewForCLIWarnsOnly(t *testing.T) {
	cfg := config.Default()
	var buf strings.Builder
	logger, err := logging.NewForCLI(&cfg, &buf, false)
	if err != nil {
		t.Fatalf("NewForCLI: %v", err)
	}
	logger.Info("asset uploaded", logging.Shot("001"))
	logging.WarnWithContext(logger, "prompt auto-save failed", "prompt_autosave_failed", logging.Shot("001"))
	out := buf.String()
	if strings.Contains(out, "asset uploaded") {
		t.Fatalf("info record leaked into CLI output: %q", out)
	}
	if !strings.Contains(out, "prompt auto-save failed") {
		t.Fatalf("expected warning in output, got %q", out)
	}

	cfg.Logging.Level = "debug"
	buf.Reset()
	logger, err = logging.NewForCLI(&cfg, &buf, false)
	if err != nil {
		t.Fatalf("NewForCLI debug: %v", err)
	}
	logger.Debug("prompt auto-saved")
	if !strings.Contains(buf.String(), "prompt auto-saved") {
		t.Fatalf("expected debug record, got %q", buf.String())
	}
}
