package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shotbuddy.toml")
	content := "[paths]\nproject_dir = \"" + filepath.Join(dir, "films") + "\"\n[board]\nmax_shots = 12\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SHOTBUDDY_PROJECT", "")

	cfg, err := loadConfig(func(key string) string {
		if key == configEnv {
			return path
		}
		return ""
	})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Board.MaxShots != 12 {
		t.Fatalf("expected max_shots 12, got %d", cfg.Board.MaxShots)
	}
	if cfg.Paths.ProjectDir != filepath.Join(dir, "films") {
		t.Fatalf("unexpected project dir %q", cfg.Paths.ProjectDir)
	}
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[board\nmax_shots = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadConfig(func(string) string { return path }); err == nil {
		t.Fatal("expected parse error")
	}
}
