package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"shotbuddy/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBindAddress(t *testing.T) {
	tests := map[string]bool{
		"127.0.0.1:5001":  true,
		"localhost:0":     true,
		":8080":           true,
		"127.0.0.1":       false,
		"host.lan:80":     false,
		"127.0.0.1:http":  false,
		"127.0.0.1:70000": false,
	}
	for addr, want := range tests {
		if got := CheckBindAddress(addr); got.Passed != want {
			t.Fatalf("CheckBindAddress(%q) passed=%v want %v (%s)", addr, got.Passed, want, got.Detail)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MissingProjectChecksParent(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = base
	cfg.Paths.LogDir = base
	cfg.Paths.ThumbnailCacheDir = base
	cfg.Paths.ProjectDir = filepath.Join(base, "not-yet")
	cfg.Paths.APIBind = "127.0.0.1:0"

	results := RunAll(context.Background(), &cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if results[3].Name != "Project parent directory" {
		t.Fatalf("expected parent check, got %q", results[3].Name)
	}
}

func TestRunAll_ReportsMissingStateDir(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "missing")
	cfg.Paths.LogDir = base
	cfg.Paths.ThumbnailCacheDir = base
	cfg.Paths.ProjectDir = base
	cfg.Paths.APIBind = ""

	failed := Failed(RunAll(context.Background(), &cfg))
	if len(failed) != 1 || failed[0].Name != "State directory" {
		t.Fatalf("expected only the state directory to fail, got %+v", failed)
	}
}

func TestCheckSystemDepsReportsOptionalFFmpeg(t *testing.T) {
	cfg := config.Default()
	cfg.Thumbnails.FFmpegBinary = filepath.Join(t.TempDir(), "ffmpeg")
	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 1 || statuses[0].Available || !statuses[0].Optional {
		t.Fatalf("unexpected dependency report %+v", statuses)
	}
}
