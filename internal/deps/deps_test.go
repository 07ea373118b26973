package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestTally(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: true},
		{Name: "b", Optional: true},
		{Name: "c"},
		{Name: "d", Optional: true},
	}
	got := Tally(statuses)
	want := Counts{Total: 4, Available: 1, MissingRequired: 1, MissingOptional: 2}
	if got != want {
		t.Fatalf("Tally = %+v, want %+v", got, want)
	}
	if (Tally(nil) != Counts{}) {
		t.Fatal("expected zero counts for no statuses")
	}
}

func TestCheckFFmpegNotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	status := CheckFFmpeg(path)
	if status.Available {
		t.Fatal("expected non-executable file to be unavailable")
	}
	if status.Command != path || status.Detail != fmt.Sprintf("binary %q not executable", path) {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestCheckFFmpegConfiguredPath(t *testing.T) {
	tmp := t.TempDir()
	ffmpegPath := filepath.Join(tmp, "ffmpeg")
	if err := os.WriteFile(ffmpegPath, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	status := CheckFFmpeg(ffmpegPath)
	if !status.Available || status.Command != ffmpegPath {
		t.Fatalf("expected configured ffmpeg to be available, got %#v", status)
	}
	if !status.Optional {
		t.Fatal("ffmpeg must be reported as optional")
	}
}

func TestCheckFFmpegPathLookup(t *testing.T) {
	binDir := t.TempDir()
	ffmpegPath := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpegPath, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	status := CheckFFmpeg("")
	if !status.Available {
		t.Fatalf("expected ffmpeg on PATH, got detail %q", status.Detail)
	}
	if status.Command != ffmpegPath {
		t.Fatalf("expected ffmpeg command %q, got %q", ffmpegPath, status.Command)
	}
}

func TestCheckFFmpegNotFound(t *testing.T) {
	t.Setenv("PATH", "")
	tests := []string{"ffmpeg", filepath.Join(t.TempDir(), "missing", "ffmpeg")}
	for _, configured := range tests {
		status := CheckFFmpeg(configured)
		if status.Available {
			t.Fatalf("expected %q to be unavailable", configured)
		}
		if status.Detail == "" {
			t.Fatalf("expected detail message for %q", configured)
		}
	}
}
