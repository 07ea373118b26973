package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCopyFileReplacesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "001_v002.png")
	dst := filepath.Join(dir, "001.png")

	if err := os.WriteFile(src, []byte("new frame"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old frame, longer content"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new frame" {
		t.Fatalf("content mismatch: got %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("expected mode 0644, got %o", info.Mode().Perm())
	}
	assertNoTempFiles(t, dir)
}

func TestWriteNewRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "001_v001.mp4")

	if err := WriteNew(target, strings.NewReader("take one")); err != nil {
		t.Fatalf("WriteNew: %v", err)
	}
	err := WriteNew(target, strings.NewReader("take two"))
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	got, _ := os.ReadFile(target)
	if string(got) != "take one" {
		t.Fatalf("existing file was modified: %q", got)
	}

	if err := Replace(target, strings.NewReader("take three")); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, _ = os.ReadFile(target)
	if string(got) != "take three" {
		t.Fatalf("Replace did not overwrite: %q", got)
	}
	assertNoTempFiles(t, dir)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteFailureLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "ref.png")
	if err := WriteNew(target, failingReader{}); err == nil {
		t.Fatal("expected write error")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("target must not exist after failure: %v", err)
	}
	assertNoTempFiles(t, dir)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".partial-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) > 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}
