// Package fileutil writes project files through a temp file and rename so a
// reader never sees a half-written asset.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrExists is returned by WriteNew when the target is already present.
var ErrExists = errors.New("file already exists")

// WriteNew streams content into target, refusing to overwrite an existing file.
func WriteNew(target string, content io.Reader) error {
	if _, err := os.Lstat(target); err == nil {
		return fmt.Errorf("%s: %w", filepath.Base(target), ErrExists)
	}
	return writeAtomic(target, content, 0o644)
}

// Replace streams content into target, replacing whatever was there.
func Replace(target string, content io.Reader) error {
	return writeAtomic(target, content, 0o644)
}

// CopyFile copies src over dst atomically with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeAtomic(dst, in, 0o644)
}

func writeAtomic(target string, content io.Reader, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(target), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(target), err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(target), err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("install %s: %w", filepath.Base(target), err)
	}
	return nil
}
