package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"shotbuddy/internal/fileutil"
	"shotbuddy/internal/logging"
	"shotbuddy/internal/shot"
)

var referenceExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Reference is an image in the project's ref-images folder.
type Reference struct {
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

func (s *Store) referenceDir() string {
	return filepath.Join(s.root, referenceDir)
}

func (s *Store) reference(filename string) Reference {
	ref := Reference{
		Filename: filename,
		Path:     s.rel(filepath.Join(s.referenceDir(), filename)),
	}
	thumb := s.referenceThumbName(filename)
	if _, err := os.Stat(filepath.Join(s.thumbDir, thumb)); err == nil {
		ref.Thumbnail = thumb
	}
	return ref
}

// References lists reference images sorted by file name.
func (s *Store) References(ctx context.Context) ([]Reference, error) {
	entries, err := os.ReadDir(s.referenceDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read references: %w", err)
	}
	var out []Reference
	for _, entry := range entries {
		if entry.IsDir() || !referenceExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		out = append(out, s.reference(entry.Name()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// SaveReference stores an uploaded reference image, replacing a file of the
// same name.
func (s *Store) SaveReference(ctx context.Context, filename string, content io.Reader) (Reference, error) {
	ctx = ensureContext(ctx)
	filename, err := referenceName(filename)
	if err != nil {
		return Reference{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.referenceDir(), 0o755); err != nil {
		return Reference{}, fmt.Errorf("create reference dir: %w", err)
	}
	target := filepath.Join(s.referenceDir(), filename)
	if err := fileutil.Replace(target, content); err != nil {
		return Reference{}, err
	}
	s.makeThumbnail(ctx, target, s.referenceThumbName(filename))
	s.logger.Info("reference image saved", logging.String("file", filename))
	return s.reference(filename), nil
}

// RenameReference renames a reference image. The original extension is kept
// when newName lacks it, and existing files are never overwritten.
func (s *Store) RenameReference(ctx context.Context, oldName, newName string) (Reference, error) {
	ctx = ensureContext(ctx)
	oldName = filepath.Base(strings.TrimSpace(oldName))
	s.mu.Lock()
	defer s.mu.Unlock()

	oldPath := filepath.Join(s.referenceDir(), oldName)
	if _, err := os.Stat(oldPath); err != nil {
		return Reference{}, shot.Wrap(shot.ErrNotFound, "reference "+oldName, "rename", "reference image not found", nil)
	}
	ext := strings.ToLower(filepath.Ext(oldName))
	if !referenceExtensions[ext] {
		return Reference{}, shot.Wrap(shot.ErrValidation, "reference "+oldName, "rename", "invalid file extension; allowed: .jpg, .jpeg, .png", nil)
	}
	newName = filepath.Base(strings.TrimSpace(newName))
	if strings.ToLower(filepath.Ext(newName)) != ext {
		newName = strings.TrimSuffix(newName, filepath.Ext(newName)) + ext
	}
	if newName == ext || newName == "." {
		return Reference{}, shot.Wrap(shot.ErrValidation, "reference "+oldName, "rename", "new name is empty", nil)
	}
	if newName == oldName {
		return s.reference(oldName), nil
	}
	newPath := filepath.Join(s.referenceDir(), newName)
	if _, err := os.Stat(newPath); err == nil {
		return Reference{}, shot.Wrap(shot.ErrValidation, "reference "+oldName, "rename",
			fmt.Sprintf("a file named %q already exists", newName), nil)
	}

	_ = os.Remove(filepath.Join(s.thumbDir, s.referenceThumbName(oldName)))
	if err := os.Rename(oldPath, newPath); err != nil {
		return Reference{}, fmt.Errorf("rename reference: %w", err)
	}
	s.makeThumbnail(ctx, newPath, s.referenceThumbName(newName))
	s.logger.Info("reference image renamed", logging.String("file", newName), logging.String("previous", oldName))
	return s.reference(newName), nil
}

// DeleteReference removes a reference image and its thumbnail.
func (s *Store) DeleteReference(ctx context.Context, filename string) error {
	filename = filepath.Base(strings.TrimSpace(filename))
	s.mu.Lock()
	defer s.mu.Unlock()

	target := filepath.Join(s.referenceDir(), filename)
	if _, err := os.Stat(target); err != nil {
		return shot.Wrap(shot.ErrNotFound, "reference "+filename, "delete", "reference image not found", nil)
	}
	_ = os.Remove(filepath.Join(s.thumbDir, s.referenceThumbName(filename)))
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("delete reference: %w", err)
	}
	s.logger.Info("reference image deleted", logging.String("file", filename))
	return nil
}

// ReferencePath resolves a reference image for serving.
func (s *Store) ReferencePath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return "", shot.Wrap(shot.ErrNotFound, "reference "+filename, "resolve", "reference image not found", nil)
	}
	target := filepath.Join(s.referenceDir(), filename)
	if _, err := os.Stat(target); err != nil {
		return "", shot.Wrap(shot.ErrNotFound, "reference "+filename, "resolve", "reference image not found", nil)
	}
	return target, nil
}

func referenceName(filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") {
		return "", shot.Wrap(shot.ErrValidation, "reference", "save", fmt.Sprintf("invalid file name %q", filename), nil)
	}
	if !referenceExtensions[strings.ToLower(filepath.Ext(name))] {
		return "", shot.Wrap(shot.ErrValidation, "reference "+name, "save", "invalid file type; allowed: .jpg, .jpeg, .png", nil)
	}
	return name, nil
}
