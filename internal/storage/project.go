package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shotbuddy/internal/shot"
)

// ProjectInfo is the content of project.json.
type ProjectInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Created string `json:"created"`
}

// loadProjectInfo reads project.json, repairing its path field when the
// project was moved. Unknown fields are preserved. A directory without
// project.json but with a shots/ folder gets a fresh project.json.
func loadProjectInfo(root string) (ProjectInfo, error) {
	file := filepath.Join(root, projectFileName)
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		raw := make(map[string]any)
		if err := json.Unmarshal(data, &raw); err != nil {
			return ProjectInfo{}, shot.Wrap(shot.ErrValidation, "project", "open",
				fmt.Sprintf("%s exists but failed to load", projectFileName), err)
		}
		info := ProjectInfo{Path: root}
		info.Name, _ = raw["name"].(string)
		info.Created, _ = raw["created"].(string)
		if strings.TrimSpace(info.Name) == "" {
			info.Name = filepath.Base(root)
		}
		if stored, _ := raw["path"].(string); stored != root {
			raw["path"] = root
			if err := writeJSON(file, raw); err != nil {
				return ProjectInfo{}, err
			}
		}
		return info, nil
	case !errors.Is(err, os.ErrNotExist):
		return ProjectInfo{}, fmt.Errorf("read %s: %w", projectFileName, err)
	}

	if st, err := os.Stat(filepath.Join(root, shotsDirName)); err != nil || !st.IsDir() {
		return ProjectInfo{}, shot.Wrap(shot.ErrNotFound, "project "+root, "open", "no recognizable project structure", nil)
	}
	info := ProjectInfo{Name: filepath.Base(root), Path: root, Created: time.Now().Format(time.RFC3339)}
	if err := writeProjectInfo(root, info); err != nil {
		return ProjectInfo{}, err
	}
	return info, nil
}

func writeProjectInfo(root string, info ProjectInfo) error {
	return writeJSON(filepath.Join(root, projectFileName), map[string]any{
		"name":    info.Name,
		"path":    info.Path,
		"created": info.Created,
		"shots":   []any{},
	})
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// validProjectName rejects names that would escape the parent directory.
func validProjectName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled Project"
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", shot.Wrap(shot.ErrValidation, "project", "create", fmt.Sprintf("invalid project name %q", name), nil)
	}
	return name, nil
}

func dirIsEmptyOrMissing(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Is(err, os.ErrNotExist)
	}
	return len(entries) == 0
}
