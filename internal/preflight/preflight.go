package preflight

import (
	"context"
	"os"
	"path/filepath"

	"shotbuddy/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Thumbnail cache", cfg.Paths.ThumbnailCacheDir),
	}

	// A missing project directory is created on first open, so only its
	// parent has to be writable.
	if _, err := os.Stat(cfg.Paths.ProjectDir); err != nil && os.IsNotExist(err) {
		results = append(results, CheckDirectoryAccess("Project parent directory", filepath.Dir(cfg.Paths.ProjectDir)))
	} else {
		results = append(results, CheckDirectoryAccess("Project directory", cfg.Paths.ProjectDir))
	}

	if cfg.Paths.APIBind != "" {
		results = append(results, CheckBindAddress(cfg.Paths.APIBind))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
