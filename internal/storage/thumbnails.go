package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"shotbuddy/internal/logging"
	"shotbuddy/internal/shot"
	"shotbuddy/internal/thumbnail"
)

// thumbnailPrefix turns a project directory name into a cache-safe prefix so
// several projects can share one thumbnail cache.
func thumbnailPrefix(project string) string {
	var b strings.Builder
	for _, r := range project {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "project"
	}
	return b.String()
}

func (s *Store) assetThumbName(name string, slot shot.SlotType, version int) string {
	return fmt.Sprintf("%s_%s_%s_v%03d_thumb.jpg", s.thumbPrefix, name, slot, version)
}

func (s *Store) referenceThumbName(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	return fmt.Sprintf("%s_ref_%s_thumb.jpg", s.thumbPrefix, stem)
}

// makeThumbnail renders src into the cache and returns the thumbnail file
// name, or "" when no preview could be produced.
func (s *Store) makeThumbnail(ctx context.Context, src, thumbName string) string {
	if s.thumbs == nil || !thumbnail.Supported(src) {
		return ""
	}
	err := s.thumbs.Generate(ctx, src, filepath.Join(s.thumbDir, thumbName))
	switch {
	case err == nil:
		return thumbName
	case errors.Is(err, thumbnail.ErrUnavailable):
		s.logger.Debug("preview skipped", logging.String("source", filepath.Base(src)), logging.Error(err))
	default:
		logging.WarnWithContext(s.logger, "thumbnail generation failed", "thumbnail_failed",
			logging.String("source", filepath.Base(src)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the file is a readable image or video"),
			logging.String(logging.FieldImpact, "slot shown without preview"),
		)
	}
	return ""
}

// ThumbnailPath resolves a cached thumbnail belonging to this project.
func (s *Store) ThumbnailPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !strings.HasPrefix(name, s.thumbPrefix+"_") {
		return "", shot.Wrap(shot.ErrNotFound, "thumbnail "+name, "resolve", "not a thumbnail of this project", nil)
	}
	path := filepath.Join(s.thumbDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", shot.Wrap(shot.ErrNotFound, "thumbnail "+name, "resolve", "", err)
	}
	return path, nil
}

// ThumbnailJobs lists the preview of the current version of every slot and
// of every reference image.
func (s *Store) ThumbnailJobs(ctx context.Context) ([]thumbnail.Job, error) {
	shots, err := s.ListShots(ctx)
	if err != nil {
		return nil, err
	}
	var jobs []thumbnail.Job
	for _, sh := range shots {
		for _, slotType := range slotTypes {
			slot, ok := sh.Slot(slotType)
			if !ok || !slot.HasFile() {
				continue
			}
			jobs = append(jobs, thumbnail.Job{
				Source: s.abs(slot.File),
				Target: filepath.Join(s.thumbDir, s.assetThumbName(sh.Name, slotType, slot.Version)),
			})
		}
	}
	refs, err := s.References(ctx)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		jobs = append(jobs, thumbnail.Job{
			Source: s.abs(ref.Path),
			Target: filepath.Join(s.thumbDir, s.referenceThumbName(ref.Filename)),
		})
	}
	return jobs, nil
}

// RegenerateThumbnails rebuilds missing or outdated previews and records the
// thumbnail names of the current versions.
func (s *Store) RegenerateThumbnails(ctx context.Context, workers int) (thumbnail.Report, error) {
	if s.thumbs == nil {
		return thumbnail.Report{}, nil
	}
	jobs, err := s.ThumbnailJobs(ctx)
	if err != nil {
		return thumbnail.Report{}, err
	}
	report, err := thumbnail.Regenerate(ctx, s.thumbs, jobs, workers, s.logger)
	if err != nil {
		return report, err
	}
	if err := s.recordThumbnails(ctx); err != nil {
		return report, err
	}
	s.logger.Info("thumbnails regenerated",
		logging.Int("generated", report.Generated),
		logging.Int("up_to_date", report.UpToDate),
		logging.Int("unavailable", report.Unavailable),
		logging.Int("failed", report.Failed),
	)
	return report, nil
}

// recordThumbnails fills the thumbnail column for version rows whose
// preview now exists in the cache.
func (s *Store) recordThumbnails(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT shot_name, slot, version FROM asset_versions WHERE thumbnail IS NULL OR thumbnail = ''`)
	if err != nil {
		return fmt.Errorf("list missing thumbnails: %w", err)
	}
	type key struct {
		name    string
		slot    string
		version int
	}
	var pending []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.name, &k.slot, &k.version); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan version row: %w", err)
		}
		pending = append(pending, k)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterate version rows: %w", err)
	}
	_ = rows.Close()
	for _, k := range pending {
		name := s.assetThumbName(k.name, shot.SlotType(k.slot), k.version)
		if _, err := os.Stat(filepath.Join(s.thumbDir, name)); err != nil {
			continue
		}
		if _, err := s.execWithRetry(ctx,
			`UPDATE asset_versions SET thumbnail = ? WHERE shot_name = ? AND slot = ? AND version = ?`,
			name, k.name, k.slot, k.version); err != nil {
			return fmt.Errorf("record thumbnail: %w", err)
		}
	}
	return nil
}
