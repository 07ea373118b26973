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

// UploadAsset stores content as the next version of a slot. The file lands
// at <shot>/<slot dir>/<NNN>_v###.<ext>, image and video uploads refresh the
// shot's latest copy, and a preview is rendered into the thumbnail cache.
func (s *Store) UploadAsset(ctx context.Context, name string, slotType shot.SlotType, filename string, content io.Reader) (shot.Shot, error) {
	ctx = ensureContext(ctx)
	subject := "shot " + name
	if _, err := shot.ParseSlotType(string(slotType)); err != nil {
		return shot.Shot{}, err
	}
	kind, ok := shot.ClassifyFile(filename)
	if !ok {
		return shot.Shot{}, shot.Wrap(shot.ErrValidation, subject, "upload",
			fmt.Sprintf("unsupported file type %q", filepath.Ext(filename)), nil)
	}
	if !shot.Accepts(slotType, kind) {
		return shot.Shot{}, shot.Wrap(shot.ErrValidation, subject, "upload",
			fmt.Sprintf("%s file cannot go into the %s slot", kind, slotType), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.GetShot(ctx, name); err != nil {
		return shot.Shot{}, err
	}
	versions, err := s.assetVersions(ctx, name, slotType)
	if err != nil {
		return shot.Shot{}, err
	}
	next := 1
	if len(versions) > 0 {
		next = versions[len(versions)-1] + 1
	}

	ext := strings.ToLower(filepath.Ext(filename))
	dir := s.slotDir(name, slotType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return shot.Shot{}, fmt.Errorf("create slot dir: %w", err)
	}
	target := filepath.Join(dir, versionFileName(name, slotType, next, ext))
	if err := fileutil.WriteNew(target, content); err != nil {
		return shot.Shot{}, err
	}

	if latest, ok := s.latestPath(name, slotType, ext); ok {
		s.removeLatest(name, slotType)
		if err := fileutil.CopyFile(target, latest); err != nil {
			logging.WarnWithContext(s.logger, "latest copy failed", "latest_copy_failed",
				logging.Shot(name), logging.Slot(string(slotType)), logging.Error(err),
				logging.String(logging.FieldImpact, "latest folder is out of date"),
			)
		}
	}

	thumb := s.makeThumbnail(ctx, target, s.assetThumbName(name, slotType, next))
	if err := s.recordVersion(ctx, name, slotType, next, target, thumb); err != nil {
		_ = os.Remove(target)
		return shot.Shot{}, err
	}

	s.logger.Info("asset stored",
		logging.Shot(name), logging.Slot(string(slotType)), logging.Version(next),
		logging.String("source", filepath.Base(filename)),
	)
	return s.GetShot(ctx, name)
}

// AssetVersions lists every version of a slot, ascending. Files on disk and
// recorded rows are merged so hand-copied files are included.
func (s *Store) AssetVersions(ctx context.Context, name string, slotType shot.SlotType) ([]int, error) {
	ctx = ensureContext(ctx)
	if _, err := shot.ParseSlotType(string(slotType)); err != nil {
		return nil, err
	}
	if _, err := s.GetShot(ctx, name); err != nil {
		return nil, err
	}
	return s.assetVersions(ctx, name, slotType)
}

func (s *Store) assetVersions(ctx context.Context, name string, slotType shot.SlotType) ([]int, error) {
	files, err := s.scanVersions(name, slotType)
	if err != nil {
		return nil, err
	}
	known, err := s.knownVersions(ctx, name, slotType)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		known[f.Version] = true
	}
	out := make([]int, 0, len(known))
	for v := range known {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

// AssetPath returns the absolute path of one version's file.
func (s *Store) AssetPath(ctx context.Context, name string, slotType shot.SlotType, version int) (string, error) {
	ctx = ensureContext(ctx)
	var file string
	err := s.db.QueryRowContext(ctx,
		`SELECT file FROM asset_versions WHERE shot_name = ? AND slot = ? AND version = ?`,
		name, string(slotType), version).Scan(&file)
	if err != nil {
		return "", shot.Wrap(shot.ErrNotFound, "shot "+name, "asset path",
			fmt.Sprintf("%s %s does not exist", slotType, shot.FormatVersion(version)), nil)
	}
	return s.abs(file), nil
}
