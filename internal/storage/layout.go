package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"shotbuddy/internal/shot"
)

const (
	projectFileName = "project.json"
	shotsDirName    = "shots"
	wipDirName      = "wip"
	latestImagesDir = "latest_images"
	latestVideosDir = "latest_videos"
	referenceDir    = "ref-images"
	metaDirName     = ".shotbuddy"
	databaseName    = "board.db"
)

// slotTypes lists every slot in the order rows are reported.
var slotTypes = []shot.SlotType{shot.SlotImage, shot.SlotVideo, shot.SlotDriver, shot.SlotTarget, shot.SlotResult}

func projectLayout(root string) []string {
	return []string{
		filepath.Join(root, shotsDirName, wipDirName),
		filepath.Join(root, shotsDirName, latestImagesDir),
		filepath.Join(root, shotsDirName, latestVideosDir),
		filepath.Join(root, referenceDir),
		filepath.Join(root, metaDirName),
	}
}

func ensureLayout(root string) error {
	for _, dir := range projectLayout(root) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (s *Store) wipDir() string {
	return filepath.Join(s.root, shotsDirName, wipDirName)
}

func (s *Store) shotDir(name string) string {
	return filepath.Join(s.wipDir(), name)
}

func slotSubdir(slot shot.SlotType) string {
	switch slot {
	case shot.SlotImage:
		return "images"
	case shot.SlotVideo:
		return "videos"
	}
	return filepath.Join("lipsync", string(slot))
}

func (s *Store) slotDir(name string, slot shot.SlotType) string {
	return filepath.Join(s.shotDir(name), slotSubdir(slot))
}

// versionFileName renders the canonical file name of one slot version:
// 001_v003.png for image and video slots, 001_driver_v003.mp4 for lipsync parts.
func versionFileName(name string, slot shot.SlotType, version int, ext string) string {
	ext = strings.ToLower(ext)
	if slot.IsLipsync() {
		return fmt.Sprintf("%s_%s_v%03d%s", name, slot, version, ext)
	}
	return fmt.Sprintf("%s_v%03d%s", name, version, ext)
}

// versionPattern matches version files of one slot, allowing a free-form
// suffix after the version number (001_v001_extra.png) and any extension
// case.
func versionPattern(name string, slot shot.SlotType) *regexp.Regexp {
	part := ""
	if slot.IsLipsync() {
		part = "_" + regexp.QuoteMeta(string(slot))
	}
	return regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(name) + part + `_v(\d{3,})(?:_[^.]*)?\.[a-z0-9]+$`)
}

// versionFile is a version found on disk.
type versionFile struct {
	Version int
	Path    string
}

// scanVersions lists the version files present in a slot directory, one per
// version (the first name in lexical order wins), sorted ascending.
func (s *Store) scanVersions(name string, slot shot.SlotType) ([]versionFile, error) {
	entries, err := os.ReadDir(s.slotDir(name, slot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read slot dir: %w", err)
	}
	pattern := versionPattern(name, slot)
	seen := make(map[int]bool)
	var out []versionFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil || v < 1 || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, versionFile{Version: v, Path: filepath.Join(s.slotDir(name, slot), entry.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// latestPath returns where the "latest" copy of an image or video slot lives.
// Lipsync parts have no latest copy.
func (s *Store) latestPath(name string, slot shot.SlotType, ext string) (string, bool) {
	var dir string
	switch slot {
	case shot.SlotImage:
		dir = latestImagesDir
	case shot.SlotVideo:
		dir = latestVideosDir
	default:
		return "", false
	}
	return filepath.Join(s.root, shotsDirName, dir, name+strings.ToLower(ext)), true
}

// removeLatest deletes every latest copy of a shot/slot regardless of
// extension so an upload of a new format does not leave a stale sibling.
func (s *Store) removeLatest(name string, slot shot.SlotType) {
	target, ok := s.latestPath(name, slot, "")
	if !ok {
		return
	}
	matches, _ := filepath.Glob(target + ".*")
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

// rel renders an absolute project path as a slash separated project
// relative path.
func (s *Store) rel(abs string) string {
	r, err := filepath.Rel(s.root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(r)
}

func (s *Store) abs(relPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/" + relPath)))
}
