package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"shotbuddy/internal/config"
	"shotbuddy/internal/logging"
	"shotbuddy/internal/shot"
	"shotbuddy/internal/thumbnail"
)

// Options tune a project store.
type Options struct {
	// MaxShots caps the board; zero or values above shot.MaxShots mean shot.MaxShots.
	MaxShots int
	// Thumbnails renders previews; nil disables them.
	Thumbnails thumbnail.Maker
	// ThumbnailDir is the shared preview cache.
	ThumbnailDir string
	// ThumbnailClickBehavior is the settings default until a user stores one.
	ThumbnailClickBehavior string
	Logger                 *slog.Logger
}

// Store manages one project directory and its board database.
type Store struct {
	db     *sql.DB
	dbPath string
	root   string
	info   ProjectInfo

	thumbs       thumbnail.Maker
	thumbDir     string
	thumbPrefix  string
	maxShots     int
	defaultClick string
	logger       *slog.Logger

	// mu serialises operations that change files and rows together.
	mu sync.Mutex
}

// Open opens the configured project, creating it when the directory is
// missing or empty.
func Open(cfg *config.Config, thumbs thumbnail.Maker, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	opts := Options{
		MaxShots:               cfg.Board.MaxShots,
		Thumbnails:             thumbs,
		ThumbnailDir:           cfg.Paths.ThumbnailCacheDir,
		ThumbnailClickBehavior: cfg.Board.ThumbnailClickBehavior,
		Logger:                 logger,
	}
	dir := cfg.Paths.ProjectDir
	if dirIsEmptyOrMissing(dir) {
		return CreateProject(filepath.Dir(dir), filepath.Base(dir), opts)
	}
	return OpenProject(dir, opts)
}

// OpenProject opens an existing project directory. A directory with a
// shots/ folder but no project.json is adopted; anything else fails with
// shot.ErrNotFound.
func OpenProject(dir string, opts Options) (*Store, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	info, err := loadProjectInfo(root)
	if err != nil {
		return nil, err
	}
	return open(root, info, opts)
}

// CreateProject creates parent/name with the project layout and a fresh
// project.json. An existing project at that location is opened instead.
func CreateProject(parent, name string, opts Options) (*Store, error) {
	name, err := validProjectName(name)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(filepath.Join(parent, name))
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	if _, err := os.Stat(filepath.Join(root, projectFileName)); err == nil {
		return OpenProject(root, opts)
	}
	if err := ensureLayout(root); err != nil {
		return nil, err
	}
	info := ProjectInfo{Name: name, Path: root, Created: time.Now().Format(time.RFC3339)}
	if err := writeProjectInfo(root, info); err != nil {
		return nil, err
	}
	return open(root, info, opts)
}

func open(root string, info ProjectInfo, opts Options) (*Store, error) {
	if err := ensureLayout(root); err != nil {
		return nil, err
	}
	maxShots := opts.MaxShots
	if maxShots <= 0 || maxShots > shot.MaxShots {
		maxShots = shot.MaxShots
	}
	click := strings.TrimSpace(opts.ThumbnailClickBehavior)
	if !config.ValidClickBehavior(click) {
		click = "open"
	}
	thumbDir := opts.ThumbnailDir
	if thumbDir == "" {
		thumbDir = filepath.Join(root, metaDirName, "thumbnails")
	}

	dbPath := filepath.Join(root, metaDirName, databaseName)
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	store := &Store{
		db:           db,
		dbPath:       dbPath,
		root:         root,
		info:         info,
		thumbs:       opts.Thumbnails,
		thumbDir:     thumbDir,
		thumbPrefix:  thumbnailPrefix(filepath.Base(root)),
		maxShots:     maxShots,
		defaultClick: click,
		logger:       logging.NewComponentLogger(opts.Logger, "storage"),
	}
	ctx := context.Background()
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.importFromDisk(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	store.logger.Info("project opened",
		logging.String("project", info.Name),
		logging.String("path", root),
	)
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Info returns the project.json content.
func (s *Store) Info() ProjectInfo {
	return s.info
}

// Root returns the absolute project directory.
func (s *Store) Root() string {
	return s.root
}

// DatabasePath returns the board database location.
func (s *Store) DatabasePath() string {
	return s.dbPath
}

// MaxShots returns the effective board ceiling.
func (s *Store) MaxShots() int {
	return s.maxShots
}

// Path resolves a project relative path reported in a slot or reference.
func (s *Store) Path(relPath string) string {
	return s.abs(relPath)
}
