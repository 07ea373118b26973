package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"shotbuddy/internal/logging"
	"shotbuddy/internal/shot"
)

// ListShots returns the board in display order with the current version of
// every slot.
func (s *Store) ListShots(ctx context.Context) ([]shot.Shot, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT name, notes FROM shots ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("list shots: %w", err)
	}
	var shots []shot.Shot
	for rows.Next() {
		var sh shot.Shot
		if err := rows.Scan(&sh.Name, &sh.Notes); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan shot: %w", err)
		}
		shots = append(shots, sh)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate shots: %w", err)
	}
	_ = rows.Close()

	slots, err := s.currentSlots(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range shots {
		shots[i] = applySlots(shots[i], slots[shots[i].Name])
	}
	return shots, nil
}

// GetShot returns one shot with its current slots.
func (s *Store) GetShot(ctx context.Context, name string) (shot.Shot, error) {
	ctx = ensureContext(ctx)
	sh := shot.Shot{Name: name}
	err := s.db.QueryRowContext(ctx, `SELECT notes FROM shots WHERE name = ?`, name).Scan(&sh.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return shot.Shot{}, shot.Wrap(shot.ErrNotFound, "shot "+name, "get", "shot does not exist", nil)
	}
	if err != nil {
		return shot.Shot{}, fmt.Errorf("get shot %s: %w", name, err)
	}
	slots, err := s.currentSlots(ctx, name)
	if err != nil {
		return shot.Shot{}, err
	}
	return applySlots(sh, slots[name]), nil
}

func applySlots(sh shot.Shot, slots map[shot.SlotType]shot.Slot) shot.Shot {
	for _, slotType := range slotTypes {
		if slot, ok := slots[slotType]; ok {
			sh = sh.WithSlot(slotType, slot)
		}
	}
	return sh
}

// currentSlots loads the newest version row of every slot, with that
// version's prompt. An empty name loads every shot.
func (s *Store) currentSlots(ctx context.Context, name string) (map[string]map[shot.SlotType]shot.Slot, error) {
	query := `SELECT a.shot_name, a.slot, a.version, a.file, COALESCE(a.thumbnail, ''), COALESCE(p.prompt, '')
        FROM asset_versions a
        JOIN (SELECT shot_name, slot, MAX(version) AS version FROM asset_versions GROUP BY shot_name, slot) m
          ON m.shot_name = a.shot_name AND m.slot = a.slot AND m.version = a.version
        LEFT JOIN prompts p
          ON p.shot_name = a.shot_name AND p.slot = a.slot AND p.version = a.version`
	var args []any
	if name != "" {
		query += ` WHERE a.shot_name = ?`
		args = append(args, name)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[shot.SlotType]shot.Slot)
	for rows.Next() {
		var (
			shotName, slotType string
			slot               shot.Slot
		)
		if err := rows.Scan(&shotName, &slotType, &slot.Version, &slot.File, &slot.Thumbnail, &slot.Prompt); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		if out[shotName] == nil {
			out[shotName] = make(map[shot.SlotType]shot.Slot)
		}
		out[shotName][shot.SlotType(slotType)] = slot
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return out, nil
}

// InsertShotAfter creates a shot positioned right after afterKey ("" puts it
// first). The new name is one above the highest existing number, or the
// lowest free number once 999 is taken.
func (s *Store) InsertShotAfter(ctx context.Context, afterKey string) (shot.Shot, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	var created string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		names, err := shotNames(ctx, tx)
		if err != nil {
			return err
		}
		if len(names) >= s.maxShots {
			return capacityError(s.maxShots)
		}
		created = nextShotName(names)
		if created == "" {
			return capacityError(s.maxShots)
		}

		position := 0
		if afterKey != "" {
			if err := tx.QueryRowContext(ctx, `SELECT position FROM shots WHERE name = ?`, afterKey).Scan(&position); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return shot.Wrap(shot.ErrNotFound, "shot "+afterKey, "insert after", "shot does not exist", nil)
				}
				return fmt.Errorf("locate shot %s: %w", afterKey, err)
			}
			position++
		}
		if _, err := tx.ExecContext(ctx, `UPDATE shots SET position = position + 1 WHERE position >= ?`, position); err != nil {
			return fmt.Errorf("shift positions: %w", err)
		}
		now := nowTimestamp()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shots (name, position, notes, created_at, updated_at) VALUES (?, ?, '', ?, ?)`,
			created, position, now, now); err != nil {
			return fmt.Errorf("insert shot: %w", err)
		}
		return nil
	})
	if err != nil {
		return shot.Shot{}, err
	}

	for _, slotType := range []shot.SlotType{shot.SlotImage, shot.SlotVideo} {
		if err := os.MkdirAll(s.slotDir(created, slotType), 0o755); err != nil {
			s.logger.Warn("create shot directory failed",
				logging.Shot(created), logging.Error(err),
				logging.String(logging.FieldEventType, "shot_dir_failed"),
				logging.String(logging.FieldImpact, "directory is created on first upload"),
			)
		}
	}
	s.logger.Info("shot created", logging.Shot(created), logging.String("after", afterKey))
	return shot.Shot{Name: created}, nil
}

func capacityError(limit int) error {
	if limit >= shot.MaxShots {
		return shot.Wrap(shot.ErrCapacityExceeded, "board", "insert", fmt.Sprintf("shot number would exceed %d", shot.MaxShots), nil)
	}
	return shot.Wrap(shot.ErrCapacityExceeded, "board", "insert", fmt.Sprintf("board is limited to %d shots", limit), nil)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func shotNames(ctx context.Context, q queryer) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM shots`)
	if err != nil {
		return nil, fmt.Errorf("list shot names: %w", err)
	}
	defer rows.Close()
	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan shot name: %w", err)
		}
		names[name] = true
	}
	return names, rows.Err()
}

func nextShotName(names map[string]bool) string {
	highest := 0
	for name := range names {
		if n, err := shot.ParseName(name); err == nil && n > highest {
			highest = n
		}
	}
	if highest < shot.MaxShots {
		return shot.FormatName(highest + 1)
	}
	for n := 1; n <= shot.MaxShots; n++ {
		if !names[shot.FormatName(n)] {
			return shot.FormatName(n)
		}
	}
	return ""
}

// SaveNotes replaces a shot's notes.
func (s *Store) SaveNotes(ctx context.Context, name, notes string) (shot.Shot, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `UPDATE shots SET notes = ?, updated_at = ? WHERE name = ?`, notes, nowTimestamp(), name)
	if err != nil {
		return shot.Shot{}, fmt.Errorf("save notes: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shot.Shot{}, shot.Wrap(shot.ErrNotFound, "shot "+name, "save notes", "shot does not exist", nil)
	}
	return s.GetShot(ctx, name)
}

// RenameShot gives a shot a new number, moving its directory, versioned
// files, latest copies and thumbnails along with its rows. Any failure is
// reported as shot.ErrRenameFailed and leaves the project unchanged.
func (s *Store) RenameShot(ctx context.Context, oldName, newName string) (shot.Shot, error) {
	ctx = ensureContext(ctx)
	subject := "shot " + oldName
	normalized, err := shot.NormalizeName(newName)
	if err != nil {
		return shot.Shot{}, shot.Wrap(shot.ErrRenameFailed, subject, "rename", "", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := shotNames(ctx, s.db)
	if err != nil {
		return shot.Shot{}, shot.Wrap(shot.ErrRenameFailed, subject, "rename", "", err)
	}
	if !names[oldName] {
		return shot.Shot{}, shot.Wrap(shot.ErrRenameFailed, subject, "rename", "",
			shot.Wrap(shot.ErrNotFound, subject, "", "shot does not exist", nil))
	}
	if normalized == oldName {
		return s.GetShot(ctx, oldName)
	}
	if names[normalized] {
		return shot.Shot{}, shot.Wrap(shot.ErrRenameFailed, subject, "rename", fmt.Sprintf("shot %s already exists", normalized), nil)
	}
	if _, err := os.Stat(s.shotDir(normalized)); err == nil {
		return shot.Shot{}, shot.Wrap(shot.ErrRenameFailed, subject, "rename", fmt.Sprintf("folder for shot %s already exists", normalized), nil)
	}

	moves := &mover{}
	if err := s.moveShotFiles(moves, oldName, normalized); err != nil {
		moves.undo()
		return shot.Shot{}, shot.Wrap(shot.ErrRenameFailed, subject, "rename", "move files", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE shots SET name = ?, updated_at = ? WHERE name = ?`,
			normalized, nowTimestamp(), oldName); err != nil {
			return fmt.Errorf("rename shot row: %w", err)
		}
		return s.renameVersionRows(ctx, tx, oldName, normalized)
	})
	if err != nil {
		moves.undo()
		return shot.Shot{}, shot.Wrap(shot.ErrRenameFailed, subject, "rename", "", err)
	}
	s.logger.Info("shot renamed", logging.Shot(normalized), logging.String("previous", oldName))
	return s.GetShot(ctx, normalized)
}

func (s *Store) moveShotFiles(moves *mover, oldName, newName string) error {
	oldDir, newDir := s.shotDir(oldName), s.shotDir(newName)
	if _, err := os.Stat(oldDir); err == nil {
		if err := moves.move(oldDir, newDir); err != nil {
			return err
		}
		err := filepath.WalkDir(newDir, func(p string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if renamed, ok := renamePrefix(d.Name(), oldName, newName); ok {
				return moves.move(p, filepath.Join(filepath.Dir(p), renamed))
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	for _, slotType := range []shot.SlotType{shot.SlotImage, shot.SlotVideo} {
		target, _ := s.latestPath(oldName, slotType, "")
		matches, _ := filepath.Glob(target + ".*")
		for _, m := range matches {
			next, _ := s.latestPath(newName, slotType, filepath.Ext(m))
			if err := moves.move(m, next); err != nil {
				return err
			}
		}
	}

	thumbs, _ := filepath.Glob(filepath.Join(s.thumbDir, s.thumbPrefix+"_"+oldName+"_*"))
	for _, m := range thumbs {
		base := strings.TrimPrefix(filepath.Base(m), s.thumbPrefix+"_")
		if renamed, ok := renamePrefix(base, oldName, newName); ok {
			if err := moves.move(m, filepath.Join(s.thumbDir, s.thumbPrefix+"_"+renamed)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) renameVersionRows(ctx context.Context, tx *sql.Tx, oldName, newName string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT slot, version, file, COALESCE(thumbnail, '') FROM asset_versions WHERE shot_name = ?`, newName)
	if err != nil {
		return fmt.Errorf("list version rows: %w", err)
	}
	type row struct {
		slot, file, thumb string
		version           int
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.slot, &r.version, &r.file, &r.thumb); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan version row: %w", err)
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterate version rows: %w", err)
	}
	_ = rows.Close()

	oldPrefix := path.Join(shotsDirName, wipDirName, oldName) + "/"
	newPrefix := path.Join(shotsDirName, wipDirName, newName) + "/"
	for _, r := range pending {
		file := r.file
		if strings.HasPrefix(file, oldPrefix) {
			file = newPrefix + strings.TrimPrefix(file, oldPrefix)
		}
		if renamed, ok := renamePrefix(path.Base(file), oldName, newName); ok {
			file = path.Join(path.Dir(file), renamed)
		}
		thumb := r.thumb
		if thumb != "" {
			thumb = s.assetThumbName(newName, shot.SlotType(r.slot), r.version)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE asset_versions SET file = ?, thumbnail = ? WHERE shot_name = ? AND slot = ? AND version = ?`,
			file, nullableString(thumb), newName, r.slot, r.version); err != nil {
			return fmt.Errorf("update version row: %w", err)
		}
	}
	return nil
}

// renamePrefix swaps the leading "<old>_" of a file name for "<new>_".
func renamePrefix(base, oldName, newName string) (string, bool) {
	if !strings.HasPrefix(base, oldName+"_") {
		return "", false
	}
	return newName + "_" + strings.TrimPrefix(base, oldName+"_"), true
}

// mover records renames so a failed multi-step move can be rolled back.
type mover struct {
	done [][2]string
}

func (m *mover) move(from, to string) error {
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("%s already exists", filepath.Base(to))
	}
	if err := os.Rename(from, to); err != nil {
		return err
	}
	m.done = append(m.done, [2]string{from, to})
	return nil
}

func (m *mover) undo() {
	for i := len(m.done) - 1; i >= 0; i-- {
		_ = os.Rename(m.done[i][1], m.done[i][0])
	}
	m.done = nil
}
