package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"

	"shotbuddy/internal/logging"
	"shotbuddy/internal/promptmeta"
	"shotbuddy/internal/shot"
)

// importFromDisk adopts shot folders and version files that exist in the
// project but have no rows yet, such as projects created before the board
// database existed or files copied in by hand. New shots are appended in
// name order.
func (s *Store) importFromDisk(ctx context.Context) error {
	entries, err := os.ReadDir(s.wipDir())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read shots folder: %w", err)
	}
	names, err := shotNames(ctx, s.db)
	if err != nil {
		return err
	}

	var found []string
	for _, entry := range entries {
		if !entry.IsDir() || names[entry.Name()] {
			continue
		}
		if _, err := shot.ParseName(entry.Name()); err != nil {
			continue
		}
		found = append(found, entry.Name())
	}
	sort.Strings(found)
	if room := s.maxShots - len(names); len(found) > room {
		logging.WarnWithContext(s.logger, "project holds more shot folders than the board allows", "shot_import_truncated",
			logging.Int("found", len(found)),
			logging.Int("room", max(room, 0)),
			logging.String(logging.FieldImpact, "extra folders are not shown"),
		)
		found = found[:max(room, 0)]
	}

	if len(found) > 0 {
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			var next int
			if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM shots`).Scan(&next); err != nil {
				return fmt.Errorf("read last position: %w", err)
			}
			now := nowTimestamp()
			for i, name := range found {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO shots (name, position, notes, created_at, updated_at) VALUES (?, ?, '', ?, ?)`,
					name, next+i, now, now); err != nil {
					return fmt.Errorf("import shot %s: %w", name, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, name := range found {
			names[name] = true
		}
		s.logger.Info("shot folders imported", logging.Int("count", len(found)))
	}

	for name := range names {
		if err := s.syncVersions(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// syncVersions records version files of one shot that have no row.
func (s *Store) syncVersions(ctx context.Context, name string) error {
	for _, slotType := range slotTypes {
		files, err := s.scanVersions(name, slotType)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			continue
		}
		known, err := s.knownVersions(ctx, name, slotType)
		if err != nil {
			return err
		}
		for _, f := range files {
			if known[f.Version] {
				continue
			}
			if err := s.recordVersion(ctx, name, slotType, f.Version, f.Path, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) knownVersions(ctx context.Context, name string, slotType shot.SlotType) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version FROM asset_versions WHERE shot_name = ? AND slot = ?`, name, string(slotType))
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()
	out := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out[v] = true
	}
	return out, rows.Err()
}

// recordVersion inserts a version row and, for PNG files carrying generator
// metadata, seeds that version's prompt.
func (s *Store) recordVersion(ctx context.Context, name string, slotType shot.SlotType, version int, absPath, thumb string) error {
	var seeded string
	if p, ok, err := promptmeta.FromFile(absPath); err != nil {
		s.logger.Debug("prompt metadata unreadable", logging.Shot(name), logging.Error(err))
	} else if ok {
		seeded = p.Text()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := nowTimestamp()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO asset_versions (shot_name, slot, version, file, thumbnail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			name, string(slotType), version, s.rel(absPath), nullableString(thumb), now); err != nil {
			return fmt.Errorf("record version: %w", err)
		}
		if seeded == "" {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO prompts (shot_name, slot, version, prompt, updated_at) VALUES (?, ?, ?, ?, ?)`,
			name, string(slotType), version, seeded, now); err != nil {
			return fmt.Errorf("seed prompt: %w", err)
		}
		return nil
	})
}
