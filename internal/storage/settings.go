package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"shotbuddy/internal/config"
	"shotbuddy/internal/shot"
)

const (
	settingClickBehavior  = "thumbnail_click_behavior"
	settingCollapsedShots = "collapsed_shots"
)

// Settings are the per-project board preferences.
type Settings struct {
	ThumbnailClickBehavior string   `json:"thumbnail_click_behavior"`
	CollapsedShots         []string `json:"collapsed_shots"`
}

// SettingsUpdate carries the fields to change; nil fields are kept.
type SettingsUpdate struct {
	ThumbnailClickBehavior *string   `json:"thumbnail_click_behavior,omitempty"`
	CollapsedShots         *[]string `json:"collapsed_shots,omitempty"`
}

// Settings returns the stored preferences merged over the defaults.
func (s *Store) Settings(ctx context.Context) (Settings, error) {
	ctx = ensureContext(ctx)
	out := Settings{ThumbnailClickBehavior: s.defaultClick, CollapsedShots: []string{}}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value_json FROM settings`)
	if err != nil {
		return out, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return out, fmt.Errorf("scan setting: %w", err)
		}
		switch key {
		case settingClickBehavior:
			var v string
			if json.Unmarshal([]byte(raw), &v) == nil && config.ValidClickBehavior(v) {
				out.ThumbnailClickBehavior = v
			}
		case settingCollapsedShots:
			var v []string
			if json.Unmarshal([]byte(raw), &v) == nil && v != nil {
				out.CollapsedShots = v
			}
		}
	}
	return out, rows.Err()
}

// UpdateSettings merges update into the stored preferences.
func (s *Store) UpdateSettings(ctx context.Context, update SettingsUpdate) (Settings, error) {
	ctx = ensureContext(ctx)
	values := make(map[string]any)
	if update.ThumbnailClickBehavior != nil {
		v := *update.ThumbnailClickBehavior
		if !config.ValidClickBehavior(v) {
			return Settings{}, shot.Wrap(shot.ErrValidation, "settings", "update",
				fmt.Sprintf("unsupported thumbnail click behavior %q", v), nil)
		}
		values[settingClickBehavior] = v
	}
	if update.CollapsedShots != nil {
		names, err := normalizeNames(*update.CollapsedShots)
		if err != nil {
			return Settings{}, err
		}
		values[settingCollapsedShots] = names
	}
	if len(values) > 0 {
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			for key, value := range values {
				raw, err := json.Marshal(value)
				if err != nil {
					return fmt.Errorf("encode %s: %w", key, err)
				}
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO settings (key, value_json) VALUES (?, ?)
                     ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json`,
					key, string(raw)); err != nil {
					return fmt.Errorf("store %s: %w", key, err)
				}
			}
			return nil
		})
		if err != nil {
			return Settings{}, err
		}
	}
	return s.Settings(ctx)
}

func normalizeNames(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		name, err := shot.NormalizeName(value)
		if err != nil {
			return nil, err
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}
