package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"shotbuddy/internal/logging"
	"shotbuddy/internal/shot"
)

// FetchPrompt returns the prompt stored for one version; an unauthored
// prompt is "".
func (s *Store) FetchPrompt(ctx context.Context, name string, slotType shot.SlotType, version int) (string, error) {
	ctx = ensureContext(ctx)
	if err := s.checkPromptKey(ctx, name, slotType, version, "fetch prompt"); err != nil {
		return "", err
	}
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT prompt FROM prompts WHERE shot_name = ? AND slot = ? AND version = ?`,
		name, string(slotType), version).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetch prompt: %w", err)
	}
	return text, nil
}

// SavePrompt stores the prompt of an existing version.
func (s *Store) SavePrompt(ctx context.Context, name string, slotType shot.SlotType, version int, text string) error {
	ctx = ensureContext(ctx)
	if err := s.checkPromptKey(ctx, name, slotType, version, "save prompt"); err != nil {
		return err
	}
	versions, err := s.assetVersions(ctx, name, slotType)
	if err != nil {
		return err
	}
	if !slices.Contains(versions, version) {
		return shot.Wrap(shot.ErrValidation, "shot "+name, "save prompt",
			fmt.Sprintf("%s %s does not exist", slotType, shot.FormatVersion(version)), nil)
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO prompts (shot_name, slot, version, prompt, updated_at) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(shot_name, slot, version) DO UPDATE SET prompt = excluded.prompt, updated_at = excluded.updated_at`,
		name, string(slotType), version, text, nowTimestamp()); err != nil {
		return fmt.Errorf("save prompt: %w", err)
	}
	s.logger.Debug("prompt saved", logging.Shot(name), logging.Slot(string(slotType)), logging.Version(version))
	return nil
}

func (s *Store) checkPromptKey(ctx context.Context, name string, slotType shot.SlotType, version int, op string) error {
	if _, err := shot.ParseSlotType(string(slotType)); err != nil {
		return err
	}
	if version < 1 {
		return shot.Wrap(shot.ErrValidation, "shot "+name, op, fmt.Sprintf("version %d is out of range", version), nil)
	}
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM shots WHERE name = ?`, name).Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if exists == 0 {
		return shot.Wrap(shot.ErrNotFound, "shot "+name, op, "shot does not exist", nil)
	}
	return nil
}
