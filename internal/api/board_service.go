package api

import (
	"context"
	"io"
	"time"

	"shotbuddy/internal/shot"
	"shotbuddy/internal/storage"
)

// Board abstracts the storage collaborator operations exposed over the API.
type Board interface {
	Info() storage.ProjectInfo
	ListShots(ctx context.Context) ([]shot.Shot, error)
	GetShot(ctx context.Context, name string) (shot.Shot, error)
	InsertShotAfter(ctx context.Context, afterKey string) (shot.Shot, error)
	RenameShot(ctx context.Context, oldName, newName string) (shot.Shot, error)
	UploadAsset(ctx context.Context, name string, slot shot.SlotType, filename string, content io.Reader) (shot.Shot, error)
	FetchPrompt(ctx context.Context, name string, slot shot.SlotType, version int) (string, error)
	SavePrompt(ctx context.Context, name string, slot shot.SlotType, version int, text string) error
	SaveNotes(ctx context.Context, name, notes string) (shot.Shot, error)
	AssetVersions(ctx context.Context, name string, slot shot.SlotType) ([]int, error)
	Settings(ctx context.Context) (storage.Settings, error)
	UpdateSettings(ctx context.Context, update storage.SettingsUpdate) (storage.Settings, error)
	References(ctx context.Context) ([]storage.Reference, error)
	SaveReference(ctx context.Context, filename string, content io.Reader) (storage.Reference, error)
	RenameReference(ctx context.Context, oldName, newName string) (storage.Reference, error)
	DeleteReference(ctx context.Context, filename string) error
}

// BoardService exposes board operations returning API DTOs.
type BoardService struct {
	board Board
	now   func() time.Time
}

// NewBoardService constructs a BoardService around the provided board.
func NewBoardService(board Board) *BoardService {
	if board == nil {
		return nil
	}
	return &BoardService{board: board, now: time.Now}
}

// ListShots returns the board in display order.
func (s *BoardService) ListShots(ctx context.Context) ([]Shot, error) {
	shots, err := s.board.ListShots(ctx)
	if err != nil {
		return nil, err
	}
	return FromShots(shots), nil
}

// InsertShotAfter creates a shot after afterKey ("" for the head).
func (s *BoardService) InsertShotAfter(ctx context.Context, afterKey string) (Shot, error) {
	created, err := s.board.InsertShotAfter(ctx, afterKey)
	if err != nil {
		return Shot{}, err
	}
	return FromShot(created), nil
}

// RenameShot renames a shot.
func (s *BoardService) RenameShot(ctx context.Context, oldName, newName string) (Shot, error) {
	renamed, err := s.board.RenameShot(ctx, oldName, newName)
	if err != nil {
		return Shot{}, err
	}
	return FromShot(renamed), nil
}

// UploadAsset stores a new slot version. slot may be empty, in which case
// the file extension decides between image and video.
func (s *BoardService) UploadAsset(ctx context.Context, name, slot, filename string, content io.Reader) (Shot, error) {
	slotType, err := parseSlot(slot, filename)
	if err != nil {
		return Shot{}, err
	}
	updated, err := s.board.UploadAsset(ctx, name, slotType, filename, content)
	if err != nil {
		return Shot{}, err
	}
	return FromShot(updated), nil
}

// FetchPrompt returns one version's prompt.
func (s *BoardService) FetchPrompt(ctx context.Context, name, slot string, version int) (string, error) {
	slotType, err := shot.ParseSlotType(slot)
	if err != nil {
		return "", err
	}
	return s.board.FetchPrompt(ctx, name, slotType, version)
}

// SavePrompt stores one version's prompt and returns the refreshed shot.
func (s *BoardService) SavePrompt(ctx context.Context, name, slot string, version int, text string) (Shot, error) {
	slotType, err := shot.ParseSlotType(slot)
	if err != nil {
		return Shot{}, err
	}
	if err := s.board.SavePrompt(ctx, name, slotType, version, text); err != nil {
		return Shot{}, err
	}
	updated, err := s.board.GetShot(ctx, name)
	if err != nil {
		return Shot{}, err
	}
	return FromShot(updated), nil
}

// SaveNotes replaces a shot's notes.
func (s *BoardService) SaveNotes(ctx context.Context, name, notes string) (Shot, error) {
	updated, err := s.board.SaveNotes(ctx, name, notes)
	if err != nil {
		return Shot{}, err
	}
	return FromShot(updated), nil
}

// AssetVersions lists a slot's versions, ascending.
func (s *BoardService) AssetVersions(ctx context.Context, name, slot string) ([]int, error) {
	slotType, err := shot.ParseSlotType(slot)
	if err != nil {
		return nil, err
	}
	versions, err := s.board.AssetVersions(ctx, name, slotType)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []int{}
	}
	return versions, nil
}

// Settings returns the board preferences.
func (s *BoardService) Settings(ctx context.Context) (Settings, error) {
	settings, err := s.board.Settings(ctx)
	if err != nil {
		return Settings{}, err
	}
	return FromSettings(settings), nil
}

// UpdateSettings merges a partial update.
func (s *BoardService) UpdateSettings(ctx context.Context, update SettingsUpdate) (Settings, error) {
	settings, err := s.board.UpdateSettings(ctx, ToSettingsUpdate(update))
	if err != nil {
		return Settings{}, err
	}
	return FromSettings(settings), nil
}

// References lists reference images.
func (s *BoardService) References(ctx context.Context) ([]Reference, error) {
	refs, err := s.board.References(ctx)
	if err != nil {
		return nil, err
	}
	return FromReferences(refs), nil
}

// SaveReference stores a reference image.
func (s *BoardService) SaveReference(ctx context.Context, filename string, content io.Reader) (Reference, error) {
	ref, err := s.board.SaveReference(ctx, filename, content)
	if err != nil {
		return Reference{}, err
	}
	return FromReference(ref), nil
}

// RenameReference renames a reference image.
func (s *BoardService) RenameReference(ctx context.Context, oldName, newName string) (Reference, error) {
	ref, err := s.board.RenameReference(ctx, oldName, newName)
	if err != nil {
		return Reference{}, err
	}
	return FromReference(ref), nil
}

// DeleteReference removes a reference image.
func (s *BoardService) DeleteReference(ctx context.Context, filename string) error {
	return s.board.DeleteReference(ctx, filename)
}

// Export snapshots the board for `shotbuddy export`.
func (s *BoardService) Export(ctx context.Context) (ExportDocument, error) {
	shots, err := s.ListShots(ctx)
	if err != nil {
		return ExportDocument{}, err
	}
	return ExportDocument{
		Project:  s.board.Info().Name,
		Exported: s.now().UTC().Format(time.RFC3339),
		Shots:    shots,
	}, nil
}

func parseSlot(slot, filename string) (shot.SlotType, error) {
	if slot != "" {
		return shot.ParseSlotType(slot)
	}
	if t, ok := shot.ClassifyFile(filename); ok {
		return t, nil
	}
	return "", shot.Wrap(shot.ErrValidation, "upload", "classify", "unsupported file type", nil)
}
