// Package dropzone routes files dropped onto the board: onto an insertion
// point between rows (create a shot, then upload) or directly onto an existing
// shot's slot.
package dropzone

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"shotbuddy/internal/logging"
	"shotbuddy/internal/shot"
)

// Uploader is the asset upload surface of the storage collaborator. It
// returns the shot with the slot's new version applied.
type Uploader interface {
	UploadAsset(ctx context.Context, shotName string, slot shot.SlotType, filename string, content io.Reader) (shot.Shot, error)
}

// Sequence is the slice of sequence.Manager the router drives.
type Sequence interface {
	InsertAfter(ctx context.Context, afterKey string) (shot.Shot, error)
	Apply(updated shot.Shot) bool
	Find(name string) (shot.Shot, bool)
}

// Result reports what a drop did. Notice carries a non-fatal problem, such as
// an unsupported file that still produced a new shot.
type Result struct {
	Shot     shot.Shot
	Created  bool
	Uploaded bool
	Notice   error
}

// Router applies drops through the sequence and the uploader.
type Router struct {
	seq      Sequence
	uploader Uploader
	logger   *slog.Logger
}

// NewRouter builds a router.
func NewRouter(seq Sequence, uploader Uploader, logger *slog.Logger) *Router {
	return &Router{seq: seq, uploader: uploader, logger: logging.NewComponentLogger(logger, "dropzone")}
}

// DropAtInsertionPoint creates a shot after afterKey and uploads the file into
// it. The shot is created before the file is classified, so an unsupported
// file still leaves the new, empty shot in place and is reported as a Notice.
func (r *Router) DropAtInsertionPoint(ctx context.Context, afterKey, filename string, content io.Reader) (Result, error) {
	created, err := r.seq.InsertAfter(ctx, afterKey)
	if err != nil {
		return Result{}, err
	}
	result := Result{Shot: created, Created: true}

	slot, ok := shot.ClassifyFile(filename)
	if !ok {
		result.Notice = unsupported(filename)
		logging.WarnWithContext(r.logger, "dropped file type unsupported; shot kept empty", "drop_unsupported_type",
			logging.Shot(created.Name),
			logging.String("file", filepath.Base(filename)),
			logging.String(logging.FieldErrorHint, "drop a jpg, png, webp, mp4 or mov file"),
			logging.String(logging.FieldImpact, "new shot created without media"),
		)
		return result, nil
	}

	updated, err := r.upload(ctx, created.Name, slot, filename, content)
	if err != nil {
		return result, err
	}
	result.Shot = updated
	result.Uploaded = true
	return result, nil
}

// DropOnSlot uploads a file straight into an existing shot's slot. The file
// type must match the slot; nothing is mutated otherwise.
func (r *Router) DropOnSlot(ctx context.Context, shotName string, slot shot.SlotType, filename string, content io.Reader) (Result, error) {
	kind, ok := shot.ClassifyFile(filename)
	if !ok {
		return Result{}, unsupported(filename)
	}
	if slot == "" {
		slot = kind
	}
	if !shot.Accepts(slot, kind) {
		return Result{}, shot.Wrap(shot.ErrValidation, "shot "+shotName, "drop",
			fmt.Sprintf("%s file %q cannot go into the %s slot", kind, filepath.Base(filename), slot), nil)
	}
	if _, found := r.seq.Find(shotName); !found {
		return Result{}, shot.Wrap(shot.ErrNotFound, "shot "+shotName, "drop", "shot is not on the board", nil)
	}

	updated, err := r.upload(ctx, shotName, slot, filename, content)
	if err != nil {
		return Result{}, err
	}
	return Result{Shot: updated, Uploaded: true}, nil
}

func (r *Router) upload(ctx context.Context, shotName string, slot shot.SlotType, filename string, content io.Reader) (shot.Shot, error) {
	updated, err := r.uploader.UploadAsset(ctx, shotName, slot, filepath.Base(filename), content)
	if err != nil {
		return shot.Shot{}, shot.Wrap(shot.ErrRequestFailed, "shot "+shotName, "upload", "", err)
	}
	r.seq.Apply(updated)
	current, _ := updated.Slot(slot)
	r.logger.Info("asset uploaded",
		logging.Shot(shotName), logging.Slot(string(slot)), logging.Version(current.Version),
		logging.String("file", current.File))
	return updated, nil
}

func unsupported(filename string) error {
	return shot.Wrap(shot.ErrValidation, "drop", "classify", fmt.Sprintf("unsupported file type %q", filepath.Ext(filename)), nil)
}
