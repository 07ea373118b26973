// Package promptbrowser implements the modal prompt editor over a slot's
// version history.
//
// One session is open at a time. Navigating between versions auto-saves the
// draft of the version being left in the background; an explicit Save
// persists the selected version, mirrors it into the sequence and closes the
// session. When the newest version has no prompt yet, the previous version's
// prompt is offered as a copy candidate.
//
// Collaborator requests are issued through a single ordered chain so the
// collaborator always receives an auto-save before the fetch that follows
// it. An auto-save leaves the chain once it is sent; its reply is never
// awaited by the switch. Every fetch is tagged with the session and generation it was issued
// under; a response that arrives after the user has moved on is discarded.
package promptbrowser

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"shotbuddy/internal/logging"
	"shotbuddy/internal/shot"
)

// Store is the prompt persistence surface of the storage collaborator.
type Store interface {
	FetchPrompt(ctx context.Context, shotName string, slot shot.SlotType, version int) (string, error)
	SavePrompt(ctx context.Context, shotName string, slot shot.SlotType, version int, text string) error
}

// Sender is implemented by stores that can put a save on the wire without
// waiting for its reply. wait blocks until the reply arrives. Auto-saves use
// it so the fetch that follows is not held up by a slow save.
type Sender interface {
	SendSavePrompt(ctx context.Context, shotName string, slot shot.SlotType, version int, text string) (wait func() error)
}

// Mirror receives explicitly saved prompts. sequence.Manager implements it.
type Mirror interface {
	SetPrompt(shotName string, slot shot.SlotType, version int, text string)
}

const autoSaveTimeout = 30 * time.Second

// Session is a read-only snapshot of the open browser state.
type Session struct {
	ID       string
	Shot     string
	Slot     shot.SlotType
	Versions []int
	Selected int
	Draft    string
	// CopyCandidate holds the previous version's prompt while HasCandidate is true.
	CopyCandidate string
	HasCandidate  bool
}

type session struct {
	Session
	// loaded is false until the selected version's prompt has been fetched
	// or the user typed a draft; unloaded drafts are never auto-saved.
	loaded bool
}

// Browser is the prompt version state machine.
type Browser struct {
	store  Store
	mirror Mirror
	logger *slog.Logger

	mu         sync.Mutex
	current    *session
	generation uint64
	tail       chan struct{}

	saves sync.WaitGroup
}

// New builds a closed browser. mirror may be nil.
func New(store Store, mirror Mirror, logger *slog.Logger) *Browser {
	done := make(chan struct{})
	close(done)
	return &Browser{
		store:  store,
		mirror: mirror,
		logger: logging.NewComponentLogger(logger, "prompt-browser"),
		tail:   done,
	}
}

// Open starts a session on the slot at currentVersion, replacing any open
// session without saving it.
func (b *Browser) Open(ctx context.Context, shotName string, slot shot.SlotType, currentVersion int) (Session, error) {
	if currentVersion < 1 {
		return Session{}, shot.Wrap(shot.ErrValidation, "shot "+shotName, "open prompt", fmt.Sprintf("%s slot has no file to annotate", slot), nil)
	}
	versions := make([]int, 0, currentVersion)
	for v := currentVersion; v >= 1; v-- {
		versions = append(versions, v)
	}

	b.mu.Lock()
	b.generation++
	b.current = &session{Session: Session{
		ID:       uuid.NewString(),
		Shot:     shotName,
		Slot:     slot,
		Versions: versions,
		Selected: currentVersion,
	}}
	tag := b.tagLocked()
	prev, done := b.reserveLocked()
	b.mu.Unlock()

	b.logger.Debug("prompt session opened",
		logging.Shot(shotName), logging.Slot(string(slot)), logging.Version(currentVersion),
		logging.String(logging.FieldSessionID, tag.session))

	text, err := b.fetch(ctx, prev, done, shotName, slot, currentVersion)
	if err != nil {
		b.mu.Lock()
		if b.isCurrentLocked(tag) {
			b.current = nil
			b.generation++
		}
		b.mu.Unlock()
		return Session{}, shot.Wrap(shot.ErrRequestFailed, "shot "+shotName, "fetch prompt", "", err)
	}
	if err := b.applyDraft(tag, text); err != nil {
		return Session{}, err
	}
	if text == "" && currentVersion > 1 {
		b.loadCopyCandidate(ctx, tag, shotName, slot, currentVersion-1)
	}
	return b.Session(), nil
}

// SwitchVersion selects another available version. Leaving a version
// auto-saves its draft in the background before the new prompt is fetched.
// Re-selecting the current version re-fetches without saving.
func (b *Browser) SwitchVersion(ctx context.Context, version int) (Session, error) {
	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return Session{}, shot.Wrap(shot.ErrValidation, "prompt browser", "switch version", "no session is open", nil)
	}
	s := b.current
	if !slices.Contains(s.Versions, version) {
		b.mu.Unlock()
		return Session{}, shot.Wrap(shot.ErrValidation, "shot "+s.Shot, "switch version", fmt.Sprintf("version %d is not available", version), nil)
	}
	shotName, slot := s.Shot, s.Slot
	if version != s.Selected && s.loaded {
		b.autoSaveLocked(ctx, shotName, slot, s.Selected, s.Draft)
	}
	b.generation++
	s.Selected = version
	s.Draft = ""
	s.loaded = false
	s.CopyCandidate = ""
	s.HasCandidate = false
	newest := s.Versions[0]
	tag := b.tagLocked()
	prev, done := b.reserveLocked()
	b.mu.Unlock()

	text, err := b.fetch(ctx, prev, done, shotName, slot, version)
	if err != nil {
		return Session{}, shot.Wrap(shot.ErrRequestFailed, "shot "+shotName, "fetch prompt", "", err)
	}
	if err := b.applyDraft(tag, text); err != nil {
		return Session{}, err
	}
	if version == newest && text == "" && version > 1 {
		b.loadCopyCandidate(ctx, tag, shotName, slot, version-1)
	}
	return b.Session(), nil
}

// SetDraft replaces the draft text of the selected version.
func (b *Browser) SetDraft(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return shot.Wrap(shot.ErrValidation, "prompt browser", "edit", "no session is open", nil)
	}
	b.current.Draft = text
	b.current.loaded = true
	return nil
}

// CopyForward moves the copy candidate into the draft. Nothing is persisted
// until Save.
func (b *Browser) CopyForward() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil || !b.current.HasCandidate {
		return shot.Wrap(shot.ErrValidation, "prompt browser", "copy", "no previous prompt to copy", nil)
	}
	b.current.Draft = b.current.CopyCandidate
	b.current.CopyCandidate = ""
	b.current.HasCandidate = false
	b.current.loaded = true
	return nil
}

// Save persists the draft for the selected version, mirrors it into the
// sequence and closes the session. On failure the session stays open. Save is
// refused while the selected version's prompt has not been loaded, so a
// failed fetch cannot overwrite the stored prompt with an empty draft.
func (b *Browser) Save(ctx context.Context) error {
	b.mu.Lock()
	if b.current == nil {
		b.mu.Unlock()
		return shot.Wrap(shot.ErrValidation, "prompt browser", "save", "no session is open", nil)
	}
	if !b.current.loaded {
		name := b.current.Shot
		b.mu.Unlock()
		return shot.Wrap(shot.ErrValidation, "shot "+name, "save prompt",
			"the selected version's prompt has not been loaded", nil)
	}
	s := b.current.Session
	prev, done := b.reserveLocked()
	b.mu.Unlock()

	err := b.issue(ctx, prev, done, func() error {
		return b.store.SavePrompt(ctx, s.Shot, s.Slot, s.Selected, s.Draft)
	})
	if err != nil {
		return shot.Wrap(shot.ErrRequestFailed, "shot "+s.Shot, "save prompt", "", err)
	}
	if b.mirror != nil {
		b.mirror.SetPrompt(s.Shot, s.Slot, s.Selected, s.Draft)
	}

	b.mu.Lock()
	if b.current != nil && b.current.ID == s.ID {
		b.current = nil
		b.generation++
	}
	b.mu.Unlock()

	b.logger.Info("prompt saved",
		logging.Shot(s.Shot), logging.Slot(string(s.Slot)), logging.Version(s.Selected),
		logging.String(logging.FieldSessionID, s.ID))
	return nil
}

// Close cancels the session without saving.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return
	}
	b.current = nil
	b.generation++
}

// IsOpen reports whether a session is open.
func (b *Browser) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current != nil
}

// Session returns a snapshot of the open session, or the zero value.
func (b *Browser) Session() Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Session{}
	}
	out := b.current.Session
	out.Versions = slices.Clone(b.current.Versions)
	return out
}

// Wait blocks until background auto-saves have finished.
func (b *Browser) Wait() {
	b.saves.Wait()
}

type fetchTag struct {
	session    string
	generation uint64
}

func (b *Browser) tagLocked() fetchTag {
	return fetchTag{session: b.current.ID, generation: b.generation}
}

func (b *Browser) isCurrentLocked(tag fetchTag) bool {
	return b.current != nil && b.current.ID == tag.session && b.generation == tag.generation
}

// reserveLocked appends a slot to the request chain. The returned prev
// channel closes when every earlier request has finished; the caller must
// close done when its own request completes.
func (b *Browser) reserveLocked() (<-chan struct{}, chan struct{}) {
	prev := b.tail
	done := make(chan struct{})
	b.tail = done
	return prev, done
}

func (b *Browser) issue(ctx context.Context, prev <-chan struct{}, done chan struct{}, call func() error) error {
	defer close(done)
	select {
	case <-prev:
	case <-ctx.Done():
		return ctx.Err()
	}
	return call()
}

func (b *Browser) fetch(ctx context.Context, prev <-chan struct{}, done chan struct{}, shotName string, slot shot.SlotType, version int) (string, error) {
	var text string
	err := b.issue(ctx, prev, done, func() error {
		var err error
		text, err = b.store.FetchPrompt(ctx, shotName, slot, version)
		return err
	})
	return text, err
}

func (b *Browser) applyDraft(tag fetchTag, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.isCurrentLocked(tag) {
		return shot.Wrap(shot.ErrStaleFetch, "prompt browser", "fetch", "session moved on", nil)
	}
	b.current.Draft = text
	b.current.loaded = true
	return nil
}

// loadCopyCandidate fetches the previous version's prompt and offers it when
// non-empty. Failures only mean no candidate is offered.
func (b *Browser) loadCopyCandidate(ctx context.Context, tag fetchTag, shotName string, slot shot.SlotType, version int) {
	b.mu.Lock()
	if !b.isCurrentLocked(tag) {
		b.mu.Unlock()
		return
	}
	prev, done := b.reserveLocked()
	b.mu.Unlock()

	text, err := b.fetch(ctx, prev, done, shotName, slot, version)
	if err != nil {
		b.logger.Debug("copy candidate fetch failed",
			logging.Shot(shotName), logging.Slot(string(slot)), logging.Version(version), logging.Error(err))
		return
	}
	if text == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.isCurrentLocked(tag) || b.current.Draft != "" {
		return
	}
	b.current.CopyCandidate = text
	b.current.HasCandidate = true
}

// autoSaveLocked persists a draft in the background. Its slot in the request
// chain is reserved before returning, ahead of any later fetch, and released
// as soon as the save has been sent rather than when it completes.
func (b *Browser) autoSaveLocked(ctx context.Context, shotName string, slot shot.SlotType, version int, text string) {
	prev, done := b.reserveLocked()
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), autoSaveTimeout)
	b.saves.Add(1)
	go func() {
		defer b.saves.Done()
		defer cancel()
		err := b.sendSave(saveCtx, prev, done, shotName, slot, version, text)
		if err != nil {
			logging.WarnWithContext(b.logger, "prompt auto-save failed", "prompt_autosave_failed",
				logging.Shot(shotName), logging.Slot(string(slot)), logging.Version(version),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the daemon is running and the project is writable"),
				logging.String(logging.FieldImpact, "unsaved draft for this version was lost"),
			)
			return
		}
		b.logger.Debug("prompt auto-saved", logging.Shot(shotName), logging.Slot(string(slot)), logging.Version(version))
	}()
}

// sendSave waits for its turn in the chain, issues the save and closes done
// once the request is out. A store without Sender is released just before the
// blocking call.
func (b *Browser) sendSave(ctx context.Context, prev <-chan struct{}, done chan struct{}, shotName string, slot shot.SlotType, version int, text string) error {
	var once sync.Once
	release := func() { once.Do(func() { close(done) }) }
	defer release()

	select {
	case <-prev:
	case <-ctx.Done():
		return ctx.Err()
	}
	if sender, ok := b.store.(Sender); ok {
		wait := sender.SendSavePrompt(ctx, shotName, slot, version, text)
		release()
		return wait()
	}
	release()
	return b.store.SavePrompt(ctx, shotName, slot, version, text)
}
