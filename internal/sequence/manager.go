// Package sequence keeps the ordered, in-memory mirror of a project's shot
// list and applies the storage collaborator's authoritative responses to it.
//
// The manager never computes a splice index before a round trip completes.
// Indices are derived from the mirror as it stands when the response is
// applied, so concurrent reloads or renames cannot cause an insert to land at
// a stale position.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"shotbuddy/internal/logging"
	"shotbuddy/internal/shot"
)

// Store is the collaborator surface the manager needs.
type Store interface {
	ListShots(ctx context.Context) ([]shot.Shot, error)
	InsertShotAfter(ctx context.Context, afterKey string) (shot.Shot, error)
	RenameShot(ctx context.Context, oldName, newName string) (shot.Shot, error)
}

// capacityMessage is the collaborator's wording for an exhausted sequence.
const capacityMessage = "would exceed 999"

// Option customises a Manager.
type Option func(*Manager)

// WithMaxShots lowers the local capacity pre-check. Values outside 1..999 are ignored.
func WithMaxShots(n int) Option {
	return func(m *Manager) {
		if n > 0 && n <= shot.MaxShots {
			m.maxShots = n
		}
	}
}

// Manager owns the display-ordered shot list.
type Manager struct {
	store    Store
	logger   *slog.Logger
	maxShots int

	mu    sync.Mutex
	shots []shot.Shot
}

// NewManager builds an empty manager bound to a collaborator.
func NewManager(store Store, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		logger:   logging.NewComponentLogger(logger, "sequence"),
		maxShots: shot.MaxShots,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load replaces the mirror wholesale. The last successful load wins.
func (m *Manager) Load(shots []shot.Shot) {
	next := make([]shot.Shot, len(shots))
	for i, s := range shots {
		next[i] = s.Clone()
	}
	m.mu.Lock()
	m.shots = next
	m.mu.Unlock()
	m.logger.Debug("sequence loaded", logging.Int("shots", len(next)))
}

// Refresh reloads the mirror from the collaborator. On failure the mirror is unchanged.
func (m *Manager) Refresh(ctx context.Context) error {
	shots, err := m.store.ListShots(ctx)
	if err != nil {
		return shot.Wrap(shot.ErrRequestFailed, "sequence", "list shots", "", err)
	}
	m.Load(shots)
	return nil
}

// Reset clears the mirror, typically when switching projects.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.shots = nil
	m.mu.Unlock()
}

// InsertAfter asks the collaborator for a new shot and splices it directly
// after afterKey. An empty key inserts at the head. If afterKey vanished from
// the mirror while the request was in flight, the shot is appended.
func (m *Manager) InsertAfter(ctx context.Context, afterKey string) (shot.Shot, error) {
	afterKey = strings.TrimSpace(afterKey)
	if m.Len() >= m.maxShots {
		return shot.Shot{}, shot.Wrap(shot.ErrCapacityExceeded, "sequence", "insert", fmt.Sprintf("shot number would exceed %d", m.maxShots), nil)
	}

	created, err := m.store.InsertShotAfter(ctx, afterKey)
	if err != nil {
		if isCapacityError(err) {
			return shot.Shot{}, shot.Wrap(shot.ErrCapacityExceeded, "sequence", "insert", "", err)
		}
		return shot.Shot{}, shot.Wrap(shot.ErrRequestFailed, "sequence", "insert", "", err)
	}

	m.mu.Lock()
	if existing := m.indexOfLocked(created.Name); existing >= 0 {
		m.shots = append(m.shots[:existing], m.shots[existing+1:]...)
	}
	idx := 0
	if afterKey != "" {
		if pos := m.indexOfLocked(afterKey); pos >= 0 {
			idx = pos + 1
		} else {
			idx = len(m.shots)
		}
	}
	m.shots = append(m.shots, shot.Shot{})
	copy(m.shots[idx+1:], m.shots[idx:])
	m.shots[idx] = created.Clone()
	m.mu.Unlock()

	m.logger.Info("shot inserted",
		logging.Shot(created.Name),
		logging.String("after", afterKey),
		logging.Int("position", idx),
	)
	return created.Clone(), nil
}

// Rename asks the collaborator to rename a shot and replaces it in place.
func (m *Manager) Rename(ctx context.Context, oldName, newName string) (shot.Shot, error) {
	renamed, err := m.store.RenameShot(ctx, oldName, newName)
	if err != nil {
		if errors.Is(err, shot.ErrRenameFailed) {
			return shot.Shot{}, err
		}
		return shot.Shot{}, shot.Wrap(shot.ErrRenameFailed, "shot "+oldName, "rename", "", err)
	}

	m.mu.Lock()
	idx := m.indexOfLocked(oldName)
	if idx < 0 {
		idx = m.indexOfLocked(renamed.Name)
	}
	if idx >= 0 {
		m.shots[idx] = renamed.Clone()
	}
	m.mu.Unlock()

	m.logger.Info("shot renamed", logging.Shot(renamed.Name), logging.String("previous", oldName))
	return renamed.Clone(), nil
}

// Apply replaces a shot in place from a collaborator response (upload or notes).
// Unknown names are ignored and reported as false.
func (m *Manager) Apply(updated shot.Shot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOfLocked(updated.Name)
	if idx < 0 {
		return false
	}
	m.shots[idx] = updated.Clone()
	return true
}

// SetPrompt mirrors an explicitly saved prompt into the slot, provided the
// slot is still at the saved version.
func (m *Manager) SetPrompt(name string, slot shot.SlotType, version int, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOfLocked(name)
	if idx < 0 {
		return
	}
	current, ok := m.shots[idx].Slot(slot)
	if !ok || current.Version != version {
		return
	}
	current.Prompt = text
	m.shots[idx] = m.shots[idx].WithSlot(slot, current)
}

// InsertionPoints returns the N+1 keys a new shot can be inserted after: ""
// for the head followed by every shot name in display order.
func (m *Manager) InsertionPoints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	points := make([]string, 0, len(m.shots)+1)
	points = append(points, "")
	for _, s := range m.shots {
		points = append(points, s.Name)
	}
	return points
}

// Snapshot returns a deep copy of the sequence in display order.
func (m *Manager) Snapshot() []shot.Shot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]shot.Shot, len(m.shots))
	for i, s := range m.shots {
		out[i] = s.Clone()
	}
	return out
}

// Names returns shot names in display order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.shots))
	for i, s := range m.shots {
		out[i] = s.Name
	}
	return out
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shots)
}

// Find returns the named shot.
func (m *Manager) Find(name string) (shot.Shot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOfLocked(name)
	if idx < 0 {
		return shot.Shot{}, false
	}
	return m.shots[idx].Clone(), true
}

// IndexOf returns the display index of the named shot or -1.
func (m *Manager) IndexOf(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOfLocked(name)
}

func (m *Manager) indexOfLocked(name string) int {
	for i, s := range m.shots {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func isCapacityError(err error) bool {
	return errors.Is(err, shot.ErrCapacityExceeded) || strings.Contains(err.Error(), capacityMessage)
}
