package testsupport

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"shotbuddy/internal/shot"
)

type promptKey struct {
	shot    string
	slot    shot.SlotType
	version int
}

// FakeStore is an in-memory storage collaborator for core package tests. It
// mimics the daemon's naming and capacity rules and records every call in
// issue order.
type FakeStore struct {
	mu       sync.Mutex
	maxShots int
	order    []string
	shots    map[string]shot.Shot
	prompts  map[promptKey]string
	calls    []string

	// Injected failures. A non-nil value is returned by the matching call.
	FailList   error
	FailInsert error
	FailRename error
	FailFetch  error
	FailSave   error
	FailUpload error

	// BeforeFetch, when set, runs before a fetch is served. Tests use it to
	// block or reorder responses.
	BeforeFetch func(name string, slot shot.SlotType, version int)
	// BeforeSave runs before a save is applied.
	BeforeSave func(name string, slot shot.SlotType, version int)
}

// NewFakeStore returns an empty fake with the standard 999 ceiling.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		maxShots: shot.MaxShots,
		shots:    make(map[string]shot.Shot),
		prompts:  make(map[promptKey]string),
	}
}

// SetMaxShots lowers the ceiling for capacity tests.
func (f *FakeStore) SetMaxShots(n int) {
	f.mu.Lock()
	f.maxShots = n
	f.mu.Unlock()
}

// AddShot appends a shot to the display order.
func (f *FakeStore) AddShot(s shot.Shot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, s.Name)
	f.shots[s.Name] = s.Clone()
}

// AddShots appends empty shots with the given names.
func (f *FakeStore) AddShots(names ...string) {
	for _, name := range names {
		f.AddShot(shot.Shot{Name: name})
	}
}

// SetPrompt seeds a stored prompt.
func (f *FakeStore) SetPrompt(name string, slot shot.SlotType, version int, text string) {
	f.mu.Lock()
	f.prompts[promptKey{name, slot, version}] = text
	f.mu.Unlock()
}

// Prompt returns a stored prompt.
func (f *FakeStore) Prompt(name string, slot shot.SlotType, version int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[promptKey{name, slot, version}]
}

// Calls returns the call log in issue order.
func (f *FakeStore) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Order returns the collaborator's display order.
func (f *FakeStore) Order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func (f *FakeStore) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *FakeStore) ListShots(ctx context.Context) ([]shot.Shot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list")
	if f.FailList != nil {
		return nil, f.FailList
	}
	out := make([]shot.Shot, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, f.shots[name].Clone())
	}
	return out, nil
}

func (f *FakeStore) InsertShotAfter(ctx context.Context, afterKey string) (shot.Shot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("insert:%s", afterKey)
	if f.FailInsert != nil {
		return shot.Shot{}, f.FailInsert
	}
	if len(f.order) >= f.maxShots {
		return shot.Shot{}, shot.FromKind(shot.KindCapacityExceeded, "shot number would exceed 999")
	}
	pos := 0
	if afterKey != "" {
		pos = -1
		for i, name := range f.order {
			if name == afterKey {
				pos = i + 1
				break
			}
		}
		if pos < 0 {
			return shot.Shot{}, shot.Wrap(shot.ErrNotFound, "shot "+afterKey, "insert", "unknown insertion point", nil)
		}
	}
	name := f.nextNameLocked()
	if name == "" {
		return shot.Shot{}, shot.FromKind(shot.KindCapacityExceeded, "shot number would exceed 999")
	}
	created := shot.Shot{Name: name}
	f.shots[name] = created
	f.order = append(f.order, "")
	copy(f.order[pos+1:], f.order[pos:])
	f.order[pos] = name
	return created.Clone(), nil
}

func (f *FakeStore) nextNameLocked() string {
	maxN := 0
	used := make(map[int]bool, len(f.order))
	for _, name := range f.order {
		n, err := shot.ParseName(name)
		if err != nil {
			continue
		}
		used[n] = true
		if n > maxN {
			maxN = n
		}
	}
	if maxN < shot.MaxShots {
		return shot.FormatName(maxN + 1)
	}
	for n := 1; n <= shot.MaxShots; n++ {
		if !used[n] {
			return shot.FormatName(n)
		}
	}
	return ""
}

func (f *FakeStore) RenameShot(ctx context.Context, oldName, newName string) (shot.Shot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("rename:%s->%s", oldName, newName)
	if f.FailRename != nil {
		return shot.Shot{}, f.FailRename
	}
	normalized, err := shot.NormalizeName(newName)
	if err != nil {
		return shot.Shot{}, shot.Wrap(shot.ErrRenameFailed, "shot "+oldName, "rename", "", err)
	}
	current, ok := f.shots[oldName]
	if !ok {
		return shot.Shot{}, shot.Wrap(shot.ErrRenameFailed, "shot "+oldName, "rename", "", shot.ErrNotFound)
	}
	if _, taken := f.shots[normalized]; taken && normalized != oldName {
		return shot.Shot{}, shot.Wrap(shot.ErrRenameFailed, "shot "+oldName, "rename", fmt.Sprintf("shot %s already exists", normalized), nil)
	}
	delete(f.shots, oldName)
	current.Name = normalized
	f.shots[normalized] = current
	for i, name := range f.order {
		if name == oldName {
			f.order[i] = normalized
		}
	}
	for key, text := range f.prompts {
		if key.shot == oldName {
			delete(f.prompts, key)
			key.shot = normalized
			f.prompts[key] = text
		}
	}
	return current.Clone(), nil
}

func (f *FakeStore) FetchPrompt(ctx context.Context, name string, slot shot.SlotType, version int) (string, error) {
	f.mu.Lock()
	f.record("fetch:%s/%s/%d", name, slot, version)
	hook := f.BeforeFetch
	fail := f.FailFetch
	f.mu.Unlock()
	if hook != nil {
		hook(name, slot, version)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fail != nil {
		return "", fail
	}
	return f.Prompt(name, slot, version), nil
}

func (f *FakeStore) SavePrompt(ctx context.Context, name string, slot shot.SlotType, version int, text string) error {
	return f.SendSavePrompt(ctx, name, slot, version, text)()
}

// SendSavePrompt records the save in the call log before returning; the save
// itself is applied in the background and wait reports its result.
func (f *FakeStore) SendSavePrompt(ctx context.Context, name string, slot shot.SlotType, version int, text string) (wait func() error) {
	f.mu.Lock()
	f.record("save:%s/%s/%d", name, slot, version)
	hook := f.BeforeSave
	fail := f.FailSave
	f.mu.Unlock()

	result := make(chan error, 1)
	go func() {
		if hook != nil {
			hook(name, slot, version)
		}
		if fail != nil {
			result <- fail
			return
		}
		f.SetPrompt(name, slot, version, text)
		result <- nil
	}()
	return func() error {
		select {
		case err := <-result:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *FakeStore) UploadAsset(ctx context.Context, name string, slot shot.SlotType, filename string, content io.Reader) (shot.Shot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upload:%s/%s/%s", name, slot, filename)
	if f.FailUpload != nil {
		return shot.Shot{}, f.FailUpload
	}
	current, ok := f.shots[name]
	if !ok {
		return shot.Shot{}, shot.Wrap(shot.ErrNotFound, "shot "+name, "upload", "", nil)
	}
	if _, err := io.Copy(io.Discard, content); err != nil {
		return shot.Shot{}, shot.Wrap(shot.ErrRequestFailed, "shot "+name, "upload", "read content", err)
	}
	existing, _ := current.Slot(slot)
	version := existing.Version + 1
	ext := strings.ToLower(path.Ext(filename))
	updated := current.WithSlot(slot, shot.Slot{
		Version: version,
		File:    fmt.Sprintf("%s_v%03d%s", name, version, ext),
	})
	f.shots[name] = updated
	return updated.Clone(), nil
}
