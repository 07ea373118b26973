package api

import (
	"net/url"

	"shotbuddy/internal/shot"
	"shotbuddy/internal/storage"
)

const (
	thumbnailRoute = "/api/thumbnails/"
	referenceRoute = "/api/reference/image/"
)

// ThumbnailURL returns the HTTP path that serves a cached thumbnail.
func ThumbnailURL(name string) string {
	if name == "" {
		return ""
	}
	return thumbnailRoute + url.PathEscape(name)
}

// FromSlot converts a domain slot.
func FromSlot(t shot.SlotType, s shot.Slot) Slot {
	return Slot{
		Label:        t.Label(),
		Version:      s.Version,
		File:         s.File,
		Thumbnail:    s.Thumbnail,
		ThumbnailURL: ThumbnailURL(s.Thumbnail),
		Prompt:       s.Prompt,
	}
}

// ToSlot converts a wire slot back into the domain model.
func ToSlot(s Slot) shot.Slot {
	return shot.Slot{Version: s.Version, File: s.File, Thumbnail: s.Thumbnail, Prompt: s.Prompt}
}

// FromShot converts a domain shot.
func FromShot(s shot.Shot) Shot {
	out := Shot{
		Name:  s.Name,
		Notes: s.Notes,
		Image: FromSlot(shot.SlotImage, s.Image),
		Video: FromSlot(shot.SlotVideo, s.Video),
	}
	if len(s.Lipsync) > 0 {
		out.Lipsync = make(map[string]Slot, len(s.Lipsync))
		for part, slot := range s.Lipsync {
			out.Lipsync[string(part)] = FromSlot(part, slot)
		}
	}
	return out
}

// FromShots converts a slice of domain shots, never returning nil.
func FromShots(shots []shot.Shot) []Shot {
	out := make([]Shot, 0, len(shots))
	for _, s := range shots {
		out = append(out, FromShot(s))
	}
	return out
}

// ToShot converts a wire shot back into the domain model. Unknown lipsync
// parts are dropped.
func ToShot(s Shot) shot.Shot {
	out := shot.Shot{
		Name:  s.Name,
		Notes: s.Notes,
		Image: ToSlot(s.Image),
		Video: ToSlot(s.Video),
	}
	for part, slot := range s.Lipsync {
		t, err := shot.ParseSlotType(part)
		if err != nil || !t.IsLipsync() {
			continue
		}
		out = out.WithSlot(t, ToSlot(slot))
	}
	return out
}

// ToShots converts wire shots back into the domain model.
func ToShots(shots []Shot) []shot.Shot {
	out := make([]shot.Shot, 0, len(shots))
	for _, s := range shots {
		out = append(out, ToShot(s))
	}
	return out
}

// FromSettings converts stored settings.
func FromSettings(s storage.Settings) Settings {
	collapsed := s.CollapsedShots
	if collapsed == nil {
		collapsed = []string{}
	}
	return Settings{ThumbnailClickBehavior: s.ThumbnailClickBehavior, CollapsedShots: collapsed}
}

// ToSettingsUpdate converts a wire update for the store.
func ToSettingsUpdate(u SettingsUpdate) storage.SettingsUpdate {
	return storage.SettingsUpdate{ThumbnailClickBehavior: u.ThumbnailClickBehavior, CollapsedShots: u.CollapsedShots}
}

// FromReference converts a stored reference image.
func FromReference(r storage.Reference) Reference {
	return Reference{
		Filename:     r.Filename,
		Path:         r.Path,
		Thumbnail:    r.Thumbnail,
		ThumbnailURL: ThumbnailURL(r.Thumbnail),
		URL:          referenceRoute + url.PathEscape(r.Filename),
	}
}

// FromReferences converts a slice of references, never returning nil.
func FromReferences(refs []storage.Reference) []Reference {
	out := make([]Reference, 0, len(refs))
	for _, r := range refs {
		out = append(out, FromReference(r))
	}
	return out
}

// NewErrorResponse classifies err for the wire. Nil yields the zero value.
func NewErrorResponse(err error) ErrorResponse {
	if err == nil {
		return ErrorResponse{}
	}
	return ErrorResponse{Kind: shot.Kind(err), Error: err.Error()}
}

// Err rebuilds the error carried by a response.
func (e ErrorResponse) Err() error {
	return shot.FromKind(e.Kind, e.Error)
}
