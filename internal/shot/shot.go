package shot

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxShots is the numeric-name exhaustion ceiling for a sequence.
const MaxShots = 999

// SlotType names one of a shot's media holders.
type SlotType string

const (
	SlotImage SlotType = "image"
	SlotVideo SlotType = "video"

	// Lipsync sub-slots. They are only present when the storage collaborator
	// reports them and share the regular slot semantics.
	SlotDriver SlotType = "driver"
	SlotTarget SlotType = "target"
	SlotResult SlotType = "result"
)

// LipsyncParts lists the lipsync sub-slots in display order.
var LipsyncParts = []SlotType{SlotDriver, SlotTarget, SlotResult}

var titleCaser = cases.Title(language.English)

// ParseSlotType validates a slot type string.
func ParseSlotType(value string) (SlotType, error) {
	t := SlotType(strings.ToLower(strings.TrimSpace(value)))
	switch t {
	case SlotImage, SlotVideo, SlotDriver, SlotTarget, SlotResult:
		return t, nil
	}
	return "", Wrap(ErrValidation, "slot", "parse", fmt.Sprintf("unknown slot type %q", value), nil)
}

// IsLipsync reports whether the slot is a lipsync sub-slot.
func (t SlotType) IsLipsync() bool {
	switch t {
	case SlotDriver, SlotTarget, SlotResult:
		return true
	}
	return false
}

// Label returns the human readable slot name ("Image", "Video", ...).
func (t SlotType) Label() string {
	return titleCaser.String(string(t))
}

func (t SlotType) String() string { return string(t) }

// Slot holds the current revision of one media type for a shot.
type Slot struct {
	Version   int    `json:"version" yaml:"version"`
	File      string `json:"file,omitempty" yaml:"file,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Prompt    string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// HasFile reports whether the slot has at least one uploaded version.
func (s Slot) HasFile() bool {
	return s.Version > 0
}

// Shot is one row of the board.
type Shot struct {
	Name    string            `json:"name" yaml:"name"`
	Notes   string            `json:"notes" yaml:"notes"`
	Image   Slot              `json:"image" yaml:"image"`
	Video   Slot              `json:"video" yaml:"video"`
	Lipsync map[SlotType]Slot `json:"lipsync,omitempty" yaml:"lipsync,omitempty"`
}

// Slot returns the slot of the given type. Unknown or absent lipsync parts
// return an empty slot and false.
func (s Shot) Slot(t SlotType) (Slot, bool) {
	switch t {
	case SlotImage:
		return s.Image, true
	case SlotVideo:
		return s.Video, true
	}
	if !t.IsLipsync() || s.Lipsync == nil {
		return Slot{}, false
	}
	slot, ok := s.Lipsync[t]
	return slot, ok
}

// WithSlot returns a copy of the shot with one slot replaced.
func (s Shot) WithSlot(t SlotType, slot Slot) Shot {
	out := s.Clone()
	switch {
	case t == SlotImage:
		out.Image = slot
	case t == SlotVideo:
		out.Video = slot
	case t.IsLipsync():
		if out.Lipsync == nil {
			out.Lipsync = make(map[SlotType]Slot, len(LipsyncParts))
		}
		out.Lipsync[t] = slot
	}
	return out
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (s Shot) Clone() Shot {
	out := s
	if s.Lipsync != nil {
		out.Lipsync = make(map[SlotType]Slot, len(s.Lipsync))
		for k, v := range s.Lipsync {
			out.Lipsync[k] = v
		}
	}
	return out
}

// FormatName renders a shot number as its three digit name.
func FormatName(n int) string {
	return fmt.Sprintf("%03d", n)
}

// ParseName returns the numeric value of a well-formed shot name.
func ParseName(name string) (int, error) {
	if len(name) != 3 {
		return 0, Wrap(ErrValidation, "shot name", "parse", fmt.Sprintf("%q is not a three digit name", name), nil)
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, Wrap(ErrValidation, "shot name", "parse", fmt.Sprintf("%q is not a three digit name", name), nil)
		}
	}
	n, err := strconv.Atoi(name)
	if err != nil || n < 1 || n > MaxShots {
		return 0, Wrap(ErrValidation, "shot name", "parse", fmt.Sprintf("%q must be between 001 and %03d", name, MaxShots), nil)
	}
	return n, nil
}

// NormalizeName trims user input and pads bare numerals ("7" -> "007").
func NormalizeName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", Wrap(ErrValidation, "shot name", "normalize", "name is empty", nil)
	}
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return "", Wrap(ErrValidation, "shot name", "normalize", fmt.Sprintf("%q must contain digits only", trimmed), nil)
		}
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 1 || n > MaxShots {
		return "", Wrap(ErrValidation, "shot name", "normalize", fmt.Sprintf("%q must be between 1 and %d", trimmed, MaxShots), nil)
	}
	return FormatName(n), nil
}

// FormatVersion renders a version badge ("v003").
func FormatVersion(v int) string {
	return fmt.Sprintf("v%03d", v)
}
