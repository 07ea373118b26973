package shot

import (
	"path/filepath"
	"strings"
)

var extensionSlots = map[string]SlotType{
	".jpg":  SlotImage,
	".jpeg": SlotImage,
	".png":  SlotImage,
	".webp": SlotImage,
	".mp4":  SlotVideo,
	".mov":  SlotVideo,
}

var extensionOrder = []string{".jpg", ".jpeg", ".png", ".webp", ".mp4", ".mov"}

// ClassifyFile maps a filename to the media kind its extension belongs to:
// SlotImage or SlotVideo.
func ClassifyFile(filename string) (SlotType, bool) {
	kind, ok := extensionSlots[strings.ToLower(filepath.Ext(filename))]
	return kind, ok
}

// SupportedExtensions lists accepted extensions for a media kind.
func SupportedExtensions(kind SlotType) []string {
	var out []string
	for _, ext := range extensionOrder {
		if extensionSlots[ext] == kind {
			out = append(out, ext)
		}
	}
	return out
}

// Accepts reports whether a classified file fits the slot. Lipsync driver and
// target parts take either media kind; the result part is always video.
func Accepts(slot, kind SlotType) bool {
	switch slot {
	case SlotImage, SlotVideo:
		return slot == kind
	case SlotResult:
		return kind == SlotVideo
	case SlotDriver, SlotTarget:
		return true
	}
	return false
}
