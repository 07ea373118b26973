package shot_test

import (
	"reflect"
	"testing"

	"shotbuddy/internal/shot"
)

func TestClassifyFile(t *testing.T) {
	tests := map[string]struct {
		kind shot.SlotType
		ok   bool
	}{
		"still.JPG":      {shot.SlotImage, true},
		"still.jpeg":     {shot.SlotImage, true},
		"frame.png":      {shot.SlotImage, true},
		"frame.WebP":     {shot.SlotImage, true},
		"take.mp4":       {shot.SlotVideo, true},
		"take.MOV":       {shot.SlotVideo, true},
		"notes.txt":      {"", false},
		"noext":          {"", false},
		"archive.mp4.7z": {"", false},
	}
	for name, want := range tests {
		kind, ok := shot.ClassifyFile(name)
		if kind != want.kind || ok != want.ok {
			t.Fatalf("ClassifyFile(%q) = %q,%v want %q,%v", name, kind, ok, want.kind, want.ok)
		}
	}
	if got := shot.SupportedExtensions(shot.SlotVideo); !reflect.DeepEqual(got, []string{".mp4", ".mov"}) {
		t.Fatalf("video extensions = %v", got)
	}
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		slot, kind shot.SlotType
		want       bool
	}{
		{shot.SlotImage, shot.SlotImage, true},
		{shot.SlotImage, shot.SlotVideo, false},
		{shot.SlotVideo, shot.SlotImage, false},
		{shot.SlotResult, shot.SlotVideo, true},
		{shot.SlotResult, shot.SlotImage, false},
		{shot.SlotDriver, shot.SlotImage, true},
		{shot.SlotTarget, shot.SlotVideo, true},
	}
	for _, tc := range tests {
		if got := shot.Accepts(tc.slot, tc.kind); got != tc.want {
			t.Fatalf("Accepts(%s, %s) = %v, want %v", tc.slot, tc.kind, got, tc.want)
		}
	}
}
