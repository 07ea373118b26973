package shot_test

import (
	"errors"
	"strings"
	"testing"

	"shotbuddy/internal/shot"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "001", want: "001"},
		{in: " 7 ", want: "007"},
		{in: "42", want: "042"},
		{in: "999", want: "999"},
		{in: "0", wantErr: true},
		{in: "000", wantErr: true},
		{in: "1000", wantErr: true},
		{in: "sh01", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "-1", wantErr: true},
	}
	for _, tc := range tests {
		got, err := shot.NormalizeName(tc.in)
		if tc.wantErr {
			if !errors.Is(err, shot.ErrValidation) {
				t.Fatalf("NormalizeName(%q) expected validation error, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizeName(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseNameRequiresThreeDigits(t *testing.T) {
	if n, err := shot.ParseName("010"); err != nil || n != 10 {
		t.Fatalf("ParseName(010) = %d, %v", n, err)
	}
	for _, bad := range []string{"10", "0010", "abc", "000", "+12", "-01", " 12", "1e2"} {
		if _, err := shot.ParseName(bad); !errors.Is(err, shot.ErrValidation) {
			t.Fatalf("ParseName(%q) expected validation error, got %v", bad, err)
		}
	}
}

func TestSlotAccessors(t *testing.T) {
	s := shot.Shot{Name: "001", Image: shot.Slot{Version: 2, File: "001_v002.png"}}
	if !s.Image.HasFile() || s.Video.HasFile() {
		t.Fatalf("unexpected HasFile results: image=%v video=%v", s.Image.HasFile(), s.Video.HasFile())
	}
	if _, ok := s.Slot(shot.SlotDriver); ok {
		t.Fatal("expected absent lipsync slot")
	}

	updated := s.WithSlot(shot.SlotDriver, shot.Slot{Version: 1})
	if _, ok := s.Slot(shot.SlotDriver); ok {
		t.Fatal("WithSlot must not mutate the receiver")
	}
	if slot, ok := updated.Slot(shot.SlotDriver); !ok || slot.Version != 1 {
		t.Fatalf("expected driver slot v1, got %+v ok=%v", slot, ok)
	}
	if updated.Image.Version != 2 {
		t.Fatalf("expected image slot preserved, got %+v", updated.Image)
	}
}

func TestParseSlotType(t *testing.T) {
	got, err := shot.ParseSlotType(" Video ")
	if err != nil || got != shot.SlotVideo {
		t.Fatalf("ParseSlotType = %q, %v", got, err)
	}
	if got.Label() != "Video" {
		t.Fatalf("Label = %q", got.Label())
	}
	if !shot.SlotResult.IsLipsync() || shot.SlotImage.IsLipsync() {
		t.Fatal("unexpected IsLipsync classification")
	}
	if _, err := shot.ParseSlotType("audio"); !errors.Is(err, shot.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("disk full")
	err := shot.Wrap(shot.ErrRequestFailed, "shot 004", "upload", "write failed", base)
	if !errors.Is(err, shot.ErrRequestFailed) || !errors.Is(err, base) {
		t.Fatalf("expected marker and base to be retained, got %v", err)
	}
	for _, fragment := range []string{"shot 004", "upload", "write failed"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %q", fragment, err.Error())
		}
	}
}

func TestKindRoundTrip(t *testing.T) {
	markers := []error{
		shot.ErrCapacityExceeded,
		shot.ErrRenameFailed,
		shot.ErrValidation,
		shot.ErrNotFound,
		shot.ErrRequestFailed,
	}
	for _, marker := range markers {
		err := shot.Wrap(marker, "shot", "op", "detail", nil)
		rebuilt := shot.FromKind(shot.Kind(err), err.Error())
		if !errors.Is(rebuilt, marker) {
			t.Fatalf("kind %q did not rebuild %v", shot.Kind(err), marker)
		}
		if rebuilt.Error() != err.Error() {
			t.Fatalf("message changed: %q vs %q", rebuilt.Error(), err.Error())
		}
	}
	if shot.FromKind("", "") != nil {
		t.Fatal("expected nil for empty kind")
	}
	if shot.Kind(errors.New("other")) != shot.KindRequestFailed {
		t.Fatal("unknown errors should map to request_failed")
	}
}
