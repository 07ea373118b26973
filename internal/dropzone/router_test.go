package dropzone_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"shotbuddy/internal/dropzone"
	"shotbuddy/internal/logging"
	"shotbuddy/internal/sequence"
	"shotbuddy/internal/shot"
	"shotbuddy/internal/testsupport"
)

func newRouter(t *testing.T, names ...string) (*dropzone.Router, *sequence.Manager, *testsupport.FakeStore) {
	t.Helper()
	store := testsupport.NewFakeStore()
	store.AddShots(names...)
	mgr := sequence.NewManager(store, logging.NewNop())
	if err := mgr.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return dropzone.NewRouter(mgr, store, logging.NewNop()), mgr, store
}

func TestDropAtInsertionPointCreatesThenUploads(t *testing.T) {
	router, mgr, store := newRouter(t, "001", "002")
	res, err := router.DropAtInsertionPoint(context.Background(), "001", "/tmp/take.mp4", strings.NewReader("video"))
	if err != nil {
		t.Fatalf("DropAtInsertionPoint: %v", err)
	}
	if !res.Created || !res.Uploaded || res.Notice != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Shot.Name != "003" || res.Shot.Video.Version != 1 || res.Shot.Video.File != "003_v001.mp4" {
		t.Fatalf("unexpected shot %+v", res.Shot)
	}
	if got := mgr.Names(); !reflect.DeepEqual(got, []string{"001", "003", "002"}) {
		t.Fatalf("sequence = %v", got)
	}
	mirrored, _ := mgr.Find("003")
	if mirrored.Video.Version != 1 {
		t.Fatalf("upload response not mirrored: %+v", mirrored)
	}
	want := []string{"list", "insert:001", "upload:003/video/take.mp4"}
	if got := store.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
}

func TestDropAtInsertionPointUnsupportedKeepsShot(t *testing.T) {
	router, mgr, store := newRouter(t, "001")
	res, err := router.DropAtInsertionPoint(context.Background(), "", "script.pdf", strings.NewReader("pdf"))
	if err != nil {
		t.Fatalf("DropAtInsertionPoint: %v", err)
	}
	if !res.Created || res.Uploaded {
		t.Fatalf("expected created-only result, got %+v", res)
	}
	if !errors.Is(res.Notice, shot.ErrValidation) {
		t.Fatalf("expected validation notice, got %v", res.Notice)
	}
	if got := mgr.Names(); !reflect.DeepEqual(got, []string{"002", "001"}) {
		t.Fatalf("sequence = %v", got)
	}
	for _, call := range store.Calls() {
		if strings.HasPrefix(call, "upload:") {
			t.Fatalf("unexpected upload: %v", store.Calls())
		}
	}
}

func TestDropAtInsertionPointCapacity(t *testing.T) {
	router, mgr, store := newRouter(t, "001")
	store.SetMaxShots(1)
	_, err := router.DropAtInsertionPoint(context.Background(), "001", "frame.png", strings.NewReader("png"))
	if !errors.Is(err, shot.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if mgr.Len() != 1 {
		t.Fatalf("sequence changed: %v", mgr.Names())
	}
}

func TestDropOnSlot(t *testing.T) {
	router, mgr, _ := newRouter(t, "001")
	res, err := router.DropOnSlot(context.Background(), "001", shot.SlotImage, "frame.PNG", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("DropOnSlot: %v", err)
	}
	if res.Created || !res.Uploaded || res.Shot.Image.Version != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	res, err = router.DropOnSlot(context.Background(), "001", shot.SlotImage, "frame2.jpg", strings.NewReader("jpg"))
	if err != nil {
		t.Fatalf("second DropOnSlot: %v", err)
	}
	if res.Shot.Image.Version != 2 {
		t.Fatalf("expected version 2, got %d", res.Shot.Image.Version)
	}
	got, _ := mgr.Find("001")
	if got.Image.File != "001_v002.jpg" {
		t.Fatalf("mirror not updated: %+v", got.Image)
	}
}

func TestDropOnSlotRejectsBeforeMutation(t *testing.T) {
	tests := []struct {
		name     string
		shotName string
		slot     shot.SlotType
		file     string
		marker   error
	}{
		{name: "unsupported", shotName: "001", slot: shot.SlotImage, file: "notes.txt", marker: shot.ErrValidation},
		{name: "mismatch", shotName: "001", slot: shot.SlotImage, file: "take.mp4", marker: shot.ErrValidation},
		{name: "result needs video", shotName: "001", slot: shot.SlotResult, file: "frame.png", marker: shot.ErrValidation},
		{name: "missing shot", shotName: "050", slot: shot.SlotVideo, file: "take.mp4", marker: shot.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, _, store := newRouter(t, "001")
			_, err := router.DropOnSlot(context.Background(), tc.shotName, tc.slot, tc.file, strings.NewReader("x"))
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected %v, got %v", tc.marker, err)
			}
			if got := store.Calls(); !reflect.DeepEqual(got, []string{"list"}) {
				t.Fatalf("expected no collaborator mutation, got %v", got)
			}
		})
	}
}

func TestDropOnSlotUploadFailure(t *testing.T) {
	router, mgr, store := newRouter(t, "001")
	store.FailUpload = errors.New("disk full")
	_, err := router.DropOnSlot(context.Background(), "001", shot.SlotVideo, "take.mov", strings.NewReader("x"))
	if !errors.Is(err, shot.ErrRequestFailed) {
		t.Fatalf("expected request failed, got %v", err)
	}
	got, _ := mgr.Find("001")
	if got.Video.HasFile() {
		t.Fatal("failed upload must not change the mirror")
	}
}

func TestDropOnLipsyncPart(t *testing.T) {
	router, _, _ := newRouter(t, "001")
	res, err := router.DropOnSlot(context.Background(), "001", shot.SlotDriver, "voice.mp4", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("DropOnSlot: %v", err)
	}
	if slot, ok := res.Shot.Slot(shot.SlotDriver); !ok || slot.Version != 1 {
		t.Fatalf("expected driver v1, got %+v", res.Shot.Lipsync)
	}
}
