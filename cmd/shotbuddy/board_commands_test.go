package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shotbuddy/internal/api"
	"shotbuddy/internal/shot"
	"shotbuddy/internal/testsupport"
)

func TestNewInsertsAfterNamedShot(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"shots"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("shots: %v", err)
	}
	requireContains(t, out, "No shots yet")

	for _, args := range [][]string{{"new"}, {"new", "--after", "001"}} {
		if _, _, err := runCLI(t, args, env.socketPath, env.configPath); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}
	out, _, err = runCLI(t, []string{"new", "--after", "001"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("new --after 001: %v", err)
	}
	requireContains(t, out, "Created shot 003 (position 2 of 3)")

	out, _, err = runCLI(t, []string{"shots"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("shots: %v", err)
	}
	first, middle, last := strings.Index(out, "001"), strings.Index(out, "003"), strings.Index(out, "002")
	if first < 0 || !(first < middle && middle < last) {
		t.Fatalf("expected display order 001, 003, 002:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"points"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	requireContains(t, out, "(start)")
	requireContains(t, out, "(end)")
}

func TestRenameAndNotes(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.MustInsertShots(t, env.store, 2)

	out, _, err := runCLI(t, []string{"rename", "002", "10"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	requireContains(t, out, "Renamed shot 002 to 010")

	if _, _, err := runCLI(t, []string{"rename", "001", "010"}, env.socketPath, env.configPath); !errors.Is(err, shot.ErrRenameFailed) {
		t.Fatalf("expected rename failure for a taken name, got %v", err)
	}

	if _, _, err := runCLI(t, []string{"notes", "001", "wide establishing shot"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("notes: %v", err)
	}
	out, _, err = runCLI(t, []string{"shots", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("shots --json: %v", err)
	}
	var shots []api.Shot
	if err := json.Unmarshal([]byte(out), &shots); err != nil {
		t.Fatalf("decode shots: %v\n%s", err, out)
	}
	if len(shots) != 2 || shots[0].Notes != "wide establishing shot" || shots[1].Name != "010" {
		t.Fatalf("unexpected shots %+v", shots)
	}
}

func TestNewReportsCapacity(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMaxShots(1))
	if _, _, err := runCLI(t, []string{"new"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("first new: %v", err)
	}
	_, _, err := runCLI(t, []string{"new"}, env.socketPath, env.configPath)
	if !errors.Is(err, shot.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestDropCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	frame := filepath.Join(dir, "frame.png")
	testsupport.WritePNG(t, frame, 32, 16, map[string]string{"parameters": "a lighthouse at dusk\nSteps: 20"})

	out, _, err := runCLI(t, []string{"drop", frame, "--after", ""}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("drop at start: %v", err)
	}
	requireContains(t, out, "Created shot 001")
	requireContains(t, out, "Uploaded frame.png to shot 001 Image v001")
	requireContains(t, out, "Imported prompt: a lighthouse at dusk")

	out, _, err = runCLI(t, []string{"drop", frame, "--shot", "001"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("drop on shot: %v", err)
	}
	requireContains(t, out, "Image v002")

	take := filepath.Join(dir, "take.mp4")
	testsupport.WriteFile(t, take, 64)
	if _, _, err := runCLI(t, []string{"drop", take, "--shot", "001", "--slot", "image"}, env.socketPath, env.configPath); !errors.Is(err, shot.ErrValidation) {
		t.Fatalf("expected validation error for mismatched slot, got %v", err)
	}

	script := filepath.Join(dir, "script.pdf")
	testsupport.WriteFile(t, script, 16)
	out, stderr, err := runCLI(t, []string{"drop", script, "--after", "001"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("drop unsupported at point: %v", err)
	}
	requireContains(t, out, "Created shot 002")
	requireContains(t, stderr, "unsupported file type")

	if _, _, err := runCLI(t, []string{"drop", frame, "--after", "001", "--shot", "001"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error when both --after and --shot are given")
	}
}

func TestExportCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.MustInsertShots(t, env.store, 1)

	out, _, err := runCLI(t, []string{"export"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "shots:")
	requireContains(t, out, "001")

	target := filepath.Join(t.TempDir(), "board.json")
	if _, _, err := runCLI(t, []string{"export", "--format", "json", "-o", target}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("export json: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var doc api.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil || len(doc.Shots) != 1 {
		t.Fatalf("unexpected export %s (%v)", data, err)
	}

	bad := filepath.Join(t.TempDir(), "board.xml")
	if _, _, err := runCLI(t, []string{"export", "--format", "xml", "-o", bad}, env.socketPath, env.configPath); !errors.Is(err, shot.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Fatal("failed export must not leave a file behind")
	}
}

func TestRefsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"refs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("refs: %v", err)
	}
	requireContains(t, out, "No reference images")

	png := testsupport.PNG(t, 16, 16, nil)
	if _, err := env.store.SaveReference(t.Context(), "palette.png", strings.NewReader(string(png))); err != nil {
		t.Fatalf("SaveReference: %v", err)
	}
	out, _, err = runCLI(t, []string{"refs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("refs: %v", err)
	}
	requireContains(t, out, "palette.png")
}

func TestBoardCommandsWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "missing.sock")
	_, _, err := runCLI(t, []string{"shots"}, missing, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "shotbuddy start") {
		t.Fatalf("expected start hint, got %v", err)
	}
}
