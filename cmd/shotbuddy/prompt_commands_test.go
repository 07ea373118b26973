package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"shotbuddy/internal/promptbrowser"
	"shotbuddy/internal/shot"
	"shotbuddy/internal/testsupport"
)

func seedImageVersions(t *testing.T, env *cliTestEnv, versions int) {
	t.Helper()
	ctx := context.Background()
	testsupport.MustInsertShots(t, env.store, 1)
	for i := 0; i < versions; i++ {
		png := testsupport.PNG(t, 16, 16, nil)
		if _, err := env.store.UploadAsset(ctx, "001", shot.SlotImage, "frame.png", bytes.NewReader(png)); err != nil {
			t.Fatalf("UploadAsset: %v", err)
		}
	}
}

func storedPrompt(t *testing.T, env *cliTestEnv, version int) string {
	t.Helper()
	text, err := env.store.FetchPrompt(context.Background(), "001", shot.SlotImage, version)
	if err != nil {
		t.Fatalf("FetchPrompt v%d: %v", version, err)
	}
	return text
}

func TestPromptSetCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedImageVersions(t, env, 1)

	out, _, err := runCLI(t, []string{"prompt-set", "001", "image", "1", "a foggy pier"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("prompt-set: %v", err)
	}
	requireContains(t, out, "Saved prompt for shot 001 Image v001")
	if got := storedPrompt(t, env, 1); got != "a foggy pier" {
		t.Fatalf("stored prompt = %q", got)
	}

	if _, _, err := runCLI(t, []string{"prompt-set", "001", "image", "zero", "x"}, env.socketPath, env.configPath); !errors.Is(err, shot.ErrValidation) {
		t.Fatalf("expected validation error for bad version, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"prompt-set", "001", "audio", "1", "x"}, env.socketPath, env.configPath); !errors.Is(err, shot.ErrValidation) {
		t.Fatalf("expected validation error for bad slot, got %v", err)
	}
}

func TestPromptBrowserCopyForwardAndSave(t *testing.T) {
	env := setupCLITestEnv(t)
	seedImageVersions(t, env, 2)
	if _, _, err := runCLI(t, []string{"prompt-set", "001", "image", "1", "a foggy pier"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("prompt-set: %v", err)
	}

	out, _, err := runCLIWithInput(t, []string{"prompt", "001", "image"}, env.socketPath, env.configPath, "versions\ncopy\nsave\n")
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	requireContains(t, out, "Shot 001 Image v002")
	requireContains(t, out, "*v002  v001")
	requireContains(t, out, "Previous version's prompt available (type copy): a foggy pier")
	requireContains(t, out, "Saved prompt for shot 001 Image v002")
	if got := storedPrompt(t, env, 2); got != "a foggy pier" {
		t.Fatalf("v2 prompt = %q", got)
	}
}

func TestPromptBrowserSwitchAutoSavesAndCancelDiscards(t *testing.T) {
	env := setupCLITestEnv(t)
	seedImageVersions(t, env, 2)

	input := "edit\nline one\nline two\n.\nswitch 1\nedit\nunsaved\n.\nbogus\ncancel\n"
	out, _, err := runCLIWithInput(t, []string{"prompt", "001", "image"}, env.socketPath, env.configPath, input)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	requireContains(t, out, "Shot 001 Image v001")
	requireContains(t, out, `unknown command "bogus"`)
	requireContains(t, out, "Closed without saving")

	if got := storedPrompt(t, env, 2); got != "line one\nline two" {
		t.Fatalf("expected auto-saved v2 draft, got %q", got)
	}
	if got := storedPrompt(t, env, 1); got != "" {
		t.Fatalf("cancelled v1 draft must not be stored, got %q", got)
	}
}

func TestPromptBrowserRequiresFile(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.MustInsertShots(t, env.store, 1)
	_, _, err := runCLIWithInput(t, []string{"prompt", "001", "video"}, env.socketPath, env.configPath, "")
	if !errors.Is(err, shot.ErrValidation) {
		t.Fatalf("expected validation error for an empty slot, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"prompt", "404", "image"}, env.socketPath, env.configPath); !errors.Is(err, shot.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPromptAutoSaveFailureReachesStderr(t *testing.T) {
	env := setupCLITestEnv(t)
	socket, configPath := env.socketPath, env.configPath
	c := newCommandContext(&socket, &configPath)
	var stderr bytes.Buffer
	c.stderr = &stderr

	fake := testsupport.NewFakeStore()
	fake.AddShots("001")
	fake.SetPrompt("001", shot.SlotImage, 2, "second")
	fake.SetPrompt("001", shot.SlotImage, 1, "first")
	fake.FailSave = shot.FromKind(shot.KindRequestFailed, "disk full")

	b := promptbrowser.New(fake, nil, c.cliLogger())
	ctx := context.Background()
	if _, err := b.Open(ctx, "001", shot.SlotImage, 2); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := b.SetDraft("second, edited"); err != nil {
		t.Fatalf("SetDraft: %v", err)
	}
	if _, err := b.SwitchVersion(ctx, 1); err != nil {
		t.Fatalf("SwitchVersion: %v", err)
	}
	b.Wait()

	requireContains(t, stderr.String(), "prompt auto-save failed")
	requireContains(t, stderr.String(), "disk full")
}
