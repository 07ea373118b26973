package promptmeta_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"shotbuddy/internal/promptmeta"
	"shotbuddy/internal/testsupport"
)

func TestParseA1111(t *testing.T) {
	text := "a lighthouse at dusk, film grain\n\nNegative prompt: blurry, lowres\nSteps: 30, Sampler: Euler a"
	p, ok := promptmeta.ParseA1111(text)
	if !ok {
		t.Fatal("expected prompt")
	}
	if p.Positive != "a lighthouse at dusk, film grain" || p.Negative != "blurry, lowres" {
		t.Fatalf("unexpected prompt %+v", p)
	}
	if p.Source != promptmeta.SourceA1111 {
		t.Fatalf("source = %q", p.Source)
	}
	if _, ok := promptmeta.ParseA1111(" \n\n "); ok {
		t.Fatal("blank parameters must not yield a prompt")
	}
}

func TestParseComfyUIWorkflowNodes(t *testing.T) {
	raw := `{"nodes":[
		{"class_type":"KSampler","widgets_values":[42]},
		{"class_type":"CLIPTextEncodeSDXL","widgets_values":["neon alley","washed out"]},
		{"class_type":"CLIPTextEncode","widgets_values":["ignored","also ignored"]}
	]}`
	var graph map[string]any
	if err := json.Unmarshal([]byte(raw), &graph); err != nil {
		t.Fatal(err)
	}
	p, ok := promptmeta.ParseComfyUI(graph)
	if !ok || p.Positive != "neon alley" || p.Negative != "washed out" {
		t.Fatalf("unexpected prompt %+v ok=%v", p, ok)
	}
}

func TestParseComfyUIPromptMapIsDeterministic(t *testing.T) {
	raw := `{
		"10":{"class_type":"CLIPTextEncode","widgets_values":["second"]},
		"2":{"class_type":"CLIPTextEncode","widgets_values":["first"]}
	}`
	var graph map[string]any
	if err := json.Unmarshal([]byte(raw), &graph); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		p, ok := promptmeta.ParseComfyUI(graph)
		if !ok || p.Positive != "first" || p.Negative != "" {
			t.Fatalf("unexpected prompt %+v", p)
		}
	}
}

func TestFromFileReadsTextChunks(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		text map[string]string
		want string
		ok   bool
	}{
		{
			name: "a1111",
			text: map[string]string{"parameters": "red door\nNegative prompt: people"},
			want: "red door\nNegative prompt: people",
			ok:   true,
		},
		{
			name: "comfyui",
			text: map[string]string{"prompt": `{"3":{"class_type":"CLIPTextEncode","widgets_values":["foggy pier"]}}`},
			want: "foggy pier",
			ok:   true,
		},
		{
			name: "unrelated",
			text: map[string]string{"Software": "gimp"},
		},
		{
			name: "none",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".png")
			testsupport.WritePNG(t, path, 8, 4, tc.text)
			p, ok, err := promptmeta.FromFile(path)
			if err != nil {
				t.Fatalf("FromFile: %v", err)
			}
			if ok != tc.ok || p.Text() != tc.want {
				t.Fatalf("got %q ok=%v, want %q ok=%v", p.Text(), ok, tc.want, tc.ok)
			}
		})
	}
}

func TestFromFileIgnoresNonPNG(t *testing.T) {
	dir := t.TempDir()
	jpg := filepath.Join(dir, "still.jpg")
	testsupport.WriteFile(t, jpg, 16)
	if _, ok, err := promptmeta.FromFile(jpg); ok || err != nil {
		t.Fatalf("expected silent skip, got ok=%v err=%v", ok, err)
	}
	fake := filepath.Join(dir, "fake.png")
	testsupport.WriteFile(t, fake, 16)
	if _, ok, err := promptmeta.FromFile(fake); ok || err != nil {
		t.Fatalf("expected silent skip for bad signature, got ok=%v err=%v", ok, err)
	}
}

func TestTextChunksRejectsNonPNG(t *testing.T) {
	_, err := promptmeta.TextChunks(strings.NewReader("GIF89a"))
	if !errors.Is(err, promptmeta.ErrNotPNG) {
		t.Fatalf("expected ErrNotPNG, got %v", err)
	}
	chunks, err := promptmeta.TextChunks(bytes.NewReader(testsupport.PNG(t, 2, 2, map[string]string{"a": "1", "b": "caf\xe9"})))
	if err != nil {
		t.Fatalf("TextChunks: %v", err)
	}
	if chunks["a"] != "1" || chunks["b"] != "café" {
		t.Fatalf("unexpected chunks %v", chunks)
	}
}
