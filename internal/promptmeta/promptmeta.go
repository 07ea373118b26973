package promptmeta

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Source names the generator layout a prompt was read from.
type Source string

const (
	SourceA1111   Source = "a1111"
	SourceComfyUI Source = "comfyui"
)

// Prompt is a positive/negative pair recovered from image metadata.
type Prompt struct {
	Positive string
	Negative string
	Source   Source
}

// Text renders the prompt the way the board stores it: the positive text,
// followed by the negative on its own line when present.
func (p Prompt) Text() string {
	if p.Negative == "" {
		return p.Positive
	}
	return p.Positive + "\nNegative prompt: " + p.Negative
}

// FromFile extracts a prompt from a PNG on disk. Non-PNG files and images
// without recognisable metadata return ok=false and no error.
func FromFile(path string) (Prompt, bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".png") {
		return Prompt{}, false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Prompt{}, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	chunks, err := TextChunks(f)
	if err != nil {
		if errors.Is(err, ErrNotPNG) {
			return Prompt{}, false, nil
		}
		if len(chunks) == 0 {
			return Prompt{}, false, fmt.Errorf("read png metadata: %w", err)
		}
	}
	p, ok := FromChunks(chunks)
	return p, ok, nil
}

// FromChunks picks the generator layout present in a set of text chunks.
func FromChunks(chunks map[string]string) (Prompt, bool) {
	if len(chunks) == 0 {
		return Prompt{}, false
	}
	if params, ok := chunks["parameters"]; ok {
		return ParseA1111(params)
	}
	_, hasPrompt := chunks["prompt"]
	_, hasWorkflow := chunks["workflow"]
	if !hasPrompt && !hasWorkflow {
		return Prompt{}, false
	}
	for _, key := range []string{"prompt", "workflow"} {
		raw, ok := chunks[key]
		if !ok {
			continue
		}
		var graph map[string]any
		if err := json.Unmarshal([]byte(raw), &graph); err != nil {
			continue
		}
		return ParseComfyUI(graph)
	}
	return Prompt{}, false
}

// ParseA1111 reads an Automatic1111 "parameters" block.
func ParseA1111(text string) (Prompt, bool) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return Prompt{}, false
	}
	p := Prompt{Positive: lines[0], Source: SourceA1111}
	const negPrefix = "negative prompt:"
	for _, line := range lines[1:] {
		if strings.HasPrefix(strings.ToLower(line), negPrefix) {
			p.Negative = strings.TrimSpace(line[len(negPrefix):])
			break
		}
	}
	return p, true
}

var textEncoders = map[string]bool{
	"CLIPTextEncode":     true,
	"CLIPTextEncodeSDXL": true,
}

// ParseComfyUI walks a ComfyUI graph. The first encoder's first string widget
// is the positive prompt and the first second-position string is the negative.
func ParseComfyUI(graph map[string]any) (Prompt, bool) {
	var nodes any = graph
	if v, ok := graph["nodes"]; ok && truthy(v) {
		nodes = v
	} else if v, ok := graph["workflow"]; ok && truthy(v) {
		nodes = v
	}

	var positive, negative *string
	visit := func(node map[string]any) {
		class, _ := node["class_type"].(string)
		if !textEncoders[class] {
			return
		}
		widgets, ok := node["widgets_values"].([]any)
		if !ok || len(widgets) == 0 {
			return
		}
		if positive == nil {
			if s, ok := widgets[0].(string); ok {
				positive = &s
			}
		}
		if len(widgets) > 1 && negative == nil {
			if s, ok := widgets[1].(string); ok {
				negative = &s
			}
		}
	}

	switch typed := nodes.(type) {
	case []any:
		for _, n := range typed {
			if node, ok := n.(map[string]any); ok {
				visit(node)
			}
		}
	case map[string]any:
		for _, key := range sortedNodeKeys(typed) {
			if node, ok := typed[key].(map[string]any); ok {
				visit(node)
			}
		}
	}

	if positive == nil || *positive == "" {
		return Prompt{}, false
	}
	p := Prompt{Positive: *positive, Source: SourceComfyUI}
	if negative != nil {
		p.Negative = *negative
	}
	return p, true
}

// sortedNodeKeys orders graph ids numerically when they are numbers so the
// walk is deterministic.
func sortedNodeKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

func truthy(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case []any:
		return len(typed) > 0
	case map[string]any:
		return len(typed) > 0
	case string:
		return typed != ""
	}
	return true
}
