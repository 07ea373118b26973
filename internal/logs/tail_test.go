package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"shotbuddy/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shotbuddy.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestLast(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")
	tests := []struct {
		n    int
		want []string
	}{
		{n: 2, want: []string{"b", "c"}},
		{n: 10, want: []string{"a", "b", "c"}},
		{n: 0, want: nil},
	}
	for _, tc := range tests {
		chunk, err := logs.Last(path, tc.n)
		if err != nil {
			t.Fatalf("Last(%d): %v", tc.n, err)
		}
		if !reflect.DeepEqual(chunk.Lines, tc.want) {
			t.Fatalf("Last(%d) = %#v, want %#v", tc.n, chunk.Lines, tc.want)
		}
		if chunk.Offset != 6 {
			t.Fatalf("Last(%d) offset = %d, want 6", tc.n, chunk.Offset)
		}
	}
}

func TestLastMissingFile(t *testing.T) {
	chunk, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(chunk.Lines) != 0 || chunk.Offset != 0 {
		t.Fatalf("expected empty chunk, got %+v", chunk)
	}
}

func TestFromLeavesPartialLine(t *testing.T) {
	path := writeLog(t, "one\ntwo\r\nthr")
	chunk, err := logs.From(path, 0)
	if err != nil {
		t.Fatalf("From: %v", err)
	}
	if !reflect.DeepEqual(chunk.Lines, []string{"one", "two"}) {
		t.Fatalf("lines = %#v", chunk.Lines)
	}
	if chunk.Offset != 9 {
		t.Fatalf("offset = %d, want 9", chunk.Offset)
	}

	chunk, err = logs.From(path, 100)
	if err != nil {
		t.Fatalf("From past end: %v", err)
	}
	if len(chunk.Lines) != 2 {
		t.Fatalf("expected restart after truncation, got %#v", chunk.Lines)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	start, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, start.Offset, 20*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(got, []string{"later"}) {
		t.Fatalf("followed lines = %#v", got)
	}
}
