package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"shotbuddy/internal/api"
	"shotbuddy/internal/daemonctl"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Shotbuddy", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Shotbuddy:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Shotbuddy", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	deps := []api.DependencyStatus{
		{Name: "Tool", Available: false},
		{Name: "FFmpeg", Available: false, Optional: true, Detail: "binary not found", Description: "Extracts video thumbnail frames"},
		{Name: "Other", Available: true, Command: "other"},
	}
	lines := dependencyLines(deps, daemonctl.BuildDependencySummary(deps), false)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[ERROR]") || !strings.Contains(lines[0], "Summary") {
		t.Fatalf("expected summary line first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] not available") {
		t.Fatalf("expected error detail in second line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN] binary not found (optional: Extracts video thumbnail frames)") {
		t.Fatalf("expected optional warning in third line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "[OK] Ready (command: other)") {
		t.Fatalf("expected ready detail in fourth line, got %q", lines[3])
	}
	if !strings.Contains(lines[4], "Missing dependencies:") || !strings.Contains(lines[4], "Tool, FFmpeg") {
		t.Fatalf("expected missing dependencies summary, got %q", lines[4])
	}
}

func TestStatusKindFromSeverity(t *testing.T) {
	tests := map[string]statusKind{
		"ok":    statusOK,
		" WARN": statusWarn,
		"error": statusError,
		"info":  statusInfo,
		"":      statusInfo,
	}
	for severity, want := range tests {
		if got := statusKindFromSeverity(severity); got != want {
			t.Fatalf("statusKindFromSeverity(%q) = %v, want %v", severity, got, want)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Shot", "Image", "Video"}, [][]string{{"001", "v001"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "Shot") || !strings.Contains(out, "001") || !strings.HasSuffix(out, "\n") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
