// Package logging assembles structured slog loggers and formatting helpers used
// across Shotbuddy.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request handlers can tag log
// lines with correlation and prompt-session IDs. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits the same field names (component, shot, slot, version).
package logging
