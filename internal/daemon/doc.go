// Package daemon coordinates the long-running Shotbuddy process.
//
// It wires configuration, the project store and the HTTP API into a single
// lifecycle with flock-based locking to prevent two daemons from sharing a
// state directory. On start it refreshes stale thumbnails in the background
// and reports dependency health through Status.
//
// Keep orchestration here: board semantics live in storage and api while the
// daemon focuses on startup, shutdown and the HTTP surface.
package daemon
