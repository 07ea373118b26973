// Package main hosts the shotbuddy CLI entrypoint and command graph.
//
// Board commands talk to the running daemon over its IPC socket and drive the
// same sequence, drop-zone and prompt browser types the daemon's HTTP clients
// see. Daemon control, status and configuration scaffolding live alongside.
package main
