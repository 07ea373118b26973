// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates board models into transport-friendly DTOs so the
// web board, the CLI and scripts can render shots without coupling to the
// internal types.
//
// # Key Types
//
// Shot/Slot: a board row and its media slots. Thumbnail carries the cache
// file name and ThumbnailURL the HTTP path that serves it.
//
// DaemonStatus: daemon running state, project details and dependencies.
//
// ErrorResponse: {kind, error} pair used by both transports so clients can
// rebuild sentinel errors with shot.FromKind.
//
// # Service
//
// BoardService wraps the storage collaborator and returns DTOs. Both the
// JSON-RPC server and the HTTP handlers call it, so the two transports
// always agree on payloads and error kinds.
package api
