// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Board
// failures travel inside responses as an api.ErrorResponse so the client can
// rebuild the shot error markers; only transport problems surface as RPC
// errors. The client satisfies the sequence, prompt browser and drop zone
// collaborator interfaces, so the CLI drives the same core types the tests do.
package ipc
