// Package storage is the board's storage collaborator: a project directory
// holding versioned media files in the established on-disk layout plus a
// SQLite database for ordering, version rows, prompts, notes and settings.
//
// The database lives at <project>/.shotbuddy/board.db. Schema changes bump
// schemaVersion, kept in PRAGMA user_version; an outdated database is rejected
// with ErrSchemaMismatch and rebuilt from disk after it is removed. Every mutating operation that
// touches both the filesystem and the database holds the store mutex, and
// SQLite busy errors are retried with a short backoff.
package storage
