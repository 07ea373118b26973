// Package logs reads the daemon's log file for the CLI: the last N lines, and
// a follow mode that polls for appended lines until the context ends.
package logs
