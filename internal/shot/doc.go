// Package shot defines the board's entity model: shots, their typed media
// slots, and the error taxonomy shared by the core and its storage
// collaborator.
//
// A Shot is identified by a three digit name ("001".."999") that is unique
// within a project. Display order is owned by the sequence, not by the name,
// so two adjacent shots may carry non-monotonic names after a positional
// insert. Each slot carries a version counter that only the storage
// collaborator assigns; version 0 means the slot is empty.
//
// Errors crossing package or process boundaries are built from the sentinel
// markers in errors.go so callers can branch with errors.Is regardless of the
// transport that produced them.
package shot
