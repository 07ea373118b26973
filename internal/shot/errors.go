package shot

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrRenameFailed     = errors.New("rename failed")
	ErrValidation       = errors.New("validation failed")
	ErrRequestFailed    = errors.New("request failed")
	ErrNotFound         = errors.New("not found")
	ErrStaleFetch       = errors.New("stale fetch")
)

// Wire kinds used when errors cross a transport.
const (
	KindCapacityExceeded = "capacity_exceeded"
	KindRenameFailed     = "rename_failed"
	KindValidation       = "validation_failed"
	KindNotFound         = "not_found"
	KindRequestFailed    = "request_failed"
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker. The marker should be one of the exported
// sentinel errors above; nil falls back to ErrRequestFailed.
func Wrap(marker error, subject, operation, message string, err error) error {
	detail := buildDetail(subject, operation, message)
	if marker == nil {
		marker = ErrRequestFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to its stable wire string. Nil maps to "".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCapacityExceeded):
		return KindCapacityExceeded
	case errors.Is(err, ErrRenameFailed):
		return KindRenameFailed
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindRequestFailed
	}
}

// FromKind rebuilds a marker-tagged error from a wire kind and message.
func FromKind(kind, message string) error {
	if kind == "" && message == "" {
		return nil
	}
	message = strings.TrimSpace(message)
	var marker error
	switch kind {
	case KindCapacityExceeded:
		marker = ErrCapacityExceeded
	case KindRenameFailed:
		marker = ErrRenameFailed
	case KindValidation:
		marker = ErrValidation
	case KindNotFound:
		marker = ErrNotFound
	default:
		marker = ErrRequestFailed
	}
	if message == "" {
		return marker
	}
	return &remoteError{marker: marker, message: message}
}

// remoteError keeps the collaborator's message verbatim.
type remoteError struct {
	marker  error
	message string
}

func (e *remoteError) Error() string { return e.message }

func (e *remoteError) Unwrap() error { return e.marker }

func buildDetail(subject, operation, message string) string {
	parts := make([]string, 0, 3)
	if subject = strings.TrimSpace(subject); subject != "" {
		parts = append(parts, subject)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "board failure"
	}
	return strings.Join(parts, ": ")
}
