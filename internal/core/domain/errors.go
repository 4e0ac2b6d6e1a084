package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks transport-level failures with no response body.
	ErrNetwork = errors.New("network failure")
	// ErrServerRejected marks non-success responses carrying a structured
	// error body.
	ErrServerRejected  = errors.New("server rejected request")
	ErrSessionNotFound = errors.New("session not found")
	ErrChatNotFound    = errors.New("chat not found")
	ErrInvalidInput    = errors.New("invalid input")
	// ErrBusy rejects a re-entrant invocation of an operation that is still
	// in flight. Re-entrant calls are rejected, never queued.
	ErrBusy = errors.New("operation already in progress")
	// ErrTemporary marks failures worth retrying.
	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
