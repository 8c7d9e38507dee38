package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleResponse marks a result that arrived after a newer filter
	// state was applied. Callers drop it without surfacing anything.
	ErrStaleResponse   = errors.New("stale response superseded by a newer filter state")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownNode     = errors.New("node not in current graph")
	ErrUnknownFacet    = errors.New("unknown facet")
	ErrInvalidTier     = errors.New("unknown detail tier")
	// ErrTooManySessions means the session cap is reached and no session
	// could be evicted to make room.
	ErrTooManySessions = errors.New("session limit reached")
	ErrEmptySearch     = errors.New("search term is empty")
)

// ConnectionError wraps executor failures: connection loss, timeouts and
// rejected queries.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("graph source unavailable: %v", e.Err)
	}
	return fmt.Sprintf("graph source unavailable (%s): %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// MalformedRecordError describes one dropped record. It is logged and counted,
// never returned to a user.
type MalformedRecordError struct {
	Row    int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at row %d: %s", e.Row, e.Reason)
}
