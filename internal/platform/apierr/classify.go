package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/trujjo/neurotome/internal/domain"
)

// Stable error codes exposed to clients.
const (
	CodeBadRequest   = "bad_request"
	CodeConnection   = "connection"
	CodeNotFound     = "not_found"
	CodeUnknownNode  = "unknown_node"
	CodeUnknownFacet = "unknown_facet"
	CodeInvalidTier  = "invalid_tier"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

// Error is an error with the HTTP status and code it should be reported as.
type Error struct {
	Status int
	Code   string
	Err    error
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	default:
		return fmt.Sprintf("request failed (%d)", e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the same request may succeed later without
// changes, which is the case when the graph database was unreachable.
func (e *Error) Retryable() bool {
	return e != nil && (e.Code == CodeConnection || e.Code == CodeUnavailable)
}

// Classify maps an error to its HTTP status and code. Errors already carrying
// an *Error pass through.
func Classify(err error) *Error {
	var ae *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return ae
	case domain.IsConnectionError(err):
		return New(http.StatusServiceUnavailable, CodeConnection, err)
	case errors.Is(err, domain.ErrSessionNotFound):
		return New(http.StatusNotFound, CodeNotFound, err)
	case errors.Is(err, domain.ErrUnknownNode):
		return New(http.StatusNotFound, CodeUnknownNode, err)
	case errors.Is(err, domain.ErrUnknownFacet):
		return New(http.StatusBadRequest, CodeUnknownFacet, err)
	case errors.Is(err, domain.ErrInvalidTier):
		return New(http.StatusBadRequest, CodeInvalidTier, err)
	case errors.Is(err, domain.ErrEmptySearch):
		return New(http.StatusBadRequest, CodeBadRequest, err)
	case errors.Is(err, domain.ErrTooManySessions):
		return New(http.StatusServiceUnavailable, CodeUnavailable, err)
	default:
		return New(http.StatusInternalServerError, CodeInternal, err)
	}
}
