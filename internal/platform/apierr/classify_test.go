package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/trujjo/neurotome/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&domain.ConnectionError{Op: "execute", Err: errors.New("refused")}, http.StatusServiceUnavailable, CodeConnection},
		{fmt.Errorf("lookup: %w", domain.ErrSessionNotFound), http.StatusNotFound, CodeNotFound},
		{domain.ErrUnknownNode, http.StatusNotFound, CodeUnknownNode},
		{domain.ErrUnknownFacet, http.StatusBadRequest, CodeUnknownFacet},
		{domain.ErrInvalidTier, http.StatusBadRequest, CodeInvalidTier},
		{domain.ErrTooManySessions, http.StatusServiceUnavailable, CodeUnavailable},
		{domain.ErrEmptySearch, http.StatusBadRequest, CodeBadRequest},
		{New(http.StatusTooManyRequests, "limit", nil), http.StatusTooManyRequests, "limit"},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		got := Classify(tc.err)
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("%v: want=%d/%s got=%d/%s", tc.err, tc.status, tc.code, got.Status, got.Code)
		}
	}
	if Classify(nil) != nil {
		t.Fatalf("nil error should classify to nil")
	}
}

func TestErrorMessageAndRetry(t *testing.T) {
	if got := New(http.StatusTeapot, "", nil).Error(); got != "request failed (418)" {
		t.Fatalf("message: got=%q", got)
	}
	if got := New(http.StatusBadRequest, CodeInvalidTier, nil).Error(); got != CodeInvalidTier {
		t.Fatalf("code message: got=%q", got)
	}
	conn := Classify(&domain.ConnectionError{Op: "ping", Err: errors.New("refused")})
	if !conn.Retryable() {
		t.Fatalf("connection errors should be retryable")
	}
	if !Classify(domain.ErrTooManySessions).Retryable() {
		t.Fatalf("session limit should be retryable")
	}
	if Classify(domain.ErrInvalidTier).Retryable() {
		t.Fatalf("invalid tier should not be retryable")
	}
}
