// Package ctxutil carries per-request identifiers through a context.
package ctxutil

import "context"

type traceKey struct{}

// Trace holds the identifiers a request is logged under. It is stored by
// pointer so handlers can fill in the session once they resolve it.
type Trace struct {
	TraceID   string
	RequestID string
	SessionID string
}

// Fields returns the non-empty identifiers as logger key/value pairs.
func (t *Trace) Fields() []any {
	if t == nil {
		return nil
	}
	var out []any
	for _, kv := range [][2]string{
		{"trace_id", t.TraceID},
		{"request_id", t.RequestID},
		{"session_id", t.SessionID},
	} {
		if kv[1] != "" {
			out = append(out, kv[0], kv[1])
		}
	}
	return out
}

func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// TraceFrom returns the request's trace, or nil outside a request.
func TraceFrom(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey{}).(*Trace)
	return t
}

// SetSessionID records the explorer session a request acted on.
func SetSessionID(ctx context.Context, id string) {
	if t := TraceFrom(ctx); t != nil {
		t.SessionID = id
	}
}
