package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/trujjo/neurotome/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
	headerSessionID = "X-Session-Id"
)

// AttachTraceContext echoes or mints request and trace ids. An otel span
// started upstream wins over a fresh id; a client-supplied session header is
// recorded until a handler resolves the real session.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := &ctxutil.Trace{
			RequestID: headerOr(c, headerRequestID, ""),
			TraceID:   headerOr(c, headerTraceID, ""),
			SessionID: headerOr(c, headerSessionID, ""),
		}
		if t.RequestID == "" {
			t.RequestID = uuid.NewString()
		}
		if t.TraceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				t.TraceID = sc.TraceID().String()
			} else {
				t.TraceID = uuid.NewString()
			}
		}
		c.Request = c.Request.WithContext(ctxutil.WithTrace(c.Request.Context(), t))
		c.Writer.Header().Set(headerTraceID, t.TraceID)
		c.Writer.Header().Set(headerRequestID, t.RequestID)
		c.Next()
	}
}

func headerOr(c *gin.Context, name, def string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	return def
}
