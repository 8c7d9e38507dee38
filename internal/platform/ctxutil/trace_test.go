package ctxutil

import (
	"context"
	"testing"
)

func TestTraceFieldsSkipEmpty(t *testing.T) {
	ctx := WithTrace(context.Background(), &Trace{TraceID: "t1"})
	SetSessionID(ctx, "s1")
	got := TraceFrom(ctx).Fields()
	want := []any{"trace_id", "t1", "session_id", "s1"}
	if len(got) != len(want) {
		t.Fatalf("fields: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fields[%d]: want=%v got=%v", i, want[i], got[i])
		}
	}
}

func TestTraceFromEmptyContext(t *testing.T) {
	ctx := context.Background()
	if TraceFrom(ctx) != nil {
		t.Fatalf("want nil trace")
	}
	SetSessionID(ctx, "ignored")
	if f := TraceFrom(ctx).Fields(); f != nil {
		t.Fatalf("fields: want=nil got=%v", f)
	}
}
