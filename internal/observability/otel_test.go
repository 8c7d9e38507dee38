package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/trujjo/neurotome/internal/platform/logger"
)

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]string {
	out := map[attribute.Key]string{}
	for _, kv := range kvs {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func TestResourceAttributesFollowConfig(t *testing.T) {
	got := attrMap(OtelConfig{ServiceName: "atlas", Version: "2.0.1", Environment: "prod", Database: "anatomy"}.attributes())
	if got[semconv.ServiceNameKey] != "atlas" || got[semconv.ServiceVersionKey] != "2.0.1" {
		t.Fatalf("service attrs: got=%v", got)
	}
	if got["deployment.environment"] != "prod" || got[semconv.DBNamespaceKey] != "anatomy" || got[semconv.DBSystemKey] != "neo4j" {
		t.Fatalf("env and db attrs: got=%v", got)
	}

	bare := attrMap(OtelConfig{}.attributes())
	if len(bare) != 1 || bare[semconv.ServiceNameKey] != "neurotome" {
		t.Fatalf("empty config should only name the service: got=%v", bare)
	}
}

func TestOtelHeadersAndRatio(t *testing.T) {
	h := OtelConfig{Headers: "x-api=abc, broken, =nokey,x-team=graph"}.headers()
	if len(h) != 2 || h["x-api"] != "abc" || h["x-team"] != "graph" {
		t.Fatalf("headers: got=%v", h)
	}
	if h := (OtelConfig{Headers: " , "}).headers(); h != nil {
		t.Fatalf("blank headers: want=nil got=%v", h)
	}
	for in, want := range map[float64]float64{4: 1, -1: 0, 0.3: 0.3} {
		if got := (OtelConfig{SampleRatio: in}).ratio(); got != want {
			t.Fatalf("ratio(%v): want=%v got=%v", in, want, got)
		}
	}
}

func TestInitOTel(t *testing.T) {
	if shutdown := InitOTel(context.Background(), logger.Nop(), OtelConfig{ServiceName: "atlas"}); shutdown != nil {
		t.Fatalf("disabled tracing should not install a provider")
	}
	shutdown := InitOTel(context.Background(), logger.Nop(), OtelConfig{Enabled: true, ServiceName: "atlas", SampleRatio: 1})
	if shutdown == nil {
		t.Fatalf("enabled tracing should return a shutdown")
	}
	_, span := Tracer().Start(context.Background(), "session.apply")
	if !span.SpanContext().IsValid() {
		t.Fatalf("span from installed provider should be sampled and valid")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
