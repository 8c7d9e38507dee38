package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/trujjo/neurotome/internal/platform/logger"
)

const instrumentationName = "github.com/trujjo/neurotome"

// OtelConfig is built from config.TelemetryConfig. Headers uses the
// OTEL_EXPORTER_OTLP_HEADERS form, k=v pairs separated by commas.
type OtelConfig struct {
	Enabled     bool
	ServiceName string
	Version     string
	Environment string
	Database    string
	Endpoint    string
	Headers     string
	Insecure    bool
	SampleRatio float64
}

// InitOTel installs a tracer provider and returns its shutdown, or nil when
// tracing is disabled.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	if !cfg.Enabled {
		return nil
	}
	log = log.Component("otel")
	res, err := resource.New(ctx, resource.WithHost(), resource.WithAttributes(cfg.attributes()...))
	if err != nil {
		log.Warn("otel resource incomplete", "error", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.ratio()))),
		sdktrace.WithResource(res),
	}
	exporter, err := cfg.exporter(ctx)
	if err != nil {
		log.Warn("otel exporter unavailable, spans stay local", "error", err)
	} else {
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	log.Info("otel tracing initialized",
		"service", cfg.serviceName(),
		"version", cfg.Version,
		"endpoint", cfg.Endpoint,
		"ratio", cfg.ratio(),
	)
	return tp.Shutdown
}

func (c OtelConfig) serviceName() string {
	if s := strings.TrimSpace(c.ServiceName); s != "" {
		return s
	}
	return "neurotome"
}

// attributes describes this process on every exported span. Empty values are
// left out rather than reported as blank.
func (c OtelConfig) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(c.serviceName())}
	if v := strings.TrimSpace(c.Version); v != "" {
		attrs = append(attrs, semconv.ServiceVersion(v))
	}
	if v := strings.TrimSpace(c.Environment); v != "" {
		attrs = append(attrs, attribute.String("deployment.environment", v))
	}
	if v := strings.TrimSpace(c.Database); v != "" {
		attrs = append(attrs, semconv.DBSystemNeo4j, semconv.DBNamespace(v))
	}
	return attrs
}

func (c OtelConfig) ratio() float64 {
	switch {
	case c.SampleRatio < 0:
		return 0
	case c.SampleRatio > 1:
		return 1
	}
	return c.SampleRatio
}

// headers drops malformed pairs.
func (c OtelConfig) headers() map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(c.Headers, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if ok && key != "" && val != "" {
			out[key] = val
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// exporter ships OTLP over HTTP when an endpoint is set and pretty-prints to
// stdout otherwise.
func (c OtelConfig) exporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if c.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if h := c.headers(); h != nil {
		opts = append(opts, otlptracehttp.WithHeaders(h))
	}
	return otlptracehttp.New(ctx, opts...)
}

// Tracer returns the package tracer from the global provider. It is a no-op
// tracer until InitOTel installs a real provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
