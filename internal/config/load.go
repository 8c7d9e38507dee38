package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/trujjo/neurotome/internal/platform/envutil"
	"gopkg.in/yaml.v3"
)

// Load builds a Config from defaults, then the YAML file at path (if any),
// then environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		if err := decode(bytes.NewReader([]byte(os.ExpandEnv(string(raw)))), &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if port := envutil.String("PORT", ""); port != "" {
		cfg.Server.Addr = ":" + port
	}
	cfg.Server.CORSOrigins = envutil.List("CORS_ORIGINS", cfg.Server.CORSOrigins)
	cfg.Log.Mode = envutil.String("LOG_MODE", cfg.Log.Mode)

	cfg.Neo4j.URI = envutil.String("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.User = envutil.String("NEO4J_USER", cfg.Neo4j.User)
	cfg.Neo4j.Password = envutil.String("NEO4J_PASSWORD", cfg.Neo4j.Password)
	cfg.Neo4j.Database = envutil.String("NEO4J_DATABASE", cfg.Neo4j.Database)
	cfg.Neo4j.Timeout = envutil.Seconds("NEO4J_TIMEOUT_SECONDS", cfg.Neo4j.Timeout)
	cfg.Neo4j.MaxPoolSize = envutil.Int("NEO4J_MAX_POOL_SIZE", cfg.Neo4j.MaxPoolSize)

	cfg.Query.ResultCap = envutil.Int("RESULT_CAP", cfg.Query.ResultCap)

	if addr := envutil.String("REDIS_ADDR", ""); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Positions.Backend = envutil.String("POSITIONS_BACKEND", cfg.Positions.Backend)
	cfg.Positions.Driver = envutil.String("POSITIONS_DRIVER", cfg.Positions.Driver)
	cfg.Positions.DSN = envutil.String("POSITIONS_DSN", cfg.Positions.DSN)

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)

	t := &cfg.Telemetry
	t.Enabled = envutil.Bool("OTEL_ENABLED", t.Enabled)
	t.ServiceName = envutil.String("OTEL_SERVICE_NAME", t.ServiceName)
	t.Version = envutil.String("SERVICE_VERSION", t.Version)
	t.Environment = envutil.String("DEPLOY_ENV", t.Environment)
	t.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", t.Endpoint)
	t.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", t.Headers)
	t.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", t.Insecure)
	t.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", t.SampleRatio)
}
