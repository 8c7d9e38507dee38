package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/trujjo/neurotome/internal/domain"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Neo4j     Neo4jConfig     `yaml:"neo4j"`
	Query     QueryConfig     `yaml:"query"`
	Schema    SchemaConfig    `yaml:"schema"`
	Facets    StaticFacets    `yaml:"facets"`
	Layout    LayoutConfig    `yaml:"layout"`
	Redis     RedisConfig     `yaml:"redis"`
	Positions PositionsConfig `yaml:"positions"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Session   SessionConfig   `yaml:"session"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

type Neo4jConfig struct {
	URI         string        `yaml:"uri"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	Database    string        `yaml:"database"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxPoolSize int           `yaml:"max_pool_size"`
}

type QueryConfig struct {
	ResultCap     int           `yaml:"result_cap"`
	NeighborLimit int           `yaml:"neighbor_limit"`
	Timeout       time.Duration `yaml:"timeout"`

	// SampleSize is how many start nodes a random sample draws when the
	// request does not say.
	SampleSize int `yaml:"sample_size"`
}

// TelemetryConfig drives tracing. ServiceName, Version and Environment
// become resource attributes on every span.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Version     string  `yaml:"version"`
	Environment string  `yaml:"environment"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// SchemaConfig names the node properties the query builder filters on.
// These are spliced into Cypher text, so they must be plain identifiers.
type SchemaConfig struct {
	TierProperty        string   `yaml:"tier_property"`
	LocationProperty    string   `yaml:"location_property"`
	SublocationProperty string   `yaml:"sublocation_property"`
	SystemProperty      string   `yaml:"system_property"`
	NameProperty        string   `yaml:"name_property"`
	Tiers               []string `yaml:"tiers"`
}

type LocationEntry struct {
	Location     string   `yaml:"location"`
	Sublocations []string `yaml:"sublocations"`
}

// StaticFacets are merged into the catalog and used alone when the database
// cannot enumerate a facet.
type StaticFacets struct {
	Labels    []string        `yaml:"labels"`
	Locations []LocationEntry `yaml:"locations"`
	Systems   []string        `yaml:"systems"`
}

type LayoutConfig struct {
	Width           float64       `yaml:"width"`
	Height          float64       `yaml:"height"`
	LinkDistance    float64       `yaml:"link_distance"`
	ChargeStrength  float64       `yaml:"charge_strength"`
	Theta           float64       `yaml:"theta"`
	CenterStrength  float64       `yaml:"center_strength"`
	AlphaMin        float64       `yaml:"alpha_min"`
	AlphaDecay      float64       `yaml:"alpha_decay"`
	VelocityDecay   float64       `yaml:"velocity_decay"`
	DragAlphaTarget float64       `yaml:"drag_alpha_target"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	FrameInterval   time.Duration `yaml:"frame_interval"`
	MaxTicks        int           `yaml:"max_ticks"`
	Clamp           bool          `yaml:"clamp"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheSize       int           `yaml:"cache_size"`
	DragPolicy      string        `yaml:"drag_policy"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	FacetTTL time.Duration `yaml:"facet_ttl"`
}

type PositionsConfig struct {
	Backend string        `yaml:"backend"`
	Driver  string        `yaml:"driver"`
	DSN     string        `yaml:"dsn"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxSessions   int           `yaml:"max_sessions"`
}

const (
	DragPolicyPin   = "pin"
	DragPolicyUnpin = "unpin"

	PositionsMemory = "memory"
	PositionsRedis  = "redis"
	PositionsSQL    = "sql"
)

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Mode: "development"},
		Neo4j: Neo4jConfig{
			URI:         "bolt://localhost:7687",
			User:        "neo4j",
			Timeout:     10 * time.Second,
			MaxPoolSize: 50,
		},
		Query: QueryConfig{
			ResultCap:     100,
			NeighborLimit: 50,
			Timeout:       15 * time.Second,
			SampleSize:    5,
		},
		Schema: SchemaConfig{
			TierProperty:        "detail",
			LocationProperty:    "location",
			SublocationProperty: "sublocation",
			SystemProperty:      "system",
			NameProperty:        "name",
			Tiers:               domain.DefaultTiers().Strings(),
		},
		Facets: defaultFacets(),
		Layout: LayoutConfig{
			Width:           960,
			Height:          600,
			LinkDistance:    100,
			ChargeStrength:  -300,
			Theta:           0.9,
			CenterStrength:  1,
			AlphaMin:        0.001,
			AlphaDecay:      0.0228,
			VelocityDecay:   0.4,
			DragAlphaTarget: 0.3,
			TickInterval:    16 * time.Millisecond,
			FrameInterval:   50 * time.Millisecond,
			MaxTicks:        600,
			Clamp:           true,
			CacheTTL:        5 * time.Minute,
			CacheSize:       1000,
			DragPolicy:      DragPolicyPin,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			FacetTTL: 10 * time.Minute,
		},
		Positions: PositionsConfig{
			Backend: PositionsMemory,
			Driver:  "sqlite",
			DSN:     "neurotome.db",
			TTL:     30 * 24 * time.Hour,
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Session: SessionConfig{
			IdleTTL:       30 * time.Minute,
			SweepInterval: time.Minute,
			MaxSessions:   1000,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "neurotome",
			SampleRatio: 0.1,
		},
	}
}

func defaultFacets() StaticFacets {
	return StaticFacets{
		Labels: []string{
			"nerve", "bone", "neuro", "region", "viscera", "muscle", "sense", "vein", "artery",
			"cv", "function", "sensory", "gland", "lymph", "head", "organ", "sensation", "skin",
		},
		Locations: []LocationEntry{
			{Location: "head", Sublocations: []string{"brain", "eye", "face", "ear", "nose", "skull", "mouth", "head"}},
			{Location: "neck", Sublocations: []string{"cervical spine", "visceral", "vascular"}},
			{Location: "upper limb", Sublocations: []string{"wrist", "hand", "fingers", "arm", "forearm", "elbow", "shoulder"}},
			{Location: "thorax", Sublocations: []string{"thoracic spine", "ribcage", "heart", "lung"}},
			{Location: "abdomen", Sublocations: []string{"lumbar spine", "right upper quadrant", "left upper quadrant", "right lower quadrant", "left lower quadrant"}},
			{Location: "spine", Sublocations: []string{"spinal cord", "vertebral", "tracts", "sacral spine"}},
			{Location: "pelvis", Sublocations: []string{"sacral spine", "greater pelvis", "lesser pelvis"}},
			{Location: "lower limb", Sublocations: []string{"foot", "thigh", "knee", "leg", "ankle", "toes"}},
		},
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (c Config) Validate() error {
	var errs []string
	for name, v := range map[string]string{
		"schema.tier_property":        c.Schema.TierProperty,
		"schema.location_property":    c.Schema.LocationProperty,
		"schema.sublocation_property": c.Schema.SublocationProperty,
		"schema.system_property":      c.Schema.SystemProperty,
		"schema.name_property":        c.Schema.NameProperty,
	} {
		if !identRe.MatchString(v) {
			errs = append(errs, fmt.Sprintf("%s %q is not a valid property identifier", name, v))
		}
	}
	tiers := domain.ParseTiers(c.Schema.Tiers)
	if len(tiers) == 0 {
		errs = append(errs, "schema.tiers must name at least one tier")
	} else if len(tiers) != len(c.Schema.Tiers) {
		errs = append(errs, "schema.tiers contains blank or duplicate entries")
	}
	if c.Neo4j.URI == "" {
		errs = append(errs, "neo4j.uri is required")
	}
	if c.Query.ResultCap <= 0 {
		errs = append(errs, "query.result_cap must be positive")
	}
	if c.Query.NeighborLimit <= 0 {
		errs = append(errs, "query.neighbor_limit must be positive")
	}
	if c.Query.SampleSize <= 0 || c.Query.SampleSize > c.Query.ResultCap {
		errs = append(errs, "query.sample_size must be in [1, result_cap]")
	}
	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		errs = append(errs, "telemetry.service_name is required")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, "telemetry.sample_ratio must be in [0,1]")
	}
	if c.Layout.Width <= 0 || c.Layout.Height <= 0 {
		errs = append(errs, "layout.width and layout.height must be positive")
	}
	if c.Layout.AlphaDecay <= 0 || c.Layout.AlphaDecay >= 1 {
		errs = append(errs, "layout.alpha_decay must be in (0,1)")
	}
	if c.Layout.VelocityDecay < 0 || c.Layout.VelocityDecay >= 1 {
		errs = append(errs, "layout.velocity_decay must be in [0,1)")
	}
	if c.Layout.TickInterval <= 0 || c.Layout.FrameInterval <= 0 {
		errs = append(errs, "layout.tick_interval and layout.frame_interval must be positive")
	}
	switch c.Layout.DragPolicy {
	case DragPolicyPin, DragPolicyUnpin:
	default:
		errs = append(errs, fmt.Sprintf("layout.drag_policy %q must be pin or unpin", c.Layout.DragPolicy))
	}
	switch c.Positions.Backend {
	case PositionsMemory, PositionsRedis:
	case PositionsSQL:
		if c.Positions.Driver != "sqlite" && c.Positions.Driver != "postgres" {
			errs = append(errs, fmt.Sprintf("positions.driver %q must be sqlite or postgres", c.Positions.Driver))
		}
		if c.Positions.DSN == "" {
			errs = append(errs, "positions.dsn is required for the sql backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("positions.backend %q must be memory, redis or sql", c.Positions.Backend))
	}
	if c.Positions.Backend == PositionsRedis && !c.Redis.Enabled {
		errs = append(errs, "positions.backend=redis requires redis.enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Tiers returns the parsed tier ordering.
func (c Config) Tiers() domain.Tiers { return domain.ParseTiers(c.Schema.Tiers) }

// StaticSnapshot renders the configured static facets as a catalog snapshot.
func (c Config) StaticSnapshot() domain.FacetSnapshot {
	s := domain.FacetSnapshot{
		Labels:      append([]string(nil), c.Facets.Labels...),
		Systems:     append([]string(nil), c.Facets.Systems...),
		DetailTiers: append([]string(nil), c.Schema.Tiers...),
	}
	for _, l := range c.Facets.Locations {
		s.Locations = append(s.Locations, domain.LocationGroup{
			Location:     l.Location,
			Sublocations: append([]string(nil), l.Sublocations...),
		})
	}
	return s
}
