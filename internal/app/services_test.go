package app

import (
	"testing"

	"github.com/trujjo/neurotome/internal/config"
	"github.com/trujjo/neurotome/internal/data/positions"
	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/modules/explorer/layout"
	"github.com/trujjo/neurotome/internal/platform/logger"
)

func TestLayoutParamsMatchDefaults(t *testing.T) {
	got := layoutParams(config.Default().Layout)
	want := layout.DefaultParams()
	if got != want {
		t.Fatalf("layout params drifted from defaults:\nwant=%+v\ngot=%+v", want, got)
	}
}

func TestOtelConfigCarriesTelemetry(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.Version = "3.1.0"
	cfg.Neo4j.Database = "anatomy"
	oc := otelConfig(cfg)
	if oc.ServiceName != "neurotome" || oc.Version != "3.1.0" || oc.Database != "anatomy" || oc.Enabled {
		t.Fatalf("otel config: got=%+v", oc)
	}
}

func TestPositionStoreDefaultsToMemory(t *testing.T) {
	if _, ok := positionStore(config.Default(), &Clients{}).(*positions.Memory); !ok {
		t.Fatalf("default backend should be memory")
	}
}

func TestNewExplorerUsesStaticFacetsAndHierarchy(t *testing.T) {
	cfg := config.Default()
	ex := NewExplorer(cfg, logger.Nop(), nil, nil)
	f := domain.NewFilterState()
	f.Sublocations["brain"] = struct{}{}
	f.Locations["head"] = struct{}{}
	q := ex.Builder.Build(f)
	scopes, ok := q.Params["locationScopes"].([]any)
	if !ok || len(scopes) != 1 {
		t.Fatalf("brain should bind to head: params=%v", q.Params)
	}
	if ex.Builder.ResultCap() != cfg.Query.ResultCap {
		t.Fatalf("result cap: want=%d got=%d", cfg.Query.ResultCap, ex.Builder.ResultCap())
	}
}
