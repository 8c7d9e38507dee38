package app

import (
	"github.com/trujjo/neurotome/internal/config"
	"github.com/trujjo/neurotome/internal/data/cache"
	"github.com/trujjo/neurotome/internal/data/positions"
	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/modules/explorer/facets"
	"github.com/trujjo/neurotome/internal/modules/explorer/interaction"
	"github.com/trujjo/neurotome/internal/modules/explorer/layout"
	"github.com/trujjo/neurotome/internal/modules/explorer/normalize"
	"github.com/trujjo/neurotome/internal/modules/explorer/query"
	"github.com/trujjo/neurotome/internal/modules/explorer/session"
	"github.com/trujjo/neurotome/internal/modules/explorer/viewport"
	"github.com/trujjo/neurotome/internal/platform/logger"
	"github.com/trujjo/neurotome/internal/services"
)

// Explorer is the graph-facing core shared by the server and the CLI.
type Explorer struct {
	Catalog    *facets.Catalog
	Builder    *query.Builder
	Normalizer *normalize.Normalizer
}

func NewExplorer(cfg config.Config, log *logger.Logger, src facets.Source, c facets.Cache) *Explorer {
	tiers := cfg.Tiers()
	catalog := facets.NewCatalog(facets.Deps{
		Log:    log,
		Source: src,
		Cache:  c,
		TTL:    cfg.Redis.FacetTTL,
		Static: cfg.StaticSnapshot(),
		Tiers:  tiers,
	})
	return &Explorer{
		Catalog: catalog,
		Builder: query.NewBuilder(query.Options{
			TierProperty:        cfg.Schema.TierProperty,
			LocationProperty:    cfg.Schema.LocationProperty,
			SublocationProperty: cfg.Schema.SublocationProperty,
			SystemProperty:      cfg.Schema.SystemProperty,
			NameProperty:        cfg.Schema.NameProperty,
			Tiers:               tiers,
			ResultCap:           cfg.Query.ResultCap,
			NeighborLimit:       cfg.Query.NeighborLimit,
			SampleSize:          cfg.Query.SampleSize,
			Hierarchy:           catalog.Parents,
		}),
		Normalizer: normalize.New(normalize.Options{
			TierProperty: cfg.Schema.TierProperty,
			Tiers:        tiers,
			NodeCap:      cfg.Query.ResultCap,
		}),
	}
}

func layoutParams(c config.LayoutConfig) layout.Params {
	return layout.Params{
		Width:           c.Width,
		Height:          c.Height,
		LinkDistance:    c.LinkDistance,
		ChargeStrength:  c.ChargeStrength,
		Theta:           c.Theta,
		CenterStrength:  c.CenterStrength,
		AlphaMin:        c.AlphaMin,
		AlphaDecay:      c.AlphaDecay,
		VelocityDecay:   c.VelocityDecay,
		DragAlphaTarget: c.DragAlphaTarget,
		TickInterval:    c.TickInterval,
		FrameInterval:   c.FrameInterval,
		MaxTicks:        c.MaxTicks,
		Clamp:           c.Clamp,
		CacheTTL:        c.CacheTTL,
		CacheSize:       c.CacheSize,
	}
}

func positionStore(cfg config.Config, c *Clients) session.PositionStore {
	switch cfg.Positions.Backend {
	case config.PositionsRedis:
		return positions.NewRedis(c.Redis, cfg.Positions.TTL)
	case config.PositionsSQL:
		return positions.NewSQL(c.DB, cfg.Positions.TTL)
	default:
		return positions.NewMemory()
	}
}

func wireServices(cfg config.Config, log *logger.Logger, c *Clients, pub session.Publisher) (services.ExplorerService, error) {
	var fc facets.Cache
	if c.Redis != nil {
		fc = cache.NewJSONCache(c.Redis)
	}
	ex := NewExplorer(cfg, log, c.Reader, fc)
	policy, err := interaction.ParseDragPolicy(cfg.Layout.DragPolicy)
	if err != nil {
		return nil, err
	}
	var exec domain.Executor = c.Reader
	return services.NewExplorerService(services.ExplorerDeps{
		Log:      log,
		Catalog:  ex.Catalog,
		Executor: exec,
		Session: session.Deps{
			Log:        log,
			Builder:    ex.Builder,
			Normalizer: ex.Normalizer,
			Executor:   exec,
			Positions:  positionStore(cfg, c),
			Publisher:  pub,
			Layout:     layoutParams(cfg.Layout),
			Viewport:   viewport.DefaultOptions(),
			DragPolicy: policy,
			Explore: interaction.ExploreKeys{
				Location:    cfg.Schema.LocationProperty,
				Sublocation: cfg.Schema.SublocationProperty,
			},
			QueryTimeout: cfg.Query.Timeout,
		},
		IdleTTL:       cfg.Session.IdleTTL,
		SweepInterval: cfg.Session.SweepInterval,
		MaxSessions:   cfg.Session.MaxSessions,
	}), nil
}
