package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/trujjo/neurotome/internal/config"
	"github.com/trujjo/neurotome/internal/data/db"
	"github.com/trujjo/neurotome/internal/data/graph"
	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/platform/logger"
	"github.com/trujjo/neurotome/internal/platform/neo4jdb"
	"github.com/trujjo/neurotome/internal/platform/redisdb"
)

// Clients are the external connections one process holds.
type Clients struct {
	Neo4j  *neo4jdb.Client
	Reader *graph.Reader
	Redis  *goredis.Client
	DB     *gorm.DB
}

// ConnectGraph opens Neo4j only. A failure is a *domain.ConnectionError.
func ConnectGraph(ctx context.Context, cfg config.Config, log *logger.Logger) (*Clients, error) {
	client, err := neo4jdb.New(ctx, cfg.Neo4j, log)
	if err != nil {
		return nil, &domain.ConnectionError{Op: "connect", Err: err}
	}
	return &Clients{Neo4j: client, Reader: graph.NewReader(client, log, cfg.Schema)}, nil
}

func wireClients(ctx context.Context, cfg config.Config, log *logger.Logger) (*Clients, error) {
	c, err := ConnectGraph(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if cfg.Redis.Enabled {
		rdb, err := redisdb.New(ctx, cfg.Redis, log)
		if err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("init redis: %w", err)
		}
		c.Redis = rdb
	}
	if cfg.Positions.Backend == config.PositionsSQL {
		gdb, err := db.Open(cfg.Positions, log)
		if err != nil {
			c.Close(ctx)
			return nil, fmt.Errorf("init positions db: %w", err)
		}
		c.DB = gdb
	}
	return c, nil
}

func (c *Clients) Close(ctx context.Context) {
	if c == nil {
		return
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	_ = c.Neo4j.Close(ctx)
}
