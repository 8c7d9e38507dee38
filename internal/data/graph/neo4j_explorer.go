package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/trujjo/neurotome/internal/config"
	"github.com/trujjo/neurotome/internal/domain"
	"github.com/trujjo/neurotome/internal/observability"
	"github.com/trujjo/neurotome/internal/platform/logger"
	"github.com/trujjo/neurotome/internal/platform/neo4jdb"
)

// Reader runs explorer queries and facet enumeration against Neo4j in read
// transactions.
type Reader struct {
	client *neo4jdb.Client
	log    *logger.Logger
	schema config.SchemaConfig
}

func NewReader(client *neo4jdb.Client, log *logger.Logger, schema config.SchemaConfig) *Reader {
	return &Reader{client: client, log: log.Component("neo4j_reader"), schema: schema}
}

func (r *Reader) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx); err != nil {
		return &domain.ConnectionError{Op: "ping", Err: err}
	}
	return nil
}

func (r *Reader) Execute(ctx context.Context, cypher string, params map[string]any) ([]domain.RawRow, error) {
	ctx, span := observability.Tracer().Start(ctx, "neo4j.execute")
	defer span.End()
	span.SetAttributes(attribute.Int("neo4j.param_count", len(params)))

	if r.client == nil || r.client.Driver == nil {
		return nil, &domain.ConnectionError{Op: "execute", Err: fmt.Errorf("neo4j client not configured")}
	}
	session := r.client.ReadSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var rows []domain.RawRow
		for res.Next(ctx) {
			row, err := recordToRow(res.Record())
			if err != nil {
				// A row without a usable primary still counts toward the
				// malformed total in the normalizer.
				r.log.Debug("skipping unreadable record", "error", err)
				rows = append(rows, domain.RawRow{})
				continue
			}
			rows = append(rows, row)
		}
		return rows, res.Err()
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &domain.ConnectionError{Op: "execute", Err: err}
	}
	rows, _ := out.([]domain.RawRow)
	span.SetAttributes(attribute.Int("neo4j.rows", len(rows)))
	return rows, nil
}

func (r *Reader) collect(ctx context.Context, op, cypher string, each func(*neo4j.Record)) error {
	if r.client == nil || r.client.Driver == nil {
		return &domain.ConnectionError{Op: op, Err: fmt.Errorf("neo4j client not configured")}
	}
	session := r.client.ReadSession(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, nil)
		if err != nil {
			return nil, err
		}
		for res.Next(ctx) {
			each(res.Record())
		}
		return nil, res.Err()
	})
	if err != nil {
		return &domain.ConnectionError{Op: op, Err: err}
	}
	return nil
}
