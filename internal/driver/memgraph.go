// Package driver persists the assembled, scored graph to Memgraph over
// the Bolt protocol.
package driver

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
	Logger *log.Logger
}

func NewMemgraphDriver(uri, username, password string, logger *log.Logger) (*MemgraphDriver, error) {
	d, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := d.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("connected to Memgraph", "uri", uri)
	}
	return &MemgraphDriver{Driver: d, Logger: logger}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Problem(node_id);",
		"CREATE INDEX ON :Problem(type);",
		"CREATE INDEX ON :Problem(rank);",
	}

	for _, q := range queries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// Index may already exist; Memgraph has no IF NOT EXISTS here.
			if d.Logger != nil {
				d.Logger.Warn("failed to create index", "query", q, "err", err)
			}
		}
	}
	return nil
}
