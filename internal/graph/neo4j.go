package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"engram/internal/domain"
)

// Neo4jClient implements Client against a Neo4j (or Bolt-compatible)
// server. The driver pools connections internally, so one client is shared
// by all sessions.
type Neo4jClient struct {
	uri      string
	auth     neo4j.AuthToken
	database string
	logger   *slog.Logger

	driver neo4j.DriverWithContext
}

// NewNeo4jClient creates a client for the given bolt/neo4j URI. Empty
// username skips authentication.
func NewNeo4jClient(uri, username, password, database string, logger *slog.Logger) *Neo4jClient {
	auth := neo4j.NoAuth()
	if username != "" {
		auth = neo4j.BasicAuth(username, password, "")
	}
	return &Neo4jClient{
		uri:      uri,
		auth:     auth,
		database: database,
		logger:   logger,
	}
}

// Connect establishes the driver, verifies connectivity and ensures the
// uniqueness constraints the pipeline relies on.
func (c *Neo4jClient) Connect(ctx context.Context) error {
	if c.driver != nil {
		return nil
	}

	driver, err := neo4j.NewDriverWithContext(c.uri, c.auth)
	if err != nil {
		return &domain.GraphOperationError{Operation: "connect", Cause: err}
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return &domain.GraphOperationError{Operation: "connect", Cause: err}
	}
	c.driver = driver

	if err := c.ensureSchema(ctx); err != nil {
		return err
	}

	c.logger.Info("graph store connected", "uri", c.uri, "database", c.database)
	return nil
}

// ensureSchema creates the uniqueness constraints that make the
// session-ensure check-then-create race-safe: a losing concurrent CREATE
// fails at the storage layer instead of duplicating the Session node.
func (c *Neo4jClient) ensureSchema(ctx context.Context) error {
	constraints := []string{
		"CREATE CONSTRAINT session_id_unique IF NOT EXISTS FOR (s:Session) REQUIRE s.id IS UNIQUE",
		"CREATE CONSTRAINT thought_id_unique IF NOT EXISTS FOR (t:Thought) REQUIRE t.id IS UNIQUE",
	}
	for _, stmt := range constraints {
		if _, err := c.Query(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
	}
	return nil
}

// Query runs one parameterized Cypher statement and materializes the rows.
func (c *Neo4jClient) Query(ctx context.Context, cypher string, params map[string]any) ([]Row, error) {
	if c.driver == nil {
		return nil, &domain.GraphOperationError{
			Operation: "query",
			Cause:     fmt.Errorf("client not connected"),
		}
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, &domain.GraphOperationError{Operation: "query", Cause: err}
	}

	var rows []Row
	for result.Next(ctx) {
		record := result.Record()
		row := make(Row, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = convertValue(record.Values[i])
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, &domain.GraphOperationError{Operation: "query", Cause: err}
	}
	return rows, nil
}

// Disconnect closes the driver.
func (c *Neo4jClient) Disconnect(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}
	if err := c.driver.Close(ctx); err != nil {
		return &domain.GraphOperationError{Operation: "disconnect", Cause: err}
	}
	c.driver = nil
	return nil
}

// convertValue maps driver types onto the package's own row value types so
// callers never import the driver.
func convertValue(v any) any {
	switch val := v.(type) {
	case dbtype.Node:
		return Node{ID: val.Id, Labels: val.Labels, Props: val.Props}
	case dbtype.Relationship:
		return Edge{
			ID:            val.Id,
			SourceID:      val.StartId,
			DestinationID: val.EndId,
			Type:          val.Type,
			Props:         val.Props,
		}
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = convertValue(item)
		}
		return out
	default:
		return v
	}
}
