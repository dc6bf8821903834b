// Package graph implements Neo4j adapters for the application.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NewDriver creates a Neo4j driver and verifies connectivity within ctx.
func NewDriver(ctx context.Context, url, username, password string) (neo4j.DriverWithContext, error) {
	auth := neo4j.NoAuth()
	if username != "" && password != "" {
		auth = neo4j.BasicAuth(username, password, "")
	}

	driver, err := neo4j.NewDriverWithContext(url, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(context.Background())
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	return driver, nil
}
