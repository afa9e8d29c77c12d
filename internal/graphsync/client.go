// Package graphsync mirrors a calculation's graph view into Neo4j so it can be
// explored with Cypher. Each calculation owns a disjoint subgraph keyed by its
// id; a sync replaces that subgraph.
package graphsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Stoky555/ownership-graph/internal/logger"
)

// Config holds connection settings.
type Config struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
	MaxPool  int
}

// ErrNotConfigured is returned when no Neo4j URI is set.
var ErrNotConfigured = errors.New("neo4j: uri not configured")

type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

// New connects and verifies connectivity.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, ErrNotConfigured
	}
	if log == nil {
		log = logger.Nop()
	}
	user := cfg.User
	if user == "" {
		user = "neo4j"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxPool := cfg.MaxPool
	if maxPool <= 0 {
		maxPool = 10
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, cfg.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = maxPool
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: cfg.Database,
		log:      log.With("client", "neo4j"),
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
