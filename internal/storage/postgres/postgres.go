// Package postgres stores vault accounts and character sheets in
// PostgreSQL via pgx v5. Sheets live as JSONB documents keyed by character
// ID and owned by an account.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwpulley/charkeep/internal/config"
)

// Pool wraps the shared pgx connection pool behind the account and sheet
// repositories.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects using cfg and verifies the database answers a ping
// before the server starts accepting clients.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

// Health pings the database within timeout. The server's health loop calls
// this periodically and logs failures without tearing sessions down.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases every pooled connection. Call only after the sessions
// using the repositories have drained.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB exposes the raw pool for the repositories and migration tooling.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
