// Package pgtest provides the shared setup for tests that need a real
// PostgreSQL instance. Set TEST_DATABASE_DSN to run them; without it the
// tests skip, so the pure-logic suites still run anywhere.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Company-Discord/economy-bot/internal/db/postgres"
)

// NewDB connects to the test database, applies the schema and returns a
// pool that is closed when the test finishes. Tests should isolate
// themselves with unique guild ids rather than truncating shared tables.
func NewDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping database test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("test database unreachable: %v", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
