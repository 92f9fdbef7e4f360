// Package itf holds helpers for integration tests against a real Postgres.
package itf

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kwatuha/imes-sub010/pkg/configuration"
)

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// DatabaseOptions reads DB_* from the environment with the local defaults.
func DatabaseOptions() configuration.DatabaseOptions {
	return configuration.DatabaseOptions{
		Name:     envOr("DB_NAME", "imes"),
		Host:     envOr("DB_HOST", "localhost"),
		Port:     envOr("DB_PORT", "5432"),
		User:     envOr("DB_USER", "postgres"),
		Password: envOr("DB_PASSWORD", "postgres"),
	}
}

func DbOpts() string {
	opts := DatabaseOptions()
	return opts.ConnectionString()
}

func CanDialPostgres() bool {
	opts := DatabaseOptions()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(opts.Host, opts.Port), 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// RequirePostgres skips the test when Postgres is not reachable, and fails
// it instead when running in CI.
func RequirePostgres(t *testing.T) {
	t.Helper()
	if CanDialPostgres() {
		return
	}
	if strings.TrimSpace(os.Getenv("CI")) != "" || strings.EqualFold(strings.TrimSpace(os.Getenv("GITHUB_ACTIONS")), "true") {
		t.Fatalf("postgres is not reachable (DB_HOST/DB_PORT)")
	}
	t.Skip("postgres is not reachable; skipping integration test")
}

func NewPool(dbOpts string, configure func(*pgxpool.Config)) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	config, err := pgxpool.ParseConfig(dbOpts)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 8
	config.MinConns = 1
	config.MaxConnLifetime = time.Minute * 5
	config.MaxConnIdleTime = time.Second * 30
	if configure != nil {
		configure(config)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	return pool, nil
}

// SchemaPool creates a throwaway schema and returns a pool whose
// search_path points at it. The schema is dropped when the test ends.
func SchemaPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	RequirePostgres(t)

	schema := "itf_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	admin, err := NewPool(DbOpts(), nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := admin.Exec(context.Background(), "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("create schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	pool, err := NewPool(DbOpts(), func(c *pgxpool.Config) {
		c.ConnConfig.RuntimeParams["search_path"] = schema
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
