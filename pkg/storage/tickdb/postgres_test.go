package tickdb_test

import (
	"context"
	"os"
	"testing"
	"time"

	"candleservice/config"
	"candleservice/pkg/storage/tickdb"
)

// postgresConfig returns the database used by the integration tests below.
// They are skipped unless TICKDB_TEST_POSTGRES_HOST is set.
func postgresConfig(t *testing.T) config.PostgresConfig {
	t.Helper()
	host := os.Getenv("TICKDB_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("TICKDB_TEST_POSTGRES_HOST not set")
	}
	return config.PostgresConfig{
		Host:     host,
		Port:     5432,
		User:     "postgres",
		Password: os.Getenv("TICKDB_TEST_POSTGRES_PASSWORD"),
		DBName:   "candles_test",
		SSLMode:  "disable",
		TimeZone: "UTC",

		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 1 * time.Hour,
	}
}

// go test -v --run ^TestPostgresInvalidDSN$
func TestPostgresInvalidDSN(t *testing.T) {
	cfg := postgresConfig(t)
	cfg.Port = 1 // nothing listens here

	if _, err := tickdb.NewPostgresClient(cfg.DSN("dev")); err == nil {
		t.Fatal("expected error for unreachable server, got nil")
	}
}

// go test -v --run ^TestInitializePostgres$
func TestInitializePostgres(t *testing.T) {
	cfg := postgresConfig(t)

	client, err := tickdb.InitializePostgres(cfg, "dev", true)
	if err != nil {
		t.Fatalf("failed to initialize Postgres: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if !client.IsHealthy(ctx) {
		t.Fatal("expected healthy DB connection")
	}

	// CreateDatabase is a no-op the second time
	if err := tickdb.CreateDatabase(cfg); err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
}
