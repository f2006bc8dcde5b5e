package tickdb

import (
	"context"
	"fmt"

	"candleservice/config"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Client wraps the GORM handle for the order_books tick table. It works
// against PostgreSQL (including Supabase) and SQLite.
type Client struct {
	DB *gorm.DB
}

func NewClient(dialector gorm.Dialector) (*Client, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialector.Name(), err)
	}

	return &Client{DB: db}, nil
}

// NewPostgresClient connects with a lib/pq style DSN.
func NewPostgresClient(dsn string) (*Client, error) {
	return NewClient(postgres.Open(dsn))
}

// NewSQLiteClient opens (or creates) a SQLite database file. ":memory:"
// opens a private in-memory database.
func NewSQLiteClient(path string) (*Client, error) {
	client, err := NewClient(sqlite.Open(path))
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db, err := client.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	db.SetMaxOpenConns(1)
	return client, nil
}

// InitializePostgres connects to PostgreSQL, optionally creates the database,
// applies the pool settings and runs AutoMigrate.
func InitializePostgres(cfg config.PostgresConfig, env string, createDB bool) (*Client, error) {
	if createDB {
		if err := CreateDatabase(cfg); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	client, err := NewPostgresClient(cfg.DSN(env))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	db, err := client.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := client.AutoMigrateTickRecord(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (c *Client) AutoMigrateTickRecord() error {
	if err := c.DB.AutoMigrate(&TickRecord{}); err != nil {
		return fmt.Errorf("auto-migrate tick table: %w", err)
	}
	return nil
}

func (c *Client) IsHealthy(ctx context.Context) bool {
	db, err := c.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (c *Client) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
