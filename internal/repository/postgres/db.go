package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB opens a connection pool. Postgres is reached through lib/pq ("postgres")
// or pgx ("pgx", when the caller registers it); "sqlite3" is for local runs.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	dsn := cfg.DSN
	if dsn == "" {
		if driver == "sqlite3" {
			return nil, fmt.Errorf("sqlite3 driver requires DB_DSN")
		}
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	return Wrap(db), nil
}

// Wrap adds the concurrency limit to an existing handle.
func Wrap(db *sqlx.DB) *DB {
	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(10),
	}
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS sales_history (
	item_name   TEXT NOT NULL,
	code        TEXT,
	sale_date   DATE,
	quantity    DOUBLE PRECISION NOT NULL DEFAULT 0,
	supply_qty  DOUBLE PRECISION NOT NULL DEFAULT 0,
	shelf_price DOUBLE PRECISION,
	stock       DOUBLE PRECISION,
	pred        DOUBLE PRECISION,
	item_group  TEXT,
	item_type   TEXT,
	features    TEXT
);
CREATE INDEX IF NOT EXISTS idx_sales_history_item_date ON sales_history (item_name, sale_date);
CREATE TABLE IF NOT EXISTS sku_metrics (
	item_name TEXT PRIMARY KEY,
	mape      DOUBLE PRECISION,
	mae       DOUBLE PRECISION
);
`

// Migrate creates the forecast tables when missing.
func (db *DB) Migrate(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	})
}
