package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// New connects to the database
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the pool
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate runs the schema migrations
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateDocuments,
		migrationCreateHistory,
		migrationCreateChargerData,
		migrationCreateUsers,
		migrationCreateSecrets,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// documents holds one JSON document per (collection, id), last write wins
const migrationCreateDocuments = `
CREATE TABLE IF NOT EXISTS documents (
    collection VARCHAR(64) NOT NULL,
    doc_id VARCHAR(255) NOT NULL,
    charger_id VARCHAR(255) NOT NULL,
    body JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (collection, doc_id)
);
CREATE INDEX IF NOT EXISTS idx_documents_charger ON documents(charger_id, collection);
`

const migrationCreateHistory = `
CREATE TABLE IF NOT EXISTS history (
    id UUID PRIMARY KEY,
    collection VARCHAR(64) NOT NULL,
    doc_id VARCHAR(255) NOT NULL,
    body JSONB NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_history_doc ON history(collection, doc_id, recorded_at DESC);
`

const migrationCreateChargerData = `
CREATE TABLE IF NOT EXISTS charger_data (
    charger_id VARCHAR(255) PRIMARY KEY,
    owner_id VARCHAR(255) NOT NULL,
    associated_user_ids TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const migrationCreateUsers = `
CREATE TABLE IF NOT EXISTS users (
    id VARCHAR(255) PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    roles TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const migrationCreateSecrets = `
CREATE TABLE IF NOT EXISTS secrets (
    id VARCHAR(255) PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
