package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrSecretNotFound secret id has no value
var ErrSecretNotFound = errors.New("secret not found")

// SecretRepository secret store backed by the secrets table
type SecretRepository struct {
	db *DB
}

// NewSecretRepository creates the secret repository
func NewSecretRepository(db *DB) *SecretRepository {
	return &SecretRepository{db: db}
}

// AccessSecret returns the current value of a secret
func (r *SecretRepository) AccessSecret(ctx context.Context, id string) ([]byte, error) {
	var value string
	err := r.db.Pool.QueryRow(ctx, `SELECT value FROM secrets WHERE id = $1`, id).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("access secret %s: %w", id, err)
	}
	return []byte(value), nil
}

// PutSecret creates or replaces a secret
func (r *SecretRepository) PutSecret(ctx context.Context, id, value string) error {
	query := `
		INSERT INTO secrets (id, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.Pool.Exec(ctx, query, id, value); err != nil {
		return fmt.Errorf("put secret %s: %w", id, err)
	}
	return nil
}
