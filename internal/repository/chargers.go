package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

// historyLimit state history entries returned with an aggregate
const historyLimit = 50

// ChargerRepository charger ownership and aggregate reads
type ChargerRepository struct {
	db   *DB
	docs *DocumentRepository
}

// NewChargerRepository creates the charger repository
func NewChargerRepository(db *DB, docs *DocumentRepository) *ChargerRepository {
	return &ChargerRepository{db: db, docs: docs}
}

// GetChargerData returns the ownership record, nil if the charger is unknown
func (r *ChargerRepository) GetChargerData(ctx context.Context, chargerID string) (*models.ChargerData, error) {
	query := `
		SELECT charger_id, owner_id, associated_user_ids, created_at
		FROM charger_data WHERE charger_id = $1
	`
	c := &models.ChargerData{}
	err := r.db.Pool.QueryRow(ctx, query, chargerID).Scan(
		&c.ChargerID,
		&c.OwnerID,
		&c.AssociatedUserIDs,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get charger data: %w", err)
	}
	return c, nil
}

// UpsertChargerData creates or replaces an ownership record
func (r *ChargerRepository) UpsertChargerData(ctx context.Context, c *models.ChargerData) error {
	users := c.AssociatedUserIDs
	if users == nil {
		users = []string{}
	}
	query := `
		INSERT INTO charger_data (charger_id, owner_id, associated_user_ids, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (charger_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			associated_user_ids = EXCLUDED.associated_user_ids
		RETURNING created_at
	`
	if err := r.db.Pool.QueryRow(ctx, query, c.ChargerID, c.OwnerID, users).Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("upsert charger data: %w", err)
	}
	return nil
}

// GetAggregate collects ownership, current state, latest measurements and
// recent state history. Returns nil when nothing is stored for the charger.
func (r *ChargerRepository) GetAggregate(ctx context.Context, chargerID string) (*models.ChargerAggregate, error) {
	owner, err := r.GetChargerData(ctx, chargerID)
	if err != nil {
		return nil, err
	}
	state, err := r.docs.Get(ctx, CollectionChargerStates, chargerID)
	if err != nil {
		return nil, err
	}
	measurements, err := r.docs.Get(ctx, CollectionChargerMeasurements, chargerID)
	if err != nil {
		return nil, err
	}
	if owner == nil && state == nil && measurements == nil {
		return nil, nil
	}

	history, err := r.docs.History(ctx, CollectionChargerStates, chargerID, historyLimit)
	if err != nil {
		return nil, err
	}

	return &models.ChargerAggregate{
		ChargerID:    chargerID,
		Owner:        owner,
		State:        state,
		Measurements: measurements,
		History:      history,
	}, nil
}
