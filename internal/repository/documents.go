package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

// Collections
const (
	CollectionChargerStates        = "charger_states"
	CollectionChargerMeasurements  = "charger_measurements"
	CollectionFullTransactions     = "full_charging_transactions"
	CollectionChargingTransactions = "charging_transactions"
	CollectionSlowCharging         = "slow_charging_incidents"
)

// DocumentRepository stores processed records as JSON documents
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates the document repository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// stateHistoryEntry history body of a state change
type stateHistoryEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveChargerState overwrites the charger's current state and appends a history entry
func (r *DocumentRepository) SaveChargerState(ctx context.Context, s *models.ProcessedChargerState) error {
	return r.put(ctx, CollectionChargerStates, s.ChargerID, s.ChargerID, s,
		stateHistoryEntry{Status: s.Status, Timestamp: s.Timestamp})
}

// SaveMeasurements overwrites the charger's latest measurements and appends a history entry
func (r *DocumentRepository) SaveMeasurements(ctx context.Context, m *models.ProcessedMeasurements) error {
	return r.put(ctx, CollectionChargerMeasurements, m.ChargerID, m.ChargerID, m, m)
}

// SaveFullTransaction overwrites the transaction summary
func (r *DocumentRepository) SaveFullTransaction(ctx context.Context, t *models.ProcessedFullChargingTransaction) error {
	return r.put(ctx, CollectionFullTransactions, transactionDocID(t.TransactionID), t.ChargerID, t, nil)
}

// SaveTransaction overwrites the transaction document and appends the action to its history
func (r *DocumentRepository) SaveTransaction(ctx context.Context, t *models.ProcessedChargingTransaction) error {
	return r.put(ctx, CollectionChargingTransactions, transactionDocID(t.TransactionID), t.ChargerID, t, t)
}

// SaveSlowChargingIncident inserts an incident under a fresh id
func (r *DocumentRepository) SaveSlowChargingIncident(ctx context.Context, inc *models.SlowChargingIncident) error {
	return r.put(ctx, CollectionSlowCharging, uuid.NewString(), inc.ChargerID, inc, nil)
}

func transactionDocID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// put upserts the document and, when history is non-nil, appends it in the same transaction
func (r *DocumentRepository) put(ctx context.Context, collection, docID, chargerID string, doc, history any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", collection, err)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO documents (collection, doc_id, charger_id, body, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (collection, doc_id) DO UPDATE SET
			charger_id = EXCLUDED.charger_id,
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.Exec(ctx, query, collection, docID, chargerID, body); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, docID, err)
	}

	if history != nil {
		entry, err := json.Marshal(history)
		if err != nil {
			return fmt.Errorf("encode %s history: %w", collection, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO history (id, collection, doc_id, body, recorded_at) VALUES ($1, $2, $3, $4, NOW())`,
			uuid.New(), collection, docID, entry)
		if err != nil {
			return fmt.Errorf("append %s/%s history: %w", collection, docID, err)
		}
	}

	return tx.Commit(ctx)
}

// Get returns a document body, nil if it does not exist
func (r *DocumentRepository) Get(ctx context.Context, collection, docID string) (json.RawMessage, error) {
	var body []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND doc_id = $2`,
		collection, docID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, docID, err)
	}
	return body, nil
}

// History returns the latest history entries of a document, newest first
func (r *DocumentRepository) History(ctx context.Context, collection, docID string, limit int) ([]models.HistoryEntry, error) {
	query := `
		SELECT id, body, recorded_at FROM history
		WHERE collection = $1 AND doc_id = $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`
	rows, err := r.db.Pool.Query(ctx, query, collection, docID, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s/%s history: %w", collection, docID, err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var (
			e    models.HistoryEntry
			id   uuid.UUID
			body []byte
		)
		if err := rows.Scan(&id, &body, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.ID = id.String()
		e.Body = body
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
