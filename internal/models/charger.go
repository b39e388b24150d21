package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ChargerStatuses accepted status values in canonical casing
var ChargerStatuses = []string{
	"Available",
	"Error",
	"Offline",
	"Info",
	"Charging",
	"SuspendedCAR",
	"SuspendedCHARGER",
	"Preparing",
	"Finishing",
	"Booting",
	"Unavailable",
}

// CanonicalStatus returns the canonical casing of s, false if s is not a known status
func CanonicalStatus(s string) (string, bool) {
	for _, status := range ChargerStatuses {
		if strings.EqualFold(status, s) {
			return status, true
		}
	}
	return "", false
}

// ChargerData charger ownership record
type ChargerData struct {
	ChargerID         string    `json:"chargerId" db:"charger_id"`
	OwnerID           string    `json:"ownerId" db:"owner_id"`
	AssociatedUserIDs []string  `json:"associatedUserIds" db:"associated_user_ids"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

// HasUser reports whether userID owns or is associated with the charger
func (c *ChargerData) HasUser(userID string) bool {
	if c.OwnerID == userID {
		return true
	}
	for _, id := range c.AssociatedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ChargerAggregate everything stored for one charger
type ChargerAggregate struct {
	ChargerID    string          `json:"chargerId"`
	Owner        *ChargerData    `json:"owner,omitempty"`
	State        json.RawMessage `json:"state,omitempty"`
	Measurements json.RawMessage `json:"measurements,omitempty"`
	History      []HistoryEntry  `json:"history,omitempty"`
}

// HistoryEntry immutable entry of a document's history
type HistoryEntry struct {
	ID         string          `json:"id"`
	Body       json.RawMessage `json:"body"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// User identity store entry
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Roles        []string  `json:"roles" db:"roles"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// ApiKeyEntry a client's API key
type ApiKeyEntry struct {
	ClientID string `json:"clientId"`
	ApiKey   string `json:"apiKey"`
}

// ApiKeyConfig shape of the API key secret
type ApiKeyConfig struct {
	ValidKeys []ApiKeyEntry `json:"validKeys"`
}
