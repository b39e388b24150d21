package repository

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Movelgroup/movel-RestAPI/internal/models"
)

// openTestDB connects to TEST_DATABASE_URL, skipping when it is unset
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, url)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(db.Close)
	return db
}

func TestDocumentRepositoryChargerState(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentRepository(db)
	ctx := context.Background()
	chargerID := "TEST-" + uuid.NewString()

	for _, status := range []string{"Preparing", "Charging"} {
		require.NoError(t, docs.SaveChargerState(ctx, &models.ProcessedChargerState{
			ChargerID:   chargerID,
			Timestamp:   time.Now().UTC(),
			Status:      status,
			MessageType: models.MessageTypeChargerState,
		}))
	}

	body, err := docs.Get(ctx, CollectionChargerStates, chargerID)
	require.NoError(t, err)
	var current models.ProcessedChargerState
	require.NoError(t, json.Unmarshal(body, &current))
	assert.Equal(t, "Charging", current.Status)

	history, err := docs.History(ctx, CollectionChargerStates, chargerID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	missing, err := docs.Get(ctx, CollectionChargerStates, "nope-"+uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestChargerRepository(t *testing.T) {
	db := openTestDB(t)
	docs := NewDocumentRepository(db)
	chargers := NewChargerRepository(db, docs)
	ctx := context.Background()
	chargerID := "TEST-" + uuid.NewString()

	none, err := chargers.GetChargerData(ctx, chargerID)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, chargers.UpsertChargerData(ctx, &models.ChargerData{
		ChargerID:         chargerID,
		OwnerID:           "owner",
		AssociatedUserIDs: []string{"friend"},
	}))

	data, err := chargers.GetChargerData(ctx, chargerID)
	require.NoError(t, err)
	assert.True(t, data.HasUser("friend"))

	agg, err := chargers.GetAggregate(ctx, chargerID)
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, "owner", agg.Owner.OwnerID)
	assert.Nil(t, agg.State)
}

func TestUserAndSecretRepositories(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	secrets := NewSecretRepository(db)
	ctx := context.Background()

	email := uuid.NewString() + "@Example.com"
	require.NoError(t, users.Create(ctx, &models.User{Email: email, PasswordHash: "hash", Roles: []string{"Admin"}}))

	u, err := users.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, []string{"Admin"}, u.Roles)

	id := "test-" + uuid.NewString()
	_, err = secrets.AccessSecret(ctx, id)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	require.NoError(t, secrets.PutSecret(ctx, id, "v1"))
	got, err := secrets.AccessSecret(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))
}
