package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/sessionkeeper/internal/database"
	"github.com/openclaw/sessionkeeper/internal/model"
)

func TestAccountSessionRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewAccountSessionRepository(db.DB)
	ctx := context.Background()

	username := "alice"
	first, err := repo.Upsert(ctx, model.UpsertAccountSessionParams{
		Phone:       "+15551234567",
		SessionBlob: "blob-1",
		ProxyIndex:  2,
		UserID:      42,
		Username:    &username,
		AuthDate:    time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "blob-1", first.SessionBlob)
	assert.Equal(t, 2, first.ProxyIndex)

	t.Run("second upsert replaces the row for the same phone", func(t *testing.T) {
		second, err := repo.Upsert(ctx, model.UpsertAccountSessionParams{
			Phone:       "+15551234567",
			SessionBlob: "blob-2",
			ProxyIndex:  2,
			UserID:      43,
			Has2FA:      true,
			AuthDate:    time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, "blob-2", second.SessionBlob)
		assert.Equal(t, int64(43), second.UserID)
		assert.True(t, second.Has2FA)
		assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("keep proxy index leaves the stored index", func(t *testing.T) {
		kept, err := repo.Upsert(ctx, model.UpsertAccountSessionParams{
			Phone:          "+15551234567",
			SessionBlob:    "blob-3",
			ProxyIndex:     0,
			KeepProxyIndex: true,
			UserID:         43,
			AuthDate:       time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, "blob-3", kept.SessionBlob)
		assert.Equal(t, 2, kept.ProxyIndex)

		fresh, err := repo.Upsert(ctx, model.UpsertAccountSessionParams{
			Phone:          "+4915112345678",
			SessionBlob:    "blob-de",
			ProxyIndex:     1,
			KeepProxyIndex: true,
			UserID:         8,
			AuthDate:       time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, fresh.ProxyIndex)
	})

	t.Run("other phones are untouched", func(t *testing.T) {
		_, err := repo.Upsert(ctx, model.UpsertAccountSessionParams{
			Phone:       "+442071838750",
			SessionBlob: "blob-uk",
			ProxyIndex:  0,
			UserID:      7,
			AuthDate:    time.Now(),
		})
		require.NoError(t, err)

		us, err := repo.FindByPhone(ctx, "+15551234567")
		require.NoError(t, err)
		require.NotNil(t, us)
		assert.Equal(t, "blob-3", us.SessionBlob)
		assert.Equal(t, 2, us.ProxyIndex)

		all, err := repo.FindAll(ctx, 10, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestAccountSessionRepository_FindByPhone(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewAccountSessionRepository(db.DB)

	session, err := repo.FindByPhone(context.Background(), "+10000000000")
	require.NoError(t, err)
	assert.Nil(t, session)
}

// setupTestDB connects to TEST_DATABASE_URL and resets the schema. Tests are
// skipped when no database is configured.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(url)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	_, err = db.ExecContext(ctx, `TRUNCATE account_sessions`)
	require.NoError(t, err)
	return db
}
