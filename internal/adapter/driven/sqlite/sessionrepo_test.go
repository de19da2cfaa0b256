package sqlite

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/envpanel/internal/domain/model"
	"github.com/ericfisherdev/envpanel/internal/domain/port/driven"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

func newTestSession(id string, lastSeen time.Time) model.Session {
	return model.Session{
		ID:         id,
		Credential: "token-" + id,
		View:       model.ViewManager,
		CreatedAt:  lastSeen,
		LastSeenAt: lastSeen,
	}
}

func TestSessionRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTestSession("s1", now)))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "token-s1", got.Credential)
	assert.Equal(t, model.ViewManager, got.View)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.True(t, now.Equal(got.LastSeenAt))
}

func TestSessionRepo_CredentialIsEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestSession("s1", time.Now())))

	var stored string
	err := db.Reader.QueryRowContext(ctx, `SELECT credential FROM sessions WHERE id = ?`, "s1").Scan(&stored)
	require.NoError(t, err)
	assert.NotContains(t, stored, "token-s1")
}

func TestSessionRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionRepo_NoKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, nil)
	ctx := context.Background()

	err := repo.Create(ctx, newTestSession("s1", time.Now()))
	require.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	_, err = repo.Get(ctx, "s1")
	require.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestSessionRepo_WrongKeyFailsToDecrypt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewSessionRepo(db, testKey).Create(ctx, newTestSession("s1", time.Now())))

	other := NewSessionRepo(db, bytes.Repeat([]byte{0x07}, 32))
	_, err := other.Get(ctx, "s1")
	assert.Error(t, err)
}

func TestSessionRepo_SetView(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestSession("s1", time.Now())))
	require.NoError(t, repo.SetView(ctx, "s1", model.ViewTree))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ViewTree, got.View)

	assert.Error(t, repo.SetView(ctx, "s1", model.View("bogus")))
}

func TestSessionRepo_Touch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := start.Add(90 * time.Minute)

	require.NoError(t, repo.Create(ctx, newTestSession("s1", start)))
	require.NoError(t, repo.Touch(ctx, "s1", later))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, later.Equal(got.LastSeenAt))
	assert.True(t, start.Equal(got.CreatedAt))
}

func TestSessionRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestSession("s1", time.Now())))
	require.NoError(t, repo.Delete(ctx, "s1"))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, repo.Delete(ctx, "s1"), "deleting a missing session should not error")
}

func TestSessionRepo_DeleteIdleSince(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db, testKey)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTestSession("old", now.Add(-48*time.Hour))))
	require.NoError(t, repo.Create(ctx, newTestSession("fresh", now.Add(-time.Minute))))

	n, err := repo.DeleteIdleSince(ctx, now.Add(-12*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, err := repo.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, old)

	fresh, err := repo.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}
