package addressbook

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vikramrao-dev/tiffinbox-backend/pkg/db/models"
)

func setupAddressTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS delivery_details (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL,
  address TEXT NOT NULL,
  is_default INTEGER NOT NULL DEFAULT 0,
  is_guest INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS uniq_default_delivery_detail_per_user
  ON delivery_details (user_id)
  WHERE is_default AND user_id IS NOT NULL;`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM delivery_details").Error)
	return db
}

func newEntry(owner *uuid.UUID, name string) *models.DeliveryDetail {
	return &models.DeliveryDetail{
		UserID:  owner,
		Name:    name,
		Email:   name + "@example.com",
		Phone:   "9876543210",
		Address: "14 MG Road, Pune",
		IsGuest: owner == nil,
	}
}

func TestRepositoryCreate_FirstEntryBecomesDefault(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	first := newEntry(&owner, "asha")
	require.NoError(t, repo.Create(ctx, first))
	assert.True(t, first.IsDefault)

	second := newEntry(&owner, "asha-office")
	require.NoError(t, repo.Create(ctx, second))
	assert.False(t, second.IsDefault)
}

func TestRepositoryCreate_GuestNeverDefault(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)

	guest := newEntry(nil, "walkin")
	require.NoError(t, repo.Create(context.Background(), guest))
	assert.False(t, guest.IsDefault)
	assert.True(t, guest.IsGuest)
}

func TestRepositorySetDefault_MovesFlagAtomically(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	first := newEntry(&owner, "home")
	second := newEntry(&owner, "office")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	found, err := repo.SetDefault(ctx, owner, second.ID)
	require.NoError(t, err)
	assert.True(t, found)

	entries, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	defaults := 0
	for _, entry := range entries {
		if entry.IsDefault {
			defaults++
			assert.Equal(t, second.ID, entry.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestRepositoryCreate_DefaultCollisionFallsBackToNonDefault(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	first := newEntry(&owner, "home")
	require.NoError(t, repo.Create(ctx, first))
	require.True(t, first.IsDefault)

	// A racing client that also decided it was inserting the first entry
	// arrives flagged as default. The unique index rejects it and the
	// insert retries as a non-default entry.
	second := newEntry(&owner, "office")
	second.IsDefault = true
	require.NoError(t, repo.Create(ctx, second))
	assert.False(t, second.IsDefault)

	entries, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	defaults := 0
	for _, entry := range entries {
		if entry.IsDefault {
			defaults++
			assert.Equal(t, first.ID, entry.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestRepositorySetDefault_UnknownIDKeepsCurrentDefault(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	entry := newEntry(&owner, "home")
	require.NoError(t, repo.Create(ctx, entry))
	require.True(t, entry.IsDefault)

	found, err := repo.SetDefault(ctx, owner, uuid.New())
	require.NoError(t, err)
	assert.False(t, found)

	reloaded, err := repo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.True(t, reloaded.IsDefault)
}

func TestRepositorySetDefault_OtherOwnersEntryNotFound(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	entry := newEntry(&owner, "home")
	require.NoError(t, repo.Create(ctx, entry))

	found, err := repo.SetDefault(ctx, stranger, entry.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRepositoryDelete_PromotesOldestRemaining(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := newEntry(&owner, "home")
	first.CreatedAt = base
	second := newEntry(&owner, "office")
	second.CreatedAt = base.Add(time.Hour)
	third := newEntry(&owner, "parents")
	third.CreatedAt = base.Add(2 * time.Hour)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, third))
	require.True(t, first.IsDefault)

	require.NoError(t, repo.Delete(ctx, first))

	entries, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsDefault)
	assert.Equal(t, second.ID, entries[0].ID)
}

func TestRepositoryDelete_NonDefaultLeavesFlagAlone(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	first := newEntry(&owner, "home")
	second := newEntry(&owner, "office")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	require.NoError(t, repo.Delete(ctx, second))

	entries, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.True(t, entries[0].IsDefault)
}

func TestRepositoryListByOwner_ExcludesGuestRows(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	owner := uuid.New()

	require.NoError(t, repo.Create(ctx, newEntry(&owner, "home")))
	require.NoError(t, repo.Create(ctx, newEntry(nil, "walkin")))

	entries, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "home", entries[0].Name)
}
