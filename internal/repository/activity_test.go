package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jmylchreest/dashgate/internal/models"
)

func setupActivityTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.ActivityEvent{}))

	return db
}

func TestActivityRepo_CreateAndList(t *testing.T) {
	db := setupActivityTestDB(t)
	repo := NewActivityRepository(db, nil)
	ctx := context.Background()

	event := &models.ActivityEvent{StreamID: "chan1", Kind: models.ActivityActivated, Detail: "pipeline started"}
	require.NoError(t, repo.Create(ctx, event))
	assert.False(t, event.ID.IsZero())

	events, err := repo.ListByStream(ctx, "chan1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ActivityActivated, events[0].Kind)
}

func TestActivityRepo_CreateRejectsInvalidEvent(t *testing.T) {
	db := setupActivityTestDB(t)
	repo := NewActivityRepository(db, nil)
	ctx := context.Background()

	err := repo.Create(ctx, &models.ActivityEvent{Kind: models.ActivityActivated})
	assert.ErrorIs(t, err, models.ErrStreamIDRequired)

	err = repo.Create(ctx, &models.ActivityEvent{StreamID: "chan1", Kind: "bogus"})
	assert.ErrorIs(t, err, models.ErrInvalidActivityKind)
}

func TestActivityRepo_ListByStreamLimit(t *testing.T) {
	db := setupActivityTestDB(t)
	repo := NewActivityRepository(db, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &models.ActivityEvent{StreamID: "chan1", Kind: models.ActivityActivated}))
	}

	events, err := repo.ListByStream(ctx, "chan1", 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestActivityRepo_RecordNeverPanicsOnInvalidKind(t *testing.T) {
	db := setupActivityTestDB(t)
	repo := NewActivityRepository(db, nil)

	assert.NotPanics(t, func() {
		repo.Record(context.Background(), "chan1", "not-a-real-kind", "detail")
	})

	events, err := repo.ListByStream(context.Background(), "chan1", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}
