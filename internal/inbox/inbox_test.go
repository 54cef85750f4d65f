package inbox

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&ConsumedMessage{}))
	return db
}

func TestGuardDetectsRedelivery(t *testing.T) {
	db := newTestDB(t)
	log, _ := logger.NewLogger()
	guard := NewGuard(log)
	ctx := context.Background()
	id := uuid.New()

	dup, err := guard.IsDuplicate(ctx, db, id)
	assert.NoError(t, err)
	assert.False(t, dup)

	dup, err = guard.IsDuplicate(ctx, db, id)
	assert.NoError(t, err)
	assert.True(t, dup)

	// a different id is a first sighting again
	dup, err = guard.IsDuplicate(ctx, db, uuid.New())
	assert.NoError(t, err)
	assert.False(t, dup)
}

func TestGuardInsertRollsBackWithHandlerTx(t *testing.T) {
	db := newTestDB(t)
	log, _ := logger.NewLogger()
	guard := NewGuard(log)
	ctx := context.Background()
	id := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		dup, err := guard.IsDuplicate(ctx, tx, id)
		assert.NoError(t, err)
		assert.False(t, dup)
		return gorm.ErrInvalidData // force rollback
	})
	assert.Error(t, err)

	// the failed handler left no ledger row, so redelivery processes
	dup, err := guard.IsDuplicate(ctx, db, id)
	assert.NoError(t, err)
	assert.False(t, dup)
}

func TestCleanerExpiresOnlyOldRows(t *testing.T) {
	db := newTestDB(t)
	log, _ := logger.NewLogger()
	cleaner := NewCleaner(db, time.Minute, 30*time.Minute, log)
	ctx := context.Background()

	old := ConsumedMessage{ID: uuid.New(), Timestamp: time.Now().UTC().Add(-time.Hour)}
	fresh := ConsumedMessage{ID: uuid.New(), Timestamp: time.Now().UTC()}
	assert.NoError(t, db.Create(&old).Error)
	assert.NoError(t, db.Create(&fresh).Error)

	n, err := cleaner.CleanOnce(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var remaining []ConsumedMessage
	assert.NoError(t, db.Find(&remaining).Error)
	assert.Len(t, remaining, 1)
	assert.Equal(t, fresh.ID, remaining[0].ID)
}
