package saga

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

func TestWatchdogFlagsOnlyStaleNonTerminalSagas(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&State{}))
	log, _ := logger.NewLogger()

	old := time.Now().UTC().Add(-time.Hour)
	fresh := time.Now().UTC()
	stuck := State{OrderID: uuid.New(), Status: StatusPendingPayment, CreatedAt: old, UpdatedAt: old}
	doneLongAgo := State{OrderID: uuid.New(), Status: StatusCompleted, CreatedAt: old, UpdatedAt: old}
	active := State{OrderID: uuid.New(), Status: StatusPendingPayment, CreatedAt: fresh, UpdatedAt: fresh}
	for _, s := range []State{stuck, doneLongAgo, active} {
		s := s
		assert.NoError(t, db.Create(&s).Error)
	}

	w := NewWatchdog(db, time.Minute, 15*time.Minute, log)
	stale, err := w.Stale(context.Background())
	assert.NoError(t, err)
	assert.Len(t, stale, 1)
	assert.Equal(t, stuck.OrderID, stale[0].OrderID)
	assert.Equal(t, StatusPendingPayment, stale[0].Status)
}
