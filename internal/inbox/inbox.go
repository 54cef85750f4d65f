package inbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConsumedMessage is one row of the dedup ledger. Insertion is the
// dedup decision point: a successful insert means first sighting, a
// primary-key violation means duplicate.
type ConsumedMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Timestamp time.Time `gorm:"not null;index"`
}

func (ConsumedMessage) TableName() string { return "consumed_messages" }

// Guard makes at-least-once delivery behave like at-most-once
// processing. It relies on the store's uniqueness constraint, not
// in-process locking, so it is safe across concurrent consumers.
type Guard struct {
	log *zap.SugaredLogger
}

// NewGuard constructs the guard. The gorm handle must be opened with
// TranslateError so duplicate keys surface as gorm.ErrDuplicatedKey.
func NewGuard(log *zap.SugaredLogger) *Guard {
	return &Guard{log: log}
}

// IsDuplicate attempts to insert id through the handler's own tx. It
// is a single insert-or-detect operation; an exists-check followed by
// an insert would race under concurrent redelivery.
func (g *Guard) IsDuplicate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	err := tx.WithContext(ctx).Create(&ConsumedMessage{ID: id, Timestamp: time.Now().UTC()}).Error
	if err == nil {
		return false, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		g.log.Warnf("skipping duplicate message %s", id)
		return true, nil
	}
	return false, err
}

// Cleaner expires ledger rows past a fixed retention. Per-row expiry,
// rather than a bulk wipe, keeps recent ids protected at all times; the
// retention must exceed the broker's maximum redelivery delay.
type Cleaner struct {
	db        *gorm.DB
	interval  time.Duration
	retention time.Duration
	log       *zap.SugaredLogger
}

// NewCleaner constructs a cleaner over the ledger table.
func NewCleaner(db *gorm.DB, interval, retention time.Duration, log *zap.SugaredLogger) *Cleaner {
	return &Cleaner{db: db, interval: interval, retention: retention, log: log}
}

// Run expires rows until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.CleanOnce(ctx)
			if err != nil {
				c.log.Errorf("clean dedup ledger: %v", err)
				continue
			}
			if n > 0 {
				c.log.Infof("expired %d consumed message ids", n)
			}
		}
	}
}

// CleanOnce deletes rows older than the retention horizon.
func (c *Cleaner) CleanOnce(ctx context.Context) (int64, error) {
	horizon := time.Now().UTC().Add(-c.retention)
	res := c.db.WithContext(ctx).
		Where("timestamp < ?", horizon).
		Delete(&ConsumedMessage{})
	return res.RowsAffected, res.Error
}
