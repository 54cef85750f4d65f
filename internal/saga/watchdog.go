package saga

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Watchdog periodically scans for sagas stuck in a non-terminal status
// with no recent progress. A participant that never responds otherwise
// stalls a saga forever with nothing noticing. The watchdog only
// reports; the state machine stays the single writer.
type Watchdog struct {
	db       *gorm.DB
	interval time.Duration
	horizon  time.Duration
	log      *zap.SugaredLogger
}

// NewWatchdog constructs a watchdog flagging sagas whose updatedAt is
// older than horizon.
func NewWatchdog(db *gorm.DB, interval, horizon time.Duration, log *zap.SugaredLogger) *Watchdog {
	return &Watchdog{db: db, interval: interval, horizon: horizon, log: log}
}

// Run scans until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale, err := w.Stale(ctx)
			if err != nil {
				w.log.Errorf("scan stale sagas: %v", err)
				continue
			}
			for _, s := range stale {
				w.log.Warnw("saga stalled",
					"orderId", s.OrderID,
					"status", s.Status,
					"updatedAt", s.UpdatedAt)
			}
		}
	}
}

// Stale returns non-terminal sagas without progress past the horizon.
func (w *Watchdog) Stale(ctx context.Context) ([]State, error) {
	cutoff := time.Now().UTC().Add(-w.horizon)
	var stale []State
	err := w.db.WithContext(ctx).
		Where("status NOT IN ?", []Status{StatusCompleted, StatusCancelled}).
		Where("updated_at < ?", cutoff).
		Find(&stale).Error
	return stale, err
}
