package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/message"
)

// Status tracks a record's progress through the polling publisher.
type Status string

const (
	StatusPendingPublishing Status = "PENDING_PUBLISHING"
	StatusPublished         Status = "PUBLISHED"
	StatusPublishingFailed  Status = "PUBLISHING_FAILED"
)

// Record is one outbound message persisted in the same transaction as
// the state change that caused it. Its ID equals the message's own id,
// which doubles as the idempotency key downstream.
type Record struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"size:64;not null"`
	Topic         string    `gorm:"size:64;not null"`
	CorrelationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Body          string    `gorm:"type:jsonb;not null"`
	Timestamp     time.Time `gorm:"not null"`
	Status        Status    `gorm:"size:32;not null;index"`
}

func (Record) TableName() string { return "outbox_records" }

// Store persists and advances outbox records.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewStore constructs the store around an opened gorm handle.
func NewStore(db *gorm.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: log}
}

// Enqueue routes msg to its destination topic and inserts the record
// through tx. It must run inside the same transaction as the state
// mutation the message announces; callers pass their open tx handle.
func (s *Store) Enqueue(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	topic, err := message.TopicFor(msg.Name)
	if err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode outbox body: %w", err)
	}
	rec := Record{
		ID:            msg.ID,
		Name:          msg.Name,
		Topic:         topic,
		CorrelationID: msg.CorrelationID,
		Body:          string(body),
		Timestamp:     msg.Timestamp,
		Status:        StatusPendingPublishing,
	}
	return tx.WithContext(ctx).Create(&rec).Error
}

// Pending returns records still awaiting a successful publish. Records
// that failed a previous attempt stay eligible, which is the retry
// mechanism for publish failures.
func (s *Store) Pending(ctx context.Context, limit int) ([]Record, error) {
	var recs []Record
	err := s.db.WithContext(ctx).
		Where("status IN ?", []Status{StatusPendingPublishing, StatusPublishingFailed}).
		Order("timestamp").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// MarkPublished records a broker acknowledgment.
func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, StatusPublished)
}

// MarkFailed records a failed publish attempt.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, StatusPublishingFailed)
}

func (s *Store) setStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return s.db.WithContext(ctx).
		Model(&Record{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// SweepPublished bulk-deletes acknowledged records to bound table
// growth. Returns the number of rows removed.
func (s *Store) SweepPublished(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("status = ?", StatusPublished).
		Delete(&Record{})
	return res.RowsAffected, res.Error
}
