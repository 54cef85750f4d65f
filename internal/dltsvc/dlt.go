package dltsvc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/message"
)

// Record status; everything lands UNRESOLVED until an operator acts.
type Status string

const StatusUnresolved Status = "UNRESOLVED"

// Record is one captured dead-letter arrival: the original message
// plus a generated description of which service failed to process
// which message kind.
type Record struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	MessageID     uuid.UUID `gorm:"type:uuid;not null"`
	CorrelationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Type          string    `gorm:"size:64;not null"`
	Status        Status    `gorm:"size:32;not null"`
	Description   string    `gorm:"size:255;not null"`
	Payload       *string   `gorm:"type:jsonb"`
	ReceivedAt    time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Record) TableName() string { return "dlt_messages" }

// Service is the passive collector behind every dead-letter topic. It
// persists each arrival for manual inspection and performs no retry or
// recovery of its own.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewService wires the collector.
func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Handle implements consumer.Handler for all -dlt topics.
func (s *Service) Handle(ctx context.Context, msg message.Message) error {
	return s.Register(ctx, msg)
}

// Register persists one dead-lettered message.
func (s *Service) Register(ctx context.Context, msg message.Message) error {
	desc, err := Describe(msg.Name)
	if err != nil {
		return err
	}
	payload, err := encodePayload(msg.Payload)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rec := Record{
		ID:            uuid.New(),
		MessageID:     msg.ID,
		CorrelationID: msg.CorrelationID,
		Type:          fmt.Sprintf("%s: %s", msg.Type, msg.Name),
		Status:        StatusUnresolved,
		Description:   desc,
		Payload:       payload,
		ReceivedAt:    now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	s.log.Warnw("dead-letter registered", "messageId", msg.ID, "description", desc)
	return nil
}

// RecordDTO is the report shape exposed by the API.
type RecordDTO struct {
	ID          uuid.UUID `json:"id"`
	MessageID   uuid.UUID `json:"messageId"`
	Description string    `json:"description"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// RetrieveAll returns every captured failure, oldest first.
func (s *Service) RetrieveAll(ctx context.Context) ([]RecordDTO, error) {
	var recs []Record
	if err := s.db.WithContext(ctx).Order("received_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	dtos := make([]RecordDTO, 0, len(recs))
	for _, r := range recs {
		dtos = append(dtos, RecordDTO{
			ID:          r.ID,
			MessageID:   r.MessageID,
			Description: r.Description,
			ReceivedAt:  r.ReceivedAt,
		})
	}
	return dtos, nil
}

// Describe renders the report line for a failed message kind, naming
// the service that was supposed to consume it.
func Describe(name string) (string, error) {
	svc, err := message.ConsumerOf(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s couldn't process %s.", strings.ToUpper(svc), name), nil
}

func encodePayload(p message.Payload) (*string, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := message.MarshalPayload(p)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}
