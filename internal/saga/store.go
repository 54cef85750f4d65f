package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/message"
)

// Store owns the saga state and history tables. Every mutator takes
// the caller's open transaction handle: state write, history write and
// the outbound outbox record must commit as one unit, and the row-level
// lock taken by the read-then-write is the only concurrency control.
type Store struct {
	log *zap.SugaredLogger
}

// NewStore constructs the store.
func NewStore(log *zap.SugaredLogger) *Store {
	return &Store{log: log}
}

// Create registers a new saga in CREATED with the order snapshot, plus
// the first history row.
func (s *Store) Create(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, snapshot *message.OrderCreatedPayload) (*State, error) {
	encoded, err := encodePayload(snapshot)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	state := &State{
		OrderID:             orderID,
		Status:              StatusCreated,
		OrderCreatedPayload: encoded,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := tx.WithContext(ctx).Create(state).Error; err != nil {
		return nil, err
	}
	if err := s.writeHistory(ctx, tx, state, encoded); err != nil {
		return nil, err
	}
	return state, nil
}

// Retrieve loads the saga row, locking it for the remainder of the
// transaction. An unknown correlation id is a fatal local error: the
// event references a saga that was never created, and retrying cannot
// create the missing row.
func (s *Store) Retrieve(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*State, error) {
	var state State
	err := tx.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&state).Error
	if err != nil {
		return nil, fmt.Errorf("retrieve saga %s: %w", orderID, err)
	}
	return &state, nil
}

// UpdateStatus advances the saga and appends a history row with no
// payload; it is used for internal transitions not carrying one.
func (s *Store) UpdateStatus(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, status Status) (*State, error) {
	state, err := s.Retrieve(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	state.Status = status
	return s.save(ctx, tx, state, nil)
}

// ReflectPayment records the payment outcome: the succeeded slot on
// success, the failed slot plus failure reason otherwise.
func (s *Store) ReflectPayment(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, payload message.Payload) (*State, error) {
	state, err := s.Retrieve(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	switch p := payload.(type) {
	case *message.PaymentSucceededPayload:
		state.PaymentSucceededPayload = encoded
		state.Status = StatusPaymentSucceeded
	case *message.PaymentFailedPayload:
		state.PaymentFailedPayload = encoded
		state.Status = StatusPaymentFailed
		state.FailureReason = &p.Reason
	default:
		return nil, fmt.Errorf("unexpected payment payload for saga %s", orderID)
	}
	return s.save(ctx, tx, state, encoded)
}

// ReflectShipmentArrangement records the shipment result before the
// saga moves on to payment.
func (s *Store) ReflectShipmentArrangement(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, payload *message.ShipmentArrangedPayload) (*State, error) {
	state, err := s.Retrieve(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	state.ShipmentArrangedPayload = encoded
	state.Status = StatusShipmentArranged
	return s.save(ctx, tx, state, encoded)
}

// ReflectShipmentArrangementFailure records a failed arrangement and
// its reason.
func (s *Store) ReflectShipmentArrangementFailure(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, payload *message.ArrangementFailedPayload) (*State, error) {
	state, err := s.Retrieve(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	state.ArrangementFailedPayload = encoded
	state.Status = StatusShipmentArrangementFailed
	state.FailureReason = &payload.Reason
	return s.save(ctx, tx, state, encoded)
}

// ReflectProductsUnavailability records a stock shortage and its
// reason.
func (s *Store) ReflectProductsUnavailability(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, payload *message.ProductsShortagePayload) (*State, error) {
	state, err := s.Retrieve(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	state.Status = StatusProductsUnavailability
	state.FailureReason = &payload.Reason
	return s.save(ctx, tx, state, encoded)
}

// HistoryFor returns the audit trail ordered by time.
func (s *Store) HistoryFor(ctx context.Context, db *gorm.DB, orderID uuid.UUID) ([]History, error) {
	var rows []History
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("timestamp").
		Find(&rows).Error
	return rows, err
}

func (s *Store) save(ctx context.Context, tx *gorm.DB, state *State, payload *string) (*State, error) {
	state.UpdatedAt = time.Now().UTC()
	if err := tx.WithContext(ctx).Save(state).Error; err != nil {
		return nil, err
	}
	if err := s.writeHistory(ctx, tx, state, payload); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Store) writeHistory(ctx context.Context, tx *gorm.DB, state *State, payload *string) error {
	return tx.WithContext(ctx).Create(&History{
		ID:        uuid.New(),
		OrderID:   state.OrderID,
		Status:    state.Status,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}).Error
}
