package saga

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shoplite/order-saga/internal/message"
)

// Status is the saga's position in the transition graph. Transitions
// only move forward; COMPLETED and CANCELLED are terminal.
type Status string

const (
	StatusCreated                         Status = "CREATED"
	StatusPendingAvailabilityConfirmation Status = "PENDING_AVAILABILITY_CONFIRMATION"
	StatusAvailabilityConfirmed           Status = "AVAILABILITY_CONFIRMED"
	StatusProductsUnavailability          Status = "PRODUCTS_UNAVAILABILITY"
	StatusPendingShipmentArrangement      Status = "PENDING_SHIPMENT_ARRANGEMENT"
	StatusShipmentArranged                Status = "SHIPMENT_ARRANGED"
	StatusShipmentArrangementFailed       Status = "SHIPMENT_ARRANGEMENT_FAILED"
	StatusPendingPayment                  Status = "PENDING_PAYMENT"
	StatusPaymentSucceeded                Status = "PAYMENT_SUCCEEDED"
	StatusPaymentFailed                   Status = "PAYMENT_FAILED"
	StatusPendingShipmentCancellation     Status = "PENDING_SHIPMENT_CANCELLATION"
	StatusPendingCompletion               Status = "PENDING_COMPLETION"
	StatusPendingCancellation             Status = "PENDING_CANCELLATION"
	StatusCompleted                       Status = "COMPLETED"
	StatusCancelled                       Status = "CANCELLED"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// State is the authoritative progress record for one saga instance,
// keyed by the order id, which doubles as the correlation id of every
// message in the saga. Payload slots fill in as events arrive.
type State struct {
	OrderID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Status                   Status    `gorm:"size:50;not null"`
	OrderCreatedPayload      *string   `gorm:"type:jsonb"`
	PaymentSucceededPayload  *string   `gorm:"type:jsonb"`
	PaymentFailedPayload     *string   `gorm:"type:jsonb"`
	ShipmentArrangedPayload  *string   `gorm:"type:jsonb"`
	ArrangementFailedPayload *string   `gorm:"type:jsonb"`
	FailureReason            *string
	CreatedAt                time.Time `gorm:"not null"`
	UpdatedAt                time.Time `gorm:"not null"`
}

func (State) TableName() string { return "orders_state" }

// OrderCreated decodes the stored order snapshot. Every forward step
// after creation draws its command payload from it.
func (s *State) OrderCreated() (*message.OrderCreatedPayload, error) {
	if s.OrderCreatedPayload == nil {
		return nil, fmt.Errorf("saga %s has no order snapshot", s.OrderID)
	}
	p, err := message.UnmarshalPayload([]byte(*s.OrderCreatedPayload))
	if err != nil {
		return nil, err
	}
	snapshot, ok := p.(*message.OrderCreatedPayload)
	if !ok {
		return nil, fmt.Errorf("saga %s order snapshot has unexpected type", s.OrderID)
	}
	return snapshot, nil
}

// ShipmentArranged decodes the stored shipment result, needed to build
// the compensating cancel-shipment command.
func (s *State) ShipmentArranged() (*message.ShipmentArrangedPayload, error) {
	if s.ShipmentArrangedPayload == nil {
		return nil, fmt.Errorf("saga %s has no shipment payload", s.OrderID)
	}
	p, err := message.UnmarshalPayload([]byte(*s.ShipmentArrangedPayload))
	if err != nil {
		return nil, err
	}
	arranged, ok := p.(*message.ShipmentArrangedPayload)
	if !ok {
		return nil, fmt.Errorf("saga %s shipment payload has unexpected type", s.OrderID)
	}
	return arranged, nil
}

// History is an append-only snapshot of status plus the payload that
// triggered it, written atomically with every State mutation. Ordered
// by timestamp it reconstructs the saga's audit trail.
type History struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Status    Status    `gorm:"size:50;not null"`
	Payload   *string   `gorm:"type:jsonb"`
	Timestamp time.Time `gorm:"not null"`
}

func (History) TableName() string { return "orders_state_history" }

// encodePayload renders a payload slot value, nil for nil.
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
