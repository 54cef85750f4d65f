package shipmentsvc

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/inbox"
	"github.com/shoplite/order-saga/internal/message"
	"github.com/shoplite/order-saga/internal/outbox"
)

// Booking is a successful carrier reservation.
type Booking struct {
	Carrier        string
	TrackingNumber string
}

// Booker is where a real carrier integration plugs in. The default
// books everything with UPS, keeping the success/failure event
// branches without a live carrier API.
type Booker interface {
	Book(ctx context.Context, payload *message.ArrangeShipmentPayload) (Booking, error)
}

// BookAll is the stand-in carrier used outside production.
type BookAll struct{}

// Book reserves a synthetic UPS tracking number.
func (BookAll) Book(_ context.Context, _ *message.ArrangeShipmentPayload) (Booking, error) {
	return Booking{
		Carrier:        "UPS",
		TrackingNumber: fmt.Sprintf("1Z%010d", rand.Int63n(1e10)),
	}, nil
}

// Service owns the shipment records and both shipment commands.
type Service struct {
	db     *gorm.DB
	outbox *outbox.Store
	guard  *inbox.Guard
	booker Booker
	log    *zap.SugaredLogger
}

// NewService wires the shipment service.
func NewService(db *gorm.DB, ob *outbox.Store, guard *inbox.Guard, booker Booker, log *zap.SugaredLogger) *Service {
	if booker == nil {
		booker = BookAll{}
	}
	return &Service{db: db, outbox: ob, guard: guard, booker: booker, log: log}
}

// Handle implements consumer.Handler for the shipment-commands topic.
func (s *Service) Handle(ctx context.Context, msg message.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := s.guard.IsDuplicate(ctx, tx, msg.ID)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
		s.log.Infow("command received", "name", msg.Name, "correlationId", msg.CorrelationID)

		switch msg.Name {
		case message.ArrangeShipment:
			return s.arrange(ctx, tx, msg)
		case message.CancelShipment:
			return s.cancel(ctx, tx, msg)
		default:
			return fmt.Errorf("unexpected command %q", msg.Name)
		}
	})
}

func (s *Service) arrange(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	payload, ok := msg.Payload.(*message.ArrangeShipmentPayload)
	if !ok {
		return fmt.Errorf("%s carries no shipment payload", msg.Name)
	}
	now := time.Now().UTC()
	shipment := Shipment{
		ID:         uuid.New(),
		OrderID:    payload.OrderID,
		Address:    payload.ShippingAddress.Address,
		PostalCode: payload.ShippingAddress.PostalCode,
		City:       payload.ShippingAddress.City,
		Country:    payload.ShippingAddress.Country,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	booking, bookErr := s.booker.Book(ctx, payload)
	if bookErr != nil {
		reason := bookErr.Error()
		shipment.Status = StatusFailed
		shipment.FailureReason = &reason
		if err := tx.WithContext(ctx).Create(&shipment).Error; err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, arrangementFailedEvent(msg.CorrelationID, reason, now))
	}

	shipment.Status = StatusArranged
	shipment.Carrier = booking.Carrier
	shipment.TrackingNumber = booking.TrackingNumber
	if err := tx.WithContext(ctx).Create(&shipment).Error; err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, tx, shipmentArrangedEvent(msg.CorrelationID, &shipment))
}

func (s *Service) cancel(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	payload, ok := msg.Payload.(*message.CancelShipmentPayload)
	if !ok {
		return fmt.Errorf("%s carries no cancel payload", msg.Name)
	}
	var shipment Shipment
	if err := tx.WithContext(ctx).Where("id = ?", payload.ShipmentID).First(&shipment).Error; err != nil {
		return fmt.Errorf("cancel shipment %s: %w", payload.ShipmentID, err)
	}
	shipment.Status = StatusCancelled
	shipment.CancellationReason = &payload.Reason
	shipment.UpdatedAt = time.Now().UTC()
	if err := tx.WithContext(ctx).Save(&shipment).Error; err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, tx, shipmentCancelledEvent(msg.CorrelationID, shipment.ID))
}

func shipmentArrangedEvent(correlationID uuid.UUID, shipment *Shipment) message.Message {
	return message.NewEvent(message.ShipmentArranged, correlationID, &message.ShipmentArrangedPayload{
		OrderID:        correlationID,
		ShipmentID:     shipment.ID,
		TrackingNumber: shipment.TrackingNumber,
		Carrier:        shipment.Carrier,
	})
}

func arrangementFailedEvent(correlationID uuid.UUID, reason string, failedAt time.Time) message.Message {
	return message.NewEvent(message.ArrangementFailed, correlationID, &message.ArrangementFailedPayload{
		OrderID:  correlationID,
		Reason:   reason,
		FailedAt: failedAt,
	})
}

func shipmentCancelledEvent(correlationID, shipmentID uuid.UUID) message.Message {
	return message.NewEvent(message.ShipmentCancelled, correlationID, &message.ShipmentCancelledPayload{
		OrderID:    correlationID,
		ShipmentID: shipmentID,
	})
}
