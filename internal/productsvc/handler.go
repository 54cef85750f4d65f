package productsvc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/inbox"
	"github.com/shoplite/order-saga/internal/message"
)

// Handler consumes the product-commands topic.
type Handler struct {
	svc   *Service
	guard *inbox.Guard
}

// NewHandler wires the command handler.
func NewHandler(svc *Service, guard *inbox.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

// Handle implements consumer.Handler.
func (h *Handler) Handle(ctx context.Context, msg message.Message) error {
	return h.svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := h.guard.IsDuplicate(ctx, tx, msg.ID)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
		h.svc.log.Infow("command received", "name", msg.Name, "correlationId", msg.CorrelationID)

		switch msg.Name {
		case message.ConfirmAvailability:
			return h.confirmAvailability(ctx, tx, msg)
		case message.UpdateProducts:
			return h.updateProducts(ctx, tx, msg)
		default:
			return fmt.Errorf("unexpected command %q", msg.Name)
		}
	})
}

func (h *Handler) confirmAvailability(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	payload, ok := msg.Payload.(*message.ConfirmAvailabilityPayload)
	if !ok {
		return fmt.Errorf("%s carries no availability payload", msg.Name)
	}
	insufficient, err := h.svc.ConfirmAvailability(ctx, tx, payload.ProductsToCheck)
	if err != nil {
		return err
	}
	if len(insufficient) == 0 {
		return h.svc.outbox.Enqueue(ctx, tx, availabilityConfirmedEvent(msg.CorrelationID))
	}
	return h.svc.outbox.Enqueue(ctx, tx, productsShortageEvent(msg.CorrelationID, insufficient))
}

func (h *Handler) updateProducts(ctx context.Context, tx *gorm.DB, msg message.Message) error {
	payload, ok := msg.Payload.(*message.UpdateProductsPayload)
	if !ok {
		return fmt.Errorf("%s carries no update payload", msg.Name)
	}
	if err := h.svc.AdjustStock(ctx, tx, payload.ProductsToDecrement, Decrement); err != nil {
		return err
	}
	return h.svc.outbox.Enqueue(ctx, tx, productsUpdatedEvent(msg.CorrelationID))
}

func availabilityConfirmedEvent(correlationID uuid.UUID) message.Message {
	return message.NewEvent(message.AvailabilityConfirmed, correlationID, &message.AvailabilityConfirmedPayload{
		OrderID: correlationID,
	})
}

func productsShortageEvent(correlationID uuid.UUID, insufficient []message.InsufficientProduct) message.Message {
	return message.NewEvent(message.ProductsShortage, correlationID, &message.ProductsShortagePayload{
		OrderID:            correlationID,
		Reason:             ShortageReason(insufficient),
		OutOfStockProducts: insufficient,
	})
}

func productsUpdatedEvent(correlationID uuid.UUID) message.Message {
	return message.NewEvent(message.ProductsUpdated, correlationID, &message.ProductsUpdatedPayload{
		OrderID: correlationID,
	})
}
