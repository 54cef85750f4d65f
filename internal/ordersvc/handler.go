package ordersvc

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/inbox"
	"github.com/shoplite/order-saga/internal/message"
)

// Handler consumes the order-commands topic: the saga's two terminal
// commands. Each is processed in one transaction together with the
// dedup insert and the ack event's outbox record.
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
		case message.CompleteOrder:
			if err := h.svc.complete(ctx, tx, msg.CorrelationID); err != nil {
				return err
			}
			return h.svc.outbox.Enqueue(ctx, tx, orderCompletedEvent(msg.CorrelationID))
		case message.CancelOrder:
			payload, ok := msg.Payload.(*message.CancelOrderPayload)
			if !ok {
				return fmt.Errorf("%s carries no cancel payload", msg.Name)
			}
			if err := h.svc.cancel(ctx, tx, msg.CorrelationID, payload.Reason); err != nil {
				return err
			}
			return h.svc.outbox.Enqueue(ctx, tx, orderCancelledEvent(msg.CorrelationID, payload.Reason))
		default:
			return fmt.Errorf("unexpected command %q", msg.Name)
		}
	})
}
