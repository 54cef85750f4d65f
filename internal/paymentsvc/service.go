package paymentsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/inbox"
	"github.com/shoplite/order-saga/internal/message"
	"github.com/shoplite/order-saga/internal/outbox"
)

// Gateway is where a real PSP integration plugs in. The default
// approves everything, preserving the event-driven success/failure
// branches without a live provider.
type Gateway interface {
	Charge(ctx context.Context, payload *message.ProcessPaymentPayload) (transactionID string, err error)
}

// ApproveAll is the stand-in gateway used outside production.
type ApproveAll struct{}

// Charge approves the payment with a synthetic transaction id.
func (ApproveAll) Charge(_ context.Context, _ *message.ProcessPaymentPayload) (string, error) {
	return fmt.Sprintf("txn-%s", uuid.NewString()[:8]), nil
}

// Service owns the payment records and the PROCESS_PAYMENT handler.
type Service struct {
	db      *gorm.DB
	outbox  *outbox.Store
	guard   *inbox.Guard
	gateway Gateway
	log     *zap.SugaredLogger
}

// NewService wires the payment service.
func NewService(db *gorm.DB, ob *outbox.Store, guard *inbox.Guard, gateway Gateway, log *zap.SugaredLogger) *Service {
	if gateway == nil {
		gateway = ApproveAll{}
	}
	return &Service{db: db, outbox: ob, guard: guard, gateway: gateway, log: log}
}

// Handle implements consumer.Handler for the payment-commands topic.
func (s *Service) Handle(ctx context.Context, msg message.Message) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := s.guard.IsDuplicate(ctx, tx, msg.ID)
		if err != nil {
			return err
		}
		if dup {
			return nil
		}
		if msg.Name != message.ProcessPayment {
			return fmt.Errorf("unexpected command %q", msg.Name)
		}
		payload, ok := msg.Payload.(*message.ProcessPaymentPayload)
		if !ok {
			return fmt.Errorf("%s carries no payment payload", msg.Name)
		}
		s.log.Infow("command received", "name", msg.Name, "correlationId", msg.CorrelationID)

		now := time.Now().UTC()
		payment := Payment{
			ID:              uuid.New(),
			OrderID:         payload.OrderID,
			Amount:          payload.TotalAmount,
			Currency:        payload.Currency,
			PaymentMethodID: payload.PaymentMethodID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		transactionID, chargeErr := s.gateway.Charge(ctx, payload)
		if chargeErr != nil {
			reason := chargeErr.Error()
			payment.Status = StatusFailed
			payment.FailureReason = &reason
			if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
				return err
			}
			return s.outbox.Enqueue(ctx, tx, paymentFailedEvent(msg.CorrelationID, reason, now))
		}

		payment.Status = StatusSucceeded
		payment.TransactionID = &transactionID
		if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
			return err
		}
		return s.outbox.Enqueue(ctx, tx, paymentSucceededEvent(msg.CorrelationID, transactionID))
	})
}

func paymentSucceededEvent(correlationID uuid.UUID, transactionID string) message.Message {
	return message.NewEvent(message.PaymentSucceeded, correlationID, &message.PaymentSucceededPayload{
		OrderID:       correlationID,
		TransactionID: transactionID,
	})
}

func paymentFailedEvent(correlationID uuid.UUID, reason string, processedAt time.Time) message.Message {
	return message.NewEvent(message.PaymentFailed, correlationID, &message.PaymentFailedPayload{
		OrderID:     correlationID,
		Reason:      reason,
		ProcessedAt: processedAt,
	})
}
