package paymentsvc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/inbox"
	"github.com/shoplite/order-saga/internal/logger"
	"github.com/shoplite/order-saga/internal/message"
	"github.com/shoplite/order-saga/internal/outbox"
)

// declineAll rejects every charge.
type declineAll struct{}

func (declineAll) Charge(context.Context, *message.ProcessPaymentPayload) (string, error) {
	return "", errors.New("card declined")
}

func newTestService(t *testing.T, gateway Gateway) (*Service, *gorm.DB, *outbox.Store) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&Payment{}, &outbox.Record{}, &inbox.ConsumedMessage{}))
	log, _ := logger.NewLogger()
	ob := outbox.NewStore(db, log)
	return NewService(db, ob, inbox.NewGuard(log), gateway, log), db, ob
}

func processPaymentCommand(orderID uuid.UUID) message.Message {
	return message.NewCommand(message.ProcessPayment, orderID, &message.ProcessPaymentPayload{
		OrderID:         orderID,
		TotalAmount:     decimal.RequireFromString("249.00"),
		Currency:        "USD",
		PaymentMethodID: "pm-1",
	})
}

func pendingEvents(t *testing.T, ob *outbox.Store) []message.Message {
	recs, err := ob.Pending(context.Background(), 100)
	assert.NoError(t, err)
	var msgs []message.Message
	for _, rec := range recs {
		var msg message.Message
		assert.NoError(t, json.Unmarshal([]byte(rec.Body), &msg))
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestProcessPaymentApproved(t *testing.T) {
	svc, db, ob := newTestService(t, nil)
	ctx := context.Background()
	orderID := uuid.New()

	assert.NoError(t, svc.Handle(ctx, processPaymentCommand(orderID)))

	var payment Payment
	assert.NoError(t, db.Where("order_id = ?", orderID).First(&payment).Error)
	assert.Equal(t, StatusSucceeded, payment.Status)
	assert.NotNil(t, payment.TransactionID)
	assert.True(t, payment.Amount.Equal(decimal.RequireFromString("249.00")))

	events := pendingEvents(t, ob)
	assert.Len(t, events, 1)
	assert.Equal(t, message.PaymentSucceeded, events[0].Name)
	succeeded, ok := events[0].Payload.(*message.PaymentSucceededPayload)
	assert.True(t, ok)
	assert.Equal(t, *payment.TransactionID, succeeded.TransactionID)
}

func TestProcessPaymentDeclined(t *testing.T) {
	svc, db, ob := newTestService(t, declineAll{})
	ctx := context.Background()
	orderID := uuid.New()

	assert.NoError(t, svc.Handle(ctx, processPaymentCommand(orderID)),
		"a declined charge is a business outcome, not a handler failure")

	var payment Payment
	assert.NoError(t, db.Where("order_id = ?", orderID).First(&payment).Error)
	assert.Equal(t, StatusFailed, payment.Status)
	assert.Nil(t, payment.TransactionID)
	assert.Equal(t, "card declined", *payment.FailureReason)

	events := pendingEvents(t, ob)
	assert.Len(t, events, 1)
	assert.Equal(t, message.PaymentFailed, events[0].Name)
	failed, ok := events[0].Payload.(*message.PaymentFailedPayload)
	assert.True(t, ok)
	assert.Equal(t, "card declined", failed.Reason)
}

func TestProcessPaymentDuplicateChargesOnce(t *testing.T) {
	svc, db, ob := newTestService(t, nil)
	ctx := context.Background()
	orderID := uuid.New()
	cmd := processPaymentCommand(orderID)

	assert.NoError(t, svc.Handle(ctx, cmd))
	assert.NoError(t, svc.Handle(ctx, cmd))

	var count int64
	assert.NoError(t, db.Model(&Payment{}).Where("order_id = ?", orderID).Count(&count).Error)
	assert.EqualValues(t, 1, count, "redelivery must not charge twice")
	assert.Len(t, pendingEvents(t, ob), 1)
}

func TestProcessPaymentUnexpectedCommand(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	err := svc.Handle(context.Background(), message.NewCommand(message.ArrangeShipment, uuid.New(), nil))
	assert.Error(t, err)
}
