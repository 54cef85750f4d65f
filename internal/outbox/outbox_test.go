package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplite/order-saga/internal/logger"
	"github.com/shoplite/order-saga/internal/message"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&Record{}))
	log, _ := logger.NewLogger()
	return NewStore(db, log), db
}

func testEvent(correlationID uuid.UUID) message.Message {
	return message.NewEvent(message.PaymentSucceeded, correlationID, &message.PaymentSucceededPayload{
		OrderID:       correlationID,
		TransactionID: "txn-test",
	})
}

func TestEnqueueSharesCallerTransaction(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := store.Enqueue(ctx, tx, testEvent(uuid.New())); err != nil {
			return err
		}
		return errors.New("boom")
	})
	assert.Error(t, err)

	var count int64
	assert.NoError(t, db.Model(&Record{}).Count(&count).Error)
	assert.Zero(t, count, "rolled-back transaction must leave no outbox record")

	assert.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return store.Enqueue(ctx, tx, testEvent(uuid.New()))
	}))
	assert.NoError(t, db.Model(&Record{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestEnqueueUnroutableName(t *testing.T) {
	store, db := newTestStore(t)
	msg := message.NewEvent("NOT_A_MESSAGE", uuid.New(), nil)
	err := db.Transaction(func(tx *gorm.DB) error {
		return store.Enqueue(context.Background(), tx, msg)
	})
	assert.Error(t, err)
}

func TestPendingEligibility(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	msgs := []message.Message{testEvent(uuid.New()), testEvent(uuid.New()), testEvent(uuid.New())}
	for _, m := range msgs {
		assert.NoError(t, store.Enqueue(ctx, db, m))
	}
	assert.NoError(t, store.MarkPublished(ctx, msgs[0].ID))
	assert.NoError(t, store.MarkFailed(ctx, msgs[1].ID))

	recs, err := store.Pending(ctx, 10)
	assert.NoError(t, err)
	assert.Len(t, recs, 2, "failed records stay eligible, published ones do not")
	for _, rec := range recs {
		assert.NotEqual(t, msgs[0].ID, rec.ID)
	}
}

func TestSweepPublishedOnly(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	published := testEvent(uuid.New())
	pending := testEvent(uuid.New())
	assert.NoError(t, store.Enqueue(ctx, db, published))
	assert.NoError(t, store.Enqueue(ctx, db, pending))
	assert.NoError(t, store.MarkPublished(ctx, published.ID))

	n, err := store.SweepPublished(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var remaining []Record
	assert.NoError(t, db.Find(&remaining).Error)
	assert.Len(t, remaining, 1)
	assert.Equal(t, pending.ID, remaining[0].ID)
}

// capturingPublisher records writes; fail makes every write error.
type capturingPublisher struct {
	mu   sync.Mutex
	sent []kafka.Message
	fail bool
}

func (p *capturingPublisher) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unreachable")
	}
	p.sent = append(p.sent, msgs...)
	return nil
}

func TestPollerPublishesAndAdvancesStatus(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	log, _ := logger.NewLogger()

	correlationID := uuid.New()
	msg := message.NewEvent(message.OrderCreated, correlationID, &message.OrderCreatedPayload{
		OrderID:     correlationID,
		CustomerID:  uuid.New(),
		TotalAmount: decimal.RequireFromString("10.00"),
		Currency:    "USD",
	})
	assert.NoError(t, store.Enqueue(ctx, db, msg))

	pub := &capturingPublisher{}
	p := NewPoller(store, pub, time.Second, 10, log)
	p.PollOnce(ctx)
	p.wg.Wait()

	assert.Len(t, pub.sent, 1)
	assert.Equal(t, message.OrderEventsTopic, pub.sent[0].Topic)
	assert.Equal(t, correlationID.String(), string(pub.sent[0].Key))

	var rec Record
	assert.NoError(t, db.Where("id = ?", msg.ID).First(&rec).Error)
	assert.Equal(t, StatusPublished, rec.Status)
}

func TestPollerMarksFailedStillEligible(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	log, _ := logger.NewLogger()

	msg := testEvent(uuid.New())
	assert.NoError(t, store.Enqueue(ctx, db, msg))

	pub := &capturingPublisher{fail: true}
	p := NewPoller(store, pub, time.Second, 10, log)
	p.PollOnce(ctx)
	p.wg.Wait()

	var rec Record
	assert.NoError(t, db.Where("id = ?", msg.ID).First(&rec).Error)
	assert.Equal(t, StatusPublishingFailed, rec.Status)

	// the next poll retries it
	pub.fail = false
	p.PollOnce(ctx)
	p.wg.Wait()
	assert.Len(t, pub.sent, 1)
	assert.NoError(t, db.Where("id = ?", msg.ID).First(&rec).Error)
	assert.Equal(t, StatusPublished, rec.Status)
}
