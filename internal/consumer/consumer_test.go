package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"

	"github.com/shoplite/order-saga/internal/logger"
	"github.com/shoplite/order-saga/internal/message"
)

// fastPolicy keeps retries cheap in tests.
func fastPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: time.Millisecond}
}

type capturingPublisher struct {
	mu   sync.Mutex
	sent []kafka.Message
}

func (p *capturingPublisher) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msgs...)
	return nil
}

// scriptedFetcher serves a fixed set of messages, then blocks until
// the context ends.
type scriptedFetcher struct {
	msgs      []kafka.Message
	committed []kafka.Message
}

func (f *scriptedFetcher) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *scriptedFetcher) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func wireMessage(t *testing.T, name string) kafka.Message {
	msg := message.NewCommand(name, uuid.New(), &message.CompleteOrderPayload{OrderID: uuid.New()})
	raw, err := json.Marshal(msg)
	assert.NoError(t, err)
	return kafka.Message{Topic: message.OrderCommandsTopic, Key: []byte(msg.CorrelationID.String()), Value: raw}
}

func TestProcessRetriesThenDeadLetters(t *testing.T) {
	log, _ := logger.NewLogger()
	dlt := &capturingPublisher{}
	attempts := 0
	c := New(message.OrderCommandsTopic, &scriptedFetcher{}, dlt, func(context.Context, message.Message) error {
		attempts++
		return errors.New("transient")
	}, fastPolicy(), log)

	wire := wireMessage(t, message.CompleteOrder)
	c.Process(context.Background(), wire)

	assert.Equal(t, 4, attempts, "one initial call plus three retries")
	assert.Len(t, dlt.sent, 1)
	assert.Equal(t, "order-commands-topic-dlt", dlt.sent[0].Topic)
	assert.Equal(t, wire.Value, dlt.sent[0].Value, "dead-lettered message is republished verbatim")
	assert.Equal(t, wire.Key, dlt.sent[0].Key)
}

func TestProcessNonRetryableSkipsRetries(t *testing.T) {
	log, _ := logger.NewLogger()
	dlt := &capturingPublisher{}
	attempts := 0
	c := New(message.OrderCommandsTopic, &scriptedFetcher{}, dlt, func(context.Context, message.Message) error {
		attempts++
		return NonRetryable(errors.New("business rule violated"))
	}, fastPolicy(), log)

	c.Process(context.Background(), wireMessage(t, message.CompleteOrder))

	assert.Equal(t, 1, attempts)
	assert.Len(t, dlt.sent, 1)
}

func TestProcessSuccessAfterRetry(t *testing.T) {
	log, _ := logger.NewLogger()
	dlt := &capturingPublisher{}
	attempts := 0
	c := New(message.OrderCommandsTopic, &scriptedFetcher{}, dlt, func(context.Context, message.Message) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, fastPolicy(), log)

	c.Process(context.Background(), wireMessage(t, message.CompleteOrder))

	assert.Equal(t, 3, attempts)
	assert.Empty(t, dlt.sent)
}

func TestProcessPoisonMessageGoesStraightToDLT(t *testing.T) {
	log, _ := logger.NewLogger()
	dlt := &capturingPublisher{}
	handled := false
	c := New(message.OrderCommandsTopic, &scriptedFetcher{}, dlt, func(context.Context, message.Message) error {
		handled = true
		return nil
	}, fastPolicy(), log)

	c.Process(context.Background(), kafka.Message{Value: []byte("{not json")})

	assert.False(t, handled)
	assert.Len(t, dlt.sent, 1)
}

func TestRunCommitsOffsetEvenForPoison(t *testing.T) {
	log, _ := logger.NewLogger()
	dlt := &capturingPublisher{}
	fetcher := &scriptedFetcher{msgs: []kafka.Message{
		{Offset: 1, Value: []byte("{not json")},
		wireMessage(t, message.CompleteOrder),
	}}
	handled := 0
	c := New(message.OrderCommandsTopic, fetcher, dlt, func(context.Context, message.Message) error {
		handled++
		return nil
	}, fastPolicy(), log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	<-done

	assert.Equal(t, 1, handled, "the poison message must not block the next offset")
	assert.Len(t, fetcher.committed, 2)
	assert.Len(t, dlt.sent, 1)
}
