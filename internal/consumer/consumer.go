package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shoplite/order-saga/internal/message"
)

// Handler processes one decoded message. Returning an error triggers
// the retry policy; wrap with NonRetryable to skip straight to the
// dead-letter topic.
type Handler func(ctx context.Context, msg message.Message) error

// NonRetryable marks err as permanent: a business-rule failure that no
// number of retries will fix.
func NonRetryable(err error) error {
	return backoff.Permanent(err)
}

// Fetcher is the slice of kafka.Reader the consumer needs.
type Fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher ships failed messages to the dead-letter topic.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// RetryPolicy bounds handler retries before a message is dead-lettered.
type RetryPolicy struct {
	Attempts uint64
	Delay    time.Duration
}

// DefaultRetryPolicy mirrors the platform-wide policy: three retries
// five seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 5 * time.Second}
}

// Consumer wraps one partition-consuming worker with the retry and
// dead-letter policy, so a poison message is rerouted instead of
// blocking every offset behind it.
type Consumer struct {
	topic   string
	fetch   Fetcher
	dlt     Publisher
	handler Handler
	policy  RetryPolicy
	log     *zap.SugaredLogger
}

// New constructs a consumer for topic. dlt receives messages that
// exhaust retries, republished verbatim to the topic's -dlt channel.
func New(topic string, fetch Fetcher, dlt Publisher, handler Handler, policy RetryPolicy, log *zap.SugaredLogger) *Consumer {
	return &Consumer{topic: topic, fetch: fetch, dlt: dlt, handler: handler, policy: policy, log: log}
}

// Run fetches and processes messages until ctx is cancelled. The
// original offset is always committed once the message is either
// handled or dead-lettered.
func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.fetch.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Errorf("fetch %s: %v", c.topic, err)
			continue
		}
		c.Process(ctx, m)
		if err := c.fetch.CommitMessages(ctx, m); err != nil {
			c.log.Errorf("commit %s offset %d: %v", c.topic, m.Offset, err)
		}
	}
}

// Process runs the handler under the retry policy and dead-letters the
// raw message on exhaustion or on a non-retryable failure.
func (c *Consumer) Process(ctx context.Context, m kafka.Message) {
	var msg message.Message
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		// Malformed payloads can never deserialize; no point retrying.
		c.log.Errorf("decode message on %s: %v", c.topic, err)
		c.deadLetter(ctx, m)
		return
	}

	op := func() error { return c.handler(ctx, msg) }
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.policy.Delay), c.policy.Attempts),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		c.log.Errorf("handler failed for %s id=%s: %v", msg.Name, msg.ID, err)
		c.deadLetter(ctx, m)
	}
}

// deadLetter republishes the original message verbatim to the source
// topic's dead-letter counterpart.
func (c *Consumer) deadLetter(ctx context.Context, m kafka.Message) {
	err := c.dlt.WriteMessages(ctx, kafka.Message{
		Topic: message.DLTFor(c.topic),
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now(),
	})
	if err != nil {
		c.log.Errorf("dead-letter publish for %s: %v", c.topic, err)
		return
	}
	c.log.Warnf("message rerouted to %s", message.DLTFor(c.topic))
}
