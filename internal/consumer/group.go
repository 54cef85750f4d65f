package consumer

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Group runs a pool of workers over one topic, one kafka.Reader each,
// all in the same consumer group so the broker spreads partitions
// across them.
type Group struct {
	readers   []*kafka.Reader
	consumers []*Consumer
}

// NewGroup builds workers readers for topic under groupID. Every worker
// shares the dead-letter publisher and the retry policy.
func NewGroup(brokers []string, groupID, topic string, workers int, dlt Publisher, handler Handler, policy RetryPolicy, log *zap.SugaredLogger) *Group {
	if workers <= 0 {
		workers = 1
	}
	g := &Group{}
	for i := 0; i < workers; i++ {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		})
		g.readers = append(g.readers, r)
		g.consumers = append(g.consumers, New(topic, r, dlt, handler, policy, log))
	}
	return g
}

// Run blocks until ctx is cancelled and every worker has drained.
func (g *Group) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, c := range g.consumers {
		wg.Add(1)
		go func(c *Consumer) {
			defer wg.Done()
			c.Run(ctx)
		}(c)
	}
	wg.Wait()
	for _, r := range g.readers {
		_ = r.Close()
	}
}
