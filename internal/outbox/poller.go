package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is the slice of kafka.Writer the poller needs. The writer
// must have no fixed topic; each record carries its own.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Poller implements the polling-publisher half of the outbox pattern:
// on a fixed interval it loads eligible records and ships each to the
// broker keyed by correlation id. Publishing happens off the polling
// goroutine so a slow broker never stalls the next poll.
type Poller struct {
	store    *Store
	pub      Publisher
	interval time.Duration
	batch    int
	log      *zap.SugaredLogger

	wg sync.WaitGroup
}

// NewPoller constructs a poller over store shipping through pub.
func NewPoller(store *Store, pub Publisher, interval time.Duration, batch int, log *zap.SugaredLogger) *Poller {
	if batch <= 0 {
		batch = 100
	}
	return &Poller{store: store, pub: pub, interval: interval, batch: batch, log: log}
}

// Run polls until ctx is cancelled, then waits for in-flight publishes.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce loads one batch of eligible records and dispatches each
// asynchronously. Completion callbacks advance the record status.
func (p *Poller) PollOnce(ctx context.Context) {
	recs, err := p.store.Pending(ctx, p.batch)
	if err != nil {
		p.log.Errorf("poll outbox: %v", err)
		return
	}
	for _, rec := range recs {
		rec := rec
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.publish(ctx, rec)
		}()
	}
}

func (p *Poller) publish(ctx context.Context, rec Record) {
	err := p.pub.WriteMessages(ctx, kafka.Message{
		Topic: rec.Topic,
		Key:   []byte(rec.CorrelationID.String()),
		Value: []byte(rec.Body),
		Time:  time.Now(),
	})
	if err != nil {
		p.log.Warnf("publish %s id=%s: %v", rec.Name, rec.ID, err)
		if err := p.store.MarkFailed(ctx, rec.ID); err != nil {
			p.log.Errorf("mark failed id=%s: %v", rec.ID, err)
		}
		return
	}
	if err := p.store.MarkPublished(ctx, rec.ID); err != nil {
		p.log.Errorf("mark published id=%s: %v", rec.ID, err)
		return
	}
	p.log.Infow("outbox record published", "name", rec.Name, "id", rec.ID, "topic", rec.Topic)
}

// Sweeper periodically deletes published records.
type Sweeper struct {
	store    *Store
	interval time.Duration
	log      *zap.SugaredLogger
}

// NewSweeper constructs a sweeper over store.
func NewSweeper(store *Store, interval time.Duration, log *zap.SugaredLogger) *Sweeper {
	return &Sweeper{store: store, interval: interval, log: log}
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.SweepPublished(ctx)
			if err != nil {
				s.log.Errorf("sweep outbox: %v", err)
				continue
			}
			if n > 0 {
				s.log.Infof("swept %d published outbox records", n)
			}
		}
	}
}
