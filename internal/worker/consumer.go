package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/goroutine"
	"github.com/ignatzorin/bounty-indexer/internal/indexer"
	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/queue"
	"github.com/ignatzorin/bounty-indexer/internal/logger"
	"github.com/ignatzorin/bounty-indexer/internal/metrics"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

type ConsumerConfig struct {
	Workers      int
	BatchSize    int
	PollInterval time.Duration
	Lease        time.Duration
	Retry        RetryPolicy
}

// Consumer забирает события из очереди, передаёт их в Dispatcher и решает судьбу записи:
// готово, повтор с задержкой или dead-letter.
type Consumer struct {
	queue      queue.Queue
	dispatcher *indexer.Dispatcher
	cfg        ConsumerConfig
	now        func() time.Time
}

func NewConsumer(q queue.Queue, dispatcher *indexer.Dispatcher, cfg ConsumerConfig) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = cfg.Workers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Lease <= 0 {
		cfg.Lease = time.Minute
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Consumer{queue: q, dispatcher: dispatcher, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Run обрабатывает очередь до отмены ctx. Начатые события доводятся до конца.
func (c *Consumer) Run(ctx context.Context) {
	log := logger.Get().WithField("component", "consumer")
	log.WithFields(logrus.Fields{"workers": c.cfg.Workers, "batch": c.cfg.BatchSize}).Info("event consumer started")

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("event consumer stopped")
			return
		case <-timer.C:
		}

		n, err := c.ProcessBatch(ctx)
		if err != nil {
			log.WithError(err).Warn("queue claim failed")
		}
		if n > 0 && err == nil {
			timer.Reset(0)
		} else {
			timer.Reset(c.cfg.PollInterval)
		}
	}
}

// ProcessBatch забирает пачку событий и обрабатывает её параллельно; возвращает размер пачки.
func (c *Consumer) ProcessBatch(ctx context.Context) (int, error) {
	batch, err := c.queue.Claim(ctx, c.now(), c.cfg.BatchSize, c.cfg.Lease)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	// События одной пачки имеют разные ключи, поэтому их можно обрабатывать параллельно.
	work := context.WithoutCancel(ctx)
	sem := make(chan struct{}, c.cfg.Workers)
	var wg sync.WaitGroup
	for _, rec := range batch {
		sem <- struct{}{}
		wg.Add(1)
		goroutine.SafeGo(func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			c.handle(work, rec)
		})
	}
	wg.Wait()
	return len(batch), nil
}

func (c *Consumer) handle(ctx context.Context, rec *queue.Record) {
	log := logger.Get().WithFields(logrus.Fields{
		"event_id":   rec.ID,
		"event_type": rec.Event.Type,
		"entity_key": rec.EntityKey,
		"attempt":    rec.Attempts,
	})

	err := c.dispatch(ctx, rec)
	switch {
	case err == nil:
		if qErr := c.queue.Complete(ctx, rec.ID, c.now()); qErr != nil {
			log.WithError(qErr).Error("failed to mark event done")
		}
	case apperror.IsTransient(err) && !c.cfg.Retry.Exhausted(rec.Attempts):
		next := c.now().Add(c.cfg.Retry.Backoff(rec.Attempts))
		if qErr := c.queue.Retry(ctx, rec.ID, next, err); qErr != nil {
			log.WithError(qErr).Error("failed to schedule event retry")
		}
	case apperror.IsTransient(err):
		exhausted := apperror.Wrap(err, apperror.ErrCodeRetryExhausted,
			fmt.Sprintf("событие не обработано за %d попыток", rec.Attempts))
		c.deadLetter(ctx, log, rec, exhausted)
	default:
		c.deadLetter(ctx, log, rec, err)
	}
}

func (c *Consumer) dispatch(ctx context.Context, rec *queue.Record) error {
	env, err := event.Decode(rec.Event)
	if err != nil {
		return err
	}
	return c.dispatcher.Dispatch(ctx, env)
}

func (c *Consumer) deadLetter(ctx context.Context, log *logrus.Entry, rec *queue.Record, cause error) {
	code := apperror.CodeOf(cause)
	log.WithField("error_code", code).WithError(cause).Error("event moved to dead-letter")
	metrics.RecordDeadLetter(rec.Event.Type, string(code))
	if err := c.queue.DeadLetter(ctx, rec.ID, cause); err != nil {
		log.WithError(err).Error("failed to dead-letter event")
	}
}
