package worker

import (
	"context"
	"time"

	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/queue"
	"github.com/ignatzorin/bounty-indexer/internal/logger"
	"github.com/ignatzorin/bounty-indexer/internal/metrics"
)

// DueResolver - то, что планировщик вызывает по таймеру.
type DueResolver interface {
	ResolveDue(ctx context.Context, now time.Time) (int, error)
}

// Scheduler периодически разрешает споры с истёкшим голосованием и обновляет глубину очереди.
type Scheduler struct {
	resolver DueResolver
	queue    queue.Queue
	interval time.Duration
	now      func() time.Time
}

func NewScheduler(resolver DueResolver, q queue.Queue, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{resolver: resolver, queue: q, interval: interval, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick выполняет один проход планировщика.
func (s *Scheduler) Tick(ctx context.Context) {
	log := logger.Get().WithField("component", "scheduler")

	n, err := s.resolver.ResolveDue(ctx, s.now())
	if err != nil {
		log.WithError(err).Warn("dispute resolution pass failed")
	} else if n > 0 {
		log.WithField("resolved", n).Info("disputes resolved")
	}

	if s.queue == nil {
		return
	}
	depth, err := s.queue.Depth(ctx)
	if err != nil {
		log.WithError(err).Warn("queue depth unavailable")
		return
	}
	for status, count := range depth {
		metrics.SetQueueDepth(string(status), count)
	}
}
