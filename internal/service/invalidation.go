package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bounty-indexer/internal/logger"
	"github.com/ignatzorin/bounty-indexer/internal/metrics"
)

const (
	EntityTask       = "task"
	EntityDispute    = "dispute"
	EntityAgent      = "agent"
	EntitySubmission = "submission"
	EntityClaim      = "claim"
)

// Invalidation - сигнал "данные сущности устарели".
type Invalidation struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

func (i Invalidation) Key() string {
	return i.Entity + ":" + i.ID
}

func ChainScopedID(chainID int64, id string) string {
	return fmt.Sprintf("%d:%s", chainID, id)
}

// InvalidationSink - потребитель сигналов (кэш, websocket-подписчики).
type InvalidationSink interface {
	Invalidate(ctx context.Context, inv Invalidation) error
}

// Invalidator - то, что вызывают обработчики событий.
type Invalidator interface {
	Invalidate(ctx context.Context, items ...Invalidation)
}

// InvalidationBus рассылает сигналы всем подписчикам. Ошибки подписчиков только логируются.
type InvalidationBus struct {
	sinks []namedSink
}

type namedSink struct {
	name string
	sink InvalidationSink
}

func NewInvalidationBus() *InvalidationBus {
	return &InvalidationBus{}
}

// Subscribe вызывается только при сборке приложения.
func (b *InvalidationBus) Subscribe(name string, sink InvalidationSink) {
	b.sinks = append(b.sinks, namedSink{name: name, sink: sink})
}

func (b *InvalidationBus) Invalidate(ctx context.Context, items ...Invalidation) {
	for _, inv := range items {
		for _, s := range b.sinks {
			if err := s.sink.Invalidate(ctx, inv); err != nil {
				logger.Get().WithFields(logrus.Fields{
					"sink":   s.name,
					"entity": inv.Entity,
					"id":     inv.ID,
				}).WithError(err).Warn("cache invalidation failed")
				metrics.RecordSideEffectFailure("invalidation")
			}
		}
	}
}

// NoopInvalidator ничего не делает.
type NoopInvalidator struct{}

func (NoopInvalidator) Invalidate(context.Context, ...Invalidation) {}

func TaskInvalidation(chainID int64, chainTaskID string) Invalidation {
	return Invalidation{Entity: EntityTask, ID: ChainScopedID(chainID, chainTaskID)}
}

func DisputeInvalidation(chainID int64, chainDisputeID string) Invalidation {
	return Invalidation{Entity: EntityDispute, ID: ChainScopedID(chainID, chainDisputeID)}
}

func AgentInvalidation(address string) Invalidation {
	return Invalidation{Entity: EntityAgent, ID: address}
}

func SubmissionInvalidation(id string) Invalidation {
	return Invalidation{Entity: EntitySubmission, ID: id}
}

func ClaimInvalidation(id string) Invalidation {
	return Invalidation{Entity: EntityClaim, ID: id}
}
