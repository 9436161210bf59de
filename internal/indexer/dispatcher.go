package indexer

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/logger"
	"github.com/ignatzorin/bounty-indexer/internal/metrics"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

// Dispatcher маршрутизирует событие к обработчику под блокировкой ключей сущностей.
// Повторы не выполняет: вид ошибки (временная/постоянная) возвращается вызывающему.
type Dispatcher struct {
	handlers map[event.Type]Handler
	locks    *KeyLock
}

// NewDispatcher требует обработчик для каждого известного типа события.
func NewDispatcher(registry *Registry, locks *KeyLock) (*Dispatcher, error) {
	if missing := registry.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("indexer: нет обработчиков для событий %v", missing)
	}
	if locks == nil {
		locks = NewKeyLock()
	}
	handlers := make(map[event.Type]Handler, len(registry.handlers))
	for t, h := range registry.handlers {
		handlers[t] = h
	}
	return &Dispatcher{handlers: handlers, locks: locks}, nil
}

// DispatchRaw декодирует событие и передаёт его в Dispatch.
func (d *Dispatcher) DispatchRaw(ctx context.Context, raw event.RawEvent) error {
	env, err := event.Decode(raw)
	if err != nil {
		fields := logrus.Fields{
			"event_type": raw.Type,
			"chain_id":   raw.ChainID,
			"tx_hash":    raw.TransactionHash,
			"log_index":  raw.LogIndex,
			"error_code": apperror.CodeOf(err),
		}
		logger.Get().WithFields(fields).WithError(err).Error("event rejected before dispatch")
		metrics.RecordEvent(raw.Type, metrics.OutcomePermanent, 0)
		return err
	}
	return d.Dispatch(ctx, env)
}

func (d *Dispatcher) Dispatch(ctx context.Context, env event.Envelope) (err error) {
	started := time.Now()
	log := logger.Get().WithFields(logrus.Fields{
		"event_type": env.Type,
		"chain_id":   env.ChainID,
		"tx_hash":    env.TransactionHash,
		"log_index":  env.LogIndex,
		"keys":       env.Keys(),
	})

	h, ok := d.handlers[env.Type]
	if !ok {
		err = apperror.Unroutable(string(env.Type))
		log.WithError(err).Error("no handler for event")
		metrics.RecordEvent(string(env.Type), metrics.OutcomePermanent, time.Since(started))
		return err
	}

	unlock, lockErr := d.locks.LockAll(ctx, env.Keys())
	if lockErr != nil {
		return apperror.Wrap(lockErr, apperror.ErrCodeInternal, "не удалось дождаться блокировки сущности").Transient()
	}
	defer unlock()

	applied, err := d.invoke(ctx, h, env)
	took := time.Since(started)

	switch {
	case err == nil && applied:
		log.WithField("took", took).Debug("event applied")
		metrics.RecordEvent(string(env.Type), metrics.OutcomeApplied, took)
	case err == nil:
		log.WithField("took", took).Debug("event replay ignored")
		metrics.RecordEvent(string(env.Type), metrics.OutcomeNoop, took)
	case apperror.IsTransient(err):
		log.WithField("error_code", apperror.CodeOf(err)).WithError(err).Debug("event deferred, transient failure")
		metrics.RecordEvent(string(env.Type), metrics.OutcomeTransient, took)
	default:
		log.WithField("error_code", apperror.CodeOf(err)).WithError(err).Error("event failed permanently")
		metrics.RecordEvent(string(env.Type), metrics.OutcomePermanent, took)
	}
	return err
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, env event.Envelope) (applied bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get().WithFields(logrus.Fields{
				"event_type": env.Type,
				"tx_hash":    env.TransactionHash,
			}).Errorf("panic in event handler: %v\n%s", r, debug.Stack())
			applied = false
			err = apperror.New(apperror.ErrCodeInternal, fmt.Sprintf("обработчик %s завершился паникой: %v", env.Type, r))
		}
	}()
	return h(ctx, env)
}
