package indexer

import (
	"context"
	"fmt"

	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

// Handler применяет событие к проекции. applied=false означает успешный no-op (повтор).
type Handler func(ctx context.Context, env event.Envelope) (applied bool, err error)

// Registry - таблица маршрутизации тип события -> обработчик.
// Собирается один раз при старте и передаётся в Dispatcher.
type Registry struct {
	handlers map[event.Type]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[event.Type]Handler)}
}

// Register привязывает типизированный обработчик к типу нагрузки P.
func Register[P event.Payload](r *Registry, fn func(ctx context.Context, env event.Envelope, payload P) (bool, error)) {
	var zero P
	t := zero.EventType()
	if _, exists := r.handlers[t]; exists {
		panic(fmt.Sprintf("indexer: обработчик %s уже зарегистрирован", t))
	}
	r.handlers[t] = func(ctx context.Context, env event.Envelope) (bool, error) {
		p, ok := env.Payload.(P)
		if !ok {
			return false, apperror.SchemaViolation(fmt.Sprintf("нагрузка %T не соответствует событию %s", env.Payload, env.Type), nil)
		}
		return fn(ctx, env, p)
	}
}

// missing возвращает типы событий без обработчика.
func (r *Registry) missing() []event.Type {
	var out []event.Type
	for _, t := range event.AllTypes() {
		if _, ok := r.handlers[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}
