package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

type Status string

const (
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusDead       Status = "dead"
)

func AllStatuses() []Status {
	return []Status{StatusReady, StatusProcessing, StatusDone, StatusDead}
}

// Record - событие в очереди вместе с состоянием доставки.
type Record struct {
	ID            uuid.UUID      `json:"id"`
	Seq           int64          `json:"seq"`
	Event         event.RawEvent `json:"event"`
	EntityKey     string         `json:"entity_key"`
	Status        Status         `json:"status"`
	Attempts      int            `json:"attempts"`
	NextAttemptAt time.Time      `json:"next_attempt_at"`
	LockedUntil   *time.Time     `json:"locked_until,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
	LastErrorCode string         `json:"last_error_code,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewRecord строит запись из проверенного события. Тег приводится к каноническому,
// поэтому старое и новое имя одного события дедуплицируются.
func NewRecord(env event.Envelope, args json.RawMessage, now time.Time) *Record {
	return &Record{
		ID: uuid.New(),
		Event: event.RawEvent{
			Type:            string(env.Type),
			ChainID:         env.ChainID,
			Args:            args,
			TransactionHash: env.TransactionHash,
			LogIndex:        env.LogIndex,
		},
		EntityKey:     env.PartitionKey(),
		Status:        StatusReady,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Ident - ключ дедупликации доставки.
func (r *Record) Ident() string {
	return fmt.Sprintf("%d|%s|%d|%s", r.Event.ChainID, r.Event.TransactionHash, r.Event.LogIndex, r.Event.Type)
}

// Queue - надёжная очередь событий с повторами и dead-letter.
//
// Claim выдаёт не больше одной записи на ключ сущности и пропускает ключи,
// у которых есть запись в обработке с живой арендой.
type Queue interface {
	Enqueue(ctx context.Context, rec *Record) (stored *Record, duplicate bool, err error)
	Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*Record, error)
	Complete(ctx context.Context, id uuid.UUID, now time.Time) error
	Retry(ctx context.Context, id uuid.UUID, nextAt time.Time, cause error) error
	DeadLetter(ctx context.Context, id uuid.UUID, cause error) error
	ListDead(ctx context.Context, limit, offset int) ([]*Record, error)
	Replay(ctx context.Context, id uuid.UUID, now time.Time) (*Record, error)
	Depth(ctx context.Context) (map[Status]int, error)
}

func errorFields(cause error) (string, string) {
	if cause == nil {
		return "", ""
	}
	return cause.Error(), string(apperror.CodeOf(cause))
}

func notDead(id uuid.UUID) error {
	return apperror.New(apperror.ErrCodeConflict, fmt.Sprintf("событие %s не находится в dead-letter", id))
}
