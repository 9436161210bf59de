package persistence

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/queue"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/repository/common"
)

// EventQueue - очередь событий в таблице ledger_events.
type EventQueue struct {
	db *sqlx.DB
}

var _ queue.Queue = (*EventQueue)(nil)

func NewEventQueue(db *sqlx.DB) *EventQueue {
	return &EventQueue{db: db}
}

type eventRow struct {
	ID            uuid.UUID      `db:"id"`
	Seq           int64          `db:"seq"`
	EventType     string         `db:"event_type"`
	ChainID       int64          `db:"chain_id"`
	TxHash        string         `db:"tx_hash"`
	LogIndex      int            `db:"log_index"`
	EntityKey     string         `db:"entity_key"`
	Args          []byte         `db:"args"`
	Status        string         `db:"status"`
	Attempts      int            `db:"attempts"`
	NextAttemptAt time.Time      `db:"next_attempt_at"`
	LockedUntil   sql.NullTime   `db:"locked_until"`
	LastError     sql.NullString `db:"last_error"`
	LastErrorCode sql.NullString `db:"last_error_code"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

const eventColumns = `id, seq, event_type, chain_id, tx_hash, log_index, entity_key, args, status,
	attempts, next_attempt_at, locked_until, last_error, last_error_code, created_at, updated_at`

// В UPDATE ... FROM колонки нужно квалифицировать алиасом таблицы.
const returningColumns = `e.id, e.seq, e.event_type, e.chain_id, e.tx_hash, e.log_index, e.entity_key,
	e.args, e.status, e.attempts, e.next_attempt_at, e.locked_until, e.last_error, e.last_error_code,
	e.created_at, e.updated_at`

func (r eventRow) toRecord() *queue.Record {
	rec := &queue.Record{
		ID:  r.ID,
		Seq: r.Seq,
		Event: event.RawEvent{
			Type:            r.EventType,
			ChainID:         r.ChainID,
			Args:            r.Args,
			TransactionHash: r.TxHash,
			LogIndex:        r.LogIndex,
		},
		EntityKey:     r.EntityKey,
		Status:        queue.Status(r.Status),
		Attempts:      r.Attempts,
		NextAttemptAt: r.NextAttemptAt,
		LastError:     r.LastError.String,
		LastErrorCode: r.LastErrorCode.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.LockedUntil.Valid {
		t := r.LockedUntil.Time
		rec.LockedUntil = &t
	}
	return rec
}

func (q *EventQueue) Enqueue(ctx context.Context, rec *queue.Record) (*queue.Record, bool, error) {
	query := `
		INSERT INTO ledger_events (id, event_type, chain_id, tx_hash, log_index, entity_key, args,
			status, next_attempt_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (chain_id, tx_hash, log_index, event_type) DO NOTHING
		RETURNING ` + eventColumns
	row, err := common.GetOne[eventRow](ctx, q.db, nil, query,
		rec.ID,
		rec.Event.Type,
		rec.Event.ChainID,
		rec.Event.TransactionHash,
		rec.Event.LogIndex,
		rec.EntityKey,
		[]byte(rec.Event.Args),
		string(queue.StatusReady),
		rec.NextAttemptAt,
		rec.CreatedAt,
	)
	if err != nil {
		return nil, false, classify(err, "не удалось поставить событие в очередь")
	}
	if row != nil {
		return row.toRecord(), false, nil
	}

	existing, err := common.GetOne[eventRow](ctx, q.db, apperror.ErrEventNotFound,
		`SELECT `+eventColumns+` FROM ledger_events
		 WHERE chain_id = $1 AND tx_hash = $2 AND log_index = $3 AND event_type = $4`,
		rec.Event.ChainID, rec.Event.TransactionHash, rec.Event.LogIndex, rec.Event.Type)
	if err != nil {
		return nil, false, classify(err, "не удалось получить событие")
	}
	return existing.toRecord(), true, nil
}

// Claim берёт не больше одной записи на ключ сущности; ключи с живой арендой пропускаются.
func (q *EventQueue) Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*queue.Record, error) {
	query := `
		WITH busy AS (
			SELECT DISTINCT entity_key FROM ledger_events
			WHERE status = 'processing' AND locked_until > $1
		),
		candidates AS (
			SELECT DISTINCT ON (entity_key) id, seq
			FROM ledger_events
			WHERE ((status = 'ready' AND next_attempt_at <= $1)
			    OR (status = 'processing' AND locked_until <= $1))
			  AND entity_key NOT IN (SELECT entity_key FROM busy)
			ORDER BY entity_key, seq
		),
		picked AS (
			SELECT e.id FROM ledger_events e
			JOIN candidates c ON c.id = e.id
			ORDER BY c.seq
			LIMIT $2
			FOR UPDATE OF e SKIP LOCKED
		)
		UPDATE ledger_events e
		SET status = 'processing', attempts = e.attempts + 1, locked_until = $3, updated_at = $1
		FROM picked
		WHERE e.id = picked.id
		RETURNING ` + returningColumns

	var rows []eventRow
	if err := sqlx.SelectContext(ctx, q.db, &rows, query, now, limit, now.Add(lease)); err != nil {
		return nil, classify(err, "не удалось выбрать события из очереди")
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })

	out := make([]*queue.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

func (q *EventQueue) Complete(ctx context.Context, id uuid.UUID, now time.Time) error {
	result, err := q.db.ExecContext(ctx,
		`UPDATE ledger_events SET status = 'done', locked_until = NULL, updated_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return classify(err, "не удалось завершить событие")
	}
	return expectAffected(result, apperror.ErrEventNotFound)
}

func (q *EventQueue) Retry(ctx context.Context, id uuid.UUID, nextAt time.Time, cause error) error {
	msg, code := errorArgs(cause)
	result, err := q.db.ExecContext(ctx, `
		UPDATE ledger_events
		SET status = 'ready', next_attempt_at = $2, locked_until = NULL,
		    last_error = $3, last_error_code = $4, updated_at = NOW()
		WHERE id = $1`, id, nextAt, msg, code)
	if err != nil {
		return classify(err, "не удалось отложить событие")
	}
	return expectAffected(result, apperror.ErrEventNotFound)
}

func (q *EventQueue) DeadLetter(ctx context.Context, id uuid.UUID, cause error) error {
	msg, code := errorArgs(cause)
	result, err := q.db.ExecContext(ctx, `
		UPDATE ledger_events
		SET status = 'dead', locked_until = NULL, last_error = $2, last_error_code = $3, updated_at = NOW()
		WHERE id = $1`, id, msg, code)
	if err != nil {
		return classify(err, "не удалось перенести событие в dead-letter")
	}
	return expectAffected(result, apperror.ErrEventNotFound)
}

func (q *EventQueue) ListDead(ctx context.Context, limit, offset int) ([]*queue.Record, error) {
	var rows []eventRow
	err := sqlx.SelectContext(ctx, q.db, &rows,
		`SELECT `+eventColumns+` FROM ledger_events WHERE status = 'dead' ORDER BY seq LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, classify(err, "не удалось получить dead-letter")
	}
	out := make([]*queue.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

func (q *EventQueue) Replay(ctx context.Context, id uuid.UUID, now time.Time) (*queue.Record, error) {
	row, err := common.GetOne[eventRow](ctx, q.db, nil, `
		UPDATE ledger_events
		SET status = 'ready', attempts = 0, next_attempt_at = $2, locked_until = NULL, updated_at = $2
		WHERE id = $1 AND status = 'dead'
		RETURNING `+eventColumns, id, now)
	if err != nil {
		return nil, classify(err, "не удалось вернуть событие в очередь")
	}
	if row != nil {
		return row.toRecord(), nil
	}

	var exists bool
	if err := q.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM ledger_events WHERE id = $1)`, id); err != nil {
		return nil, classify(err, "не удалось получить событие")
	}
	if !exists {
		return nil, apperror.ErrEventNotFound
	}
	return nil, apperror.New(apperror.ErrCodeConflict, "событие не находится в dead-letter")
}

func (q *EventQueue) Depth(ctx context.Context) (map[queue.Status]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := sqlx.SelectContext(ctx, q.db, &rows,
		`SELECT status, COUNT(*) AS count FROM ledger_events GROUP BY status`); err != nil {
		return nil, classify(err, "не удалось посчитать очередь")
	}
	out := make(map[queue.Status]int, 4)
	for _, s := range queue.AllStatuses() {
		out[s] = 0
	}
	for _, r := range rows {
		out[queue.Status(r.Status)] = r.Count
	}
	return out, nil
}

func errorArgs(cause error) (sql.NullString, sql.NullString) {
	if cause == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: cause.Error(), Valid: true},
		sql.NullString{String: string(apperror.CodeOf(cause)), Valid: true}
}
