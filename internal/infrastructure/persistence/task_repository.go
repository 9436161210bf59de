package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/repository/common"
)

type TaskRepository struct {
	ext sqlx.ExtContext
}

type taskRow struct {
	ID             uuid.UUID          `db:"id"`
	ChainID        int64              `db:"chain_id"`
	ChainTaskID    string             `db:"chain_task_id"`
	Status         string             `db:"status"`
	Creator        string             `db:"creator_address"`
	Winner         sql.NullString     `db:"winner_address"`
	SelectedWinner sql.NullString     `db:"selected_winner_address"`
	Bounty         valueobject.Amount `db:"bounty_amount"`
	SpecCID        string             `db:"spec_cid"`
	Deadline       sql.NullTime       `db:"deadline"`
	CreatedTxHash  string             `db:"created_tx_hash"`
	CreatedAt      time.Time          `db:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at"`
}

const taskColumns = `id, chain_id, chain_task_id::text AS chain_task_id, status, creator_address,
	winner_address, selected_winner_address, bounty_amount, spec_cid, deadline,
	created_tx_hash, created_at, updated_at`

func (r taskRow) toEntity() *entity.Task {
	t := &entity.Task{
		ID:            r.ID,
		ChainID:       r.ChainID,
		ChainTaskID:   r.ChainTaskID,
		Status:        valueobject.TaskStatus(r.Status),
		Creator:       valueobject.Address(r.Creator),
		WinnerAddress: nullAddress(r.Winner),
		PendingWinner: nullAddress(r.SelectedWinner),
		Bounty:        r.Bounty,
		SpecCID:       r.SpecCID,
		CreatedTxHash: r.CreatedTxHash,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Deadline.Valid {
		d := r.Deadline.Time
		t.Deadline = &d
	}
	return t
}

func (r *TaskRepository) Create(ctx context.Context, task *entity.Task) error {
	query := `
		INSERT INTO tasks (id, chain_id, chain_task_id, status, creator_address, winner_address,
			selected_winner_address, bounty_amount, spec_cid, deadline, created_tx_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.ext.ExecContext(ctx, query,
		task.ID,
		task.ChainID,
		task.ChainTaskID,
		string(task.Status),
		task.Creator.String(),
		addressArg(task.WinnerAddress),
		addressArg(task.PendingWinner),
		task.Bounty,
		task.SpecCID,
		task.Deadline,
		task.CreatedTxHash,
		task.CreatedAt,
		task.UpdatedAt,
	)
	return classify(err, "не удалось создать задачу")
}

func (r *TaskRepository) Update(ctx context.Context, task *entity.Task) error {
	query := `
		UPDATE tasks
		SET status = $2, winner_address = $3, selected_winner_address = $4,
		    bounty_amount = $5, spec_cid = $6, deadline = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := r.ext.ExecContext(ctx, query,
		task.ID,
		string(task.Status),
		addressArg(task.WinnerAddress),
		addressArg(task.PendingWinner),
		task.Bounty,
		task.SpecCID,
		task.Deadline,
		task.UpdatedAt,
	)
	if err != nil {
		return classify(err, "не удалось обновить задачу")
	}
	return expectAffected(result, apperror.ErrTaskNotFound)
}

func (r *TaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	row, err := common.GetOne[taskRow](ctx, r.ext, apperror.ErrTaskNotFound,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if err != nil {
		return nil, classify(err, "не удалось получить задачу")
	}
	return row.toEntity(), nil
}

func (r *TaskRepository) FindByChainID(ctx context.Context, chainID int64, chainTaskID string) (*entity.Task, error) {
	row, err := common.GetOne[taskRow](ctx, r.ext, apperror.ErrTaskNotFound,
		`SELECT `+taskColumns+` FROM tasks WHERE chain_id = $1 AND chain_task_id = $2`, chainID, chainTaskID)
	if err != nil {
		return nil, classify(err, "не удалось получить задачу")
	}
	return row.toEntity(), nil
}

func nullAddress(s sql.NullString) *valueobject.Address {
	if !s.Valid || s.String == "" {
		return nil
	}
	a := valueobject.Address(s.String)
	return &a
}

func addressArg(a *valueobject.Address) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: a.String(), Valid: true}
}

func expectAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeStoreError, "не удалось проверить результат обновления")
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
