package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/repository/common"
)

type AgentRepository struct {
	ext sqlx.ExtContext
}

type agentRow struct {
	ID         uuid.UUID `db:"id"`
	Address    string    `db:"address"`
	ProfileCID string    `db:"profile_cid"`
	TasksWon   int64     `db:"tasks_won"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *AgentRepository) Create(ctx context.Context, a *entity.Agent) error {
	_, err := r.ext.ExecContext(ctx, `
		INSERT INTO agents (id, address, profile_cid, tasks_won, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.Address.String(), a.ProfileCID, a.TasksWon, a.CreatedAt, a.UpdatedAt)
	return classify(err, "не удалось создать профиль агента")
}

func (r *AgentRepository) FindByAddress(ctx context.Context, address valueobject.Address) (*entity.Agent, error) {
	row, err := common.GetOne[agentRow](ctx, r.ext, apperror.ErrAgentNotFound,
		`SELECT id, address, profile_cid, tasks_won, created_at, updated_at FROM agents WHERE address = $1`, address.String())
	if err != nil {
		return nil, classify(err, "не удалось получить профиль агента")
	}
	return &entity.Agent{
		ID:         row.ID,
		Address:    valueobject.Address(row.Address),
		ProfileCID: row.ProfileCID,
		TasksWon:   row.TasksWon,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

// IncrementTasksWon увеличивает счётчик одним UPDATE, без чтения значения.
func (r *AgentRepository) IncrementTasksWon(ctx context.Context, address valueobject.Address) error {
	result, err := r.ext.ExecContext(ctx,
		`UPDATE agents SET tasks_won = tasks_won + 1, updated_at = NOW() WHERE address = $1`, address.String())
	if err != nil {
		return classify(err, "не удалось обновить статистику агента")
	}
	return expectAffected(result, apperror.ErrAgentNotFound)
}
