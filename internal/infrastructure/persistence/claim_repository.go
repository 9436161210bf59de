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

type ClaimRepository struct {
	ext sqlx.ExtContext
}

type claimRow struct {
	ID        uuid.UUID `db:"id"`
	TaskID    uuid.UUID `db:"task_id"`
	Agent     string    `db:"agent_address"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const claimColumns = `id, task_id, agent_address, status, created_at, updated_at`

func (r claimRow) toEntity() *entity.Claim {
	return &entity.Claim{
		ID:        r.ID,
		TaskID:    r.TaskID,
		Agent:     valueobject.Address(r.Agent),
		Status:    valueobject.ClaimStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *ClaimRepository) Create(ctx context.Context, c *entity.Claim) error {
	_, err := r.ext.ExecContext(ctx, `
		INSERT INTO claims (id, task_id, agent_address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.TaskID, c.Agent.String(), string(c.Status), c.CreatedAt, c.UpdatedAt)
	return classify(err, "не удалось создать заявку")
}

func (r *ClaimRepository) Update(ctx context.Context, c *entity.Claim) error {
	result, err := r.ext.ExecContext(ctx,
		`UPDATE claims SET status = $2, updated_at = $3 WHERE id = $1`, c.ID, string(c.Status), c.UpdatedAt)
	if err != nil {
		return classify(err, "не удалось обновить заявку")
	}
	return expectAffected(result, apperror.ErrClaimNotFound)
}

func (r *ClaimRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Claim, error) {
	row, err := common.GetOne[claimRow](ctx, r.ext, apperror.ErrClaimNotFound,
		`SELECT `+claimColumns+` FROM claims WHERE id = $1`, id)
	if err != nil {
		return nil, classify(err, "не удалось получить заявку")
	}
	return row.toEntity(), nil
}

func (r *ClaimRepository) FindOpenByTaskAndAgent(ctx context.Context, taskID uuid.UUID, agent valueobject.Address) (*entity.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE task_id = $1 AND agent_address = $2 AND status IN ($3, $4, $5)
		ORDER BY created_at DESC
		LIMIT 1
	`
	row, err := common.GetOne[claimRow](ctx, r.ext, apperror.ErrClaimNotFound, query,
		taskID, agent.String(),
		string(valueobject.ClaimStatusActive),
		string(valueobject.ClaimStatusSubmitted),
		string(valueobject.ClaimStatusUnderVerification),
	)
	if err != nil {
		return nil, classify(err, "не удалось получить заявку")
	}
	return row.toEntity(), nil
}
