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

type SubmissionRepository struct {
	ext sqlx.ExtContext
}

type submissionRow struct {
	ID              uuid.UUID `db:"id"`
	TaskID          uuid.UUID `db:"task_id"`
	Agent           string    `db:"agent_address"`
	SubmissionIndex int64     `db:"submission_index"`
	ContentCID      string    `db:"content_cid"`
	IsWinner        bool      `db:"is_winner"`
	SubmittedAt     time.Time `db:"submitted_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

const submissionColumns = `id, task_id, agent_address, submission_index, content_cid, is_winner, submitted_at, updated_at`

func (r submissionRow) toEntity() *entity.Submission {
	return &entity.Submission{
		ID:              r.ID,
		TaskID:          r.TaskID,
		Agent:           valueobject.Address(r.Agent),
		SubmissionIndex: r.SubmissionIndex,
		ContentCID:      r.ContentCID,
		IsWinner:        r.IsWinner,
		SubmittedAt:     r.SubmittedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// Create возвращает ErrSubmissionExists, если решение пары (задача, агент) уже записано.
// ON CONFLICT не прерывает транзакцию, поэтому вызывающий может перечитать строку и обновить её.
func (r *SubmissionRepository) Create(ctx context.Context, s *entity.Submission) error {
	query := `
		INSERT INTO submissions (id, task_id, agent_address, submission_index, content_cid, is_winner, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (task_id, agent_address) DO NOTHING
	`
	result, err := r.ext.ExecContext(ctx, query,
		s.ID, s.TaskID, s.Agent.String(), s.SubmissionIndex, s.ContentCID, s.IsWinner, s.SubmittedAt, s.UpdatedAt)
	if err != nil {
		return classify(err, "не удалось создать решение")
	}
	return expectAffected(result, apperror.ErrSubmissionExists)
}

func (r *SubmissionRepository) Update(ctx context.Context, s *entity.Submission) error {
	query := `
		UPDATE submissions
		SET submission_index = $2, content_cid = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := r.ext.ExecContext(ctx, query, s.ID, s.SubmissionIndex, s.ContentCID, s.UpdatedAt)
	if err != nil {
		return classify(err, "не удалось обновить решение")
	}
	return expectAffected(result, apperror.ErrSubmissionNotFound)
}

func (r *SubmissionRepository) FindByTaskAndAgent(ctx context.Context, taskID uuid.UUID, agent valueobject.Address) (*entity.Submission, error) {
	row, err := common.GetOne[submissionRow](ctx, r.ext, apperror.ErrSubmissionNotFound,
		`SELECT `+submissionColumns+` FROM submissions WHERE task_id = $1 AND agent_address = $2`, taskID, agent.String())
	if err != nil {
		return nil, classify(err, "не удалось получить решение")
	}
	return row.toEntity(), nil
}

func (r *SubmissionRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*entity.Submission, error) {
	var rows []submissionRow
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE task_id = $1 ORDER BY submission_index, submitted_at`
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, taskID); err != nil {
		return nil, classify(err, "не удалось получить решения задачи")
	}
	out := make([]*entity.Submission, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *SubmissionRepository) ClearWinners(ctx context.Context, taskID uuid.UUID) error {
	_, err := r.ext.ExecContext(ctx,
		`UPDATE submissions SET is_winner = FALSE, updated_at = NOW() WHERE task_id = $1 AND is_winner`, taskID)
	return classify(err, "не удалось сбросить победителя")
}

func (r *SubmissionRepository) MarkWinner(ctx context.Context, taskID uuid.UUID, agent valueobject.Address) error {
	result, err := r.ext.ExecContext(ctx,
		`UPDATE submissions SET is_winner = TRUE, updated_at = NOW() WHERE task_id = $1 AND agent_address = $2`,
		taskID, agent.String())
	if err != nil {
		return classify(err, "не удалось отметить победителя")
	}
	return expectAffected(result, apperror.ErrSubmissionNotFound)
}
