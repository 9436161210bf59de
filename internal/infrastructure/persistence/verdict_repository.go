package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
)

type VerdictRepository struct {
	ext sqlx.ExtContext
}

type verdictRow struct {
	ID          uuid.UUID `db:"id"`
	TaskID      uuid.UUID `db:"task_id"`
	ClaimID     uuid.UUID `db:"claim_id"`
	Verifier    string    `db:"verifier_address"`
	Outcome     string    `db:"outcome"`
	Score       int       `db:"score"`
	FeedbackCID string    `db:"feedback_cid"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *VerdictRepository) Create(ctx context.Context, v *entity.Verdict) error {
	_, err := r.ext.ExecContext(ctx, `
		INSERT INTO verdicts (id, task_id, claim_id, verifier_address, outcome, score, feedback_cid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, v.ID, v.TaskID, v.ClaimID, v.Verifier.String(), string(v.Outcome), v.Score, v.FeedbackCID, v.CreatedAt)
	return classify(err, "не удалось сохранить вердикт")
}

func (r *VerdictRepository) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*entity.Verdict, error) {
	var rows []verdictRow
	query := `
		SELECT id, task_id, claim_id, verifier_address, outcome, score, feedback_cid, created_at
		FROM verdicts
		WHERE claim_id = $1
		ORDER BY created_at
	`
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, claimID); err != nil {
		return nil, classify(err, "не удалось получить вердикты")
	}
	out := make([]*entity.Verdict, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entity.Verdict{
			ID:          row.ID,
			TaskID:      row.TaskID,
			ClaimID:     row.ClaimID,
			Verifier:    valueobject.Address(row.Verifier),
			Outcome:     valueobject.VerdictOutcome(row.Outcome),
			Score:       row.Score,
			FeedbackCID: row.FeedbackCID,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out, nil
}
