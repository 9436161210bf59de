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

const voteUniqueConstraint = "dispute_votes_dispute_id_voter_address_key"

type DisputeRepository struct {
	ext sqlx.ExtContext
}

type disputeRow struct {
	ID             uuid.UUID          `db:"id"`
	ChainID        int64              `db:"chain_id"`
	ChainDisputeID string             `db:"chain_dispute_id"`
	TaskID         uuid.UUID          `db:"task_id"`
	Status         string             `db:"status"`
	Disputer       string             `db:"disputer_address"`
	Stake          valueobject.Amount `db:"stake_amount"`
	VotingDeadline time.Time          `db:"voting_deadline"`
	DisputerWon    sql.NullBool       `db:"disputer_won"`
	CreatedTxHash  string             `db:"created_tx_hash"`
	ResolvedAt     sql.NullTime       `db:"resolved_at"`
	CreatedAt      time.Time          `db:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at"`
}

const disputeColumns = `id, chain_id, chain_dispute_id::text AS chain_dispute_id, task_id, status, disputer_address,
	stake_amount, voting_deadline, disputer_won, created_tx_hash, resolved_at, created_at, updated_at`

func (r disputeRow) toEntity() *entity.Dispute {
	d := &entity.Dispute{
		ID:             r.ID,
		ChainID:        r.ChainID,
		ChainDisputeID: r.ChainDisputeID,
		TaskID:         r.TaskID,
		Status:         valueobject.DisputeStatus(r.Status),
		Disputer:       valueobject.Address(r.Disputer),
		Stake:          r.Stake,
		VotingDeadline: r.VotingDeadline,
		CreatedTxHash:  r.CreatedTxHash,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.DisputerWon.Valid {
		won := r.DisputerWon.Bool
		d.DisputerWon = &won
	}
	if r.ResolvedAt.Valid {
		at := r.ResolvedAt.Time
		d.ResolvedAt = &at
	}
	return d
}

func (r *DisputeRepository) Create(ctx context.Context, d *entity.Dispute) error {
	query := `
		INSERT INTO disputes (id, chain_id, chain_dispute_id, task_id, status, disputer_address, stake_amount,
			voting_deadline, disputer_won, created_tx_hash, resolved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.ext.ExecContext(ctx, query,
		d.ID, d.ChainID, d.ChainDisputeID, d.TaskID, string(d.Status), d.Disputer.String(), d.Stake,
		d.VotingDeadline, d.DisputerWon, d.CreatedTxHash, d.ResolvedAt, d.CreatedAt, d.UpdatedAt)
	return classify(err, "не удалось создать спор")
}

func (r *DisputeRepository) Update(ctx context.Context, d *entity.Dispute) error {
	query := `
		UPDATE disputes
		SET status = $2, disputer_won = $3, resolved_at = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := r.ext.ExecContext(ctx, query, d.ID, string(d.Status), d.DisputerWon, d.ResolvedAt, d.UpdatedAt)
	if err != nil {
		return classify(err, "не удалось обновить спор")
	}
	return expectAffected(result, apperror.ErrDisputeNotFound)
}

func (r *DisputeRepository) FindByChainID(ctx context.Context, chainID int64, chainDisputeID string) (*entity.Dispute, error) {
	row, err := common.GetOne[disputeRow](ctx, r.ext, apperror.ErrDisputeNotFound,
		`SELECT `+disputeColumns+` FROM disputes WHERE chain_id = $1 AND chain_dispute_id = $2`, chainID, chainDisputeID)
	if err != nil {
		return nil, classify(err, "не удалось получить спор")
	}
	return row.toEntity(), nil
}

func (r *DisputeRepository) FindActiveByTask(ctx context.Context, taskID uuid.UUID) (*entity.Dispute, error) {
	row, err := common.GetOne[disputeRow](ctx, r.ext, apperror.ErrDisputeNotFound,
		`SELECT `+disputeColumns+` FROM disputes WHERE task_id = $1 AND status = $2`,
		taskID, string(valueobject.DisputeStatusActive))
	if err != nil {
		return nil, classify(err, "не удалось получить спор")
	}
	return row.toEntity(), nil
}

func (r *DisputeRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]*entity.Dispute, error) {
	var rows []disputeRow
	query := `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE status = $1 AND voting_deadline <= $2
		ORDER BY voting_deadline
		LIMIT $3
	`
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, string(valueobject.DisputeStatusActive), before, limit); err != nil {
		return nil, classify(err, "не удалось получить споры к разрешению")
	}
	out := make([]*entity.Dispute, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

type voteRow struct {
	ID               uuid.UUID          `db:"id"`
	DisputeID        uuid.UUID          `db:"dispute_id"`
	Voter            string             `db:"voter_address"`
	SupportsDisputer bool               `db:"supports_disputer"`
	Weight           valueobject.Amount `db:"weight"`
	TxHash           string             `db:"tx_hash"`
	CreatedAt        time.Time          `db:"created_at"`
}

func (r voteRow) toEntity() *entity.DisputeVote {
	return &entity.DisputeVote{
		ID:               r.ID,
		DisputeID:        r.DisputeID,
		Voter:            valueobject.Address(r.Voter),
		SupportsDisputer: r.SupportsDisputer,
		Weight:           r.Weight,
		TxHash:           r.TxHash,
		CreatedAt:        r.CreatedAt,
	}
}

const voteColumns = `id, dispute_id, voter_address, supports_disputer, weight, tx_hash, created_at`

func (r *DisputeRepository) CreateVote(ctx context.Context, v *entity.DisputeVote) error {
	_, err := r.ext.ExecContext(ctx, `
		INSERT INTO dispute_votes (id, dispute_id, voter_address, supports_disputer, weight, tx_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, v.ID, v.DisputeID, v.Voter.String(), v.SupportsDisputer, v.Weight, v.TxHash, v.CreatedAt)
	if isUniqueViolation(err, voteUniqueConstraint) {
		return apperror.DuplicateVote(v.DisputeID.String(), v.Voter.String())
	}
	return classify(err, "не удалось сохранить голос")
}

func (r *DisputeRepository) FindVote(ctx context.Context, disputeID uuid.UUID, voter valueobject.Address) (*entity.DisputeVote, error) {
	row, err := common.GetOne[voteRow](ctx, r.ext, apperror.ErrVoteNotFound,
		`SELECT `+voteColumns+` FROM dispute_votes WHERE dispute_id = $1 AND voter_address = $2`, disputeID, voter.String())
	if err != nil {
		return nil, classify(err, "не удалось получить голос")
	}
	return row.toEntity(), nil
}

func (r *DisputeRepository) ListVotes(ctx context.Context, disputeID uuid.UUID) ([]*entity.DisputeVote, error) {
	var rows []voteRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows,
		`SELECT `+voteColumns+` FROM dispute_votes WHERE dispute_id = $1 ORDER BY created_at`, disputeID); err != nil {
		return nil, classify(err, "не удалось получить голоса")
	}
	out := make([]*entity.DisputeVote, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}
