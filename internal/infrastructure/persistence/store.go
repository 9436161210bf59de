package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/repository/common"
)

// Store - реализация repository.Store поверх PostgreSQL.
type Store struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
	tx  bool
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx {
		return fn(s)
	}
	err := common.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&Store{db: s.db, ext: tx, tx: true})
	})
	return classify(err, "не удалось выполнить транзакцию")
}

func (s *Store) Tasks() repository.TaskRepository             { return &TaskRepository{ext: s.ext} }
func (s *Store) Submissions() repository.SubmissionRepository { return &SubmissionRepository{ext: s.ext} }
func (s *Store) Claims() repository.ClaimRepository           { return &ClaimRepository{ext: s.ext} }
func (s *Store) Disputes() repository.DisputeRepository       { return &DisputeRepository{ext: s.ext} }
func (s *Store) Verdicts() repository.VerdictRepository       { return &VerdictRepository{ext: s.ext} }
func (s *Store) Agents() repository.AgentRepository           { return &AgentRepository{ext: s.ext} }
