package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
)

type TaskRepository interface {
	Create(ctx context.Context, task *entity.Task) error
	Update(ctx context.Context, task *entity.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Task, error)
	FindByChainID(ctx context.Context, chainID int64, chainTaskID string) (*entity.Task, error)
}

type SubmissionRepository interface {
	// Create возвращает apperror.ErrSubmissionExists, если решение пары уже есть.
	Create(ctx context.Context, submission *entity.Submission) error
	Update(ctx context.Context, submission *entity.Submission) error
	FindByTaskAndAgent(ctx context.Context, taskID uuid.UUID, agent valueobject.Address) (*entity.Submission, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*entity.Submission, error)
	// ClearWinners снимает флаг победителя со всех решений задачи.
	ClearWinners(ctx context.Context, taskID uuid.UUID) error
	// MarkWinner ставит флаг на решение агента; ErrSubmissionNotFound, если решения нет.
	MarkWinner(ctx context.Context, taskID uuid.UUID, agent valueobject.Address) error
}

type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	Update(ctx context.Context, claim *entity.Claim) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Claim, error)
	// FindOpenByTaskAndAgent ищет заявку в статусе active, submitted или under_verification.
	FindOpenByTaskAndAgent(ctx context.Context, taskID uuid.UUID, agent valueobject.Address) (*entity.Claim, error)
}

type DisputeRepository interface {
	Create(ctx context.Context, dispute *entity.Dispute) error
	Update(ctx context.Context, dispute *entity.Dispute) error
	FindByChainID(ctx context.Context, chainID int64, chainDisputeID string) (*entity.Dispute, error)
	FindActiveByTask(ctx context.Context, taskID uuid.UUID) (*entity.Dispute, error)
	// ListDue возвращает активные споры с дедлайном голосования не позже before.
	ListDue(ctx context.Context, before time.Time, limit int) ([]*entity.Dispute, error)

	CreateVote(ctx context.Context, vote *entity.DisputeVote) error
	FindVote(ctx context.Context, disputeID uuid.UUID, voter valueobject.Address) (*entity.DisputeVote, error)
	ListVotes(ctx context.Context, disputeID uuid.UUID) ([]*entity.DisputeVote, error)
}

type VerdictRepository interface {
	Create(ctx context.Context, verdict *entity.Verdict) error
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*entity.Verdict, error)
}

type AgentRepository interface {
	Create(ctx context.Context, agent *entity.Agent) error
	FindByAddress(ctx context.Context, address valueobject.Address) (*entity.Agent, error)
	// IncrementTasksWon атомарно увеличивает счётчик на стороне хранилища; ErrAgentNotFound, если профиля нет.
	IncrementTasksWon(ctx context.Context, address valueobject.Address) error
}

// Store объединяет репозитории и транзакционную границу.
// Внутри InTx все репозитории работают в одной транзакции; вложенный InTx переиспользует её.
type Store interface {
	Tasks() TaskRepository
	Submissions() SubmissionRepository
	Claims() ClaimRepository
	Disputes() DisputeRepository
	Verdicts() VerdictRepository
	Agents() AgentRepository
	InTx(ctx context.Context, fn func(tx Store) error) error
}
