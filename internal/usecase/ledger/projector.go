package ledger

import (
	"context"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/indexer"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/service"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/lifecycle"
)

// Projector применяет события реестра к проекции. Каждый обработчик идемпотентен:
// повтор уже применённого события возвращает applied=false без ошибки.
type Projector struct {
	store       repository.Store
	completion  *lifecycle.Completion
	invalidator service.Invalidator
}

func NewProjector(store repository.Store, completion *lifecycle.Completion, invalidator service.Invalidator) *Projector {
	if invalidator == nil {
		invalidator = service.NoopInvalidator{}
	}
	if completion == nil {
		completion = lifecycle.NewCompletion(store, invalidator)
	}
	return &Projector{store: store, completion: completion, invalidator: invalidator}
}

// Register добавляет обработчики всех событий в таблицу маршрутизации.
func (p *Projector) Register(r *indexer.Registry) {
	indexer.Register(r, p.TaskCreated)
	indexer.Register(r, p.WorkSubmitted)
	indexer.Register(r, p.WinnerSelected)
	indexer.Register(r, p.TaskCompleted)
	indexer.Register(r, p.TaskRefunded)
	indexer.Register(r, p.TaskCancelled)
	indexer.Register(r, p.DisputeStarted)
	indexer.Register(r, p.VoteSubmitted)
	indexer.Register(r, p.AgentRegistered)
}

// findTask ищет задачу; отсутствие - временная ошибка, событие создания может прийти позже.
func findTask(ctx context.Context, tx repository.Store, chainID int64, taskID event.Uint) (*entity.Task, error) {
	task, err := tx.Tasks().FindByChainID(ctx, chainID, string(taskID))
	if apperror.IsNotFound(err) {
		return nil, apperror.EntityNotFound("task", entity.TaskRef(chainID, string(taskID)))
	}
	return task, err
}

func findDispute(ctx context.Context, tx repository.Store, chainID int64, disputeID event.Uint) (*entity.Dispute, error) {
	d, err := tx.Disputes().FindByChainID(ctx, chainID, string(disputeID))
	if apperror.IsNotFound(err) {
		return nil, apperror.EntityNotFound("dispute", entity.DisputeRef(chainID, string(disputeID)))
	}
	return d, err
}
