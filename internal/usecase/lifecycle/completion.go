package lifecycle

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/logger"
	"github.com/ignatzorin/bounty-indexer/internal/metrics"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/service"
)

// Completion - завершение задачи с победителем. Используется обработчиком TaskCompleted
// и разрешением спора, чтобы побочные эффекты были одинаковыми.
type Completion struct {
	store       repository.Store
	invalidator service.Invalidator
}

func NewCompletion(store repository.Store, invalidator service.Invalidator) *Completion {
	if invalidator == nil {
		invalidator = service.NoopInvalidator{}
	}
	return &Completion{store: store, invalidator: invalidator}
}

// Result - что изменилось в транзакции; передаётся в AfterCommit.
type Result struct {
	Task    *entity.Task
	Winner  *valueobject.Address
	Changed bool
}

// Apply переводит задачу в Completed и ставит флаг победителя. Вызывается внутри транзакции tx.
// Повтор для уже завершённой задачи возвращает Changed=false.
func (c *Completion) Apply(ctx context.Context, tx repository.Store, task *entity.Task, winner *valueobject.Address) (Result, error) {
	changed, err := task.Transition(valueobject.TaskStatusCompleted)
	if err != nil || !changed {
		return Result{Task: task, Winner: winner}, err
	}
	if winner != nil {
		task.SetWinner(*winner)
	}
	if err := tx.Tasks().Update(ctx, task); err != nil {
		return Result{}, err
	}
	if winner == nil {
		return Result{Task: task, Changed: true}, nil
	}

	if err := tx.Submissions().ClearWinners(ctx, task.ID); err != nil {
		return Result{}, err
	}
	if err := tx.Submissions().MarkWinner(ctx, task.ID, *winner); err != nil {
		if !apperror.IsNotFound(err) {
			return Result{}, err
		}
		logger.Get().WithFields(logrus.Fields{
			"task":   task.Ref(),
			"winner": winner.String(),
		}).Warn("winner has no submission, winner flag not set")
	}
	return Result{Task: task, Winner: winner, Changed: true}, nil
}

// AfterCommit начисляет победу агенту и сбрасывает кэши. Ошибки только логируются.
func (c *Completion) AfterCommit(ctx context.Context, res Result) {
	if !res.Changed {
		return
	}
	items := []service.Invalidation{service.TaskInvalidation(res.Task.ChainID, res.Task.ChainTaskID)}
	if res.Winner != nil {
		c.incrementTasksWon(ctx, res.Task, *res.Winner)
		items = append(items,
			service.AgentInvalidation(res.Winner.String()),
			service.SubmissionInvalidation(res.Task.ID.String()),
		)
	}
	c.invalidator.Invalidate(ctx, items...)
}

func (c *Completion) incrementTasksWon(ctx context.Context, task *entity.Task, winner valueobject.Address) {
	err := c.store.Agents().IncrementTasksWon(ctx, winner)
	if err == nil {
		return
	}
	log := logger.Get().WithFields(logrus.Fields{
		"task":  task.Ref(),
		"agent": winner.String(),
	})
	if apperror.HasCode(err, apperror.ErrCodeAgentNotFound) {
		log.Info("agent has no profile, reputation not updated")
		metrics.RecordSideEffectFailure("reputation_missing_agent")
		return
	}
	log.WithError(err).Warn("reputation increment failed")
	metrics.RecordSideEffectFailure("reputation")
}
