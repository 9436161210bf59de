package ledger

import (
	"context"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/service"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/lifecycle"
)

func (p *Projector) TaskCreated(ctx context.Context, env event.Envelope, e *event.TaskCreated) (bool, error) {
	_, err := p.store.Tasks().FindByChainID(ctx, env.ChainID, string(e.TaskID))
	if err == nil {
		return false, nil
	}
	if !apperror.IsNotFound(err) {
		return false, err
	}

	task, err := entity.NewTask(env.ChainID, string(e.TaskID), e.Creator, e.BountyAmount, e.SpecCID, e.Deadline.Ptr(), env.TransactionHash)
	if err != nil {
		return false, apperror.SchemaViolation("некорректные данные задачи", err)
	}
	if err := p.store.Tasks().Create(ctx, task); err != nil {
		if apperror.HasCode(err, apperror.ErrCodeConflict) {
			return false, nil
		}
		return false, err
	}
	p.invalidator.Invalidate(ctx, service.TaskInvalidation(env.ChainID, task.ChainTaskID))
	return true, nil
}

// WorkSubmitted создаёт решение или обновляет существующее для пары (задача, агент).
func (p *Projector) WorkSubmitted(ctx context.Context, env event.Envelope, e *event.WorkSubmitted) (bool, error) {
	var (
		taskID  string
		applied bool
	)
	err := p.store.InTx(ctx, func(tx repository.Store) error {
		task, err := findTask(ctx, tx, env.ChainID, e.TaskID)
		if err != nil {
			return err
		}
		taskID = task.ID.String()

		sub, created, err := repository.FindOrCreateSubmission(ctx, tx,
			entity.NewSubmission(task.ID, e.Agent, e.SubmissionCID, e.SubmissionIndex))
		if err != nil {
			return err
		}
		if created {
			applied = true
			return nil
		}
		if sub.ContentCID == e.SubmissionCID && sub.SubmissionIndex == e.SubmissionIndex {
			return nil
		}
		sub.Resubmit(e.SubmissionCID)
		sub.SubmissionIndex = e.SubmissionIndex
		applied = true
		return tx.Submissions().Update(ctx, sub)
	})
	if err != nil || !applied {
		return false, err
	}
	p.invalidator.Invalidate(ctx,
		service.TaskInvalidation(env.ChainID, string(e.TaskID)),
		service.SubmissionInvalidation(taskID),
	)
	return true, nil
}

// WinnerSelected запоминает предварительного победителя и переводит задачу в InReview.
func (p *Projector) WinnerSelected(ctx context.Context, env event.Envelope, e *event.WinnerSelected) (bool, error) {
	var applied bool
	err := p.store.InTx(ctx, func(tx repository.Store) error {
		task, err := findTask(ctx, tx, env.ChainID, e.TaskID)
		if err != nil {
			return err
		}
		changed, err := task.Transition(valueobject.TaskStatusInReview)
		if err != nil {
			return err
		}
		if !changed && task.PendingWinner != nil && *task.PendingWinner == e.Winner {
			return nil
		}
		task.SetPendingWinner(e.Winner)
		applied = true
		return tx.Tasks().Update(ctx, task)
	})
	if err != nil || !applied {
		return false, err
	}
	p.invalidator.Invalidate(ctx, service.TaskInvalidation(env.ChainID, string(e.TaskID)))
	return true, nil
}

func (p *Projector) TaskCompleted(ctx context.Context, env event.Envelope, e *event.TaskCompleted) (bool, error) {
	var res lifecycle.Result
	err := p.store.InTx(ctx, func(tx repository.Store) error {
		task, err := findTask(ctx, tx, env.ChainID, e.TaskID)
		if err != nil {
			return err
		}
		winner := e.Winner
		res, err = p.completion.Apply(ctx, tx, task, &winner)
		return err
	})
	if err != nil {
		return false, err
	}
	p.completion.AfterCommit(ctx, res)
	return res.Changed, nil
}

func (p *Projector) TaskRefunded(ctx context.Context, env event.Envelope, e *event.TaskRefunded) (bool, error) {
	return p.transition(ctx, env.ChainID, e.TaskID, valueobject.TaskStatusRefunded)
}

func (p *Projector) TaskCancelled(ctx context.Context, env event.Envelope, e *event.TaskCancelled) (bool, error) {
	return p.transition(ctx, env.ChainID, e.TaskID, valueobject.TaskStatusCancelled)
}

// transition - общий путь для событий, которые меняют только статус задачи.
func (p *Projector) transition(ctx context.Context, chainID int64, taskID event.Uint, to valueobject.TaskStatus) (bool, error) {
	var changed bool
	err := p.store.InTx(ctx, func(tx repository.Store) error {
		task, err := findTask(ctx, tx, chainID, taskID)
		if err != nil {
			return err
		}
		if changed, err = task.Transition(to); err != nil || !changed {
			return err
		}
		return tx.Tasks().Update(ctx, task)
	})
	if err != nil || !changed {
		return false, err
	}
	p.invalidator.Invalidate(ctx, service.TaskInvalidation(chainID, string(taskID)))
	return true, nil
}

func (p *Projector) AgentRegistered(ctx context.Context, _ event.Envelope, e *event.AgentRegistered) (bool, error) {
	_, err := p.store.Agents().FindByAddress(ctx, e.Agent)
	if err == nil {
		return false, nil
	}
	if !apperror.HasCode(err, apperror.ErrCodeAgentNotFound) && !apperror.IsNotFound(err) {
		return false, err
	}
	if err := p.store.Agents().Create(ctx, entity.NewAgent(e.Agent, e.ProfileCID)); err != nil {
		if apperror.HasCode(err, apperror.ErrCodeConflict) {
			return false, nil
		}
		return false, err
	}
	p.invalidator.Invalidate(ctx, service.AgentInvalidation(e.Agent.String()))
	return true, nil
}
