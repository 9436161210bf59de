package ledger

import (
	"context"
	"fmt"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/service"
)

// DisputeStarted создаёт спор и переводит задачу в Disputed одной транзакцией.
func (p *Projector) DisputeStarted(ctx context.Context, env event.Envelope, e *event.DisputeStarted) (bool, error) {
	var applied bool
	err := p.store.InTx(ctx, func(tx repository.Store) error {
		task, err := findTask(ctx, tx, env.ChainID, e.TaskID)
		if err != nil {
			return err
		}

		existing, err := tx.Disputes().FindByChainID(ctx, env.ChainID, string(e.DisputeID))
		if err == nil {
			if existing.TaskID != task.ID {
				return apperror.New(apperror.ErrCodeConflict,
					fmt.Sprintf("спор %s уже привязан к другой задаче", existing.Ref()))
			}
			return nil
		}
		if !apperror.IsNotFound(err) {
			return err
		}

		d, err := entity.NewDispute(env.ChainID, string(e.DisputeID), task.ID, e.Disputer, e.Stake, e.VotingDeadline.Time, env.TransactionHash)
		if err != nil {
			return apperror.SchemaViolation("некорректные данные спора", err)
		}
		if _, err := task.Transition(valueobject.TaskStatusDisputed); err != nil {
			return err
		}
		if err := tx.Disputes().Create(ctx, d); err != nil {
			return err
		}
		applied = true
		return tx.Tasks().Update(ctx, task)
	})
	if err != nil || !applied {
		return false, err
	}
	p.invalidator.Invalidate(ctx,
		service.DisputeInvalidation(env.ChainID, string(e.DisputeID)),
		service.TaskInvalidation(env.ChainID, string(e.TaskID)),
	)
	return true, nil
}

// VoteSubmitted записывает голос. Второй голос того же участника отклоняется,
// повтор того же события (тот же tx hash) считается no-op.
func (p *Projector) VoteSubmitted(ctx context.Context, env event.Envelope, e *event.VoteSubmitted) (bool, error) {
	var applied bool
	err := p.store.InTx(ctx, func(tx repository.Store) error {
		d, err := findDispute(ctx, tx, env.ChainID, e.DisputeID)
		if err != nil {
			return err
		}

		prev, err := tx.Disputes().FindVote(ctx, d.ID, e.Voter)
		if err == nil {
			if prev.TxHash == env.TransactionHash {
				return nil
			}
			return apperror.DuplicateVote(d.Ref(), e.Voter.String())
		}
		if !apperror.IsNotFound(err) {
			return err
		}
		if d.Status != valueobject.DisputeStatusActive {
			return apperror.New(apperror.ErrCodeDisputeClosed, fmt.Sprintf("спор %s уже закрыт", d.Ref()))
		}

		applied = true
		return tx.Disputes().CreateVote(ctx, entity.NewDisputeVote(d.ID, e.Voter, e.SupportsDisputer, e.Weight, env.TransactionHash))
	})
	if err != nil || !applied {
		return false, err
	}
	p.invalidator.Invalidate(ctx, service.DisputeInvalidation(env.ChainID, string(e.DisputeID)))
	return true, nil
}
