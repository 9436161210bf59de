package dispute

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/indexer"
	"github.com/ignatzorin/bounty-indexer/internal/logger"
	"github.com/ignatzorin/bounty-indexer/internal/metrics"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/service"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/lifecycle"
)

const defaultBatch = 50

type ResolverConfig struct {
	ThresholdPercent int
	// Grace - запас после дедлайна голосования, чтобы успели прийти поздние голоса.
	Grace time.Duration
	Batch int
}

// Resolver подводит итоги голосования по спорам с истёкшим дедлайном.
type Resolver struct {
	store       repository.Store
	locks       *indexer.KeyLock
	completion  *lifecycle.Completion
	invalidator service.Invalidator
	cfg         ResolverConfig
}

func NewResolver(store repository.Store, locks *indexer.KeyLock, completion *lifecycle.Completion, invalidator service.Invalidator, cfg ResolverConfig) *Resolver {
	if cfg.ThresholdPercent <= 0 || cfg.ThresholdPercent > 100 {
		cfg.ThresholdPercent = entity.DefaultThresholdPercent
	}
	if cfg.Batch <= 0 {
		cfg.Batch = defaultBatch
	}
	if invalidator == nil {
		invalidator = service.NoopInvalidator{}
	}
	if completion == nil {
		completion = lifecycle.NewCompletion(store, invalidator)
	}
	if locks == nil {
		locks = indexer.NewKeyLock()
	}
	return &Resolver{store: store, locks: locks, completion: completion, invalidator: invalidator, cfg: cfg}
}

// Outcome - итог разрешения спора.
type Outcome struct {
	Dispute     *entity.Dispute
	Tally       entity.Tally
	DisputerWon bool
	TaskStatus  valueobject.TaskStatus
}

// ResolveDue разрешает все споры, у которых дедлайн с учётом запаса уже прошёл.
// Ошибка одного спора не останавливает остальные.
func (r *Resolver) ResolveDue(ctx context.Context, now time.Time) (int, error) {
	due, err := r.store.Disputes().ListDue(ctx, now.Add(-r.cfg.Grace), r.cfg.Batch)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, d := range due {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		if _, err := r.Resolve(ctx, d.ChainID, d.ChainDisputeID, now); err != nil {
			logger.Get().WithFields(logrus.Fields{
				"dispute":    d.Ref(),
				"error_code": apperror.CodeOf(err),
			}).WithError(err).Error("dispute resolution failed")
			continue
		}
		resolved++
	}
	return resolved, nil
}

// Resolve подсчитывает голоса и переводит спор и задачу в итоговые статусы.
// Ключ спора блокируется раньше ключа задачи, как в обработчике DisputeStarted.
func (r *Resolver) Resolve(ctx context.Context, chainID int64, chainDisputeID string, now time.Time) (*Outcome, error) {
	var out Outcome
	var res lifecycle.Result
	err := r.withDisputeLocks(ctx, chainID, chainDisputeID, func(tx repository.Store, d *entity.Dispute, task *entity.Task) error {
		if d.Status != valueobject.DisputeStatusActive {
			return apperror.New(apperror.ErrCodeDisputeClosed, fmt.Sprintf("спор %s уже закрыт", d.Ref()))
		}
		if !d.VotingClosed(now) {
			return apperror.New(apperror.ErrCodeConflict, fmt.Sprintf("голосование по спору %s ещё идёт", d.Ref()))
		}

		votes, err := tx.Disputes().ListVotes(ctx, d.ID)
		if err != nil {
			return err
		}
		tally := entity.TallyVotes(votes)
		won := tally.DisputerWon(r.cfg.ThresholdPercent)
		if err := d.Resolve(won, now); err != nil {
			return err
		}
		if err := tx.Disputes().Update(ctx, d); err != nil {
			return err
		}

		switch {
		case task.Status.IsTerminal():
			r.warnLedgerAhead(d, task, won)
		case won:
			if _, err := task.Transition(valueobject.TaskStatusRefunded); err != nil {
				return err
			}
			if err := tx.Tasks().Update(ctx, task); err != nil {
				return err
			}
			res = lifecycle.Result{Task: task, Changed: true}
		default:
			if res, err = r.standOriginal(ctx, tx, task); err != nil {
				return err
			}
		}

		out = Outcome{Dispute: d, Tally: tally, DisputerWon: won, TaskStatus: task.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.completion.AfterCommit(ctx, res)
	r.invalidator.Invalidate(ctx, service.DisputeInvalidation(chainID, chainDisputeID))
	metrics.RecordDisputeResolved(out.DisputerWon)
	logger.Get().WithFields(logrus.Fields{
		"dispute":      out.Dispute.Ref(),
		"votes_for":    out.Tally.For.String(),
		"votes_total":  out.Tally.Total().String(),
		"disputer_won": out.DisputerWon,
		"task_status":  out.TaskStatus,
	}).Info("dispute resolved")
	return &out, nil
}

// CancelDispute закрывает спор без подсчёта голосов; исходное решение по задаче остаётся в силе.
func (r *Resolver) CancelDispute(ctx context.Context, chainID int64, chainDisputeID string, now time.Time) (*entity.Dispute, error) {
	var (
		out *entity.Dispute
		res lifecycle.Result
	)
	err := r.withDisputeLocks(ctx, chainID, chainDisputeID, func(tx repository.Store, d *entity.Dispute, task *entity.Task) error {
		out = d
		if d.Status == valueobject.DisputeStatusCancelled {
			return nil
		}
		if err := d.Cancel(now); err != nil {
			return err
		}
		if err := tx.Disputes().Update(ctx, d); err != nil {
			return err
		}
		if task.Status.IsTerminal() {
			r.warnLedgerAhead(d, task, false)
			return nil
		}
		var err error
		res, err = r.standOriginal(ctx, tx, task)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.completion.AfterCommit(ctx, res)
	r.invalidator.Invalidate(ctx, service.DisputeInvalidation(chainID, chainDisputeID))
	return out, nil
}

// warnLedgerAhead отмечает случай, когда контракт уже перевёл задачу в терминальный статус.
// Спор всё равно закрывается, статус задачи остаётся таким, каким его записал контракт.
func (r *Resolver) warnLedgerAhead(d *entity.Dispute, task *entity.Task, disputerWon bool) {
	expected := valueobject.TaskStatusCompleted
	if disputerWon {
		expected = valueobject.TaskStatusRefunded
	}
	if task.Status == expected {
		return
	}
	logger.Get().WithFields(logrus.Fields{
		"dispute":         d.Ref(),
		"task":            task.Ref(),
		"task_status":     task.Status,
		"expected_status": expected,
		"disputer_won":    disputerWon,
	}).Warn("dispute outcome disagrees with ledger task status, keeping ledger status")
}

// standOriginal завершает задачу в пользу предварительного победителя.
func (r *Resolver) standOriginal(ctx context.Context, tx repository.Store, task *entity.Task) (lifecycle.Result, error) {
	if task.PendingWinner == nil {
		logger.Get().WithField("task", task.Ref()).Warn("disputed task has no selected winner, completing without winner")
	}
	return r.completion.Apply(ctx, tx, task, task.PendingWinner)
}

func (r *Resolver) withDisputeLocks(ctx context.Context, chainID int64, chainDisputeID string, fn func(tx repository.Store, d *entity.Dispute, task *entity.Task) error) error {
	d, err := r.store.Disputes().FindByChainID(ctx, chainID, chainDisputeID)
	if err != nil {
		return err
	}
	task, err := r.store.Tasks().FindByID(ctx, d.TaskID)
	if err != nil {
		return err
	}

	unlock, err := r.locks.LockAll(ctx, []string{
		event.DisputeKey(chainID, event.Uint(chainDisputeID)),
		event.TaskKey(chainID, event.Uint(task.ChainTaskID)),
	})
	if err != nil {
		return err
	}
	defer unlock()

	return r.store.InTx(ctx, func(tx repository.Store) error {
		d, err := tx.Disputes().FindByChainID(ctx, chainID, chainDisputeID)
		if err != nil {
			return err
		}
		task, err := tx.Tasks().FindByID(ctx, d.TaskID)
		if err != nil {
			return err
		}
		return fn(tx, d, task)
	})
}
