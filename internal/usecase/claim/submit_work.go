package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/indexer"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/service"
	"github.com/ignatzorin/bounty-indexer/internal/storage"
)

type SubmitWorkInput struct {
	ChainID     int64
	ChainTaskID string
	Agent       valueobject.Address
	Content     []byte
}

type SubmitWorkOutput struct {
	Submission *entity.Submission
	Object     storage.Object
	// Updated - решение уже было и его содержимое заменено.
	Updated bool
}

type SubmitWorkUseCase struct {
	store       repository.Store
	blobs       storage.BlobStore
	locks       *indexer.KeyLock
	invalidator service.Invalidator
	now         func() time.Time
}

func NewSubmitWorkUseCase(store repository.Store, blobs storage.BlobStore, locks *indexer.KeyLock, invalidator service.Invalidator) *SubmitWorkUseCase {
	if locks == nil {
		locks = indexer.NewKeyLock()
	}
	if invalidator == nil {
		invalidator = service.NoopInvalidator{}
	}
	return &SubmitWorkUseCase{store: store, blobs: blobs, locks: locks, invalidator: invalidator, now: time.Now}
}

func (uc *SubmitWorkUseCase) Execute(ctx context.Context, input SubmitWorkInput) (*SubmitWorkOutput, error) {
	if len(input.Content) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "содержимое решения обязательно")
	}
	task, err := uc.store.Tasks().FindByChainID(ctx, input.ChainID, input.ChainTaskID)
	if err != nil {
		return nil, err
	}
	if !task.AcceptsSubmissions(uc.now()) {
		return nil, apperror.New(apperror.ErrCodeConflict, fmt.Sprintf("задача %s не принимает решения", task.Ref()))
	}

	obj, err := uc.blobs.Put(ctx, input.Content)
	if err != nil {
		return nil, err
	}

	// Тот же ключ берёт диспетчер для WorkSubmitted этой задачи.
	unlock, err := uc.locks.Lock(ctx, event.TaskKey(task.ChainID, event.Uint(task.ChainTaskID)))
	if err != nil {
		return nil, err
	}
	defer unlock()

	out := &SubmitWorkOutput{Object: obj}
	err = uc.store.InTx(ctx, func(tx repository.Store) error {
		// Индекс проставит событие WorkSubmitted.
		sub, created, err := repository.FindOrCreateSubmission(ctx, tx, entity.NewSubmission(task.ID, input.Agent, obj.CID, 0))
		if err != nil {
			return err
		}
		if !created {
			sub.Resubmit(obj.CID)
			out.Updated = true
			if err := tx.Submissions().Update(ctx, sub); err != nil {
				return err
			}
		}
		out.Submission = sub

		claim, err := tx.Claims().FindOpenByTaskAndAgent(ctx, task.ID, input.Agent)
		if apperror.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if claim.Status != valueobject.ClaimStatusActive {
			return nil
		}
		if err := claim.MoveTo(valueobject.ClaimStatusSubmitted); err != nil {
			return err
		}
		return tx.Claims().Update(ctx, claim)
	})
	if err != nil {
		return nil, err
	}

	uc.invalidator.Invalidate(ctx,
		service.TaskInvalidation(task.ChainID, task.ChainTaskID),
		service.SubmissionInvalidation(task.ID.String()),
	)
	return out, nil
}
