package claim

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/service"
	"github.com/ignatzorin/bounty-indexer/internal/storage"
	"github.com/ignatzorin/bounty-indexer/internal/validation"
)

type SubmitVerdictInput struct {
	ChainID     int64
	ChainTaskID string
	ClaimID     uuid.UUID
	Verifier    valueobject.Address
	Outcome     string
	Score       int
	Feedback    []byte
}

type SubmitVerdictUseCase struct {
	store       repository.Store
	blobs       storage.BlobStore
	invalidator service.Invalidator
}

func NewSubmitVerdictUseCase(store repository.Store, blobs storage.BlobStore, invalidator service.Invalidator) *SubmitVerdictUseCase {
	if invalidator == nil {
		invalidator = service.NoopInvalidator{}
	}
	return &SubmitVerdictUseCase{store: store, blobs: blobs, invalidator: invalidator}
}

// Execute записывает вердикт и переводит заявку: approved, rejected или обратно в active на доработку.
func (uc *SubmitVerdictUseCase) Execute(ctx context.Context, input SubmitVerdictInput) (*entity.Verdict, error) {
	outcome, err := valueobject.NewVerdictOutcome(input.Outcome)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateScore(input.Score); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateFeedback(string(input.Feedback)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	task, err := uc.store.Tasks().FindByChainID(ctx, input.ChainID, input.ChainTaskID)
	if err != nil {
		return nil, err
	}
	claim, err := uc.store.Claims().FindByID(ctx, input.ClaimID)
	if err != nil {
		return nil, err
	}
	if claim.TaskID != task.ID {
		return nil, apperror.New(apperror.ErrCodeValidation, "заявка не относится к задаче")
	}

	var feedbackCID string
	if len(input.Feedback) > 0 {
		obj, err := uc.blobs.Put(ctx, input.Feedback)
		if err != nil {
			return nil, err
		}
		feedbackCID = obj.CID
	}

	verdict, err := entity.NewVerdict(task.ID, claim.ID, input.Verifier, outcome, input.Score, feedbackCID)
	if err != nil {
		return nil, err
	}

	err = uc.store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.Claims().FindByID(ctx, claim.ID)
		if err != nil {
			return err
		}
		if err := current.MoveTo(outcome.ClaimStatus()); err != nil {
			return err
		}
		if err := tx.Verdicts().Create(ctx, verdict); err != nil {
			return err
		}
		return tx.Claims().Update(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	uc.invalidator.Invalidate(ctx,
		service.ClaimInvalidation(claim.ID.String()),
		service.TaskInvalidation(task.ChainID, task.ChainTaskID),
	)
	return verdict, nil
}
