package claim

import (
	"context"
	"fmt"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/indexer"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/service"
)

type PrepareClaimInput struct {
	ChainID     int64
	ChainTaskID string
	Agent       valueobject.Address
}

// PrepareClaimUseCase - агент заявляет о намерении выполнить задачу.
type PrepareClaimUseCase struct {
	store       repository.Store
	locks       *indexer.KeyLock
	invalidator service.Invalidator
}

func NewPrepareClaimUseCase(store repository.Store, locks *indexer.KeyLock, invalidator service.Invalidator) *PrepareClaimUseCase {
	if locks == nil {
		locks = indexer.NewKeyLock()
	}
	if invalidator == nil {
		invalidator = service.NoopInvalidator{}
	}
	return &PrepareClaimUseCase{store: store, locks: locks, invalidator: invalidator}
}

func (uc *PrepareClaimUseCase) Execute(ctx context.Context, input PrepareClaimInput) (*entity.Claim, error) {
	task, err := uc.store.Tasks().FindByChainID(ctx, input.ChainID, input.ChainTaskID)
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		return nil, apperror.New(apperror.ErrCodeConflict, fmt.Sprintf("задача %s уже закрыта", task.Ref()))
	}

	// Проверка "одна открытая заявка" не опирается на ограничение хранилища, поэтому пара сериализуется.
	unlock, err := uc.locks.Lock(ctx, claimKey(task, input.Agent))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var claim *entity.Claim
	err = uc.store.InTx(ctx, func(tx repository.Store) error {
		open, err := tx.Claims().FindOpenByTaskAndAgent(ctx, task.ID, input.Agent)
		if err == nil {
			return apperror.DuplicateClaim(task.Ref(), input.Agent.String(), open.ID.String())
		}
		if !apperror.IsNotFound(err) {
			return err
		}
		claim = entity.NewClaim(task.ID, input.Agent)
		return tx.Claims().Create(ctx, claim)
	})
	if err != nil {
		return nil, err
	}
	uc.invalidator.Invalidate(ctx, service.ClaimInvalidation(claim.ID.String()))
	return claim, nil
}

func claimKey(task *entity.Task, agent valueobject.Address) string {
	return "claim:" + task.Ref() + ":" + agent.String()
}
