package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

// Claim - заявка агента на выполнение задачи.
type Claim struct {
	ID        uuid.UUID
	TaskID    uuid.UUID
	Agent     valueobject.Address
	Status    valueobject.ClaimStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewClaim(taskID uuid.UUID, agent valueobject.Address) *Claim {
	now := time.Now().UTC()
	return &Claim{
		ID:        uuid.New(),
		TaskID:    taskID,
		Agent:     agent,
		Status:    valueobject.ClaimStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Claim) MoveTo(status valueobject.ClaimStatus) error {
	if c.Status == status {
		return nil
	}
	if !c.Status.CanTransitionTo(status) {
		return apperror.InvalidTransition(string(c.Status), string(status), fmt.Sprintf("claim:%s", c.ID))
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return nil
}
