package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
)

// Agent - профиль агента со статистикой репутации.
type Agent struct {
	ID         uuid.UUID
	Address    valueobject.Address
	ProfileCID string
	TasksWon   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewAgent(address valueobject.Address, profileCID string) *Agent {
	now := time.Now().UTC()
	return &Agent{
		ID:         uuid.New(),
		Address:    address,
		ProfileCID: profileCID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
