package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

const (
	MinVerdictScore = 0
	MaxVerdictScore = 100
)

type Verdict struct {
	ID          uuid.UUID
	TaskID      uuid.UUID
	ClaimID     uuid.UUID
	Verifier    valueobject.Address
	Outcome     valueobject.VerdictOutcome
	Score       int
	FeedbackCID string
	CreatedAt   time.Time
}

func NewVerdict(taskID, claimID uuid.UUID, verifier valueobject.Address, outcome valueobject.VerdictOutcome, score int, feedbackCID string) (*Verdict, error) {
	if score < MinVerdictScore || score > MaxVerdictScore {
		return nil, apperror.New(apperror.ErrCodeValidation, "оценка должна быть в диапазоне 0..100")
	}
	return &Verdict{
		ID:          uuid.New(),
		TaskID:      taskID,
		ClaimID:     claimID,
		Verifier:    verifier,
		Outcome:     outcome,
		Score:       score,
		FeedbackCID: feedbackCID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
