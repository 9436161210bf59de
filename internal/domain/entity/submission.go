package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
)

type Submission struct {
	ID              uuid.UUID
	TaskID          uuid.UUID
	Agent           valueobject.Address
	SubmissionIndex int64
	ContentCID      string
	IsWinner        bool
	SubmittedAt     time.Time
	UpdatedAt       time.Time
}

func NewSubmission(taskID uuid.UUID, agent valueobject.Address, contentCID string, index int64) *Submission {
	now := time.Now().UTC()
	return &Submission{
		ID:              uuid.New(),
		TaskID:          taskID,
		Agent:           agent,
		SubmissionIndex: index,
		ContentCID:      contentCID,
		SubmittedAt:     now,
		UpdatedAt:       now,
	}
}

// Resubmit обновляет содержимое существующего решения вместо создания дубликата.
func (s *Submission) Resubmit(contentCID string) {
	s.ContentCID = contentCID
	s.UpdatedAt = time.Now().UTC()
}
