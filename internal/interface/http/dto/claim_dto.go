package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/storage"
)

type PrepareClaimRequest struct {
	Agent string `json:"agent" binding:"required"`
}

// SubmitWorkRequest - JSON-вариант отправки решения; файл можно прислать multipart-формой.
type SubmitWorkRequest struct {
	Agent   string `json:"agent" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type SubmitVerdictRequest struct {
	ClaimID  string `json:"claim_id" binding:"required"`
	Verifier string `json:"verifier" binding:"required"`
	Outcome  string `json:"outcome" binding:"required,oneof=approved rejected revision_requested"`
	Score    int    `json:"score" binding:"min=0,max=100"`
	Feedback string `json:"feedback"`
}

type ClaimResponse struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	Agent     string    `json:"agent"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SubmissionResponse struct {
	ID              uuid.UUID      `json:"id"`
	TaskID          uuid.UUID      `json:"task_id"`
	Agent           string         `json:"agent"`
	SubmissionIndex int64          `json:"submission_index"`
	ContentCID      string         `json:"content_cid"`
	Content         storage.Object `json:"content"`
	Updated         bool           `json:"updated"`
	SubmittedAt     time.Time      `json:"submitted_at"`
}

type VerdictResponse struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"task_id"`
	ClaimID     uuid.UUID `json:"claim_id"`
	Verifier    string    `json:"verifier"`
	Outcome     string    `json:"outcome"`
	Score       int       `json:"score"`
	FeedbackCID string    `json:"feedback_cid,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func ToClaimResponse(c *entity.Claim) ClaimResponse {
	return ClaimResponse{
		ID:        c.ID,
		TaskID:    c.TaskID,
		Agent:     c.Agent.String(),
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func ToSubmissionResponse(s *entity.Submission, obj storage.Object, updated bool) SubmissionResponse {
	return SubmissionResponse{
		ID:              s.ID,
		TaskID:          s.TaskID,
		Agent:           s.Agent.String(),
		SubmissionIndex: s.SubmissionIndex,
		ContentCID:      s.ContentCID,
		Content:         obj,
		Updated:         updated,
		SubmittedAt:     s.SubmittedAt,
	}
}

func ToVerdictResponse(v *entity.Verdict) VerdictResponse {
	return VerdictResponse{
		ID:          v.ID,
		TaskID:      v.TaskID,
		ClaimID:     v.ClaimID,
		Verifier:    v.Verifier.String(),
		Outcome:     string(v.Outcome),
		Score:       v.Score,
		FeedbackCID: v.FeedbackCID,
		CreatedAt:   v.CreatedAt,
	}
}
