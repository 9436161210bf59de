package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/queue"
)

type IngestResponse struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	EntityKey string    `json:"entity_key"`
	Status    string    `json:"status"`
	Duplicate bool      `json:"duplicate"`
}

type DeadLetterResponse struct {
	ID              uuid.UUID       `json:"id"`
	Type            string          `json:"type"`
	ChainID         int64           `json:"chain_id"`
	TransactionHash string          `json:"transaction_hash"`
	LogIndex        int             `json:"log_index"`
	Args            json.RawMessage `json:"args"`
	EntityKey       string          `json:"entity_key"`
	Attempts        int             `json:"attempts"`
	Reason          string          `json:"reason"`
	ReasonCode      string          `json:"reason_code,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type ReplayResponse struct {
	ID            uuid.UUID `json:"id"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
}

func ToIngestResponse(rec *queue.Record, duplicate bool) IngestResponse {
	return IngestResponse{
		ID:        rec.ID,
		Type:      rec.Event.Type,
		EntityKey: rec.EntityKey,
		Status:    string(rec.Status),
		Duplicate: duplicate,
	}
}

func ToDeadLetterResponse(rec *queue.Record) DeadLetterResponse {
	return DeadLetterResponse{
		ID:              rec.ID,
		Type:            rec.Event.Type,
		ChainID:         rec.Event.ChainID,
		TransactionHash: rec.Event.TransactionHash,
		LogIndex:        rec.Event.LogIndex,
		Args:            rec.Event.Args,
		EntityKey:       rec.EntityKey,
		Attempts:        rec.Attempts,
		Reason:          rec.LastError,
		ReasonCode:      rec.LastErrorCode,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

func ToDeadLetterList(records []*queue.Record) []DeadLetterResponse {
	out := make([]DeadLetterResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, ToDeadLetterResponse(rec))
	}
	return out
}

func ToReplayResponse(rec *queue.Record) ReplayResponse {
	return ReplayResponse{
		ID:            rec.ID,
		Status:        string(rec.Status),
		Attempts:      rec.Attempts,
		NextAttemptAt: rec.NextAttemptAt,
	}
}
