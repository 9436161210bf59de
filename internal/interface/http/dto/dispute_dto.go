package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/dispute"
)

type DisputeResponse struct {
	ID             uuid.UUID          `json:"id"`
	ChainID        int64              `json:"chain_id"`
	ChainDisputeID string             `json:"chain_dispute_id"`
	Status         string             `json:"status"`
	Disputer       string             `json:"disputer"`
	Stake          valueobject.Amount `json:"stake"`
	VotingDeadline time.Time          `json:"voting_deadline"`
	DisputerWon    *bool              `json:"disputer_won,omitempty"`
	ResolvedAt     *time.Time         `json:"resolved_at,omitempty"`
}

type ResolutionResponse struct {
	Dispute      DisputeResponse    `json:"dispute"`
	VotesFor     valueobject.Amount `json:"votes_for"`
	VotesAgainst valueobject.Amount `json:"votes_against"`
	VoteCount    int                `json:"vote_count"`
	DisputerWon  bool               `json:"disputer_won"`
	TaskStatus   string             `json:"task_status"`
}

func ToDisputeResponse(d *entity.Dispute) DisputeResponse {
	return DisputeResponse{
		ID:             d.ID,
		ChainID:        d.ChainID,
		ChainDisputeID: d.ChainDisputeID,
		Status:         string(d.Status),
		Disputer:       d.Disputer.String(),
		Stake:          d.Stake,
		VotingDeadline: d.VotingDeadline,
		DisputerWon:    d.DisputerWon,
		ResolvedAt:     d.ResolvedAt,
	}
}

func ToResolutionResponse(o *dispute.Outcome) ResolutionResponse {
	return ResolutionResponse{
		Dispute:      ToDisputeResponse(o.Dispute),
		VotesFor:     o.Tally.For,
		VotesAgainst: o.Tally.Against,
		VoteCount:    o.Tally.Votes,
		DisputerWon:  o.DisputerWon,
		TaskStatus:   string(o.TaskStatus),
	}
}
