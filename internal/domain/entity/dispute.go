package entity

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

// DefaultThresholdPercent - доля веса голосов "за", при которой спор выигрывает инициатор.
const DefaultThresholdPercent = 60

type Dispute struct {
	ID             uuid.UUID
	ChainID        int64
	ChainDisputeID string
	TaskID         uuid.UUID
	Status         valueobject.DisputeStatus
	Disputer       valueobject.Address
	Stake          valueobject.Amount
	VotingDeadline time.Time
	// DisputerWon заполняется только при разрешении спора.
	DisputerWon   *bool
	CreatedTxHash string
	ResolvedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewDispute(chainID int64, chainDisputeID string, taskID uuid.UUID, disputer valueobject.Address, stake valueobject.Amount, deadline time.Time, txHash string) (*Dispute, error) {
	if chainDisputeID == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "идентификатор спора в контракте обязателен")
	}
	now := time.Now().UTC()
	return &Dispute{
		ID:             uuid.New(),
		ChainID:        chainID,
		ChainDisputeID: chainDisputeID,
		TaskID:         taskID,
		Status:         valueobject.DisputeStatusActive,
		Disputer:       disputer,
		Stake:          stake,
		VotingDeadline: deadline.UTC(),
		CreatedTxHash:  txHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func DisputeRef(chainID int64, chainDisputeID string) string {
	return fmt.Sprintf("dispute:%d:%s", chainID, chainDisputeID)
}

func (d *Dispute) Ref() string {
	return DisputeRef(d.ChainID, d.ChainDisputeID)
}

// VotingClosed - дедлайн голосования прошёл.
func (d *Dispute) VotingClosed(now time.Time) bool {
	return !now.Before(d.VotingDeadline)
}

func (d *Dispute) Resolve(disputerWon bool, at time.Time) error {
	if d.Status != valueobject.DisputeStatusActive {
		return apperror.New(apperror.ErrCodeDisputeClosed, fmt.Sprintf("спор %s уже закрыт", d.Ref()))
	}
	won := disputerWon
	resolvedAt := at.UTC()
	d.DisputerWon = &won
	d.Status = valueobject.DisputeStatusResolved
	d.ResolvedAt = &resolvedAt
	d.UpdatedAt = resolvedAt
	return nil
}

func (d *Dispute) Cancel(at time.Time) error {
	if d.Status == valueobject.DisputeStatusCancelled {
		return nil
	}
	if d.Status != valueobject.DisputeStatusActive {
		return apperror.New(apperror.ErrCodeDisputeClosed, fmt.Sprintf("спор %s уже закрыт", d.Ref()))
	}
	d.Status = valueobject.DisputeStatusCancelled
	d.UpdatedAt = at.UTC()
	return nil
}

type DisputeVote struct {
	ID               uuid.UUID
	DisputeID        uuid.UUID
	Voter            valueobject.Address
	SupportsDisputer bool
	Weight           valueobject.Amount
	TxHash           string
	CreatedAt        time.Time
}

func NewDisputeVote(disputeID uuid.UUID, voter valueobject.Address, supports bool, weight valueobject.Amount, txHash string) *DisputeVote {
	return &DisputeVote{
		ID:               uuid.New(),
		DisputeID:        disputeID,
		Voter:            voter,
		SupportsDisputer: supports,
		Weight:           weight,
		TxHash:           txHash,
		CreatedAt:        time.Now().UTC(),
	}
}

// Tally - суммарный вес голосов по спору.
type Tally struct {
	For     valueobject.Amount
	Against valueobject.Amount
	Votes   int
}

func TallyVotes(votes []*DisputeVote) Tally {
	var t Tally
	for _, v := range votes {
		if v.SupportsDisputer {
			t.For = t.For.Add(v.Weight)
		} else {
			t.Against = t.Against.Add(v.Weight)
		}
		t.Votes++
	}
	return t
}

func (t Tally) Total() valueobject.Amount {
	return t.For.Add(t.Against)
}

// DisputerWon считает исход в целых числах: for*100 >= threshold*total.
// Без голосов инициатор проигрывает и исходное решение остаётся в силе.
func (t Tally) DisputerWon(thresholdPercent int) bool {
	total := t.Total().BigInt()
	if total.Sign() == 0 {
		return false
	}
	lhs := new(big.Int).Mul(t.For.BigInt(), big.NewInt(100))
	rhs := new(big.Int).Mul(total, big.NewInt(int64(thresholdPercent)))
	return lhs.Cmp(rhs) >= 0
}
