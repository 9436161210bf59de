package query

import (
	"context"
	"time"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/service"
)

type SubmissionView struct {
	Agent           string    `json:"agent"`
	SubmissionIndex int64     `json:"submission_index"`
	ContentCID      string    `json:"content_cid"`
	IsWinner        bool      `json:"is_winner"`
	SubmittedAt     time.Time `json:"submitted_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type TaskView struct {
	ID            string                 `json:"id"`
	ChainID       int64                  `json:"chain_id"`
	ChainTaskID   string                 `json:"chain_task_id"`
	Status        valueobject.TaskStatus `json:"status"`
	Creator       string                 `json:"creator"`
	Winner        *string                `json:"winner,omitempty"`
	PendingWinner *string                `json:"pending_winner,omitempty"`
	Bounty        valueobject.Amount     `json:"bounty"`
	SpecCID       string                 `json:"spec_cid,omitempty"`
	Deadline      *time.Time             `json:"deadline,omitempty"`
	Submissions   []SubmissionView       `json:"submissions"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type DisputeView struct {
	ID             string                    `json:"id"`
	ChainID        int64                     `json:"chain_id"`
	ChainDisputeID string                    `json:"chain_dispute_id"`
	ChainTaskID    string                    `json:"chain_task_id"`
	Status         valueobject.DisputeStatus `json:"status"`
	Disputer       string                    `json:"disputer"`
	Stake          valueobject.Amount        `json:"stake"`
	VotingDeadline time.Time                 `json:"voting_deadline"`
	VotesFor       valueobject.Amount        `json:"votes_for"`
	VotesAgainst   valueobject.Amount        `json:"votes_against"`
	VoteCount      int                       `json:"vote_count"`
	DisputerWon    *bool                     `json:"disputer_won,omitempty"`
	ResolvedAt     *time.Time                `json:"resolved_at,omitempty"`
}

type AgentView struct {
	Address    string `json:"address"`
	Checksum   string `json:"checksum_address"`
	ProfileCID string `json:"profile_cid,omitempty"`
	TasksWon   int64  `json:"tasks_won"`
}

// ViewService отдаёт проекции через кэш; записи сбрасываются шиной инвалидации.
type ViewService struct {
	store repository.Store
	cache *service.CacheService
}

func NewViewService(store repository.Store, cache *service.CacheService) *ViewService {
	return &ViewService{store: store, cache: cache}
}

func (s *ViewService) Task(ctx context.Context, chainID int64, chainTaskID string) (*TaskView, error) {
	v, err := s.cache.GetOrSet(ctx, service.TaskViewCacheKey(chainID, chainTaskID), 0, func() (interface{}, error) {
		return s.loadTask(ctx, chainID, chainTaskID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*TaskView), nil
}

func (s *ViewService) Dispute(ctx context.Context, chainID int64, chainDisputeID string) (*DisputeView, error) {
	v, err := s.cache.GetOrSet(ctx, service.DisputeViewCacheKey(chainID, chainDisputeID), 0, func() (interface{}, error) {
		return s.loadDispute(ctx, chainID, chainDisputeID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*DisputeView), nil
}

func (s *ViewService) Agent(ctx context.Context, address valueobject.Address) (*AgentView, error) {
	v, err := s.cache.GetOrSet(ctx, service.AgentViewCacheKey(address.String()), 0, func() (interface{}, error) {
		a, err := s.store.Agents().FindByAddress(ctx, address)
		if err != nil {
			return nil, err
		}
		return &AgentView{
			Address:    a.Address.String(),
			Checksum:   a.Address.Checksum(),
			ProfileCID: a.ProfileCID,
			TasksWon:   a.TasksWon,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AgentView), nil
}

func (s *ViewService) loadTask(ctx context.Context, chainID int64, chainTaskID string) (*TaskView, error) {
	task, err := s.store.Tasks().FindByChainID(ctx, chainID, chainTaskID)
	if err != nil {
		return nil, err
	}
	subs, err := s.store.Submissions().ListByTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	view := &TaskView{
		ID:            task.ID.String(),
		ChainID:       task.ChainID,
		ChainTaskID:   task.ChainTaskID,
		Status:        task.Status,
		Creator:       task.Creator.String(),
		Winner:        addressPtr(task.WinnerAddress),
		PendingWinner: addressPtr(task.PendingWinner),
		Bounty:        task.Bounty,
		SpecCID:       task.SpecCID,
		Deadline:      task.Deadline,
		Submissions:   make([]SubmissionView, 0, len(subs)),
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
	}
	for _, sub := range subs {
		view.Submissions = append(view.Submissions, SubmissionView{
			Agent:           sub.Agent.String(),
			SubmissionIndex: sub.SubmissionIndex,
			ContentCID:      sub.ContentCID,
			IsWinner:        sub.IsWinner,
			SubmittedAt:     sub.SubmittedAt,
			UpdatedAt:       sub.UpdatedAt,
		})
	}
	return view, nil
}

func (s *ViewService) loadDispute(ctx context.Context, chainID int64, chainDisputeID string) (*DisputeView, error) {
	d, err := s.store.Disputes().FindByChainID(ctx, chainID, chainDisputeID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.Tasks().FindByID(ctx, d.TaskID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "спор ссылается на отсутствующую задачу")
		}
		return nil, err
	}
	votes, err := s.store.Disputes().ListVotes(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	tally := entity.TallyVotes(votes)

	return &DisputeView{
		ID:             d.ID.String(),
		ChainID:        d.ChainID,
		ChainDisputeID: d.ChainDisputeID,
		ChainTaskID:    task.ChainTaskID,
		Status:         d.Status,
		Disputer:       d.Disputer.String(),
		Stake:          d.Stake,
		VotingDeadline: d.VotingDeadline,
		VotesFor:       tally.For,
		VotesAgainst:   tally.Against,
		VoteCount:      tally.Votes,
		DisputerWon:    d.DisputerWon,
		ResolvedAt:     d.ResolvedAt,
	}, nil
}

func addressPtr(a *valueobject.Address) *string {
	if a == nil {
		return nil
	}
	s := a.String()
	return &s
}
