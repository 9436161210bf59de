package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
)

type state struct {
	tasks       map[uuid.UUID]entity.Task
	submissions map[uuid.UUID]entity.Submission
	claims      map[uuid.UUID]entity.Claim
	disputes    map[uuid.UUID]entity.Dispute
	votes       map[uuid.UUID]entity.DisputeVote
	verdicts    map[uuid.UUID]entity.Verdict
	agents      map[valueobject.Address]entity.Agent
}

func newState() *state {
	return &state{
		tasks:       make(map[uuid.UUID]entity.Task),
		submissions: make(map[uuid.UUID]entity.Submission),
		claims:      make(map[uuid.UUID]entity.Claim),
		disputes:    make(map[uuid.UUID]entity.Dispute),
		votes:       make(map[uuid.UUID]entity.DisputeVote),
		verdicts:    make(map[uuid.UUID]entity.Verdict),
		agents:      make(map[valueobject.Address]entity.Agent),
	}
}

func (s *state) clone() *state {
	cp := newState()
	for k, v := range s.tasks {
		cp.tasks[k] = v
	}
	for k, v := range s.submissions {
		cp.submissions[k] = v
	}
	for k, v := range s.claims {
		cp.claims[k] = v
	}
	for k, v := range s.disputes {
		cp.disputes[k] = v
	}
	for k, v := range s.votes {
		cp.votes[k] = v
	}
	for k, v := range s.verdicts {
		cp.verdicts[k] = v
	}
	for k, v := range s.agents {
		cp.agents[k] = v
	}
	return cp
}

// Store - хранилище сущностей в памяти. Записи хранятся по значению,
// поэтому изменения сущности вызывающим кодом не видны без Update.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{mu: &sync.Mutex{}, st: newState()}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTx выполняет fn под общей блокировкой; при ошибке состояние откатывается к снимку.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true}

	defer func() {
		if p := recover(); p != nil {
			*s.st = *snapshot
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		*s.st = *snapshot
		return err
	}
	return nil
}

func (s *Store) Tasks() repository.TaskRepository             { return taskRepo{s} }
func (s *Store) Submissions() repository.SubmissionRepository { return submissionRepo{s} }
func (s *Store) Claims() repository.ClaimRepository           { return claimRepo{s} }
func (s *Store) Disputes() repository.DisputeRepository       { return disputeRepo{s} }
func (s *Store) Verdicts() repository.VerdictRepository       { return verdictRepo{s} }
func (s *Store) Agents() repository.AgentRepository           { return agentRepo{s} }
