package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

type taskRepo struct{ s *Store }

func (r taskRepo) Create(_ context.Context, task *entity.Task) error {
	defer r.s.lock()()
	for _, t := range r.s.st.tasks {
		if t.ChainID == task.ChainID && t.ChainTaskID == task.ChainTaskID {
			return apperror.New(apperror.ErrCodeConflict, "задача уже существует")
		}
	}
	r.s.st.tasks[task.ID] = *task
	return nil
}

func (r taskRepo) Update(_ context.Context, task *entity.Task) error {
	defer r.s.lock()()
	if _, ok := r.s.st.tasks[task.ID]; !ok {
		return apperror.ErrTaskNotFound
	}
	r.s.st.tasks[task.ID] = *task
	return nil
}

func (r taskRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Task, error) {
	defer r.s.lock()()
	t, ok := r.s.st.tasks[id]
	if !ok {
		return nil, apperror.ErrTaskNotFound
	}
	return &t, nil
}

func (r taskRepo) FindByChainID(_ context.Context, chainID int64, chainTaskID string) (*entity.Task, error) {
	defer r.s.lock()()
	for _, t := range r.s.st.tasks {
		if t.ChainID == chainID && t.ChainTaskID == chainTaskID {
			found := t
			return &found, nil
		}
	}
	return nil, apperror.ErrTaskNotFound
}

type submissionRepo struct{ s *Store }

func (r submissionRepo) Create(_ context.Context, sub *entity.Submission) error {
	defer r.s.lock()()
	for _, existing := range r.s.st.submissions {
		if existing.TaskID == sub.TaskID && existing.Agent == sub.Agent {
			return apperror.ErrSubmissionExists
		}
	}
	r.s.st.submissions[sub.ID] = *sub
	return nil
}

func (r submissionRepo) Update(_ context.Context, sub *entity.Submission) error {
	defer r.s.lock()()
	if _, ok := r.s.st.submissions[sub.ID]; !ok {
		return apperror.ErrSubmissionNotFound
	}
	r.s.st.submissions[sub.ID] = *sub
	return nil
}

func (r submissionRepo) FindByTaskAndAgent(_ context.Context, taskID uuid.UUID, agent valueobject.Address) (*entity.Submission, error) {
	defer r.s.lock()()
	for _, sub := range r.s.st.submissions {
		if sub.TaskID == taskID && sub.Agent == agent {
			found := sub
			return &found, nil
		}
	}
	return nil, apperror.ErrSubmissionNotFound
}

func (r submissionRepo) ListByTask(_ context.Context, taskID uuid.UUID) ([]*entity.Submission, error) {
	defer r.s.lock()()
	out := make([]*entity.Submission, 0)
	for _, sub := range r.s.st.submissions {
		if sub.TaskID == taskID {
			found := sub
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmissionIndex != out[j].SubmissionIndex {
			return out[i].SubmissionIndex < out[j].SubmissionIndex
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

func (r submissionRepo) ClearWinners(_ context.Context, taskID uuid.UUID) error {
	defer r.s.lock()()
	for id, sub := range r.s.st.submissions {
		if sub.TaskID == taskID && sub.IsWinner {
			sub.IsWinner = false
			sub.UpdatedAt = time.Now().UTC()
			r.s.st.submissions[id] = sub
		}
	}
	return nil
}

func (r submissionRepo) MarkWinner(_ context.Context, taskID uuid.UUID, agent valueobject.Address) error {
	defer r.s.lock()()
	var target *uuid.UUID
	for id, sub := range r.s.st.submissions {
		if sub.TaskID != taskID {
			continue
		}
		if sub.Agent == agent {
			id := id
			target = &id
			continue
		}
		// аналог частичного уникального индекса submissions_one_winner
		if sub.IsWinner {
			return apperror.New(apperror.ErrCodeConflict, "у задачи уже есть победитель")
		}
	}
	if target == nil {
		return apperror.ErrSubmissionNotFound
	}
	sub := r.s.st.submissions[*target]
	sub.IsWinner = true
	sub.UpdatedAt = time.Now().UTC()
	r.s.st.submissions[*target] = sub
	return nil
}

type claimRepo struct{ s *Store }

func (r claimRepo) Create(_ context.Context, claim *entity.Claim) error {
	defer r.s.lock()()
	r.s.st.claims[claim.ID] = *claim
	return nil
}

func (r claimRepo) Update(_ context.Context, claim *entity.Claim) error {
	defer r.s.lock()()
	if _, ok := r.s.st.claims[claim.ID]; !ok {
		return apperror.ErrClaimNotFound
	}
	r.s.st.claims[claim.ID] = *claim
	return nil
}

func (r claimRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Claim, error) {
	defer r.s.lock()()
	c, ok := r.s.st.claims[id]
	if !ok {
		return nil, apperror.ErrClaimNotFound
	}
	return &c, nil
}

func (r claimRepo) FindOpenByTaskAndAgent(_ context.Context, taskID uuid.UUID, agent valueobject.Address) (*entity.Claim, error) {
	defer r.s.lock()()
	var latest *entity.Claim
	for _, c := range r.s.st.claims {
		if c.TaskID != taskID || c.Agent != agent || !c.Status.IsOpen() {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			found := c
			latest = &found
		}
	}
	if latest == nil {
		return nil, apperror.ErrClaimNotFound
	}
	return latest, nil
}

type disputeRepo struct{ s *Store }

func (r disputeRepo) Create(_ context.Context, d *entity.Dispute) error {
	defer r.s.lock()()
	for _, existing := range r.s.st.disputes {
		if existing.ChainID == d.ChainID && existing.ChainDisputeID == d.ChainDisputeID {
			return apperror.New(apperror.ErrCodeConflict, "спор уже существует")
		}
		if existing.TaskID == d.TaskID && existing.Status == valueobject.DisputeStatusActive {
			return apperror.New(apperror.ErrCodeConflict, "по задаче уже есть активный спор")
		}
	}
	r.s.st.disputes[d.ID] = *d
	return nil
}

func (r disputeRepo) Update(_ context.Context, d *entity.Dispute) error {
	defer r.s.lock()()
	if _, ok := r.s.st.disputes[d.ID]; !ok {
		return apperror.ErrDisputeNotFound
	}
	r.s.st.disputes[d.ID] = *d
	return nil
}

func (r disputeRepo) FindByChainID(_ context.Context, chainID int64, chainDisputeID string) (*entity.Dispute, error) {
	defer r.s.lock()()
	for _, d := range r.s.st.disputes {
		if d.ChainID == chainID && d.ChainDisputeID == chainDisputeID {
			found := d
			return &found, nil
		}
	}
	return nil, apperror.ErrDisputeNotFound
}

func (r disputeRepo) FindActiveByTask(_ context.Context, taskID uuid.UUID) (*entity.Dispute, error) {
	defer r.s.lock()()
	for _, d := range r.s.st.disputes {
		if d.TaskID == taskID && d.Status == valueobject.DisputeStatusActive {
			found := d
			return &found, nil
		}
	}
	return nil, apperror.ErrDisputeNotFound
}

func (r disputeRepo) ListDue(_ context.Context, before time.Time, limit int) ([]*entity.Dispute, error) {
	defer r.s.lock()()
	out := make([]*entity.Dispute, 0)
	for _, d := range r.s.st.disputes {
		if d.Status == valueobject.DisputeStatusActive && !d.VotingDeadline.After(before) {
			found := d
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VotingDeadline.Before(out[j].VotingDeadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r disputeRepo) CreateVote(_ context.Context, v *entity.DisputeVote) error {
	defer r.s.lock()()
	for _, existing := range r.s.st.votes {
		if existing.DisputeID == v.DisputeID && existing.Voter == v.Voter {
			return apperror.DuplicateVote(v.DisputeID.String(), v.Voter.String())
		}
	}
	r.s.st.votes[v.ID] = *v
	return nil
}

func (r disputeRepo) FindVote(_ context.Context, disputeID uuid.UUID, voter valueobject.Address) (*entity.DisputeVote, error) {
	defer r.s.lock()()
	for _, v := range r.s.st.votes {
		if v.DisputeID == disputeID && v.Voter == voter {
			found := v
			return &found, nil
		}
	}
	return nil, apperror.ErrVoteNotFound
}

func (r disputeRepo) ListVotes(_ context.Context, disputeID uuid.UUID) ([]*entity.DisputeVote, error) {
	defer r.s.lock()()
	out := make([]*entity.DisputeVote, 0)
	for _, v := range r.s.st.votes {
		if v.DisputeID == disputeID {
			found := v
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type verdictRepo struct{ s *Store }

func (r verdictRepo) Create(_ context.Context, v *entity.Verdict) error {
	defer r.s.lock()()
	r.s.st.verdicts[v.ID] = *v
	return nil
}

func (r verdictRepo) ListByClaim(_ context.Context, claimID uuid.UUID) ([]*entity.Verdict, error) {
	defer r.s.lock()()
	out := make([]*entity.Verdict, 0)
	for _, v := range r.s.st.verdicts {
		if v.ClaimID == claimID {
			found := v
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type agentRepo struct{ s *Store }

func (r agentRepo) Create(_ context.Context, a *entity.Agent) error {
	defer r.s.lock()()
	if _, ok := r.s.st.agents[a.Address]; ok {
		return apperror.New(apperror.ErrCodeConflict, "профиль агента уже существует")
	}
	r.s.st.agents[a.Address] = *a
	return nil
}

func (r agentRepo) FindByAddress(_ context.Context, address valueobject.Address) (*entity.Agent, error) {
	defer r.s.lock()()
	a, ok := r.s.st.agents[address]
	if !ok {
		return nil, apperror.ErrAgentNotFound
	}
	return &a, nil
}

func (r agentRepo) IncrementTasksWon(_ context.Context, address valueobject.Address) error {
	defer r.s.lock()()
	a, ok := r.s.st.agents[address]
	if !ok {
		return apperror.ErrAgentNotFound
	}
	a.TasksWon++
	a.UpdatedAt = time.Now().UTC()
	r.s.st.agents[address] = a
	return nil
}
