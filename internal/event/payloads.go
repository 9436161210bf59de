package event

import (
	"errors"

	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
)

var (
	errMissingTaskID    = errors.New("не указан taskId")
	errMissingDisputeID = errors.New("не указан disputeId")
	errMissingAddress   = errors.New("не указан адрес")
	errMissingDeadline  = errors.New("не указан votingDeadline")
)

type TaskCreated struct {
	TaskID       Uint                `json:"taskId"`
	Creator      valueobject.Address `json:"creator"`
	BountyAmount valueobject.Amount  `json:"bountyAmount"`
	SpecCID      string              `json:"specCid"`
	Deadline     UnixTime            `json:"deadline"`
}

func (*TaskCreated) EventType() Type { return TypeTaskCreated }

func (p *TaskCreated) keys(chainID int64) []string { return []string{TaskKey(chainID, p.TaskID)} }

func (p *TaskCreated) validate() error {
	if p.TaskID.IsZero() {
		return errMissingTaskID
	}
	if p.Creator.IsZero() {
		return errMissingAddress
	}
	return nil
}

type WorkSubmitted struct {
	TaskID          Uint                `json:"taskId"`
	Agent           valueobject.Address `json:"agent"`
	SubmissionCID   string              `json:"submissionCid"`
	SubmissionIndex int64               `json:"submissionIndex"`
}

func (*WorkSubmitted) EventType() Type { return TypeWorkSubmitted }

func (p *WorkSubmitted) keys(chainID int64) []string { return []string{TaskKey(chainID, p.TaskID)} }

func (p *WorkSubmitted) validate() error {
	if p.TaskID.IsZero() {
		return errMissingTaskID
	}
	if p.Agent.IsZero() {
		return errMissingAddress
	}
	return nil
}

type WinnerSelected struct {
	TaskID Uint                `json:"taskId"`
	Winner valueobject.Address `json:"winner"`
}

func (*WinnerSelected) EventType() Type { return TypeWinnerSelected }

func (p *WinnerSelected) keys(chainID int64) []string { return []string{TaskKey(chainID, p.TaskID)} }

func (p *WinnerSelected) validate() error {
	if p.TaskID.IsZero() {
		return errMissingTaskID
	}
	if p.Winner.IsZero() {
		return errMissingAddress
	}
	return nil
}

type TaskCompleted struct {
	TaskID       Uint                `json:"taskId"`
	Winner       valueobject.Address `json:"winner"`
	BountyAmount valueobject.Amount  `json:"bountyAmount"`
}

func (*TaskCompleted) EventType() Type { return TypeTaskCompleted }

func (p *TaskCompleted) keys(chainID int64) []string { return []string{TaskKey(chainID, p.TaskID)} }

func (p *TaskCompleted) validate() error {
	if p.TaskID.IsZero() {
		return errMissingTaskID
	}
	if p.Winner.IsZero() {
		return errMissingAddress
	}
	return nil
}

type TaskRefunded struct {
	TaskID       Uint                `json:"taskId"`
	Creator      valueobject.Address `json:"creator"`
	RefundAmount valueobject.Amount  `json:"refundAmount"`
}

func (*TaskRefunded) EventType() Type { return TypeTaskRefunded }

func (p *TaskRefunded) keys(chainID int64) []string { return []string{TaskKey(chainID, p.TaskID)} }

func (p *TaskRefunded) validate() error {
	if p.TaskID.IsZero() {
		return errMissingTaskID
	}
	return nil
}

type TaskCancelled struct {
	TaskID  Uint                `json:"taskId"`
	Creator valueobject.Address `json:"creator"`
}

func (*TaskCancelled) EventType() Type { return TypeTaskCancelled }

func (p *TaskCancelled) keys(chainID int64) []string { return []string{TaskKey(chainID, p.TaskID)} }

func (p *TaskCancelled) validate() error {
	if p.TaskID.IsZero() {
		return errMissingTaskID
	}
	return nil
}

type DisputeStarted struct {
	DisputeID      Uint                `json:"disputeId"`
	TaskID         Uint                `json:"taskId"`
	Disputer       valueobject.Address `json:"disputer"`
	Stake          valueobject.Amount  `json:"stake"`
	VotingDeadline UnixTime            `json:"votingDeadline"`
}

func (*DisputeStarted) EventType() Type { return TypeDisputeStarted }

// Ключ спора захватывается раньше ключа задачи, как и при разрешении спора.
func (p *DisputeStarted) keys(chainID int64) []string {
	return []string{DisputeKey(chainID, p.DisputeID), TaskKey(chainID, p.TaskID)}
}

func (p *DisputeStarted) validate() error {
	if p.DisputeID.IsZero() {
		return errMissingDisputeID
	}
	if p.TaskID.IsZero() {
		return errMissingTaskID
	}
	if p.Disputer.IsZero() {
		return errMissingAddress
	}
	if p.VotingDeadline.IsZero() {
		return errMissingDeadline
	}
	return nil
}

type VoteSubmitted struct {
	DisputeID        Uint                `json:"disputeId"`
	Voter            valueobject.Address `json:"voter"`
	SupportsDisputer bool                `json:"supportsDisputer"`
	Weight           valueobject.Amount  `json:"weight"`
}

func (*VoteSubmitted) EventType() Type { return TypeVoteSubmitted }

func (p *VoteSubmitted) keys(chainID int64) []string {
	return []string{DisputeKey(chainID, p.DisputeID)}
}

func (p *VoteSubmitted) validate() error {
	if p.DisputeID.IsZero() {
		return errMissingDisputeID
	}
	if p.Voter.IsZero() {
		return errMissingAddress
	}
	return nil
}

type AgentRegistered struct {
	Agent      valueobject.Address `json:"agent"`
	ProfileCID string              `json:"profileCid"`
}

func (*AgentRegistered) EventType() Type { return TypeAgentRegistered }

func (p *AgentRegistered) keys(int64) []string { return []string{AgentKey(p.Agent)} }

func (p *AgentRegistered) validate() error {
	if p.Agent.IsZero() {
		return errMissingAddress
	}
	return nil
}
