package valueobject

import (
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

type TaskStatus string

// Порядок совпадает с enum TaskStatus в контракте TaskManager.
const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusInReview  TaskStatus = "in_review"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusDisputed  TaskStatus = "disputed"
	TaskStatusRefunded  TaskStatus = "refunded"
	TaskStatusCancelled TaskStatus = "cancelled"
)

var contractTaskStatuses = []TaskStatus{
	TaskStatusOpen,
	TaskStatusInReview,
	TaskStatusCompleted,
	TaskStatusDisputed,
	TaskStatusRefunded,
	TaskStatusCancelled,
}

// Граф переходов не содержит рёбер обратно в Open.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusOpen:      {TaskStatusInReview, TaskStatusDisputed, TaskStatusRefunded, TaskStatusCancelled},
	TaskStatusInReview:  {TaskStatusCompleted, TaskStatusDisputed, TaskStatusRefunded},
	TaskStatusDisputed:  {TaskStatusCompleted, TaskStatusRefunded},
	TaskStatusCompleted: {},
	TaskStatusRefunded:  {},
	TaskStatusCancelled: {},
}

func AllTaskStatuses() []TaskStatus {
	out := make([]TaskStatus, len(contractTaskStatuses))
	copy(out, contractTaskStatuses)
	return out
}

func (s TaskStatus) IsValid() bool {
	_, ok := taskTransitions[s]
	return ok
}

func (s TaskStatus) IsTerminal() bool {
	next, ok := taskTransitions[s]
	return ok && len(next) == 0
}

func (s TaskStatus) CanTransitionTo(newStatus TaskStatus) bool {
	for _, status := range taskTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// ValidateTaskTransition решает, может ли проекция записать переход.
// Повтор того же перехода (current == requested) - успешный no-op: changed=false.
func ValidateTaskTransition(current, requested TaskStatus, ref string) (changed bool, err error) {
	if !requested.IsValid() {
		return false, apperror.InvalidTransition(string(current), string(requested), ref)
	}
	if current == requested {
		return false, nil
	}
	if !current.CanTransitionTo(requested) {
		return false, apperror.InvalidTransition(string(current), string(requested), ref)
	}
	return true, nil
}

func NewTaskStatus(status string) (TaskStatus, error) {
	s := TaskStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус задачи")
	}
	return s, nil
}

// TaskStatusFromContract переводит числовой статус контракта в строковый.
func TaskStatusFromContract(v uint8) (TaskStatus, error) {
	if int(v) >= len(contractTaskStatuses) {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус задачи в контракте")
	}
	return contractTaskStatuses[v], nil
}

type ClaimStatus string

const (
	ClaimStatusActive            ClaimStatus = "active"
	ClaimStatusSubmitted         ClaimStatus = "submitted"
	ClaimStatusUnderVerification ClaimStatus = "under_verification"
	ClaimStatusApproved          ClaimStatus = "approved"
	ClaimStatusRejected          ClaimStatus = "rejected"
)

var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimStatusActive:            {ClaimStatusSubmitted, ClaimStatusRejected},
	ClaimStatusSubmitted:         {ClaimStatusUnderVerification, ClaimStatusApproved, ClaimStatusRejected, ClaimStatusActive},
	ClaimStatusUnderVerification: {ClaimStatusApproved, ClaimStatusRejected, ClaimStatusActive},
	ClaimStatusApproved:          {},
	ClaimStatusRejected:          {},
}

func (s ClaimStatus) IsValid() bool {
	_, ok := claimTransitions[s]
	return ok
}

// IsOpen - заявка ещё в работе и блокирует создание новой для той же пары (задача, агент).
func (s ClaimStatus) IsOpen() bool {
	switch s {
	case ClaimStatusActive, ClaimStatusSubmitted, ClaimStatusUnderVerification:
		return true
	}
	return false
}

func (s ClaimStatus) CanTransitionTo(newStatus ClaimStatus) bool {
	for _, status := range claimTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

type DisputeStatus string

const (
	DisputeStatusActive    DisputeStatus = "active"
	DisputeStatusResolved  DisputeStatus = "resolved"
	DisputeStatusCancelled DisputeStatus = "cancelled"
)

func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeStatusActive, DisputeStatusResolved, DisputeStatusCancelled:
		return true
	}
	return false
}

func (s DisputeStatus) IsTerminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusCancelled
}

type VerdictOutcome string

const (
	VerdictApproved          VerdictOutcome = "approved"
	VerdictRejected          VerdictOutcome = "rejected"
	VerdictRevisionRequested VerdictOutcome = "revision_requested"
)

func NewVerdictOutcome(outcome string) (VerdictOutcome, error) {
	o := VerdictOutcome(outcome)
	switch o {
	case VerdictApproved, VerdictRejected, VerdictRevisionRequested:
		return o, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректный исход проверки")
}

// ClaimStatus возвращает статус заявки после вердикта; доработка возвращает её в active.
func (o VerdictOutcome) ClaimStatus() ClaimStatus {
	switch o {
	case VerdictApproved:
		return ClaimStatusApproved
	case VerdictRejected:
		return ClaimStatusRejected
	default:
		return ClaimStatusActive
	}
}
