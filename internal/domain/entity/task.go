package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

// Task - проекция задачи контракта TaskManager.
type Task struct {
	ID            uuid.UUID
	ChainID       int64
	ChainTaskID   string
	Status        valueobject.TaskStatus
	Creator       valueobject.Address
	WinnerAddress *valueobject.Address
	// PendingWinner - победитель, выбранный создателем до завершения задачи.
	PendingWinner *valueobject.Address
	Bounty        valueobject.Amount
	SpecCID       string
	Deadline      *time.Time
	CreatedTxHash string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewTask(chainID int64, chainTaskID string, creator valueobject.Address, bounty valueobject.Amount, specCID string, deadline *time.Time, txHash string) (*Task, error) {
	if chainTaskID == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "идентификатор задачи в контракте обязателен")
	}
	if creator.IsZero() {
		return nil, apperror.New(apperror.ErrCodeValidation, "создатель задачи обязателен")
	}

	now := time.Now().UTC()
	return &Task{
		ID:            uuid.New(),
		ChainID:       chainID,
		ChainTaskID:   chainTaskID,
		Status:        valueobject.TaskStatusOpen,
		Creator:       creator,
		Bounty:        bounty,
		SpecCID:       specCID,
		Deadline:      deadline,
		CreatedTxHash: txHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// TaskRef - человекочитаемый ключ задачи для логов и ошибок.
func TaskRef(chainID int64, chainTaskID string) string {
	return fmt.Sprintf("task:%d:%s", chainID, chainTaskID)
}

func (t *Task) Ref() string {
	return TaskRef(t.ChainID, t.ChainTaskID)
}

// Transition переводит задачу в новый статус. Повтор того же перехода возвращает changed=false.
func (t *Task) Transition(to valueobject.TaskStatus) (bool, error) {
	changed, err := valueobject.ValidateTaskTransition(t.Status, to, t.Ref())
	if err != nil || !changed {
		return false, err
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (t *Task) SetWinner(winner valueobject.Address) {
	t.WinnerAddress = &winner
	t.UpdatedAt = time.Now().UTC()
}

func (t *Task) SetPendingWinner(winner valueobject.Address) {
	t.PendingWinner = &winner
	t.UpdatedAt = time.Now().UTC()
}

// AcceptsSubmissions - задача открыта и дедлайн не прошёл.
func (t *Task) AcceptsSubmissions(now time.Time) bool {
	if t.Status != valueobject.TaskStatusOpen {
		return false
	}
	return t.Deadline == nil || now.Before(*t.Deadline)
}
