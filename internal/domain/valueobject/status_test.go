package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

func TestValidateTaskTransition_Graph(t *testing.T) {
	allowed := map[TaskStatus]map[TaskStatus]bool{
		TaskStatusOpen:     {TaskStatusInReview: true, TaskStatusDisputed: true, TaskStatusRefunded: true, TaskStatusCancelled: true},
		TaskStatusInReview: {TaskStatusCompleted: true, TaskStatusDisputed: true, TaskStatusRefunded: true},
		TaskStatusDisputed: {TaskStatusCompleted: true, TaskStatusRefunded: true},
	}

	for _, from := range AllTaskStatuses() {
		for _, to := range AllTaskStatuses() {
			changed, err := ValidateTaskTransition(from, to, "task:1:7")
			switch {
			case from == to:
				assert.NoError(t, err, "%s -> %s", from, to)
				assert.False(t, changed)
			case allowed[from][to]:
				assert.NoError(t, err, "%s -> %s", from, to)
				assert.True(t, changed)
			default:
				require.Error(t, err, "%s -> %s", from, to)
				assert.Equal(t, apperror.ErrCodeInvalidTransition, apperror.CodeOf(err))
				assert.False(t, apperror.IsTransient(err))
			}
		}
	}
}

func TestValidateTaskTransition_NeverBackToOpen(t *testing.T) {
	for _, from := range AllTaskStatuses() {
		if from == TaskStatusOpen {
			continue
		}
		_, err := ValidateTaskTransition(from, TaskStatusOpen, "task:1:1")
		assert.Error(t, err, from)
	}
}

func TestValidateTaskTransition_UnknownStatus(t *testing.T) {
	_, err := ValidateTaskTransition(TaskStatusOpen, TaskStatus("archived"), "task:1:1")
	assert.Equal(t, apperror.ErrCodeInvalidTransition, apperror.CodeOf(err))
}

func TestTaskStatus_Terminal(t *testing.T) {
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusRefunded.IsTerminal())
	assert.True(t, TaskStatusCancelled.IsTerminal())
	assert.False(t, TaskStatusDisputed.IsTerminal())
	assert.False(t, TaskStatus("bogus").IsTerminal())
}

func TestTaskStatusFromContract(t *testing.T) {
	s, err := TaskStatusFromContract(3)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusDisputed, s)

	_, err = TaskStatusFromContract(6)
	assert.True(t, apperror.IsValidation(err))
}

func TestClaimStatus_Transitions(t *testing.T) {
	assert.True(t, ClaimStatusActive.CanTransitionTo(ClaimStatusSubmitted))
	assert.True(t, ClaimStatusUnderVerification.CanTransitionTo(ClaimStatusActive))
	assert.False(t, ClaimStatusActive.CanTransitionTo(ClaimStatusApproved))
	assert.False(t, ClaimStatusApproved.CanTransitionTo(ClaimStatusActive))

	assert.True(t, ClaimStatusSubmitted.IsOpen())
	assert.False(t, ClaimStatusRejected.IsOpen())
}

func TestVerdictOutcome_ClaimStatus(t *testing.T) {
	assert.Equal(t, ClaimStatusApproved, VerdictApproved.ClaimStatus())
	assert.Equal(t, ClaimStatusRejected, VerdictRejected.ClaimStatus())
	assert.Equal(t, ClaimStatusActive, VerdictRevisionRequested.ClaimStatus())

	_, err := NewVerdictOutcome("maybe")
	assert.Error(t, err)
}
