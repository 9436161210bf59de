package persistence

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

func TestClassify_SQLState(t *testing.T) {
	cases := []struct {
		code      pq.ErrorCode
		transient bool
		appCode   apperror.ErrorCode
	}{
		{"08006", true, apperror.ErrCodeStoreError},
		{"40001", true, apperror.ErrCodeStoreError},
		{"40P01", true, apperror.ErrCodeStoreError},
		{"53300", true, apperror.ErrCodeStoreError},
		{"57P01", true, apperror.ErrCodeStoreError},
		{"42601", false, apperror.ErrCodeStoreError},
		{"23503", false, apperror.ErrCodeStoreError},
		{"23505", false, apperror.ErrCodeConflict},
	}
	for _, tc := range cases {
		err := classify(&pq.Error{Code: tc.code}, "op")
		assert.Equal(t, tc.transient, apperror.IsTransient(err), tc.code)
		assert.Equal(t, tc.appCode, apperror.CodeOf(err), tc.code)
	}
}

func TestClassify_Transport(t *testing.T) {
	assert.True(t, apperror.IsTransient(classify(driver.ErrBadConn, "op")))
	assert.True(t, apperror.IsTransient(classify(fmt.Errorf("begin transaction: %w", driver.ErrBadConn), "op")))
	assert.False(t, apperror.IsTransient(classify(errors.New("boom"), "op")))
	assert.Nil(t, classify(nil, "op"))
}

func TestClassify_KeepsAppError(t *testing.T) {
	err := classify(apperror.ErrTaskNotFound, "op")
	assert.True(t, apperror.IsNotFound(err))
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: voteUniqueConstraint}
	assert.True(t, isUniqueViolation(err, voteUniqueConstraint))
	assert.False(t, isUniqueViolation(err, "other"))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}, ""))
}

func TestTaskRow_ToEntity(t *testing.T) {
	deadline := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	row := taskRow{
		ID:          uuid.New(),
		ChainID:     84532,
		ChainTaskID: "42",
		Status:      "in_review",
		Creator:     "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		Winner:      sql.NullString{},
		SelectedWinner: sql.NullString{
			String: "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
			Valid:  true,
		},
		Bounty:   valueobject.AmountFromInt64(1000),
		Deadline: sql.NullTime{Time: deadline, Valid: true},
	}

	task := row.toEntity()
	assert.Equal(t, valueobject.TaskStatusInReview, task.Status)
	assert.Nil(t, task.WinnerAddress)
	if assert.NotNil(t, task.PendingWinner) {
		assert.Equal(t, valueobject.Address("0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"), *task.PendingWinner)
	}
	if assert.NotNil(t, task.Deadline) {
		assert.True(t, deadline.Equal(*task.Deadline))
	}
	assert.Equal(t, "1000", task.Bounty.String())
}

func TestDisputeRow_ToEntity(t *testing.T) {
	row := disputeRow{Status: "resolved", DisputerWon: sql.NullBool{Bool: true, Valid: true}}
	d := row.toEntity()
	if assert.NotNil(t, d.DisputerWon) {
		assert.True(t, *d.DisputerWon)
	}
	assert.Nil(t, d.ResolvedAt)
}
