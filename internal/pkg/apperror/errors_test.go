package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityNotFound_IsTransient(t *testing.T) {
	err := EntityNotFound("task", "1:42")

	assert.True(t, IsTransient(err))
	assert.Equal(t, ErrCodeEntityNotFound, CodeOf(err))
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus)
}

func TestTransient_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", EntityNotFound("dispute", "7"))

	assert.True(t, IsTransient(err))
	assert.True(t, HasCode(err, ErrCodeEntityNotFound))
}

func TestPermanentByDefault(t *testing.T) {
	assert.False(t, IsTransient(InvalidTransition("completed", "refunded", "1:7")))
	assert.False(t, IsTransient(DuplicateVote("7", "0xaa")))
	assert.False(t, IsTransient(Unroutable("Nope")))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.False(t, IsTransient(nil))
}

func TestTransient_DoesNotMutateSentinel(t *testing.T) {
	tr := ErrTaskNotFound.Transient()

	assert.True(t, IsTransient(tr))
	assert.False(t, IsTransient(ErrTaskNotFound))
}

func TestCodeOf_NonAppError(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("boom")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrTaskNotFound))
	assert.False(t, IsNotFound(EntityNotFound("task", "1")))
}

func TestError_IncludesCause(t *testing.T) {
	err := Wrap(errors.New("connection reset"), ErrCodeStoreError, "store")

	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
}
