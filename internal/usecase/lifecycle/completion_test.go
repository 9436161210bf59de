package lifecycle

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/memory"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/service"
)

var (
	creator = valueobject.MustAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	agentA  = valueobject.MustAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	agentB  = valueobject.MustAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
)

type recordingInvalidator struct {
	mu    sync.Mutex
	items []service.Invalidation
}

func (r *recordingInvalidator) Invalidate(_ context.Context, items ...service.Invalidation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, items...)
}

func seed(t *testing.T, s *memory.Store, status valueobject.TaskStatus) *entity.Task {
	t.Helper()
	ctx := context.Background()
	task, err := entity.NewTask(1, "7", creator, valueobject.AmountFromInt64(100), "", nil, "0x01")
	require.NoError(t, err)
	task.Status = status
	require.NoError(t, s.Tasks().Create(ctx, task))
	require.NoError(t, s.Submissions().Create(ctx, entity.NewSubmission(task.ID, agentA, "b2a", 0)))
	require.NoError(t, s.Submissions().Create(ctx, entity.NewSubmission(task.ID, agentB, "b2b", 1)))
	return task
}

func complete(t *testing.T, c *Completion, s repository.Store, task *entity.Task, winner valueobject.Address) (Result, error) {
	t.Helper()
	var res Result
	err := s.InTx(context.Background(), func(tx repository.Store) error {
		current, err := tx.Tasks().FindByID(context.Background(), task.ID)
		if err != nil {
			return err
		}
		res, err = c.Apply(context.Background(), tx, current, &winner)
		return err
	})
	if err == nil {
		c.AfterCommit(context.Background(), res)
	}
	return res, err
}

func TestCompletion_SetsSingleWinnerAndReputation(t *testing.T) {
	s := memory.NewStore()
	inv := &recordingInvalidator{}
	c := NewCompletion(s, inv)
	task := seed(t, s, valueobject.TaskStatusInReview)
	require.NoError(t, s.Agents().Create(context.Background(), entity.NewAgent(agentA, "")))

	res, err := complete(t, c, s, task, agentA)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	subs, err := s.Submissions().ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	winners := 0
	for _, sub := range subs {
		if sub.IsWinner {
			winners++
			assert.Equal(t, agentA, sub.Agent)
		}
	}
	assert.Equal(t, 1, winners)

	agent, err := s.Agents().FindByAddress(context.Background(), agentA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), agent.TasksWon)
	assert.Contains(t, inv.items, service.TaskInvalidation(1, "7"))
	assert.Contains(t, inv.items, service.AgentInvalidation(agentA.String()))
}

func TestCompletion_ReplayDoesNotIncrementTwice(t *testing.T) {
	s := memory.NewStore()
	c := NewCompletion(s, nil)
	task := seed(t, s, valueobject.TaskStatusInReview)
	require.NoError(t, s.Agents().Create(context.Background(), entity.NewAgent(agentA, "")))

	_, err := complete(t, c, s, task, agentA)
	require.NoError(t, err)
	res, err := complete(t, c, s, task, agentA)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	agent, err := s.Agents().FindByAddress(context.Background(), agentA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), agent.TasksWon)
}

func TestCompletion_MissingAgentProfileIsNotFatal(t *testing.T) {
	s := memory.NewStore()
	c := NewCompletion(s, nil)
	task := seed(t, s, valueobject.TaskStatusInReview)

	res, err := complete(t, c, s, task, agentB)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	stored, err := s.Tasks().FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TaskStatusCompleted, stored.Status)
	require.NotNil(t, stored.WinnerAddress)
	assert.Equal(t, agentB, *stored.WinnerAddress)
}

func TestCompletion_WinnerWithoutSubmissionStillCommits(t *testing.T) {
	s := memory.NewStore()
	c := NewCompletion(s, nil)
	task := seed(t, s, valueobject.TaskStatusInReview)
	stranger := valueobject.MustAddress("0x0000000000000000000000000000000000000001")

	_, err := complete(t, c, s, task, stranger)
	require.NoError(t, err)

	subs, err := s.Submissions().ListByTask(context.Background(), task.ID)
	require.NoError(t, err)
	for _, sub := range subs {
		assert.False(t, sub.IsWinner)
	}
}

func TestCompletion_TerminalTaskRejected(t *testing.T) {
	s := memory.NewStore()
	c := NewCompletion(s, nil)
	task := seed(t, s, valueobject.TaskStatusRefunded)

	_, err := complete(t, c, s, task, agentA)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeInvalidTransition))
	assert.False(t, apperror.IsTransient(err))
}
