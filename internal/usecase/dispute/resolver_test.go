package dispute

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/memory"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

var (
	creator  = valueobject.MustAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	winner   = valueobject.MustAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	disputer = valueobject.MustAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
)

var deadline = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type scenario struct {
	store   *memory.Store
	task    *entity.Task
	dispute *entity.Dispute
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStore()

	task, err := entity.NewTask(1, "7", creator, valueobject.AmountFromInt64(100), "", nil, "0x01")
	require.NoError(t, err)
	task.Status = valueobject.TaskStatusDisputed
	task.SetPendingWinner(winner)
	require.NoError(t, s.Tasks().Create(ctx, task))
	require.NoError(t, s.Submissions().Create(ctx, entity.NewSubmission(task.ID, winner, "b2w", 0)))
	require.NoError(t, s.Agents().Create(ctx, entity.NewAgent(winner, "")))

	d, err := entity.NewDispute(1, "3", task.ID, disputer, valueobject.AmountFromInt64(10), deadline, "0x02")
	require.NoError(t, err)
	require.NoError(t, s.Disputes().Create(ctx, d))
	return &scenario{store: s, task: task, dispute: d}
}

func (sc *scenario) vote(t *testing.T, voter string, supports bool, weight int64) {
	t.Helper()
	v := entity.NewDisputeVote(sc.dispute.ID, valueobject.MustAddress(voter), supports, valueobject.AmountFromInt64(weight), "0x"+voter[2:6])
	require.NoError(t, sc.store.Disputes().CreateVote(context.Background(), v))
}

func newResolver(sc *scenario) *Resolver {
	return NewResolver(sc.store, nil, nil, nil, ResolverConfig{ThresholdPercent: 60})
}

func TestResolve_DisputerWinsAtThreshold(t *testing.T) {
	sc := newScenario(t)
	sc.vote(t, "0x0000000000000000000000000000000000000001", true, 600)
	sc.vote(t, "0x0000000000000000000000000000000000000002", false, 400)

	out, err := newResolver(sc).Resolve(context.Background(), 1, "3", deadline.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, out.DisputerWon)
	assert.Equal(t, valueobject.TaskStatusRefunded, out.TaskStatus)

	d, err := sc.store.Disputes().FindByChainID(context.Background(), 1, "3")
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusResolved, d.Status)
	require.NotNil(t, d.DisputerWon)
	assert.True(t, *d.DisputerWon)
}

func TestResolve_DisputerLosesBelowThreshold(t *testing.T) {
	sc := newScenario(t)
	sc.vote(t, "0x0000000000000000000000000000000000000001", true, 599)
	sc.vote(t, "0x0000000000000000000000000000000000000002", false, 401)

	out, err := newResolver(sc).Resolve(context.Background(), 1, "3", deadline.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, out.DisputerWon)
	assert.Equal(t, valueobject.TaskStatusCompleted, out.TaskStatus)

	task, err := sc.store.Tasks().FindByID(context.Background(), sc.task.ID)
	require.NoError(t, err)
	require.NotNil(t, task.WinnerAddress)
	assert.Equal(t, winner, *task.WinnerAddress)

	agent, err := sc.store.Agents().FindByAddress(context.Background(), winner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), agent.TasksWon)
}

func TestResolve_NoVotesDisputerLoses(t *testing.T) {
	sc := newScenario(t)

	out, err := newResolver(sc).Resolve(context.Background(), 1, "3", deadline)
	require.NoError(t, err)
	assert.False(t, out.DisputerWon)
	assert.Equal(t, 0, out.Tally.Votes)
}

func TestResolve_VotingStillOpen(t *testing.T) {
	sc := newScenario(t)

	_, err := newResolver(sc).Resolve(context.Background(), 1, "3", deadline.Add(-time.Second))
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeConflict))

	d, err := sc.store.Disputes().FindByChainID(context.Background(), 1, "3")
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusActive, d.Status)
}

func TestResolve_OnlyOnce(t *testing.T) {
	sc := newScenario(t)
	r := newResolver(sc)

	_, err := r.Resolve(context.Background(), 1, "3", deadline)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), 1, "3", deadline)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeDisputeClosed))

	agent, err := sc.store.Agents().FindByAddress(context.Background(), winner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), agent.TasksWon)
}

func TestResolveDue_RespectsGrace(t *testing.T) {
	sc := newScenario(t)
	r := NewResolver(sc.store, nil, nil, nil, ResolverConfig{Grace: 2 * time.Minute})

	n, err := r.ResolveDue(context.Background(), deadline.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = r.ResolveDue(context.Background(), deadline.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCancelDispute_OriginalDecisionStands(t *testing.T) {
	sc := newScenario(t)
	r := newResolver(sc)

	d, err := r.CancelDispute(context.Background(), 1, "3", deadline.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusCancelled, d.Status)
	assert.Nil(t, d.DisputerWon)

	task, err := sc.store.Tasks().FindByID(context.Background(), sc.task.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TaskStatusCompleted, task.Status)

	_, err = r.CancelDispute(context.Background(), 1, "3", deadline)
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), 1, "3", deadline)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeDisputeClosed))
}

func (sc *scenario) settleTask(t *testing.T, status valueobject.TaskStatus) {
	t.Helper()
	task, err := sc.store.Tasks().FindByID(context.Background(), sc.task.ID)
	require.NoError(t, err)
	task.Status = status
	require.NoError(t, sc.store.Tasks().Update(context.Background(), task))
}

func TestResolve_LedgerRefundedFirstKeepsTaskStatus(t *testing.T) {
	sc := newScenario(t)
	sc.settleTask(t, valueobject.TaskStatusRefunded)

	out, err := newResolver(sc).Resolve(context.Background(), 1, "3", deadline)
	require.NoError(t, err)
	assert.False(t, out.DisputerWon)
	assert.Equal(t, valueobject.TaskStatusRefunded, out.TaskStatus)

	d, err := sc.store.Disputes().FindByChainID(context.Background(), 1, "3")
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusResolved, d.Status)
	require.NotNil(t, d.DisputerWon)
	assert.False(t, *d.DisputerWon)

	task, err := sc.store.Tasks().FindByID(context.Background(), sc.task.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TaskStatusRefunded, task.Status)
	assert.Nil(t, task.WinnerAddress)

	agent, err := sc.store.Agents().FindByAddress(context.Background(), winner)
	require.NoError(t, err)
	assert.Zero(t, agent.TasksWon)
}

func TestResolve_LedgerCompletedFirstDisputerWins(t *testing.T) {
	sc := newScenario(t)
	sc.settleTask(t, valueobject.TaskStatusCompleted)
	sc.vote(t, "0x0000000000000000000000000000000000000001", true, 100)

	out, err := newResolver(sc).Resolve(context.Background(), 1, "3", deadline)
	require.NoError(t, err)
	assert.True(t, out.DisputerWon)
	assert.Equal(t, valueobject.TaskStatusCompleted, out.TaskStatus)
}

func TestCancelDispute_LedgerAlreadySettled(t *testing.T) {
	sc := newScenario(t)
	sc.settleTask(t, valueobject.TaskStatusRefunded)

	d, err := newResolver(sc).CancelDispute(context.Background(), 1, "3", deadline)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusCancelled, d.Status)

	task, err := sc.store.Tasks().FindByID(context.Background(), sc.task.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.TaskStatusRefunded, task.Status)
}

func TestResolveDue_SettledTaskDoesNotBlockLaterDisputes(t *testing.T) {
	sc := newScenario(t)
	sc.settleTask(t, valueobject.TaskStatusRefunded)
	ctx := context.Background()

	other, err := entity.NewTask(1, "8", creator, valueobject.AmountFromInt64(50), "", nil, "0x03")
	require.NoError(t, err)
	other.Status = valueobject.TaskStatusDisputed
	require.NoError(t, sc.store.Tasks().Create(ctx, other))
	later, err := entity.NewDispute(1, "4", other.ID, disputer, valueobject.AmountFromInt64(10), deadline.Add(time.Second), "0x04")
	require.NoError(t, err)
	require.NoError(t, sc.store.Disputes().Create(ctx, later))

	r := NewResolver(sc.store, nil, nil, nil, ResolverConfig{ThresholdPercent: 60, Batch: 1})
	now := deadline.Add(time.Minute)

	n, err := r.ResolveDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = r.ResolveDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, id := range []string{"3", "4"} {
		d, err := sc.store.Disputes().FindByChainID(ctx, 1, id)
		require.NoError(t, err)
		assert.Equal(t, valueobject.DisputeStatusResolved, d.Status, "dispute %s", id)
	}
}
