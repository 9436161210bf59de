package query

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
	"github.com/ignatzorin/bounty-indexer/internal/service"
)

var (
	creator = valueobject.MustAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	agent   = valueobject.MustAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

func newViews(t *testing.T) (*ViewService, *memory.Store, *service.CacheService) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := memory.NewStore()
	cache := service.NewCacheService(ctx, time.Minute)
	return NewViewService(s, cache), s, cache
}

func TestTaskView_CachedUntilInvalidated(t *testing.T) {
	views, s, cache := newViews(t)
	ctx := context.Background()
	task, err := entity.NewTask(1, "7", creator, valueobject.AmountFromInt64(5), "b2spec", nil, "0x01")
	require.NoError(t, err)
	require.NoError(t, s.Tasks().Create(ctx, task))

	v, err := views.Task(ctx, 1, "7")
	require.NoError(t, err)
	assert.Equal(t, valueobject.TaskStatusOpen, v.Status)
	assert.Empty(t, v.Submissions)

	require.NoError(t, s.Submissions().Create(ctx, entity.NewSubmission(task.ID, agent, "b2w", 0)))
	v, err = views.Task(ctx, 1, "7")
	require.NoError(t, err)
	assert.Empty(t, v.Submissions)

	require.NoError(t, cache.Invalidate(ctx, service.TaskInvalidation(1, "7")))
	v, err = views.Task(ctx, 1, "7")
	require.NoError(t, err)
	require.Len(t, v.Submissions, 1)
	assert.Equal(t, agent.String(), v.Submissions[0].Agent)
}

func TestTaskView_NotFoundNotCached(t *testing.T) {
	views, _, cache := newViews(t)

	_, err := views.Task(context.Background(), 1, "404")
	assert.True(t, apperror.IsNotFound(err))
	assert.Zero(t, cache.Len())
}

func TestDisputeView_Tally(t *testing.T) {
	views, s, _ := newViews(t)
	ctx := context.Background()
	task, err := entity.NewTask(1, "7", creator, valueobject.AmountFromInt64(5), "", nil, "0x01")
	require.NoError(t, err)
	require.NoError(t, s.Tasks().Create(ctx, task))
	d, err := entity.NewDispute(1, "3", task.ID, agent, valueobject.AmountFromInt64(1), time.Now().Add(time.Hour), "0x02")
	require.NoError(t, err)
	require.NoError(t, s.Disputes().Create(ctx, d))
	require.NoError(t, s.Disputes().CreateVote(ctx, entity.NewDisputeVote(d.ID, creator, false, valueobject.AmountFromInt64(7), "0x03")))
	require.NoError(t, s.Disputes().CreateVote(ctx, entity.NewDisputeVote(d.ID, agent, true, valueobject.AmountFromInt64(3), "0x04")))

	v, err := views.Dispute(ctx, 1, "3")
	require.NoError(t, err)
	assert.Equal(t, "7", v.ChainTaskID)
	assert.Equal(t, "3", v.VotesFor.String())
	assert.Equal(t, "7", v.VotesAgainst.String())
	assert.Equal(t, 2, v.VoteCount)
}

func TestAgentView(t *testing.T) {
	views, s, _ := newViews(t)
	require.NoError(t, s.Agents().Create(context.Background(), entity.NewAgent(agent, "b2p")))

	v, err := views.Agent(context.Background(), agent)
	require.NoError(t, err)
	assert.Equal(t, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", v.Checksum)
}
