package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/memory"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

var agent = valueobject.MustAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")

// staleStore отвечает NotFound на первые hidden поисков решения, как транзакция,
// которая не видит строку, вставленную параллельно.
type staleStore struct {
	repository.Store
	hidden *int
}

func (s staleStore) Submissions() repository.SubmissionRepository {
	return staleSubmissions{SubmissionRepository: s.Store.Submissions(), hidden: s.hidden}
}

type staleSubmissions struct {
	repository.SubmissionRepository
	hidden *int
}

func (r staleSubmissions) FindByTaskAndAgent(ctx context.Context, taskID uuid.UUID, agent valueobject.Address) (*entity.Submission, error) {
	if *r.hidden > 0 {
		*r.hidden--
		return nil, apperror.ErrSubmissionNotFound
	}
	return r.SubmissionRepository.FindByTaskAndAgent(ctx, taskID, agent)
}

func TestFindOrCreateSubmission_Creates(t *testing.T) {
	s := memory.NewStore()
	taskID := uuid.New()

	sub, created, err := repository.FindOrCreateSubmission(context.Background(), s, entity.NewSubmission(taskID, agent, "b2a", 2))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(2), sub.SubmissionIndex)
}

func TestFindOrCreateSubmission_FindsExisting(t *testing.T) {
	s := memory.NewStore()
	existing := entity.NewSubmission(uuid.New(), agent, "b2a", 0)
	require.NoError(t, s.Submissions().Create(context.Background(), existing))

	sub, created, err := repository.FindOrCreateSubmission(context.Background(), s, entity.NewSubmission(existing.TaskID, agent, "b2b", 1))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, sub.ID)
}

func TestFindOrCreateSubmission_LostInsertRaceRereads(t *testing.T) {
	s := memory.NewStore()
	existing := entity.NewSubmission(uuid.New(), agent, "b2a", 0)
	require.NoError(t, s.Submissions().Create(context.Background(), existing))

	hidden := 1
	sub, created, err := repository.FindOrCreateSubmission(context.Background(), staleStore{Store: s, hidden: &hidden},
		entity.NewSubmission(existing.TaskID, agent, "b2b", 1))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, sub.ID)

	subs, err := s.Submissions().ListByTask(context.Background(), existing.TaskID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
