package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/http/middleware"
	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/memory"
	"github.com/ignatzorin/bounty-indexer/internal/service"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/dispute"
)

var votingDeadline = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupDisputeRouter(t *testing.T, now time.Time) (*gin.Engine, *memory.Store, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	s := memory.NewStore()
	task, err := entity.NewTask(1, "7", valueobject.MustAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"), valueobject.AmountFromInt64(100), "", nil, "0x01")
	require.NoError(t, err)
	task.Status = valueobject.TaskStatusDisputed
	task.SetPendingWinner(valueobject.MustAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"))
	require.NoError(t, s.Tasks().Create(ctx, task))

	d, err := entity.NewDispute(1, "3", task.ID, valueobject.MustAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"), valueobject.AmountFromInt64(10), votingDeadline, "0x02")
	require.NoError(t, err)
	require.NoError(t, s.Disputes().Create(ctx, d))

	tokens := service.NewOperatorTokens("test-secret-test-secret-test-secret", time.Hour)
	token, _, err := tokens.Issue("bob", middleware.ScopeDisputes)
	require.NoError(t, err)

	h := NewDisputeHandler(dispute.NewResolver(s, nil, nil, nil, dispute.ResolverConfig{ThresholdPercent: 60}))
	h.now = func() time.Time { return now }

	r := gin.New()
	g := r.Group("/api/admin/disputes/:chainId/:disputeId")
	g.Use(middleware.OperatorAuth(tokens, middleware.ScopeDisputes))
	g.POST("/resolve", h.Resolve)
	g.POST("/cancel", h.Cancel)
	return r, s, token
}

func TestDisputeHandler_Resolve(t *testing.T) {
	r, s, token := setupDisputeRouter(t, votingDeadline.Add(time.Hour))

	w, resp := post(r, "/api/admin/disputes/1/3/resolve", "", token)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		DisputerWon bool   `json:"disputer_won"`
		TaskStatus  string `json:"task_status"`
		VoteCount   int    `json:"vote_count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.False(t, out.DisputerWon)
	assert.Equal(t, string(valueobject.TaskStatusCompleted), out.TaskStatus)
	assert.Zero(t, out.VoteCount)

	task, err := s.Tasks().FindByChainID(context.Background(), 1, "7")
	require.NoError(t, err)
	assert.Equal(t, valueobject.TaskStatusCompleted, task.Status)

	w, _ = post(r, "/api/admin/disputes/1/3/resolve", "", token)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDisputeHandler_Resolve_VotingOpen(t *testing.T) {
	r, _, token := setupDisputeRouter(t, votingDeadline.Add(-time.Hour))

	w, _ := post(r, "/api/admin/disputes/1/3/resolve", "", token)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDisputeHandler_Cancel(t *testing.T) {
	r, s, token := setupDisputeRouter(t, votingDeadline.Add(-time.Hour))

	w, resp := post(r, "/api/admin/disputes/1/3/cancel", "", token)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	assert.Equal(t, string(valueobject.DisputeStatusCancelled), out.Status)

	d, err := s.Disputes().FindByChainID(context.Background(), 1, "3")
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusCancelled, d.Status)
}

func TestDisputeHandler_BadParamsAndAuth(t *testing.T) {
	r, _, token := setupDisputeRouter(t, votingDeadline.Add(time.Hour))

	w, _ := post(r, "/api/admin/disputes/x/3/resolve", "", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = post(r, "/api/admin/disputes/1/3/resolve", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = post(r, "/api/admin/disputes/1/99/resolve", "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
