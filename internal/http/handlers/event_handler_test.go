package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/http/middleware"
	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/queue"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/service"
)

const taskCreatedArgs = `{"taskId":"7","creator":"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed","bountyAmount":"100","specCid":"b2spec","deadline":"0"}`

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func setupEventRouter(t *testing.T) (*gin.Engine, *queue.MemoryQueue, *service.OperatorTokens) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	q := queue.NewMemoryQueue()
	tokens := service.NewOperatorTokens("test-secret-test-secret-test-secret", time.Hour)
	h := NewEventHandler(q)

	r := gin.New()
	r.POST("/api/events", h.Ingest)
	r.POST("/api/events/batch", h.IngestBatch)
	admin := r.Group("/api/admin/dead-letters")
	admin.Use(middleware.OperatorAuth(tokens, middleware.ScopeDeadLetters))
	admin.GET("", h.ListDeadLetters)
	admin.POST("/:id/replay", middleware.UUIDValidator("id"), h.ReplayDeadLetter)
	return r, q, tokens
}

func post(r *gin.Engine, path, body, token string) (*httptest.ResponseRecorder, apiResponse) {
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func txHash(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func rawEvent(tag, tx string, logIndex int, args string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"type":            tag,
		"chainId":         1,
		"transactionHash": tx,
		"logIndex":        logIndex,
		"args":            json.RawMessage(args),
	})
	return string(b)
}

func TestEventHandler_Ingest_AcceptsAndDeduplicates(t *testing.T) {
	r, q, _ := setupEventRouter(t)
	body := rawEvent("TaskCreated", txHash(0xabc), 0, taskCreatedArgs)

	w, resp := post(r, "/api/events", body, "")
	require.Equal(t, http.StatusAccepted, w.Code)
	var first struct {
		EntityKey string `json:"entity_key"`
		Duplicate bool   `json:"duplicate"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &first))
	assert.Equal(t, event.TaskKey(1, "7"), first.EntityKey)
	assert.False(t, first.Duplicate)

	w, resp = post(r, "/api/events", body, "")
	require.Equal(t, http.StatusOK, w.Code)
	var second struct {
		Duplicate bool `json:"duplicate"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &second))
	assert.True(t, second.Duplicate)

	depth, err := q.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, depth[queue.StatusReady])
}

func TestEventHandler_Ingest_Rejects(t *testing.T) {
	r, _, _ := setupEventRouter(t)

	cases := map[string]struct {
		body string
		code string
	}{
		"unknown type":  {rawEvent("TaskExploded", txHash(1), 0, taskCreatedArgs), string(apperror.ErrCodeUnroutableEvent)},
		"bad args":      {rawEvent("TaskCreated", txHash(1), 0, `{"taskId":"x"}`), string(apperror.ErrCodeSchemaViolation)},
		"no tx hash":    {rawEvent("TaskCreated", "", 0, taskCreatedArgs), string(apperror.ErrCodeSchemaViolation)},
		"short tx hash": {rawEvent("TaskCreated", "0x1", 0, taskCreatedArgs), string(apperror.ErrCodeSchemaViolation)},
		"zero chain id": {`{"type":"TaskCreated","chainId":0,"transactionHash":"` + txHash(1) + `","args":` + taskCreatedArgs + `}`, string(apperror.ErrCodeSchemaViolation)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w, resp := post(r, "/api/events", tc.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}

	w, _ := post(r, "/api/events", "not json", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandler_IngestBatch_ReportsPerItem(t *testing.T) {
	r, q, _ := setupEventRouter(t)
	body := "[" + rawEvent("TaskCreated", txHash(1), 0, taskCreatedArgs) + "," +
		rawEvent("Nope", txHash(1), 1, taskCreatedArgs) + "]"

	w, resp := post(r, "/api/events/batch", body, "")
	require.Equal(t, http.StatusAccepted, w.Code)

	var items []struct {
		ID    string `json:"id"`
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &items))
	require.Len(t, items, 2)
	assert.NotEmpty(t, items[0].ID)
	assert.Nil(t, items[0].Error)
	require.NotNil(t, items[1].Error)
	assert.Equal(t, string(apperror.ErrCodeUnroutableEvent), items[1].Error.Code)

	depth, err := q.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, depth[queue.StatusReady])

	w, _ = post(r, "/api/events/batch", "[]", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandler_DeadLetters_RequireOperator(t *testing.T) {
	r, _, tokens := setupEventRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/api/admin/dead-letters", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	readOnly, _, err := tokens.Issue("alice", "disputes")
	require.NoError(t, err)
	req, _ = http.NewRequest(http.MethodGet, "/api/admin/dead-letters", nil)
	req.Header.Set("Authorization", "Bearer "+readOnly)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEventHandler_DeadLetters_ListAndReplay(t *testing.T) {
	r, q, tokens := setupEventRouter(t)
	ctx := context.Background()
	now := time.Now()

	w, resp := post(r, "/api/events", rawEvent("TaskCreated", txHash(1), 0, taskCreatedArgs), "")
	require.Equal(t, http.StatusAccepted, w.Code)
	var ingested struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &ingested))

	claimed, err := q.Claim(ctx, now.Add(time.Second), 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, q.DeadLetter(ctx, claimed[0].ID, apperror.InvalidTransition("cancelled", "refunded", "task 1/7")))

	token, _, err := tokens.Issue("alice", middleware.ScopeDeadLetters)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/api/admin/dead-letters?limit=10", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Data []struct {
			ID         string `json:"id"`
			ReasonCode string `json:"reason_code"`
			Attempts   int    `json:"attempts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, ingested.ID, page.Data[0].ID)
	assert.Equal(t, string(apperror.ErrCodeInvalidTransition), page.Data[0].ReasonCode)

	w, resp = post(r, "/api/admin/dead-letters/"+ingested.ID+"/replay", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var replayed struct {
		Status   string `json:"status"`
		Attempts int    `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &replayed))
	assert.Equal(t, string(queue.StatusReady), replayed.Status)
	assert.Zero(t, replayed.Attempts)

	// Повторный replay: запись уже не в dead.
	w, _ = post(r, "/api/admin/dead-letters/"+ingested.ID+"/replay", "", token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = post(r, "/api/admin/dead-letters/not-a-uuid/replay", "", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type failingQueue struct {
	queue.Queue
}

func (failingQueue) Enqueue(context.Context, *queue.Record) (*queue.Record, bool, error) {
	return nil, false, errors.New("connection reset")
}

func TestEventHandler_Ingest_StoreFailureIsMasked(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEventHandler(failingQueue{})
	r := gin.New()
	r.POST("/api/events", h.Ingest)

	w, resp := post(r, "/api/events", rawEvent("TaskCreated", txHash(1), 0, taskCreatedArgs), "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(apperror.ErrCodeInternal), resp.Error.Code)
}
