package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvent(t *testing.T) {
	before := testutil.ToFloat64(eventsProcessedTotal.WithLabelValues("TaskCompleted", OutcomeApplied))
	RecordEvent("TaskCompleted", OutcomeApplied, 5*time.Millisecond)
	after := testutil.ToFloat64(eventsProcessedTotal.WithLabelValues("TaskCompleted", OutcomeApplied))
	assert.Equal(t, before+1, after)
}

func TestHandlerExposesIndexerMetrics(t *testing.T) {
	RecordDeadLetter("VoteSubmitted", "DUPLICATE_VOTE")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "indexer_events_dead_lettered_total")
}

func TestUpdateDatabaseConnections_Nil(t *testing.T) {
	assert.Error(t, UpdateDatabaseConnections(nil))
}
