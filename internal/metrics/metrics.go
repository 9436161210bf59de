package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы обработки события.
const (
	OutcomeApplied   = "applied"
	OutcomeNoop      = "noop"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
)

var (
	eventsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_events_processed_total",
			Help: "Ledger events handled by the dispatcher, by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	eventHandlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indexer_event_handler_duration_seconds",
			Help:    "Time spent inside an event handler, including lock wait",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event_type"},
	)

	eventsDeadLetteredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_events_dead_lettered_total",
			Help: "Events moved to the dead-letter state",
		},
		[]string{"event_type", "reason"},
	)

	eventsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_events_ingested_total",
			Help: "Events accepted by the ingestion endpoint",
		},
		[]string{"event_type", "duplicate"},
	)

	disputesResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_disputes_resolved_total",
			Help: "Disputes resolved by the scheduler, by outcome",
		},
		[]string{"disputer_won"},
	)

	sideEffectFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_side_effect_failures_total",
			Help: "Best-effort side effects that failed (reputation, cache invalidation)",
		},
		[]string{"kind"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexer_queue_depth",
			Help: "Queued ledger events by status",
		},
		[]string{"status"},
	)

	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indexer_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	databaseConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "indexer_database_connections_active",
		Help: "Number of active database connections",
	})

	databaseConnectionsIdle = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "indexer_database_connections_idle",
		Help: "Number of idle database connections",
	})
)

func init() {
	prometheus.MustRegister(
		eventsProcessedTotal,
		eventHandlerDuration,
		eventsDeadLetteredTotal,
		eventsIngestedTotal,
		disputesResolvedTotal,
		sideEffectFailuresTotal,
		queueDepth,
		apiRequestsTotal,
		apiRequestDuration,
		databaseConnectionsActive,
		databaseConnectionsIdle,
	)
}

// Handler возвращает обработчик Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordEvent(eventType, outcome string, took time.Duration) {
	eventsProcessedTotal.WithLabelValues(eventType, outcome).Inc()
	eventHandlerDuration.WithLabelValues(eventType).Observe(took.Seconds())
}

func RecordDeadLetter(eventType, reason string) {
	eventsDeadLetteredTotal.WithLabelValues(eventType, reason).Inc()
}

func RecordIngest(eventType string, duplicate bool) {
	eventsIngestedTotal.WithLabelValues(eventType, fmt.Sprintf("%t", duplicate)).Inc()
}

func RecordDisputeResolved(disputerWon bool) {
	disputesResolvedTotal.WithLabelValues(fmt.Sprintf("%t", disputerWon)).Inc()
}

func RecordSideEffectFailure(kind string) {
	sideEffectFailuresTotal.WithLabelValues(kind).Inc()
}

func SetQueueDepth(status string, n int) {
	queueDepth.WithLabelValues(status).Set(float64(n))
}

// RecordAPIRequest записывает метрики HTTP запроса.
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// UpdateDatabaseConnections обновляет метрики пула соединений.
func UpdateDatabaseConnections(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	stats := db.Stats()
	databaseConnectionsActive.Set(float64(stats.InUse))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	return nil
}
