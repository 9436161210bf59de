package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/queue"
	"github.com/ignatzorin/bounty-indexer/internal/metrics"
)

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	db    *sqlx.DB
	queue queue.Queue
}

// NewHealthHandler создаёт новый health handler. db равен nil в режиме хранилища в памяти.
func NewHealthHandler(db *sqlx.DB, q queue.Queue) *HealthHandler {
	return &HealthHandler{db: db, queue: q}
}

// HealthResponse представляет ответ health check.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Queue     map[string]int    `json:"queue,omitempty"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// Проверка подключения к БД
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}

		stats := h.db.Stats()
		if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			checks["connection_pool"] = "warning: pool exhausted"
		} else {
			checks["connection_pool"] = "healthy"
		}
		_ = metrics.UpdateDatabaseConnections(h.db)
	} else {
		checks["database"] = "memory"
	}

	var depth map[string]int
	if h.queue != nil {
		byStatus, err := h.queue.Depth(ctx)
		if err != nil {
			checks["queue"] = "unhealthy: " + err.Error()
			status = "unhealthy"
		} else {
			checks["queue"] = "healthy"
			depth = make(map[string]int, len(byStatus))
			for st, n := range byStatus {
				depth[string(st)] = n
			}
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Queue:     depth,
	})
}
