package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/http/handlers/common"
	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/queue"
	"github.com/ignatzorin/bounty-indexer/internal/interface/http/dto"
	"github.com/ignatzorin/bounty-indexer/internal/interface/http/response"
	"github.com/ignatzorin/bounty-indexer/internal/logger"
	"github.com/ignatzorin/bounty-indexer/internal/metrics"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
	"github.com/ignatzorin/bounty-indexer/internal/validation"
)

const maxIngestBatch = 500

// EventHandler принимает декодированные события и управляет dead-letter очередью.
type EventHandler struct {
	queue queue.Queue
	now   func() time.Time
}

// NewEventHandler создаёт новый хэндлер.
func NewEventHandler(q queue.Queue) *EventHandler {
	return &EventHandler{queue: q, now: time.Now}
}

// Ingest обрабатывает POST /api/events.
// Новое событие - 202, повтор уже принятого - 200 с duplicate=true.
func (h *EventHandler) Ingest(c *gin.Context) {
	var raw event.RawEvent
	if err := c.ShouldBindJSON(&raw); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	res, err := h.ingest(c, raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.Duplicate {
		response.Success(c, res)
		return
	}
	response.Accepted(c, res)
}

// IngestBatch обрабатывает POST /api/events/batch.
// Ошибка одного события не отменяет остальные: результат возвращается по каждому.
func (h *EventHandler) IngestBatch(c *gin.Context) {
	var batch []event.RawEvent
	if err := c.ShouldBindJSON(&batch); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	if len(batch) == 0 || len(batch) > maxIngestBatch {
		response.BadRequest(c, "размер пакета должен быть от 1 до 500")
		return
	}

	type item struct {
		*dto.IngestResponse
		Error *response.ErrorInfo `json:"error,omitempty"`
	}
	out := make([]item, 0, len(batch))
	for _, raw := range batch {
		res, err := h.ingest(c, raw)
		if err != nil {
			code := apperror.CodeOf(err)
			if code == apperror.ErrCodeInternal || code == apperror.ErrCodeStoreError {
				response.Error(c, err)
				return
			}
			out = append(out, item{Error: &response.ErrorInfo{Code: string(code), Message: messageOf(err)}})
			continue
		}
		out = append(out, item{IngestResponse: res})
	}
	response.Accepted(c, out)
}

func (h *EventHandler) ingest(c *gin.Context, raw event.RawEvent) (*dto.IngestResponse, error) {
	if raw.ChainID <= 0 {
		return nil, apperror.SchemaViolation("у события нет chainId", nil)
	}
	if err := validation.ValidateTxHash(raw.TransactionHash); err != nil {
		return nil, apperror.SchemaViolation(err.Error(), nil)
	}
	env, err := event.Decode(raw)
	if err != nil {
		logger.Get().WithFields(logrus.Fields{
			"type":  raw.Type,
			"tx":    raw.TransactionHash,
			"error": err.Error(),
		}).Warn("Rejected event at ingest")
		return nil, err
	}

	stored, duplicate, err := h.queue.Enqueue(c.Request.Context(), queue.NewRecord(env, raw.Args, h.now()))
	if err != nil {
		return nil, err
	}
	metrics.RecordIngest(string(env.Type), duplicate)

	res := dto.ToIngestResponse(stored, duplicate)
	return &res, nil
}

// ListDeadLetters обрабатывает GET /api/admin/dead-letters.
func (h *EventHandler) ListDeadLetters(c *gin.Context) {
	limit, offset := common.ParsePagination(c, 50, 500)

	records, err := h.queue.ListDead(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToDeadLetterList(records), len(records), limit, offset)
}

// ReplayDeadLetter обрабатывает POST /api/admin/dead-letters/:id/replay.
func (h *EventHandler) ReplayDeadLetter(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	rec, err := h.queue.Replay(c.Request.Context(), id, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}

	logger.Get().WithFields(logrus.Fields{
		"event_id": rec.ID,
		"type":     rec.Event.Type,
		"key":      rec.EntityKey,
		"operator": common.OperatorName(c),
	}).Info("Dead-lettered event requeued")

	response.Success(c, dto.ToReplayResponse(rec))
}

func messageOf(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
