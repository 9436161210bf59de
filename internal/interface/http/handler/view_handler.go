package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/bounty-indexer/internal/domain/valueobject"
	"github.com/ignatzorin/bounty-indexer/internal/interface/http/response"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/query"
)

// ViewHandler отдаёт read-side представления из кэша.
type ViewHandler struct {
	views *query.ViewService
}

func NewViewHandler(views *query.ViewService) *ViewHandler {
	return &ViewHandler{views: views}
}

// GetTask обрабатывает GET /api/tasks/:chainId/:taskId.
func (h *ViewHandler) GetTask(c *gin.Context) {
	chainID, taskID, ok := chainParams(c, "taskId")
	if !ok {
		response.BadRequest(c, "некорректный идентификатор задачи")
		return
	}

	view, err := h.views.Task(c.Request.Context(), chainID, taskID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// GetDispute обрабатывает GET /api/disputes/:chainId/:disputeId.
func (h *ViewHandler) GetDispute(c *gin.Context) {
	chainID, disputeID, ok := chainParams(c, "disputeId")
	if !ok {
		response.BadRequest(c, "некорректный идентификатор спора")
		return
	}

	view, err := h.views.Dispute(c.Request.Context(), chainID, disputeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// GetAgent обрабатывает GET /api/agents/:address.
func (h *ViewHandler) GetAgent(c *gin.Context) {
	addr, err := valueobject.NewAddress(c.Param("address"))
	if err != nil {
		response.BadRequest(c, "некорректный адрес агента")
		return
	}

	view, err := h.views.Agent(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}
