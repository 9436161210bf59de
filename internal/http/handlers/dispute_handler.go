package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/http/handlers/common"
	"github.com/ignatzorin/bounty-indexer/internal/interface/http/dto"
	"github.com/ignatzorin/bounty-indexer/internal/interface/http/response"
	"github.com/ignatzorin/bounty-indexer/internal/logger"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/dispute"
)

// DisputeHandler - ручное управление спорами оператором.
type DisputeHandler struct {
	resolver *dispute.Resolver
	now      func() time.Time
}

// NewDisputeHandler создаёт новый хэндлер.
func NewDisputeHandler(resolver *dispute.Resolver) *DisputeHandler {
	return &DisputeHandler{resolver: resolver, now: time.Now}
}

// Resolve обрабатывает POST /api/admin/disputes/:chainId/:disputeId/resolve.
// Подводит итог немедленно, не дожидаясь планировщика; голосование должно быть закрыто.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	chainID, disputeID, ok := disputeParams(c)
	if !ok {
		return
	}

	outcome, err := h.resolver.Resolve(c.Request.Context(), chainID, disputeID, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}

	logger.Get().WithFields(logrus.Fields{
		"dispute":      outcome.Dispute.ChainDisputeID,
		"disputer_won": outcome.DisputerWon,
		"operator":     common.OperatorName(c),
	}).Info("Dispute resolved by operator")

	response.Success(c, dto.ToResolutionResponse(outcome))
}

// Cancel обрабатывает POST /api/admin/disputes/:chainId/:disputeId/cancel.
func (h *DisputeHandler) Cancel(c *gin.Context) {
	chainID, disputeID, ok := disputeParams(c)
	if !ok {
		return
	}

	d, err := h.resolver.CancelDispute(c.Request.Context(), chainID, disputeID, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}

	logger.Get().WithFields(logrus.Fields{
		"dispute":  d.ChainDisputeID,
		"operator": common.OperatorName(c),
	}).Info("Dispute cancelled by operator")

	response.Success(c, dto.ToDisputeResponse(d))
}

func disputeParams(c *gin.Context) (int64, string, bool) {
	chainID, err := common.ParseChainID(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return 0, "", false
	}
	var id event.Uint
	if err := id.UnmarshalJSON([]byte(c.Param("disputeId"))); err != nil {
		response.BadRequest(c, "некорректный идентификатор спора")
		return 0, "", false
	}
	return chainID, string(id), true
}
