package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/bounty-indexer/internal/event"
)

// chainParams разбирает пару :chainId/:<idParam> из маршрута.
// Идентификатор приводится к десятичной записи, как в проекции.
func chainParams(c *gin.Context, idParam string) (int64, string, bool) {
	chainID, err := strconv.ParseInt(c.Param("chainId"), 10, 64)
	if err != nil || chainID <= 0 {
		return 0, "", false
	}
	var id event.Uint
	if err := id.UnmarshalJSON([]byte(c.Param(idParam))); err != nil || id.IsZero() {
		return 0, "", false
	}
	return chainID, string(id), true
}
