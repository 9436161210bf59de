package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/bounty-indexer/internal/interface/http/response"
)

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, централизованно.
// AppError отдаётся со своим статусом и кодом, остальные маскируются как внутренние.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем, не был ли уже отправлен ответ
		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		response.Error(c, c.Errors.Last().Err)
	}
}
