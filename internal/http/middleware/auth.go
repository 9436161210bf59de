package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/bounty-indexer/internal/interface/http/response"
	"github.com/ignatzorin/bounty-indexer/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextOperatorKey = "operator"
)

// Области доступа токена оператора.
const (
	ScopeDeadLetters = "dead-letters"
	ScopeDisputes    = "disputes"
)

// OperatorAuth проверяет JWT оператора и, если заданы, требуемые области доступа.
func OperatorAuth(tokens *service.OperatorTokens, scopes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		claims, err := tokens.Parse(raw)
		if err != nil || claims.Subject == "" {
			response.Unauthorized(c, "токен невалиден")
			return
		}

		for _, scope := range scopes {
			if !claims.HasScope(scope) {
				response.Forbidden(c, "недостаточно прав")
				return
			}
		}

		c.Set(ContextOperatorKey, claims)
		c.Next()
	}
}
