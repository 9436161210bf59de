package common

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/bounty-indexer/internal/http/middleware"
	"github.com/ignatzorin/bounty-indexer/internal/service"
)

var (
	// ErrOperatorNotFound is returned when operator claims are not in context
	ErrOperatorNotFound = errors.New("оператор не найден в контексте")

	// ErrInvalidUUID is returned when UUID parsing fails
	ErrInvalidUUID = errors.New("неверный формат UUID")
)

// CurrentOperator extracts operator claims set by OperatorAuth
func CurrentOperator(c *gin.Context) (*service.OperatorClaims, error) {
	raw, exists := c.Get(middleware.ContextOperatorKey)
	if !exists {
		return nil, ErrOperatorNotFound
	}

	claims, ok := raw.(*service.OperatorClaims)
	if !ok {
		return nil, ErrOperatorNotFound
	}

	return claims, nil
}

// OperatorName returns the token subject or "unknown" for audit log fields
func OperatorName(c *gin.Context) string {
	claims, err := CurrentOperator(c)
	if err != nil {
		return "unknown"
	}
	return claims.Subject
}

// ParseUUIDParam parses UUID from URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, fmt.Errorf("параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}

	return parsed, nil
}

// ParseChainID parses positive :chainId route parameter
func ParseChainID(c *gin.Context) (int64, error) {
	chainID, err := strconv.ParseInt(c.Param("chainId"), 10, 64)
	if err != nil || chainID <= 0 {
		return 0, fmt.Errorf("неверный chainId")
	}
	return chainID, nil
}

// ParsePagination reads limit/offset query params with bounds
func ParsePagination(c *gin.Context, defaultLimit, maxLimit int) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	return limit, offset
}
