package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/bounty-indexer/internal/logger"
	"github.com/ignatzorin/bounty-indexer/internal/ws"
)

// WSHandler отвечает за установку WebSocket соединений подписчиков инвалидаций.
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. Пустой allowedOrigins разрешает любой Origin.
func NewWSHandler(hub *ws.Hub, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Handle обслуживает GET /ws/invalidations?entities=task,dispute
func (h *WSHandler) Handle(c *gin.Context) {
	var entities []string
	if raw := c.Query("entities"); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			entities = append(entities, strings.TrimSpace(e))
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту.
		logger.Get().WithError(err).Debug("websocket upgrade failed")
		return
	}

	client := ws.NewClient(conn, h.hub, entities)
	h.hub.Register(client)

	client.Run(c.Request.Context())
}
