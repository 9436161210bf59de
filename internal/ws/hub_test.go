package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/bounty-indexer/internal/service"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub()
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var entities []string
		if e := r.URL.Query().Get("entity"); e != "" {
			entities = strings.Split(e, ",")
		}
		client := NewClient(conn, hub, entities)
		hub.Register(client)
		client.Run(ctx)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, time.Second, 5*time.Millisecond)
}

func TestHub_StreamsInvalidations(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "")
	waitClients(t, hub, 1)

	require.NoError(t, hub.Invalidate(context.Background(), service.TaskInvalidation(1, "42")))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string               `json:"type"`
		Data service.Invalidation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "invalidate", msg.Type)
	assert.Equal(t, service.Invalidation{Entity: "task", ID: "1:42"}, msg.Data)
}

func TestHub_EntityFilter(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "?entity=dispute")
	waitClients(t, hub, 1)

	require.NoError(t, hub.Invalidate(context.Background(), service.TaskInvalidation(1, "42")))
	require.NoError(t, hub.Invalidate(context.Background(), service.DisputeInvalidation(1, "3")))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"entity":"dispute"`)
}

func TestHub_InvalidateNeverBlocks(t *testing.T) {
	hub := NewHub()
	var err error
	for i := 0; i < cap(hub.broadcast)+1; i++ {
		err = hub.Invalidate(context.Background(), service.TaskInvalidation(1, "1"))
	}
	assert.ErrorIs(t, err, errHubBusy)
}
