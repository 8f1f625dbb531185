package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbtune-service/service/types"
)

func dialWebSocket(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	var hello map[string]interface{}
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "connection", hello["type"])

	return conn
}

func TestWebSocketUpgradeThroughMiddleware(t *testing.T) {
	s := newTestServer(t, new(mockStore), new(mockJobs))

	srv := httptest.NewServer(s.setupRoutes())
	defer srv.Close()

	conn := dialWebSocket(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pong map[string]interface{}
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong["type"])
}

func TestWebSocketReceivesTaskUpdates(t *testing.T) {
	s := newTestServer(t, new(mockStore), new(mockJobs))
	go s.handleWebSocketHub()

	srv := httptest.NewServer(s.setupRoutes())
	defer srv.Close()

	conn := dialWebSocket(t, srv)
	defer conn.Close()

	s.NotifyTaskUpdate(&types.Task{TaskMetaID: "abc", State: types.TaskStateRunning})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update map[string]interface{}
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "task_update", update["type"])
}

func TestNotifyTaskUpdateAfterStop(t *testing.T) {
	s := newTestServer(t, new(mockStore), new(mockJobs))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())

	assert.NotPanics(t, func() {
		s.NotifyTaskUpdate(&types.Task{TaskMetaID: "abc", State: types.TaskStateSuccess})
	})
}
