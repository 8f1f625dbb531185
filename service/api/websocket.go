package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dbtune-service/service/types"
)

// handleWebSocket handles WebSocket connections for real-time task updates
func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	s.wsMu.Lock()
	s.wsClients[conn] = true
	s.wsMu.Unlock()
	wsClientsConnected.Inc()

	s.log.WithField("remote_addr", r.RemoteAddr).Info("WebSocket client connected")

	message := map[string]interface{}{
		"type":      "connection",
		"status":    "connected",
		"timestamp": time.Now(),
	}
	if err := conn.WriteJSON(message); err != nil {
		s.log.WithError(err).Error("Failed to send initial WebSocket message")
		s.removeClient(conn)
		return
	}

	for {
		var msg map[string]interface{}
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.WithError(err).Error("WebSocket connection error")
			}
			break
		}

		// Handle ping messages
		if msgType, ok := msg["type"].(string); ok && msgType == "ping" {
			pong := map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now(),
			}
			if err := conn.WriteJSON(pong); err != nil {
				break
			}
		}
	}

	s.removeClient(conn)
	s.log.WithField("remote_addr", r.RemoteAddr).Info("WebSocket client disconnected")
}

func (s *server) removeClient(conn *websocket.Conn) {
	s.wsMu.Lock()
	if _, ok := s.wsClients[conn]; ok {
		delete(s.wsClients, conn)
		wsClientsConnected.Dec()
	}
	s.wsMu.Unlock()
}

// handleWebSocketHub manages WebSocket message broadcasting
func (s *server) handleWebSocketHub() {
	for message := range s.wsBroadcast {
		s.wsMu.Lock()
		for client := range s.wsClients {
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				client.Close()
				delete(s.wsClients, client)
				wsClientsConnected.Dec()
			}
		}
		s.wsMu.Unlock()
	}
}

// NotifyTaskUpdate broadcasts a task state change to all WebSocket clients.
// It satisfies the worker's notifier and never blocks.
func (s *server) NotifyTaskUpdate(task *types.Task) {
	s.broadcastUpdate("task_update", task)
}

// broadcastUpdate sends a real-time update to all WebSocket clients
func (s *server) broadcastUpdate(updateType string, data interface{}) {
	message := map[string]interface{}{
		"type":      updateType,
		"data":      data,
		"timestamp": time.Now(),
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		s.log.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	if s.wsClosed {
		return
	}

	select {
	case s.wsBroadcast <- messageBytes:
	default:
		// Channel is full, skip this update
	}
}
