// Package feed serves the live message feed over a WebSocket, for clients
// that cannot consume Server-Sent Events.
package feed

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/minhhieu-178/AI-Tutor-App/internal/middleware"
	chatmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/chat"
	chatservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/chat"
	tutorservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/tutor"
	"github.com/minhhieu-178/AI-Tutor-App/pkg/utils"
)

// WebSocketHandler upgrades feed connections and forwards snapshots.
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	tutorSvc *tutorservice.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the WebSocket feed handler.
func NewWebSocketHandler(chatSvc *chatservice.Service, tutorSvc *tutorservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc:  chatSvc,
		tutorSvc: tutorSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the WebSocket route. Callers must wrap it in the
// session middleware.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/ws", h.handleWebSocket)
}

// outgoingMessage is the frame sent to feed consumers.
type outgoingMessage struct {
	Type      string `json:"type"` // snapshot | error | heartbeat
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub, err := h.chatSvc.Subscribe(r.Context(), session.UserID)
	if err != nil {
		h.write(conn, outgoingMessage{Type: "error", Data: map[string]string{
			"message": "Không thể tải lịch sử chat: " + err.Error(),
		}})
		return
	}
	defer sub.Close()

	banner := h.tutorSvc.WatchBanner(session.UserID)
	defer banner.Close()

	// Reader goroutine: we never expect inbound frames, but reading is what
	// notices the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			if snapshot == nil {
				snapshot = []chatmodel.Message{}
			}
			if !h.write(conn, outgoingMessage{Type: "snapshot", Data: snapshot}) {
				return
			}
		case text, ok := <-banner.Changes():
			if !ok {
				return
			}
			if !h.write(conn, outgoingMessage{Type: "error", Data: map[string]string{"message": text}}) {
				return
			}
		case <-heartbeat.C:
			if !h.write(conn, outgoingMessage{Type: "heartbeat"}) {
				return
			}
		}
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, msg outgoingMessage) bool {
	msg.Timestamp = time.Now().UnixMilli()
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[ws] write failed: %v", err)
		return false
	}
	return true
}
