// Package chat exposes the conversation endpoints.
package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/minhhieu-178/AI-Tutor-App/internal/middleware"
	chatservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/chat"
	tutorservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/tutor"
	"github.com/minhhieu-178/AI-Tutor-App/pkg/utils"
)

// Handler serves the message history and the send-message operation.
type Handler struct {
	chatSvc  *chatservice.Service
	tutorSvc *tutorservice.Service
}

// New creates the chat handler.
func New(chatSvc *chatservice.Service, tutorSvc *tutorservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc, tutorSvc: tutorSvc}
}

// RegisterRoutes mounts the chat routes. Callers must wrap them in the
// session middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/messages", h.handleListMessages)
	r.Post("/chat/messages", h.handleSendMessage)
	r.Get("/chat/error", h.handleBanner)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	messages, err := h.chatSvc.Snapshot(r.Context(), session.UserID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.tutorSvc.Send(r.Context(), session.UserID, payload.Text)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	utils.RespondJSON(w, http.StatusOK, outcome)
}

func (h *Handler) handleBanner(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"error": h.tutorSvc.Banner(session.UserID)})
}
