// Package auth exposes the identity service over HTTP.
package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/minhhieu-178/AI-Tutor-App/internal/middleware"
	authmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/auth"
	authservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/auth"
	"github.com/minhhieu-178/AI-Tutor-App/pkg/utils"
)

// Metrics is the slice of the collector this handler reports to.
type Metrics interface {
	RecordSignInFailure(code string)
}

type nopMetrics struct{}

func (nopMetrics) RecordSignInFailure(string) {}

// Handler serves sign-in, registration, sign-out, and the auth-state feed.
type Handler struct {
	svc          *authservice.Service
	metrics      Metrics
	cookieSecure bool
}

// New creates the auth handler. metrics may be nil.
func New(svc *authservice.Service, metrics Metrics, cookieSecure bool) *Handler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Handler{svc: svc, metrics: metrics, cookieSecure: cookieSecure}
}

// RegisterRoutes mounts the public auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/state", h.handleState)
}

// heartbeatInterval paces keep-alive events on the auth-state stream.
var heartbeatInterval = 30 * time.Second

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := h.svc.CreateAccount(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID, session.ExpiresAt)
	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := h.svc.SignIn(r.Context(), payload.Email, payload.Password)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID, session.ExpiresAt)
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := sessionIDFromRequest(r)
	if id == "" {
		utils.RespondError(w, http.StatusUnauthorized, "no session")
		return
	}

	if err := h.svc.SignOut(r.Context(), id); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to sign out")
		return
	}

	h.setSessionCookie(w, "", time.Unix(0, 0))
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "signed-out"})
}

// handleState streams auth-state changes over SSE. The current state is sent
// immediately on attach; signed-out is a normal state, never an error event.
func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	id := sessionIDFromRequest(r)
	if id == "" {
		// No credentials at all: report signed-out and hold the stream open
		// so the gate can keep listening for a later sign-in on reconnect.
		// Heartbeats keep intermediaries from reaping the idle connection.
		utils.SendSSEEvent(w, flusher, "state", stateEventPayload(nil))
		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{"time": time.Now().UTC().Format(time.RFC3339)})
			}
		}
	}

	sub, err := h.svc.WatchState(r.Context(), id)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to watch auth state")
		return
	}
	defer sub.Close()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			utils.SendSSEEvent(w, flusher, "state", stateEventPayload(ev.Principal))
		case <-heartbeat.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{"time": time.Now().UTC().Format(time.RFC3339)})
		}
	}
}

func stateEventPayload(principal *authmodel.Session) map[string]any {
	if principal == nil {
		return map[string]any{"principal": nil}
	}
	return map[string]any{"principal": principal}
}

func (h *Handler) respondAuthError(w http.ResponseWriter, err error) {
	var authErr *authmodel.AuthError
	if !errors.As(err, &authErr) {
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.metrics.RecordSignInFailure(authErr.Code)
	utils.RespondJSON(w, statusForCode(authErr.Code), map[string]string{
		"code":  authErr.Code,
		"error": authErr.Message,
	})
}

func statusForCode(code string) int {
	switch code {
	case authmodel.CodeUserNotFound:
		return http.StatusNotFound
	case authmodel.CodeWrongPassword:
		return http.StatusUnauthorized
	case authmodel.CodeTooManyRequests:
		return http.StatusTooManyRequests
	case authmodel.CodeEmailInUse:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionIDFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); len(header) > 7 && header[:7] == "Bearer " {
		return header[7:]
	}
	return ""
}
