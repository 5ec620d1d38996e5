// Package stream serves the live message feed over Server-Sent Events.
package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/minhhieu-178/AI-Tutor-App/internal/middleware"
	chatmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/chat"
	chatservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/chat"
	tutorservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/tutor"
	"github.com/minhhieu-178/AI-Tutor-App/pkg/utils"
)

// Metrics is the slice of the collector this handler reports to.
type Metrics interface {
	FeedSubscriberOpened()
	FeedSubscriberClosed()
}

type nopMetrics struct{}

func (nopMetrics) FeedSubscriberOpened() {}
func (nopMetrics) FeedSubscriberClosed() {}

// Handler streams whole-history snapshots and error-banner changes for the
// authenticated owner.
type Handler struct {
	chatSvc  *chatservice.Service
	tutorSvc *tutorservice.Service
	metrics  Metrics
}

// New creates the stream handler. metrics may be nil.
func New(chatSvc *chatservice.Service, tutorSvc *tutorservice.Service, metrics Metrics) *Handler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Handler{chatSvc: chatSvc, tutorSvc: tutorSvc, metrics: metrics}
}

// RegisterRoutes mounts the stream route. Callers must wrap it in the
// session middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/stream", h.handleStream)
}

// snapshotPayload wraps a snapshot so an empty history still serializes as a
// list.
type snapshotPayload struct {
	Messages []chatmodel.Message `json:"messages"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	utils.SetupSSEHeaders(w)

	sub, err := h.chatSvc.Subscribe(r.Context(), session.UserID)
	if err != nil {
		// The consumer still gets a usable (if empty) view plus the error,
		// mirroring how the chat screen leaves loading on a failed feed.
		utils.SendSSEEvent(w, flusher, "error", map[string]string{
			"message": "Không thể tải lịch sử chat: " + err.Error(),
		})
		utils.SendSSEEvent(w, flusher, "snapshot", snapshotPayload{Messages: []chatmodel.Message{}})
		return
	}
	defer sub.Close()

	banner := h.tutorSvc.WatchBanner(session.UserID)
	defer banner.Close()

	h.metrics.FeedSubscriberOpened()
	defer h.metrics.FeedSubscriberClosed()

	log.Printf("[stream] feed opened for owner=%s", session.UserID)
	defer log.Printf("[stream] feed closed for owner=%s", session.UserID)

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			if snapshot == nil {
				snapshot = []chatmodel.Message{}
			}
			utils.SendSSEEvent(w, flusher, "snapshot", snapshotPayload{Messages: snapshot})
		case text, ok := <-banner.Changes():
			if !ok {
				return
			}
			utils.SendSSEEvent(w, flusher, "error", map[string]string{"message": text})
		case <-heartbeat.C:
			utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{"time": time.Now().UTC().Format(time.RFC3339)})
		}
	}
}
