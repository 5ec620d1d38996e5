// Package tutor orchestrates the exchange between a user's message store
// feed and the AI completion endpoint.
package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	chatmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/chat"
	chatservice "github.com/minhhieu-178/AI-Tutor-App/internal/service/chat"
)

// SystemPrompt is the fixed tutoring instruction sent with every completion:
// a friendly tutor that explains clearly and step by step.
const SystemPrompt = "Bạn là một gia sư thân thiện, giải thích rõ ràng và từng bước."

// Sentinel substrings. The upstream endpoint reports some failures as prose
// inside an otherwise successful response, indistinguishable at the transport
// level from a real answer. Matching these fragments is the only error
// channel we have; it is brittle and the list is deliberately not extended.
const (
	sentinelError = "lỗi"
	sentinelSorry = "Sorry"
)

// sendFailureBanner prefixes the generic localized failure message shown when
// the completion call itself faults.
const sendFailureBanner = "Có lỗi xảy ra khi gửi tin nhắn: "

// Completer is the AI endpoint: one request/response call over the network.
type Completer interface {
	Complete(ctx context.Context, userText string, history []chatmodel.Message, systemPrompt string) (string, error)
}

// Metrics records what the orchestrator observed. Implemented by the
// prometheus collector; tests pass a no-op.
type Metrics interface {
	RecordMessagePersisted(sender string)
	RecordAILatency(d time.Duration)
	RecordAIFailure(kind string)
}

type nopMetrics struct{}

func (nopMetrics) RecordMessagePersisted(string) {}
func (nopMetrics) RecordAILatency(time.Duration) {}
func (nopMetrics) RecordAIFailure(string)        {}

// Outcome reports what one Send did.
type Outcome struct {
	Ignored     bool               `json:"ignored,omitempty"`
	UserMessage *chatmodel.Message `json:"userMessage,omitempty"`
	Reply       *chatmodel.Message `json:"reply,omitempty"`
	Banner      string             `json:"banner,omitempty"`
}

// Service runs the send-message flow: persist the user's turn, ask the AI,
// and either persist the reply or raise the per-owner error banner.
type Service struct {
	store     *chatservice.Service
	completer Completer // nil when the AI endpoint is not configured
	metrics   Metrics
	banners   *bannerBoard
}

// NewService wires the orchestrator. completer may be nil; sends then persist
// the user message and surface an unavailability banner instead of a reply.
func NewService(store *chatservice.Service, completer Completer, metrics Metrics) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		store:     store,
		completer: completer,
		metrics:   metrics,
		banners:   newBannerBoard(),
	}
}

// Send runs one exchange for the owner. Empty or whitespace-only text is a
// no-op. The user message is persisted before the AI is contacted and stays
// persisted no matter how the AI call ends.
func (s *Service) Send(ctx context.Context, ownerID, text string) (*Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return &Outcome{Ignored: true}, nil
	}

	// The AI sees the conversation as it stood before this turn.
	prior, err := s.store.Snapshot(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	userMsg := &chatmodel.Message{
		OwnerID: ownerID,
		Sender:  chatmodel.SenderUser,
		Content: text,
	}
	if err := s.store.Append(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}
	s.metrics.RecordMessagePersisted(chatmodel.SenderUser)

	// A new attempt clears any previous banner.
	s.banners.Clear(ownerID)

	reply, err := s.complete(ctx, text, prior)
	if err != nil {
		slog.Error("ai call failed",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordAIFailure("transport")
		banner := sendFailureBanner + err.Error()
		s.banners.Set(ownerID, banner)
		return &Outcome{UserMessage: userMsg, Banner: banner}, nil
	}

	if strings.Contains(reply, sentinelError) || strings.Contains(reply, sentinelSorry) {
		slog.Warn("ai reply carried an error sentinel", slog.String("owner_id", ownerID))
		s.metrics.RecordAIFailure("sentinel")
		s.banners.Set(ownerID, reply)
		return &Outcome{UserMessage: userMsg, Banner: reply}, nil
	}

	botMsg := &chatmodel.Message{
		OwnerID: ownerID,
		Sender:  chatmodel.SenderBot,
		Content: reply,
	}
	if err := s.store.Append(ctx, botMsg); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}
	s.metrics.RecordMessagePersisted(chatmodel.SenderBot)

	return &Outcome{UserMessage: userMsg, Reply: botMsg}, nil
}

// Banner returns the owner's current error banner, empty when clear.
func (s *Service) Banner(ownerID string) string {
	return s.banners.Get(ownerID)
}

// WatchBanner subscribes to banner changes for the owner. Callers must Close
// the subscription.
func (s *Service) WatchBanner(ownerID string) *BannerSubscription {
	return s.banners.Watch(ownerID)
}

func (s *Service) complete(ctx context.Context, text string, prior []chatmodel.Message) (string, error) {
	if s.completer == nil {
		return "", fmt.Errorf("ai endpoint is not configured")
	}

	start := time.Now()
	reply, err := s.completer.Complete(ctx, text, prior, SystemPrompt)
	s.metrics.RecordAILatency(time.Since(start))
	return reply, err
}
