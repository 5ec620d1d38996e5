// Package ai wraps the Ark chat model behind a single-shot completion call.
package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/minhhieu-178/AI-Tutor-App/internal/config"
	chatmodel "github.com/minhhieu-178/AI-Tutor-App/internal/model/chat"
)

// Service generates tutor replies through a compiled prompt chain.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the AI service from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chatModel: chatModel, chain: runnable}, nil
}

// Complete runs one request/response exchange: the user's raw text, the prior
// conversation, and the fixed system instruction go in, the reply text comes
// out. A transport or model fault surfaces as an error; the caller decides
// what an error-flavored but successful payload means.
func (s *Service) Complete(ctx context.Context, userText string, history []chatmodel.Message, systemPrompt string) (string, error) {
	input := map[string]any{
		"system":  systemPrompt,
		"history": buildHistoryMessages(history),
		"query":   userText,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	slog.Debug("ai completion finished", slog.Int("reply_len", len(response.Content)))
	return response.Content, nil
}

// buildHistoryMessages maps the stored transcript onto model roles. The whole
// prior conversation is forwarded with every call.
func buildHistoryMessages(messages []chatmodel.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Sender {
		case chatmodel.SenderUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chatmodel.SenderBot:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
