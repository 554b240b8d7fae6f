// Package llm wraps an OpenAI-compatible chat-completion API.
//
// xAI's Grok endpoint speaks the OpenAI protocol, so the same client works
// against https://api.x.ai/v1, OpenAI itself, or a local gateway by changing
// BaseURL.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/devtrack/devtrack-server/internal/model"
)

// ErrEmptyResponse is returned when the API answers without any choice.
var ErrEmptyResponse = errors.New("llm: empty response")

// Request is one chat completion.
type Request struct {
	System      string
	Messages    []model.ChatMessage
	Temperature float32
	MaxTokens   int
}

// Client completes a chat. A nil Client means no model is configured.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// placeholderKeys are values shipped in sample env files. They count as
// "not configured".
var placeholderKeys = map[string]bool{
	"":                       true,
	"your_grok_api_key_here": true,
	"mock_key":               true,
}

// IsConfigured reports whether apiKey is a real credential.
func IsConfigured(apiKey string) bool {
	return !placeholderKeys[strings.TrimSpace(apiKey)]
}

// OpenAIClient implements Client with sashabaranov/go-openai.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAIClient returns nil (and no error) when cfg carries no real key,
// so callers can pass the result straight through as "mock mode".
func NewOpenAIClient(cfg Config, logger *slog.Logger) (*OpenAIClient, error) {
	if !IsConfigured(cfg.APIKey) {
		return nil, nil
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	logger.Info("llm client initialized", "base_url", oc.BaseURL, "model", cfg.Model)

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: chatRole(m.Role), Content: m.Content})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("llm completion",
		"model", c.model,
		"finish_reason", resp.Choices[0].FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start),
	)

	return resp.Choices[0].Message.Content, nil
}

// chatRole maps caller-supplied history roles. Anything unknown is treated
// as the user so a client cannot inject system turns.
func chatRole(role string) string {
	if role == openai.ChatMessageRoleAssistant {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}
