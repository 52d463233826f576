// Package llm is the boundary to the completion service.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/metrics"
)

var tracer = otel.Tracer("intake/internal/llm")

// Roles accepted in Message.Role.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string
	Content string
}

// Client is what the intake service needs from the completion service.
// Chat produces a conversational reply; JSON asks for a single JSON object
// and returns its raw text.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	JSON(ctx context.Context, messages []Message) (string, error)
}

// Options configures OpenAIClient.
type Options struct {
	BaseURL               string
	APIKey                string
	ChatModel             string
	ExtractionModel       string
	Temperature           float32
	ExtractionTemperature float32
	Timeout               time.Duration
}

type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient calls an OpenAI-compatible chat completion API.
type OpenAIClient struct {
	client  completer
	opts    Options
	metrics *metrics.Metrics
}

// NewOpenAIClient constructs the client. Without an API key or base URL the
// client is unconfigured and every call returns domain.ErrNotConfigured.
func NewOpenAIClient(opts Options, m *metrics.Metrics) *OpenAIClient {
	if opts.ChatModel == "" {
		opts.ChatModel = "gpt-4o-mini"
	}
	if opts.ExtractionModel == "" {
		opts.ExtractionModel = opts.ChatModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	c := &OpenAIClient{opts: opts, metrics: m}
	if opts.APIKey == "" && opts.BaseURL == "" {
		return c
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	c.client = openai.NewClientWithConfig(cfg)
	return c
}

// Configured reports whether credentials were supplied.
func (c *OpenAIClient) Configured() bool { return c.client != nil }

// Chat sends the conversation and returns the assistant's reply.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	return c.complete(ctx, "chat", openai.ChatCompletionRequest{
		Model:       c.opts.ChatModel,
		Messages:    convert(messages),
		Temperature: c.opts.Temperature,
	})
}

// JSON requests JSON-object output at the extraction temperature.
func (c *OpenAIClient) JSON(ctx context.Context, messages []Message) (string, error) {
	return c.complete(ctx, "json", openai.ChatCompletionRequest{
		Model:       c.opts.ExtractionModel,
		Messages:    convert(messages),
		Temperature: c.opts.ExtractionTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
}

func (c *OpenAIClient) complete(ctx context.Context, kind string, req openai.ChatCompletionRequest) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("%w: completion service credentials missing", domain.ErrNotConfigured)
	}
	ctx, span := tracer.Start(ctx, "llm."+kind)
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", req.Model), attribute.Int("llm.messages", len(req.Messages)))

	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(callCtx, req)
	status := "ok"
	defer func() { c.metrics.ObserveCompletion(kind, status, time.Since(start)) }()

	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		status = "empty"
		return "", fmt.Errorf("%w: no choices returned", domain.ErrUpstream)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify maps transport, auth and rate-limit failures onto domain.ErrUpstream.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %w", domain.ErrUpstream, apiErr.HTTPStatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: timed out: %w", domain.ErrUpstream, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
}

func convert(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != RoleSystem && role != RoleUser && role != RoleAssistant {
			// coerce anything unknown to user
			role = RoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
