package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
	"github.com/kailas-cloud/eventdex/internal/metrics"
)

// Client is a model backend over an OpenAI-compatible API. Two instances
// are configured at startup: a fast one and a reasoning one; both satisfy
// domain.ModelBackend.
type Client struct {
	client     *openai.Client
	model      string
	embedModel openai.EmbeddingModel
	backend    string // role label for metrics and logs: "fast" or "reasoning"
	timeout    time.Duration
	logger     *zap.Logger
}

// Config holds the model backend settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Backend        string
	Timeout        time.Duration
	Logger         *zap.Logger
}

// NewClient creates an OpenAI-compatible model backend.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		embedModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		backend:    cfg.Backend,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// Generate implements domain.ModelBackend.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	content, err := c.complete(ctx, prompt, temperature, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// GenerateStructured implements domain.ModelBackend. The completion is
// requested in JSON mode, but tolerant backends may still wrap the body
// in a markdown code fence, so it is stripped before decoding.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, out any, temperature float32) error {
	format := &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}

	content, err := c.complete(ctx, prompt, temperature, format)
	if err != nil {
		return err
	}

	body := StripFences(content)
	if err := json.Unmarshal([]byte(body), out); err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(c.backend, c.model, "structured", "malformed").Inc()
		return fmt.Errorf("decode structured response: %w", domain.ErrMalformedResponse)
	}
	return nil
}

// Embed implements domain.ModelBackend.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          c.embedModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	start := time.Now()

	resp, err := c.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(c.backend, string(c.embedModel), "embed", "error").Inc()
		return nil, parseAPIError("embedding", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.ModelRequestsTotal.WithLabelValues(c.backend, string(c.embedModel), "embed", "error").Inc()
		return nil, fmt.Errorf("embedding response: %w", domain.ErrEmptyEmbedding)
	}

	metrics.ModelRequestsTotal.WithLabelValues(c.backend, string(c.embedModel), "embed", "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues(c.backend, string(c.embedModel), "embed").Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(c.backend, string(c.embedModel), "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	c.logger.Debug("Embedding request completed",
		zap.String("backend", c.backend),
		zap.String("model", string(c.embedModel)),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(resp.Data[0].Embedding)),
	)

	return resp.Data[0].Embedding, nil
}

// complete runs a single-turn chat completion and returns the raw content.
func (c *Client) complete(
	ctx context.Context, prompt string, temperature float32,
	format *openai.ChatCompletionResponseFormat,
) (string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	operation := "generate"
	if format != nil {
		operation = "structured"
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    temperature,
		ResponseFormat: format,
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(c.backend, c.model, operation, "error").Inc()
		return "", parseAPIError("completion", err)
	}
	if len(resp.Choices) == 0 {
		metrics.ModelRequestsTotal.WithLabelValues(c.backend, c.model, operation, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrBackendUnavailable)
	}

	metrics.ModelRequestsTotal.WithLabelValues(c.backend, c.model, operation, "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues(c.backend, c.model, operation).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ModelTokensTotal.WithLabelValues(c.backend, c.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.ModelTokensTotal.WithLabelValues(c.backend, c.model, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	c.logger.Debug("Completion request finished",
		zap.String("backend", c.backend),
		zap.String("model", c.model),
		zap.String("operation", operation),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// StripFences removes a markdown code fence wrapper (``` or ```json)
// around a JSON body, if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		first := strings.TrimSpace(s[:i])
		if len(first) <= 8 && !strings.ContainsAny(first, "{[") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrBackendUnavailable so stages can
// apply their degraded behavior via errors.Is.
func parseAPIError(op string, err error) error {
	wrap := domain.ErrBackendUnavailable

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request timed out: %w", op, wrap)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%s API error %d: %s: %w",
			op, reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w",
			op, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %w", op, wrap)
}
