// Package openai implements the embedding/generation gateway over any
// OpenAI-compatible API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
	"github.com/hasti304/ai-pdf-rag/internal/metrics"
)

// Gateway converts text to vectors and generates completions.
type Gateway struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	dimensions     int
	logger         *zap.Logger
}

// Config holds gateway provider settings.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Dimensions     int
	Logger         *zap.Logger
}

// New creates an OpenAI-compatible gateway.
func New(cfg *Config) *Gateway {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Gateway{
		client:         openai.NewClientWithConfig(clientCfg),
		chatModel:      cfg.ChatModel,
		embeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		dimensions:     cfg.Dimensions,
		logger:         cfg.Logger,
	}
}

// Embed converts text into an embedding vector.
func (g *Gateway) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          g.embeddingModel,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if g.dimensions > 0 {
		req.Dimensions = g.dimensions
	}

	start := time.Now()
	resp, err := g.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	model := string(g.embeddingModel)
	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues("embed", model, "error").Inc()
		return domain.EmbeddingResult{}, parseAPIError("embedding", err)
	}
	if len(resp.Data) == 0 {
		metrics.GatewayRequestsTotal.WithLabelValues("embed", model, "error").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrGatewayUnavailable)
	}

	metrics.GatewayRequestsTotal.WithLabelValues("embed", model, "success").Inc()
	metrics.GatewayRequestDuration.WithLabelValues("embed", model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.GatewayTokensTotal.WithLabelValues("embed", model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.GatewayTokensTotal.WithLabelValues("embed", model, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// Generate produces a completion for the given prompt.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues("generate", g.chatModel, "error").Inc()
		return "", parseAPIError("completion", err)
	}
	if len(resp.Choices) == 0 {
		metrics.GatewayRequestsTotal.WithLabelValues("generate", g.chatModel, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGatewayUnavailable)
	}

	metrics.GatewayRequestsTotal.WithLabelValues("generate", g.chatModel, "success").Inc()
	metrics.GatewayRequestDuration.WithLabelValues("generate", g.chatModel).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.GatewayTokensTotal.WithLabelValues("generate", g.chatModel, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.GatewayTokensTotal.WithLabelValues("generate", g.chatModel, "completion").
			Add(float64(resp.Usage.CompletionTokens))
		metrics.GatewayTokensTotal.WithLabelValues("generate", g.chatModel, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateStream streams completion fragments to onFragment until the
// stream finishes or ctx is cancelled. Cancellation is reported as the
// context error so callers can tell a stop apart from a provider failure.
func (g *Gateway) GenerateStream(
	ctx context.Context, prompt string, onFragment func(fragment string) error,
) error {
	req := openai.ChatCompletionRequest{
		Model: g.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues("stream", g.chatModel, "error").Inc()
		return parseAPIError("completion stream", err)
	}
	defer stream.Close()

	for {
		resp, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			metrics.GatewayRequestsTotal.WithLabelValues("stream", g.chatModel, "success").Inc()
			return nil
		}
		if recvErr != nil {
			if ctx.Err() != nil {
				metrics.GatewayRequestsTotal.WithLabelValues("stream", g.chatModel, "cancelled").Inc()
				return ctx.Err()
			}
			metrics.GatewayRequestsTotal.WithLabelValues("stream", g.chatModel, "error").Inc()
			return parseAPIError("completion stream", recvErr)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if frag := resp.Choices[0].Delta.Content; frag != "" {
			if err := onFragment(frag); err != nil {
				return fmt.Errorf("stream consumer: %w", err)
			}
		}
	}
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Gateway) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrGatewayUnavailable.
func parseAPIError(op string, err error) error {
	wrap := domain.ErrGatewayUnavailable

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("%s API error %d: %s: %w", op, reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("%s API error %d: %s: %w", op, reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", op, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %w", op, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
