package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"svodka-bot/internal/memory"
)

// Client talks to an OpenAI-compatible chat completions endpoint
// (OpenRouter by default). It applies at most one retry when enabled;
// everything beyond that is up to the caller.
type Client struct {
	api         *openai.Client
	model       string
	enableRetry bool
	logger      *zap.Logger
}

// NewClient creates an LLM client for the given endpoint.
func NewClient(apiKey, baseURL, model string, enableRetry bool, timeout time.Duration, logger *zap.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       model,
		enableRetry: enableRetry,
		logger:      logger,
	}
}

// Generate sends the prompt payload and returns the assistant text.
func (c *Client) Generate(ctx context.Context, messages []memory.Message) (string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}

	start := time.Now()
	attempts := 1
	if c.enableRetry {
		attempts = 2
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    chatMessages,
			Temperature: 0.7,
		})
		if err != nil {
			lastErr = err
			if attempt < attempts && ctx.Err() == nil {
				c.logger.Warn("llm call failed, retrying",
					zap.String("model", c.model),
					zap.Int("attempt", attempt),
					zap.Error(err))
				continue
			}
			c.logger.Error("llm call failed",
				zap.String("model", c.model),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))
			return "", fmt.Errorf("chat completion: %w", lastErr)
		}

		c.logger.Info("llm call",
			zap.String("model", c.model),
			zap.Duration("duration", time.Since(start)))

		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("chat completion: empty choices in response")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}
	return "", fmt.Errorf("chat completion: %w", lastErr)
}
