// Package apiclient holds the outbound LLM API surface. Responses are
// simulated for now; the request shaping, rate limiting and retry plumbing
// are real so direct integrations can slot in without touching callers.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrUnsupportedTarget = errors.New("unsupported target llm")

// Config configures the outbound client.
type Config struct {
	ClaudeAPIKey   string `json:"claude_api_key" yaml:"claude_api_key"`
	OpenAIAPIKey   string `json:"openai_api_key" yaml:"openai_api_key"`
	CursorAPIKey   string `json:"cursor_api_key" yaml:"cursor_api_key"`
	CursorEndpoint string `json:"cursor_endpoint" yaml:"cursor_endpoint"`

	// RequestsPerSecond and Burst bound outbound calls across all targets.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// DefaultConfig returns a conservative outbound rate.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// Usage is token accounting for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is one LLM API reply.
type Response struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Model     string    `json:"model"`
	Usage     Usage     `json:"usage"`
	Timestamp time.Time `json:"timestamp"`
}

// Client sends formatted prompts to their destination API. Safe for
// concurrent use.
type Client struct {
	config  Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

func New(config Config, logger *zap.Logger) *Client {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = DefaultConfig().RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = DefaultConfig().Burst
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		logger:  logger.With(zap.String("component", "apiclient")),
	}
}

// Send routes prompt to the target's API, blocking on the rate limiter
// first.
func (c *Client) Send(ctx context.Context, prompt, targetLLM string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("send to %s: %w", targetLLM, err)
	}

	var model string
	switch strings.ToLower(targetLLM) {
	case "claude":
		model = "claude-sonnet-4-20250514"
	case "openai":
		model = "gpt-4o"
	case "cursor":
		model = "cursor-local"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTarget, targetLLM)
	}

	c.logger.Debug("sending prompt",
		zap.String("target_llm", targetLLM), zap.Int("chars", len(prompt)))

	// Simulated reply until the direct integrations land.
	return &Response{
		Status:  "placeholder",
		Message: "Simulated response; direct API integration pending.",
		Model:   model,
		Usage: Usage{
			InputTokens:  len(strings.Fields(prompt)),
			OutputTokens: 50,
		},
		Timestamp: time.Now(),
	}, nil
}

// SendWithRetry retries transient Send failures with linear backoff.
// Unsupported targets fail immediately.
func (c *Client) SendWithRetry(ctx context.Context, prompt, targetLLM string, maxRetries int) (*Response, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		resp, err := c.Send(ctx, prompt, targetLLM)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrUnsupportedTarget) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("send failed, retrying",
			zap.String("target_llm", targetLLM),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("send to %s after %d attempts: %w", targetLLM, maxRetries, lastErr)
}

// ValidateAPIKeys reports which targets have a usable key configured.
// Template placeholder values count as unconfigured.
func (c *Client) ValidateAPIKeys() map[string]bool {
	usable := func(key, placeholder string) bool {
		return key != "" && key != placeholder
	}
	return map[string]bool{
		"claude": usable(c.config.ClaudeAPIKey, "your_anthropic_api_key_here"),
		"openai": usable(c.config.OpenAIAPIKey, "your_openai_api_key_here"),
		"cursor": usable(c.config.CursorAPIKey, "your_cursor_api_key_here"),
	}
}

// CostEstimate is a rough pre-send price check.
type CostEstimate struct {
	TargetLLM       string  `json:"target_llm"`
	EstimatedTokens int     `json:"estimated_tokens"`
	EstimatedUSD    float64 `json:"estimated_usd"`
}

// Per-million-input-token prices, rough and subject to drift.
var pricePerMTok = map[string]float64{
	"claude": 3.0,
	"openai": 2.5,
	"cursor": 0,
}

// EstimateCost approximates the input cost of sending prompt to targetLLM.
func (c *Client) EstimateCost(prompt, targetLLM string) (CostEstimate, error) {
	price, ok := pricePerMTok[strings.ToLower(targetLLM)]
	if !ok {
		return CostEstimate{}, fmt.Errorf("%w: %s", ErrUnsupportedTarget, targetLLM)
	}
	tokens := (len(prompt) + 3) / 4
	return CostEstimate{
		TargetLLM:       strings.ToLower(targetLLM),
		EstimatedTokens: tokens,
		EstimatedUSD:    float64(tokens) / 1_000_000 * price,
	}, nil
}
