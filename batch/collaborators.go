package batch

import (
	"context"
	"time"
)

// RouteResult is what a Router produces for one prompt.
type RouteResult struct {
	FormattedPrompt string         `json:"formatted_prompt"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Optimizer rewrites a prompt for a target LLM.
type Optimizer interface {
	Optimize(ctx context.Context, prompt, targetLLM string) (string, error)
}

// Router formats an optimized prompt for its destination.
type Router interface {
	Route(ctx context.Context, prompt, targetLLM string) (RouteResult, error)
}

// Analyzer produces quality metrics for a prompt. Invocation is flag-gated;
// pipelines run fine without one.
type Analyzer interface {
	Analyze(ctx context.Context, prompt, targetLLM string) (map[string]any, error)
}

// Store is the slice of the fingerprint cache the batch engine consumes.
// Implemented by *cache.Store.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, blob []byte, ttl time.Duration, tags []string) error
}
