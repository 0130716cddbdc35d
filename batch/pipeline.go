package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/promptrouter/cache"
)

// DefaultOptimizationType is assumed for items that do not name one.
const DefaultOptimizationType = "default"

// PipelineConfig controls the per-item compute path.
type PipelineConfig struct {
	EnableAnalysis bool          `json:"enable_analysis" yaml:"enable_analysis"`
	EnableCache    bool          `json:"enable_cache" yaml:"enable_cache"`
	CacheTTL       time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// DefaultPipelineConfig enables caching and analysis, with the store's
// default TTL.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		EnableAnalysis: true,
		EnableCache:    true,
	}
}

// cachedPayload is the serialized form of a computed result as stored in the
// fingerprint cache.
type cachedPayload struct {
	OptimizedPrompt string         `json:"optimized_prompt"`
	FormattedPrompt string         `json:"formatted_prompt"`
	Analysis        map[string]any `json:"analysis,omitempty"`
	RoutingMetadata map[string]any `json:"routing_metadata,omitempty"`
}

// Pipeline is the per-item compute path: cache lookup, collaborator chain on
// a miss, cache store of the assembled payload. A Pipeline is stateless and
// shared by all workers of a batch.
type Pipeline struct {
	config    PipelineConfig
	store     Store
	optimizer Optimizer
	router    Router
	analyzer  Analyzer
	logger    *zap.Logger
}

// NewPipeline wires a pipeline from its collaborators. store and analyzer
// may be nil; the corresponding steps are skipped.
func NewPipeline(
	config PipelineConfig,
	store Store,
	optimizer Optimizer,
	router Router,
	analyzer Analyzer,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		config:    config,
		store:     store,
		optimizer: optimizer,
		router:    router,
		analyzer:  analyzer,
		logger:    logger.With(zap.String("component", "batch_pipeline")),
	}
}

// Process runs one item to completion. Collaborator failures, including
// panics, are folded into the returned Result; Process never propagates an
// error to its caller. Elapsed time is recorded for every outcome.
func (p *Pipeline) Process(ctx context.Context, item Item) (result Result) {
	start := time.Now()

	result = Result{
		ItemID:         item.ID,
		OriginalPrompt: item.Prompt,
		TargetLLM:      item.TargetLLM,
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panic",
				zap.String("item_id", item.ID), zap.Any("panic", r))
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("panic: %v", r)
		}
		result.ProcessingSeconds = time.Since(start).Seconds()
	}()

	optType := item.OptimizationType
	if optType == "" {
		optType = DefaultOptimizationType
	}
	key := cache.Fingerprint(item.Prompt, item.TargetLLM, optType)

	if payload, ok := p.lookup(key, item.ID); ok {
		result.OptimizedPrompt = payload.OptimizedPrompt
		result.FormattedPrompt = payload.FormattedPrompt
		result.Analysis = payload.Analysis
		result.RoutingMetadata = payload.RoutingMetadata
		result.Success = true
		result.CacheHit = true
		return result
	}

	optimized, err := p.optimizer.Optimize(ctx, item.Prompt, item.TargetLLM)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("optimize: %v", err)
		return result
	}
	result.OptimizedPrompt = optimized

	routed, err := p.router.Route(ctx, optimized, item.TargetLLM)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("route: %v", err)
		return result
	}
	result.FormattedPrompt = routed.FormattedPrompt
	result.RoutingMetadata = routed.Metadata

	if p.config.EnableAnalysis && p.analyzer != nil {
		analysis, err := p.analyzer.Analyze(ctx, item.Prompt, item.TargetLLM)
		if err != nil {
			result.ErrorMessage = fmt.Sprintf("analyze: %v", err)
			return result
		}
		result.Analysis = analysis
	}

	p.storeResult(key, item, cachedPayload{
		OptimizedPrompt: optimized,
		FormattedPrompt: routed.FormattedPrompt,
		Analysis:        result.Analysis,
		RoutingMetadata: routed.Metadata,
	})

	result.Success = true
	return result
}

// lookup fetches and decodes a cached payload. Any cache failure degrades to
// a miss so a broken cache never takes the compute path down with it.
func (p *Pipeline) lookup(key, itemID string) (cachedPayload, bool) {
	if !p.config.EnableCache || p.store == nil {
		return cachedPayload{}, false
	}

	blob, err := p.store.Get(key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return cachedPayload{}, false
	}
	if err != nil {
		p.logger.Warn("cache lookup failed, computing",
			zap.String("item_id", itemID), zap.Error(err))
		return cachedPayload{}, false
	}

	var payload cachedPayload
	if err := json.Unmarshal(blob, &payload); err != nil {
		p.logger.Warn("cached payload undecodable, computing",
			zap.String("item_id", itemID), zap.Error(err))
		return cachedPayload{}, false
	}

	p.logger.Debug("cache hit", zap.String("item_id", itemID))
	return payload, true
}

// storeResult writes the computed payload back to the cache. Failures are
// logged and otherwise ignored; the item already succeeded.
func (p *Pipeline) storeResult(key string, item Item, payload cachedPayload) {
	if !p.config.EnableCache || p.store == nil {
		return
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("encode cached payload",
			zap.String("item_id", item.ID), zap.Error(err))
		return
	}
	tags := []string{"batch", item.TargetLLM}
	if err := p.store.Put(key, blob, p.config.CacheTTL, tags); err != nil {
		p.logger.Warn("cache store failed",
			zap.String("item_id", item.ID), zap.Error(err))
	}
}
