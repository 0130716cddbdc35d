package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/promptrouter/analyzer"
	"github.com/BaSui01/promptrouter/router"
)

// RouterAdapter exposes a *router.Router as a batch Router.
type RouterAdapter struct {
	Router *router.Router
}

func (a RouterAdapter) Route(ctx context.Context, prompt, targetLLM string) (RouteResult, error) {
	res, err := a.Router.Route(ctx, prompt, targetLLM)
	if err != nil {
		return RouteResult{}, err
	}
	return RouteResult{
		FormattedPrompt: res.FormattedPrompt,
		Metadata: map[string]any{
			"target_llm":         res.TargetLLM,
			"template_used":      res.TemplateUsed,
			"word_count":         res.Metadata.WordCount,
			"char_count":         res.Metadata.CharCount,
			"has_code":           res.Metadata.HasCode,
			"complexity_score":   res.Metadata.ComplexityScore,
			"language_detected":  res.Metadata.LanguageDetected,
			"routing_confidence": res.Metadata.RoutingConfidence,
		},
	}, nil
}

// AnalyzerAdapter exposes a *analyzer.PromptAnalyzer as a batch Analyzer and
// records every analysis in the history storage when one is attached.
// History failures are logged, not surfaced; analytics never fail an item.
type AnalyzerAdapter struct {
	Analyzer *analyzer.PromptAnalyzer
	Storage  *analyzer.Storage
	Logger   *zap.Logger
}

func (a AnalyzerAdapter) Analyze(ctx context.Context, prompt, targetLLM string) (map[string]any, error) {
	an, err := a.Analyzer.Analyze(ctx, prompt, targetLLM)
	if err != nil {
		return nil, err
	}

	if a.Storage != nil {
		if err := a.Storage.Save(an); err != nil && a.Logger != nil {
			a.Logger.Warn("save analysis history", zap.Error(err))
		}
	}

	data, err := json.Marshal(an)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	return out, nil
}
