package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Comparison pits two prompt versions against each other.
type Comparison struct {
	AnalysisA      *Analysis          `json:"analysis_a"`
	AnalysisB      *Analysis          `json:"analysis_b"`
	Improvements   map[string]float64 `json:"improvements"`
	Winner         string             `json:"winner"`
	Recommendation string             `json:"recommendation"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Comparator scores two versions of a prompt, typically original versus
// optimized, and picks a winner.
type Comparator struct {
	analyzer *PromptAnalyzer
	logger   *zap.Logger
}

func NewComparator(analyzer *PromptAnalyzer, logger *zap.Logger) *Comparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparator{
		analyzer: analyzer,
		logger:   logger.With(zap.String("component", "comparator")),
	}
}

// Weighted metrics used to decide the winner. Complexity and remaining
// optimization potential count against a prompt.
var winnerWeights = []struct {
	metric func(*Analysis) float64
	weight float64
}{
	{func(a *Analysis) float64 { return a.ClarityScore }, 0.25},
	{func(a *Analysis) float64 { return a.SpecificityScore }, 0.20},
	{func(a *Analysis) float64 { return a.CompletenessScore }, 0.20},
	{func(a *Analysis) float64 { return a.ReadabilityScore }, 0.15},
	{func(a *Analysis) float64 { return a.ComplexityScore }, -0.10},
	{func(a *Analysis) float64 { return a.OptimizationPotential }, -0.10},
}

// Compare analyzes both prompts and reports per-metric improvement from A
// to B plus an overall winner.
func (c *Comparator) Compare(ctx context.Context, promptA, promptB, targetLLM string) (*Comparison, error) {
	analysisA, err := c.analyzer.Analyze(ctx, promptA, targetLLM)
	if err != nil {
		return nil, err
	}
	analysisB, err := c.analyzer.Analyze(ctx, promptB, targetLLM)
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{
		AnalysisA:    analysisA,
		AnalysisB:    analysisB,
		Improvements: improvementPercents(analysisA, analysisB),
		Winner:       determineWinner(analysisA, analysisB),
		Timestamp:    time.Now(),
	}
	cmp.Recommendation = recommendation(analysisA, analysisB, cmp.Winner)

	c.logger.Debug("prompts compared", zap.String("winner", cmp.Winner))
	return cmp, nil
}

func improvementPercents(a, b *Analysis) map[string]float64 {
	metrics := map[string][2]float64{
		"complexity_score":   {a.ComplexityScore, b.ComplexityScore},
		"readability_score":  {a.ReadabilityScore, b.ReadabilityScore},
		"clarity_score":      {a.ClarityScore, b.ClarityScore},
		"specificity_score":  {a.SpecificityScore, b.SpecificityScore},
		"completeness_score": {a.CompletenessScore, b.CompletenessScore},
	}
	out := make(map[string]float64, len(metrics))
	for metric, vals := range metrics {
		if vals[0] > 0 {
			out[metric] = (vals[1] - vals[0]) / vals[0] * 100
		} else {
			out[metric] = 0
		}
	}
	return out
}

func determineWinner(a, b *Analysis) string {
	var scoreA, scoreB float64
	for _, w := range winnerWeights {
		scoreA += w.metric(a) * w.weight
		scoreB += w.metric(b) * w.weight
	}
	switch {
	case scoreB > scoreA:
		return "prompt_b"
	case scoreA > scoreB:
		return "prompt_a"
	default:
		return "tie"
	}
}

func recommendation(a, b *Analysis, winner string) string {
	switch winner {
	case "prompt_b":
		return fmt.Sprintf(
			"Use prompt B. Main improvements: clarity (%.2f vs %.2f) and completeness (%.2f vs %.2f).",
			b.ClarityScore, a.ClarityScore, b.CompletenessScore, a.CompletenessScore)
	case "prompt_a":
		return "The original prompt A is already superior; it keeps a better balance of clarity and simplicity."
	default:
		return "Both prompts score similarly. Choose by personal preference or context."
	}
}
