package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAnalyze_BasicMetrics(t *testing.T) {
	a := New(zap.NewNop())

	an, err := a.Analyze(context.Background(),
		"First sentence. Second one!\n\nNew paragraph here?", "claude")
	require.NoError(t, err)

	assert.Equal(t, 7, an.WordCount)
	assert.Equal(t, 3, an.SentenceCount)
	assert.Equal(t, 2, an.ParagraphCount)
	assert.Greater(t, an.TokenCount, 0)
	assert.Equal(t, "claude", an.TargetLLM)
	assert.False(t, an.Timestamp.IsZero())
}

func TestAnalyze_ScoresStayInRange(t *testing.T) {
	a := New(zap.NewNop())

	prompts := []string{
		"hi",
		"Please write a detailed, specific analysis of the market strategy, step by step, including all relevant data.",
		"<instructions>\nDebug this function:\n```\nfunc main() {}\n```\n</instructions>",
	}
	for _, prompt := range prompts {
		an, err := a.Analyze(context.Background(), prompt, "universal")
		require.NoError(t, err)

		for name, score := range map[string]float64{
			"complexity":   an.ComplexityScore,
			"clarity":      an.ClarityScore,
			"specificity":  an.SpecificityScore,
			"completeness": an.CompletenessScore,
			"optimization": an.OptimizationPotential,
			"questions":    an.QuestionRatio,
			"instructions": an.InstructionRatio,
		} {
			assert.GreaterOrEqual(t, score, 0.0, "%s for %q", name, prompt)
			assert.LessOrEqual(t, score, 1.0, "%s for %q", name, prompt)
		}
		assert.GreaterOrEqual(t, an.SentimentScore, -1.0)
		assert.LessOrEqual(t, an.SentimentScore, 1.0)
	}
}

func TestAnalyze_StructureDetection(t *testing.T) {
	a := New(zap.NewNop())

	tests := []struct {
		prompt string
		want   string
		has    bool
	}{
		{"<instructions>do it</instructions>", "xml", true},
		{"## Heading\nbody text", "markdown", true},
		{"fix this:\n```\ncode\n```", "markdown", true},
		{"- first\n- second", "list", true},
		{"1. first\n2. second", "list", true},
		{"just plain text", "plain", false},
	}
	for _, tt := range tests {
		an, err := a.Analyze(context.Background(), tt.prompt, "universal")
		require.NoError(t, err)
		assert.Equal(t, tt.want, an.StructureType, "prompt: %q", tt.prompt)
		assert.Equal(t, tt.has, an.HasStructure, "prompt: %q", tt.prompt)
	}
}

func TestAnalyze_Suggestions(t *testing.T) {
	a := New(zap.NewNop())

	short, err := a.Analyze(context.Background(), "fix it", "claude")
	require.NoError(t, err)
	assert.Contains(t, short.SuggestedImprovements, "Prompt too short - add more context and details")
	assert.Contains(t, short.SuggestedImprovements, "For Claude: consider XML tags such as <instructions>")
	assert.Greater(t, short.OptimizationPotential, 0.0)

	structured, err := a.Analyze(context.Background(),
		"<instructions>please summarize the report with a clear focus on revenue and costs for the board</instructions>", "claude")
	require.NoError(t, err)
	assert.NotContains(t, structured.SuggestedImprovements, "For Claude: consider XML tags such as <instructions>")
}

func TestAnalyze_SentimentDirection(t *testing.T) {
	a := New(zap.NewNop())

	pos, err := a.Analyze(context.Background(), "this is a great and excellent plan", "universal")
	require.NoError(t, err)
	assert.Greater(t, pos.SentimentScore, 0.0)

	neg, err := a.Analyze(context.Background(), "this terrible code is the worst error", "universal")
	require.NoError(t, err)
	assert.Less(t, neg.SentimentScore, 0.0)
}

func TestComparator_PrefersClearerPrompt(t *testing.T) {
	c := NewComparator(New(zap.NewNop()), zap.NewNop())

	vague := "do stuff"
	better := "Please write a clear, specific and detailed summary of the attached report, " +
		"including all revenue figures, a complete cost breakdown, and precise totals for 2025."

	cmp, err := c.Compare(context.Background(), vague, better, "universal")
	require.NoError(t, err)
	assert.Equal(t, "prompt_b", cmp.Winner)
	assert.Contains(t, cmp.Recommendation, "Use prompt B")
	assert.Contains(t, cmp.Improvements, "clarity_score")
}
