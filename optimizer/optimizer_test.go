package optimizer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOptimize_GeneralCleanup(t *testing.T) {
	o := New(zap.NewNop())

	got, err := o.Optimize(context.Background(), "  hello   world \n\n\n second  line ", "unknown-target")
	require.NoError(t, err)
	assert.Equal(t, "hello world \n\n second line.", got)
}

func TestOptimize_PreservesTerminalPunctuation(t *testing.T) {
	o := New(zap.NewNop())

	for _, prompt := range []string{"done.", "really?", "go!", "as follows:"} {
		got, err := o.Optimize(context.Background(), prompt, "unknown-target")
		require.NoError(t, err)
		assert.Equal(t, prompt, got)
	}
}

func TestOptimize_EmptyPrompt(t *testing.T) {
	o := New(zap.NewNop())

	_, err := o.Optimize(context.Background(), "   \n ", TargetClaude)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestOptimize_ClaudeAddsXMLStructure(t *testing.T) {
	o := New(zap.NewNop())

	got, err := o.Optimize(context.Background(), "summarize this article", TargetClaude)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "<instructions>"))
	assert.Contains(t, got, "summarize this article.")
	assert.Contains(t, got, "<thinking>")
}

func TestOptimize_ClaudeLeavesStructuredPromptsAlone(t *testing.T) {
	o := New(zap.NewNop())

	prompt := "<context>\nsome background\n</context> do the thing."
	got, err := o.Optimize(context.Background(), prompt, TargetClaude)
	require.NoError(t, err)
	assert.NotContains(t, got, "<instructions>")
}

func TestOptimize_OpenAIRolePreamble(t *testing.T) {
	o := New(zap.NewNop())

	got, err := o.Optimize(context.Background(), "translate to French.", TargetOpenAI)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "You are a specialized"))

	already, err := o.Optimize(context.Background(), "You are a translator. Translate.", TargetOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "You are a translator. Translate.", already)
}

func TestOptimize_CursorOnlyTouchesCodePrompts(t *testing.T) {
	o := New(zap.NewNop())

	plain, err := o.Optimize(context.Background(), "write a poem.", TargetCursor)
	require.NoError(t, err)
	assert.Equal(t, "write a poem.", plain)

	code, err := o.Optimize(context.Background(), "refactor this function.", TargetCursor)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "As an experienced development assistant"))
	assert.Contains(t, code, "refactor this function.")
}

func TestOptimize_UniversalWrapsPrompt(t *testing.T) {
	o := New(zap.NewNop())

	got, err := o.Optimize(context.Background(), "compare SQL and NoSQL", TargetUniversal)
	require.NoError(t, err)
	assert.Contains(t, got, "Please carefully analyze")
	assert.Contains(t, got, "compare SQL and NoSQL.")
}

func TestOptimizationStats(t *testing.T) {
	stats := OptimizationStats("two words", "<instructions>now three words</instructions>")

	assert.Equal(t, 9, stats.OriginalLength)
	assert.Equal(t, 2, stats.OriginalWords)
	assert.Equal(t, 3, stats.OptimizedWords)
	assert.Equal(t, 1, stats.WordsChange)
	assert.True(t, stats.HasStructure)
	assert.Greater(t, stats.ImprovementRatio, 1.0)

	empty := OptimizationStats("", "")
	assert.Equal(t, 1.0, empty.ImprovementRatio)
}
