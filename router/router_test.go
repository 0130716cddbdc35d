package router

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRoute_BasicFormatPerTarget(t *testing.T) {
	r := New(t.TempDir(), zap.NewNop())

	tests := []struct {
		target string
		want   string
	}{
		{"claude", "<instructions>"},
		{"openai", "System: You are a helpful"},
		{"cursor", "# Cursor AI Assistant"},
		{"universal", "**Prompt:**"},
	}
	for _, tt := range tests {
		res, err := r.Route(context.Background(), "hello there", tt.target)
		require.NoError(t, err)
		assert.Equal(t, tt.target, res.TargetLLM)
		assert.Equal(t, "basic_format", res.TemplateUsed)
		assert.Contains(t, res.FormattedPrompt, tt.want)
		assert.Contains(t, res.FormattedPrompt, "hello there")
	}
}

func TestRoute_EmptyPrompt(t *testing.T) {
	r := New(t.TempDir(), zap.NewNop())

	_, err := r.Route(context.Background(), "  ", "claude")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestRoute_TemplateWinsOverBasicFormat(t *testing.T) {
	dir := t.TempDir()
	tpl := "=== {date} ===\nRouted prompt follows:\n{prompt}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "claude_template.txt"), []byte(tpl), 0o644))

	r := New(dir, zap.NewNop())
	res, err := r.Route(context.Background(), "do the thing", "claude")
	require.NoError(t, err)
	assert.Equal(t, "claude_template", res.TemplateUsed)
	assert.Contains(t, res.FormattedPrompt, "Routed prompt follows:\ndo the thing")
	assert.NotContains(t, res.FormattedPrompt, "{prompt}")
	assert.NotContains(t, res.FormattedPrompt, "{date}")
}

func TestRoute_TemplateIsCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "openai_template.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1: {prompt}"), 0o644))

	r := New(dir, zap.NewNop())
	res, err := r.Route(context.Background(), "first", "openai")
	require.NoError(t, err)
	assert.Contains(t, res.FormattedPrompt, "v1: first")

	// Disk changes after first load are invisible for the router's lifetime.
	require.NoError(t, os.WriteFile(path, []byte("v2: {prompt}"), 0o644))
	res, err = r.Route(context.Background(), "second", "openai")
	require.NoError(t, err)
	assert.Contains(t, res.FormattedPrompt, "v1: second")
}

func TestRoute_AutoDetection(t *testing.T) {
	r := New(t.TempDir(), zap.NewNop())

	tests := []struct {
		prompt string
		want   string
	}{
		{"give me a deep analysis with careful reasoning", "claude"},
		{"brainstorm creative ideas for a marketing campaign", "openai"},
		{"debug this function and do a code review", "cursor"},
		{"what is the capital of France", "claude"}, // no indicators, default
	}
	for _, tt := range tests {
		res, err := r.Route(context.Background(), tt.prompt, TargetAuto)
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.TargetLLM, "prompt: %s", tt.prompt)
	}
}

func TestRoute_Metadata(t *testing.T) {
	r := New(t.TempDir(), zap.NewNop())

	res, err := r.Route(context.Background(),
		"refactor this function: def handle(): pass", "cursor")
	require.NoError(t, err)

	md := res.Metadata
	assert.Equal(t, 6, md.WordCount)
	assert.Equal(t, 42, md.CharCount)
	assert.True(t, md.HasCode)
	assert.Greater(t, md.ComplexityScore, 0.0)
	assert.LessOrEqual(t, md.ComplexityScore, 1.0)
	assert.GreaterOrEqual(t, md.RoutingConfidence, 0.7)
}

func TestRoute_LanguageDetection(t *testing.T) {
	r := New(t.TempDir(), zap.NewNop())

	en, err := r.Route(context.Background(), "explain the theory of relativity in detail", "universal")
	require.NoError(t, err)
	assert.Equal(t, "en", en.Metadata.LanguageDetected)

	pt, err := r.Route(context.Background(), "explique para mim um resumo de tudo que importa", "universal")
	require.NoError(t, err)
	assert.Equal(t, "pt", pt.Metadata.LanguageDetected)
}

func TestAvailableTemplates(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"claude_template.txt", "openai_template.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{prompt}"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))

	r := New(dir, zap.NewNop())
	assert.ElementsMatch(t, []string{"claude_template", "openai_template"}, r.AvailableTemplates())

	empty := New(t.TempDir(), zap.NewNop())
	assert.Empty(t, empty.AvailableTemplates())
}
