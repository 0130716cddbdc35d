package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/promptrouter/analyzer"
	"github.com/BaSui01/promptrouter/router"
)

func TestRouterAdapter(t *testing.T) {
	a := RouterAdapter{Router: router.New(t.TempDir(), zap.NewNop())}

	res, err := a.Route(context.Background(), "debug this function for me", "cursor")
	require.NoError(t, err)
	assert.Contains(t, res.FormattedPrompt, "debug this function for me")
	assert.Equal(t, "cursor", res.Metadata["target_llm"])
	assert.Equal(t, "basic_format", res.Metadata["template_used"])
	assert.Equal(t, true, res.Metadata["has_code"])
}

func TestAnalyzerAdapter_RecordsHistory(t *testing.T) {
	storage, err := analyzer.OpenStorage(":memory:", zap.NewNop())
	require.NoError(t, err)

	a := AnalyzerAdapter{
		Analyzer: analyzer.New(zap.NewNop()),
		Storage:  storage,
		Logger:   zap.NewNop(),
	}

	out, err := a.Analyze(context.Background(), "please explain the design in detail", "claude")
	require.NoError(t, err)
	assert.Equal(t, float64(6), out["word_count"])
	assert.Contains(t, out, "complexity_score")
	assert.Contains(t, out, "suggested_improvements")

	n, err := storage.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
