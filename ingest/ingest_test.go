package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/promptrouter/batch"
	"github.com/BaSui01/promptrouter/testutil"
)

func TestFromCSV(t *testing.T) {
	csvData := `prompt,target_llm,priority
explain channels,claude,high
,openai,low
write a haiku,,normal
`
	items, err := FromCSV(strings.NewReader(csvData), DefaultCSVOptions(), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, items, 2, "empty-prompt row must be skipped")

	assert.Equal(t, "csv_row_0", items[0].ID)
	assert.Equal(t, "explain channels", items[0].Prompt)
	assert.Equal(t, "claude", items[0].TargetLLM)
	assert.Equal(t, map[string]any{"priority": "high"}, items[0].Metadata)

	assert.Equal(t, "csv_row_2", items[1].ID)
	assert.Equal(t, DefaultTarget, items[1].TargetLLM, "blank target falls back")
}

func TestFromCSV_CustomColumnsAndIDs(t *testing.T) {
	csvData := `question,llm,ticket
why is the sky blue,claude,T-1
`
	items, err := FromCSV(strings.NewReader(csvData), CSVOptions{
		PromptColumn: "question",
		TargetColumn: "llm",
		IDColumn:     "ticket",
	}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "T-1", items[0].ID)
	assert.Equal(t, "why is the sky blue", items[0].Prompt)
	assert.Nil(t, items[0].Metadata)
}

func TestFromCSV_MissingPromptColumn(t *testing.T) {
	_, err := FromCSV(strings.NewReader("a,b\n1,2\n"), DefaultCSVOptions(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"prompt"`)
}

func TestFromJSON_ListOfObjects(t *testing.T) {
	doc := `[
	  {"id": "a", "prompt": "first", "target_llm": "claude", "optimization_type": "clarity"},
	  {"prompt": "second"}
	]`
	items, err := FromJSON(strings.NewReader(doc), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, batch.Item{ID: "a", Prompt: "first", TargetLLM: "claude", OptimizationType: "clarity"}, items[0])
	assert.Equal(t, "json_item_1", items[1].ID)
	assert.Equal(t, DefaultTarget, items[1].TargetLLM)
}

func TestFromJSON_ListOfStrings(t *testing.T) {
	items, err := FromJSON(strings.NewReader(`["one", "two"]`), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "json_item_0", items[0].ID)
	assert.Equal(t, "one", items[0].Prompt)
}

func TestFromJSON_PromptsWrapper(t *testing.T) {
	doc := `{"prompts": [{"prompt": "wrapped"}]}`
	items, err := FromJSON(strings.NewReader(doc), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "wrapped", items[0].Prompt)
}

func TestFromJSON_SingleObject(t *testing.T) {
	items, err := FromJSON(strings.NewReader(`{"prompt": "solo"}`), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "json_single", items[0].ID)
}

func TestFromJSON_MarshalledItems(t *testing.T) {
	doc := testutil.MustJSON(t, []map[string]any{
		{"id": "x", "prompt": "built from a struct", "target_llm": "openai"},
	})
	items, err := FromJSON(bytes.NewReader(doc), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, batch.Item{ID: "x", Prompt: "built from a struct", TargetLLM: "openai"}, items[0])
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := FromJSON(strings.NewReader(`42`), zap.NewNop())
	assert.Error(t, err)

	_, err = FromJSON(strings.NewReader(`not json`), zap.NewNop())
	assert.Error(t, err)
}

func TestExportCSV(t *testing.T) {
	report := &batch.Report{
		Results: []batch.Result{
			{
				ItemID:            "a",
				OriginalPrompt:    "orig",
				OptimizedPrompt:   "opt",
				TargetLLM:         "claude",
				ProcessingSeconds: 0.5,
				Success:           true,
				Analysis: map[string]any{
					"word_count":       float64(12),
					"complexity_score": 0.42,
					"clarity_score":    0.5,
				},
			},
			{ItemID: "b", TargetLLM: "openai", Success: false, ErrorMessage: "boom"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, report))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "item_id")
	assert.Contains(t, lines[1], "a,orig,opt,claude,0.500000,true,,12,0.420,0.500")
	assert.Contains(t, lines[2], "b,,,openai,0.000000,false,boom,,,")
}
