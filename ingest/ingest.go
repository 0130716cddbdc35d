// Package ingest parses external batch inputs into work items and exports
// finished results. The batch engine itself never touches raw files; this is
// the boundary where tabular and structured documents become typed items.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/promptrouter/batch"
)

// DefaultTarget is assumed for rows and documents that do not name one.
const DefaultTarget = "universal"

// CSVOptions maps spreadsheet columns onto item fields.
type CSVOptions struct {
	PromptColumn string
	TargetColumn string
	// IDColumn is optional; absent ids become positional csv_row_<n>.
	IDColumn string
}

// DefaultCSVOptions matches the conventional header names.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		PromptColumn: "prompt",
		TargetColumn: "target_llm",
	}
}

// FromCSV reads header-addressed rows into items. Rows with an empty prompt
// are skipped with a warning; every other column lands in item metadata.
func FromCSV(r io.Reader, opts CSVOptions, logger *zap.Logger) ([]batch.Item, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PromptColumn == "" {
		opts.PromptColumn = DefaultCSVOptions().PromptColumn
	}
	if opts.TargetColumn == "" {
		opts.TargetColumn = DefaultCSVOptions().TargetColumn
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	promptIdx, ok := col[opts.PromptColumn]
	if !ok {
		return nil, fmt.Errorf("csv is missing the %q column", opts.PromptColumn)
	}

	var items []batch.Item
	for row := 0; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}

		prompt := strings.TrimSpace(record[promptIdx])
		if prompt == "" {
			logger.Warn("skipping csv row with empty prompt", zap.Int("row", row))
			continue
		}

		item := batch.Item{
			ID:        fmt.Sprintf("csv_row_%d", row),
			Prompt:    prompt,
			TargetLLM: DefaultTarget,
		}
		if idx, ok := col[opts.TargetColumn]; ok {
			if target := strings.TrimSpace(record[idx]); target != "" {
				item.TargetLLM = target
			}
		}
		if opts.IDColumn != "" {
			if idx, ok := col[opts.IDColumn]; ok && record[idx] != "" {
				item.ID = record[idx]
			}
		}

		metadata := make(map[string]any)
		for name, idx := range col {
			if name == opts.PromptColumn || name == opts.TargetColumn || name == opts.IDColumn {
				continue
			}
			metadata[name] = record[idx]
		}
		if len(metadata) > 0 {
			item.Metadata = metadata
		}
		items = append(items, item)
	}

	logger.Info("csv batch loaded", zap.Int("items", len(items)))
	return items, nil
}

// jsonItem is the object form accepted by FromJSON.
type jsonItem struct {
	ID               string         `json:"id"`
	Prompt           string         `json:"prompt"`
	TargetLLM        string         `json:"target_llm"`
	OptimizationType string         `json:"optimization_type"`
	Metadata         map[string]any `json:"metadata"`
}

// FromJSON reads items from any of the accepted document shapes: a list of
// objects, a list of bare prompt strings, an object with a "prompts" list,
// or a single object.
func FromJSON(r io.Reader, logger *zap.Logger) ([]batch.Item, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var raw any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json batch: %w", err)
	}

	items, err := itemsFromValue(raw)
	if err != nil {
		return nil, err
	}
	logger.Info("json batch loaded", zap.Int("items", len(items)))
	return items, nil
}

func itemsFromValue(raw any) ([]batch.Item, error) {
	switch v := raw.(type) {
	case []any:
		items := make([]batch.Item, 0, len(v))
		for i, entry := range v {
			switch e := entry.(type) {
			case string:
				items = append(items, batch.Item{
					ID:        fmt.Sprintf("json_item_%d", i),
					Prompt:    e,
					TargetLLM: DefaultTarget,
				})
			case map[string]any:
				item, err := itemFromObject(e, fmt.Sprintf("json_item_%d", i))
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			default:
				return nil, fmt.Errorf("json batch entry %d: unsupported type %T", i, entry)
			}
		}
		return items, nil

	case map[string]any:
		if prompts, ok := v["prompts"]; ok {
			return itemsFromValue(prompts)
		}
		item, err := itemFromObject(v, "json_single")
		if err != nil {
			return nil, err
		}
		return []batch.Item{item}, nil

	default:
		return nil, fmt.Errorf("json batch: unsupported document type %T", raw)
	}
}

func itemFromObject(obj map[string]any, fallbackID string) (batch.Item, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return batch.Item{}, fmt.Errorf("json batch item: %w", err)
	}
	var ji jsonItem
	if err := json.Unmarshal(data, &ji); err != nil {
		return batch.Item{}, fmt.Errorf("json batch item: %w", err)
	}

	item := batch.Item{
		ID:               ji.ID,
		Prompt:           ji.Prompt,
		TargetLLM:        ji.TargetLLM,
		OptimizationType: ji.OptimizationType,
		Metadata:         ji.Metadata,
	}
	if item.ID == "" {
		item.ID = fallbackID
	}
	if item.TargetLLM == "" {
		item.TargetLLM = DefaultTarget
	}
	return item, nil
}

// ExportCSV writes a finished report's results as a spreadsheet, one row per
// item, with analysis columns filled when the item carried an analysis.
func ExportCSV(w io.Writer, report *batch.Report) error {
	writer := csv.NewWriter(w)

	header := []string{
		"item_id", "original_prompt", "optimized_prompt",
		"target_llm", "processing_time_seconds", "success",
		"error_message", "word_count", "complexity_score", "clarity_score",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}

	for _, res := range report.Results {
		row := []string{
			res.ItemID,
			res.OriginalPrompt,
			res.OptimizedPrompt,
			res.TargetLLM,
			strconv.FormatFloat(res.ProcessingSeconds, 'f', 6, 64),
			strconv.FormatBool(res.Success),
			res.ErrorMessage,
			analysisField(res.Analysis, "word_count"),
			analysisField(res.Analysis, "complexity_score"),
			analysisField(res.Analysis, "clarity_score"),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}

func analysisField(analysis map[string]any, key string) string {
	if analysis == nil {
		return ""
	}
	v, ok := analysis[key]
	if !ok {
		return ""
	}
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', 3, 64)
	default:
		return fmt.Sprint(v)
	}
}
