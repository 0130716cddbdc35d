package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const reportSuffix = "_report.json"

// ReportStore persists finished batch reports as immutable JSON documents,
// one file per batch id. A report is written exactly once; overwriting an
// existing id is an error.
type ReportStore struct {
	dir    string
	logger *zap.Logger
}

// NewReportStore opens (creating if needed) the report directory.
func NewReportStore(dir string, logger *zap.Logger) (*ReportStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report store: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportStore{
		dir:    dir,
		logger: logger.With(zap.String("component", "report_store")),
	}, nil
}

// Save writes the report under its batch id. O_EXCL enforces immutability:
// a second save of the same id fails rather than rewriting history.
func (rs *ReportStore) Save(report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.BatchID, err)
	}

	path := rs.path(report.BatchID)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.BatchID, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("save report %s: %w", report.BatchID, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("save report %s: %w", report.BatchID, err)
	}

	rs.logger.Info("batch report saved",
		zap.String("batch_id", report.BatchID), zap.String("path", path))
	return nil
}

// Load reads a previously saved report by batch id.
func (rs *ReportStore) Load(batchID string) (*Report, error) {
	data, err := os.ReadFile(rs.path(batchID))
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", batchID, err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("load report %s: %w", batchID, err)
	}
	return &report, nil
}

// Summary aggregates reports from recent batch runs.
type Summary struct {
	PeriodDays      int            `json:"period_days"`
	TotalBatches    int            `json:"total_batches"`
	TotalItems      int            `json:"total_items_processed"`
	SuccessfulItems int            `json:"successful_items"`
	FailedItems     int            `json:"failed_items"`
	SuccessRate     float64        `json:"success_rate_percent"`
	TotalSeconds    float64        `json:"total_processing_time_seconds"`
	AvgBatchSeconds float64        `json:"average_batch_time_seconds"`
	AvgItemSeconds  float64        `json:"average_item_time_seconds"`
	LLMDistribution map[string]int `json:"llm_distribution"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// Summary aggregates every report started within the last days days.
// Unreadable report files are skipped with a warning.
func (rs *ReportStore) Summary(days int) (*Summary, error) {
	matches, err := filepath.Glob(filepath.Join(rs.dir, "*"+reportSuffix))
	if err != nil {
		return nil, fmt.Errorf("batch summary: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	summary := &Summary{
		PeriodDays:      days,
		LLMDistribution: make(map[string]int),
		GeneratedAt:     time.Now(),
	}

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			rs.logger.Warn("skipping report", zap.String("path", path), zap.Error(err))
			continue
		}
		var report Report
		if err := json.Unmarshal(data, &report); err != nil {
			rs.logger.Warn("skipping report", zap.String("path", path), zap.Error(err))
			continue
		}
		if report.StartedAt.Before(cutoff) {
			continue
		}

		summary.TotalBatches++
		summary.TotalItems += report.TotalItems
		summary.SuccessfulItems += report.SuccessfulItems
		summary.FailedItems += report.FailedItems
		summary.TotalSeconds += report.TotalSeconds
		for _, res := range report.Results {
			summary.LLMDistribution[res.TargetLLM]++
		}
	}

	if summary.TotalItems > 0 {
		summary.SuccessRate = float64(summary.SuccessfulItems) / float64(summary.TotalItems) * 100
		summary.AvgItemSeconds = summary.TotalSeconds / float64(summary.TotalItems)
	}
	if summary.TotalBatches > 0 {
		summary.AvgBatchSeconds = summary.TotalSeconds / float64(summary.TotalBatches)
	}
	return summary, nil
}

func (rs *ReportStore) path(batchID string) string {
	return filepath.Join(rs.dir, batchID+reportSuffix)
}
