package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleReport(id string, startedAt time.Time) *Report {
	completed := startedAt.Add(2 * time.Second)
	return &Report{
		BatchID:         id,
		StartedAt:       startedAt,
		CompletedAt:     &completed,
		TotalItems:      2,
		ProcessedItems:  2,
		SuccessfulItems: 1,
		FailedItems:     1,
		TotalSeconds:    2,
		AverageSeconds:  1,
		Results: []Result{
			{ItemID: "a", TargetLLM: "claude", Success: true},
			{ItemID: "b", TargetLLM: "openai", Success: false, ErrorMessage: "boom"},
		},
		Errors: []string{"item b: boom"},
	}
}

func TestReportStore_SaveLoadRoundTrip(t *testing.T) {
	rs, err := NewReportStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	want := sampleReport("batch_rt", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, rs.Save(want))

	got, err := rs.Load("batch_rt")
	require.NoError(t, err)
	assert.Equal(t, want.BatchID, got.BatchID)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, want.Results, got.Results)
	assert.Equal(t, want.Errors, got.Errors)
}

// Reports are immutable once written.
func TestReportStore_SecondSaveFails(t *testing.T) {
	rs, err := NewReportStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	report := sampleReport("batch_once", time.Now())
	require.NoError(t, rs.Save(report))
	assert.Error(t, rs.Save(report))
}

func TestReportStore_LoadMissing(t *testing.T) {
	rs, err := NewReportStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = rs.Load("no_such_batch")
	assert.Error(t, err)
}

func TestReportStore_SummaryAggregatesRecentReports(t *testing.T) {
	rs, err := NewReportStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, rs.Save(sampleReport("batch_recent_1", now.Add(-time.Hour))))
	require.NoError(t, rs.Save(sampleReport("batch_recent_2", now.Add(-2*time.Hour))))
	require.NoError(t, rs.Save(sampleReport("batch_ancient", now.AddDate(0, 0, -30))))

	summary, err := rs.Summary(7)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalBatches)
	assert.Equal(t, 4, summary.TotalItems)
	assert.Equal(t, 2, summary.SuccessfulItems)
	assert.Equal(t, 2, summary.FailedItems)
	assert.InDelta(t, 50.0, summary.SuccessRate, 0.001)
	assert.InDelta(t, 2.0, summary.AvgBatchSeconds, 0.001)
	assert.Equal(t, map[string]int{"claude": 2, "openai": 2}, summary.LLMDistribution)
}

func TestReportStore_SummaryEmptyDir(t *testing.T) {
	rs, err := NewReportStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	summary, err := rs.Summary(7)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalBatches)
	assert.Equal(t, 0.0, summary.SuccessRate)
}
