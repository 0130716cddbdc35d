package batch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestScheduler(t *testing.T, cfg Config, p *Pipeline) *Scheduler {
	t.Helper()
	rs, err := NewReportStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return NewScheduler(cfg, p, rs, zap.NewNop(), nil)
}

func makeItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			ID:        fmt.Sprintf("item_%d", i+1),
			Prompt:    fmt.Sprintf("prompt number %d", i+1),
			TargetLLM: "claude",
		}
	}
	return items
}

func TestScheduler_AllItemsReported(t *testing.T) {
	p := NewPipeline(DefaultPipelineConfig(), newTestCache(t),
		&stubOptimizer{}, &stubRouter{}, nil, zap.NewNop())
	s := newTestScheduler(t, Config{Workers: 3}, p)

	report, err := s.Run(context.Background(), makeItems(7))
	require.NoError(t, err)

	assert.Equal(t, 7, report.TotalItems)
	assert.Equal(t, 7, report.ProcessedItems)
	assert.Equal(t, 7, report.SuccessfulItems+report.FailedItems)
	assert.Len(t, report.Results, 7)
	require.NotNil(t, report.CompletedAt)
	assert.Greater(t, report.TotalSeconds, 0.0)
	assert.Greater(t, report.AverageSeconds, 0.0)

	// One result per id, none duplicated, none dropped.
	ids := make([]string, len(report.Results))
	for i, res := range report.Results {
		ids[i] = res.ItemID
	}
	sort.Strings(ids)
	want := make([]string, 7)
	for i := range want {
		want[i] = fmt.Sprintf("item_%d", i+1)
	}
	sort.Strings(want)
	assert.Equal(t, want, ids)
}

// Batch of 5 where item 3's routing step fails: the run still covers all
// five items and carries the failure in item 3's result.
func TestScheduler_PerItemFailureDoesNotFailBatch(t *testing.T) {
	items := makeItems(5)
	p := NewPipeline(DefaultPipelineConfig(), newTestCache(t),
		&stubOptimizer{}, &stubRouter{failFor: items[2].Prompt}, nil, zap.NewNop())
	s := newTestScheduler(t, Config{Workers: 2}, p)

	report, err := s.Run(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, 5, report.ProcessedItems)
	assert.Equal(t, 4, report.SuccessfulItems)
	assert.Equal(t, 1, report.FailedItems)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "item_3")

	for _, res := range report.Results {
		if res.ItemID == "item_3" {
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.ErrorMessage)
		} else {
			assert.True(t, res.Success)
		}
	}
}

func TestScheduler_ValidatesItemList(t *testing.T) {
	p := NewPipeline(DefaultPipelineConfig(), nil,
		&stubOptimizer{}, &stubRouter{}, nil, zap.NewNop())

	_, err := newTestScheduler(t, Config{}, p).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = newTestScheduler(t, Config{}, p).Run(context.Background(),
		[]Item{{ID: "", Prompt: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blank id")

	_, err = newTestScheduler(t, Config{}, p).Run(context.Background(),
		[]Item{{ID: "a", Prompt: "x"}, {ID: "a", Prompt: "y"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestScheduler_SingleUse(t *testing.T) {
	p := NewPipeline(DefaultPipelineConfig(), newTestCache(t),
		&stubOptimizer{}, &stubRouter{}, nil, zap.NewNop())
	s := newTestScheduler(t, Config{Workers: 1}, p)

	assert.Equal(t, StateCreated, s.State())
	_, err := s.Run(context.Background(), makeItems(1))
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, s.State())

	_, err = s.Run(context.Background(), makeItems(1))
	assert.ErrorIs(t, err, ErrBatchAlreadyRun)
}

func TestScheduler_ProgressCallbackPerItem(t *testing.T) {
	var mu sync.Mutex
	var snaps []Progress

	p := NewPipeline(DefaultPipelineConfig(), newTestCache(t),
		&stubOptimizer{}, &stubRouter{}, nil, zap.NewNop())
	s := newTestScheduler(t, Config{
		Workers: 2,
		OnProgress: func(snap Progress) {
			mu.Lock()
			snaps = append(snaps, snap)
			mu.Unlock()
		},
	}, p)

	_, err := s.Run(context.Background(), makeItems(6))
	require.NoError(t, err)

	require.Len(t, snaps, 6)
	// Callbacks are serialized, so completion counts ascend monotonically.
	for i, snap := range snaps {
		assert.Equal(t, i+1, snap.CompletedItems)
		assert.Equal(t, 6, snap.TotalItems)
	}
	assert.InDelta(t, 100.0, snaps[5].Percent, 0.001)
}

func TestScheduler_PersistsReport(t *testing.T) {
	rs, err := NewReportStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	p := NewPipeline(DefaultPipelineConfig(), newTestCache(t),
		&stubOptimizer{}, &stubRouter{}, nil, zap.NewNop())
	s := NewScheduler(Config{Workers: 1, BatchID: "batch_test_fixed"}, p, rs, zap.NewNop(), nil)

	report, err := s.Run(context.Background(), makeItems(2))
	require.NoError(t, err)
	assert.Equal(t, "batch_test_fixed", report.BatchID)

	loaded, err := rs.Load("batch_test_fixed")
	require.NoError(t, err)
	assert.Equal(t, report.ProcessedItems, loaded.ProcessedItems)
	assert.Len(t, loaded.Results, 2)
}

func TestScheduler_GeneratesUniqueBatchIDs(t *testing.T) {
	assert.True(t, strings.HasPrefix(newBatchID(), "batch_"))
	assert.NotEqual(t, newBatchID(), newBatchID())
}

// N workers hammering the same input on a cold cache compute at most N
// times; a warm cache computes zero times.
func TestScheduler_WarmCacheSkipsCollaborators(t *testing.T) {
	store := newTestCache(t)
	opt := &stubOptimizer{}

	const n = 8
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{ID: fmt.Sprintf("dup_%d", i), Prompt: "same input", TargetLLM: "claude"}
	}

	cold := NewScheduler(Config{Workers: n},
		NewPipeline(DefaultPipelineConfig(), store, opt, &stubRouter{}, nil, zap.NewNop()),
		nil, zap.NewNop(), nil)
	report, err := cold.Run(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, n, report.SuccessfulItems)
	coldCalls := opt.calls.Load()
	assert.GreaterOrEqual(t, coldCalls, int64(1))
	assert.LessOrEqual(t, coldCalls, int64(n))

	warm := NewScheduler(Config{Workers: n},
		NewPipeline(DefaultPipelineConfig(), store, opt, &stubRouter{}, nil, zap.NewNop()),
		nil, zap.NewNop(), nil)
	report, err = warm.Run(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, n, report.SuccessfulItems)
	assert.Equal(t, coldCalls, opt.calls.Load(), "warm cache must not recompute")
	for _, res := range report.Results {
		assert.True(t, res.CacheHit)
	}
}
