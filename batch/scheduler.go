package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/promptrouter/internal/metrics"
)

var (
	ErrEmptyBatch      = errors.New("batch has no items")
	ErrBatchAlreadyRun = errors.New("batch scheduler already ran")
)

// State is the lifecycle phase of a scheduler. The machine is
// Created -> Running -> Completed; Completed is terminal, a whole batch is
// never retried.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Config configures one batch run.
type Config struct {
	// Workers bounds the number of items processed concurrently.
	Workers int `json:"workers" yaml:"workers"`
	// BatchID overrides the generated id when set. Ids address persisted
	// reports and must be unique.
	BatchID string `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	// OnProgress, when set, is invoked synchronously after every completed
	// item. Callback execution time is the caller's responsibility.
	OnProgress func(Progress) `json:"-" yaml:"-"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// Scheduler drives one batch through a bounded worker pool. Each worker
// pulls one unclaimed item, runs the pipeline to completion, and only then
// claims the next, so no item is ever processed twice. Results land in the
// report in completion order; callers needing submission order restore it by
// item id. A Scheduler is single-use.
type Scheduler struct {
	config    Config
	pipeline  *Pipeline
	reports   *ReportStore
	logger    *zap.Logger
	collector *metrics.Collector
	state     atomic.Int32
}

// NewScheduler creates a scheduler in the Created state. reports and
// collector may be nil to skip report persistence and metrics.
func NewScheduler(
	config Config,
	pipeline *Pipeline,
	reports *ReportStore,
	logger *zap.Logger,
	collector *metrics.Collector,
) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:    config,
		pipeline:  pipeline,
		reports:   reports,
		logger:    logger.With(zap.String("component", "batch_scheduler")),
		collector: collector,
	}
}

// State returns the scheduler's current lifecycle phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run processes items and returns the finalized report. Per-item failures
// never fail the run; only an invalid item list or a reused scheduler does,
// before any item starts. A batch cannot be cancelled once running;
// abandoning it leaves in-flight items to finish.
func (s *Scheduler) Run(ctx context.Context, items []Item) (*Report, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return nil, ErrBatchAlreadyRun
	}

	batchID := s.config.BatchID
	if batchID == "" {
		batchID = newBatchID()
	}

	start := time.Now()
	report := &Report{
		BatchID:    batchID,
		StartedAt:  start,
		TotalItems: len(items),
		Results:    make([]Result, 0, len(items)),
		Errors:     []string{},
	}
	tracker := NewProgressTracker(len(items))

	s.logger.Info("batch started",
		zap.String("batch_id", batchID),
		zap.Int("items", len(items)),
		zap.Int("workers", s.config.Workers),
	)

	queue := make(chan Item, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	var mu sync.Mutex
	var g errgroup.Group
	for i := 0; i < s.config.Workers; i++ {
		g.Go(func() error {
			for item := range queue {
				res := s.pipeline.Process(ctx, item)

				mu.Lock()
				report.Results = append(report.Results, res)
				report.ProcessedItems++
				if res.Success {
					report.SuccessfulItems++
				} else {
					report.FailedItems++
					report.Errors = append(report.Errors,
						fmt.Sprintf("item %s: %s", item.ID, res.ErrorMessage))
				}
				tracker.Update(1)
				if s.config.OnProgress != nil {
					s.config.OnProgress(tracker.Snapshot())
				}
				mu.Unlock()

				if s.collector != nil {
					s.collector.RecordBatchItem(res.Success,
						time.Duration(res.ProcessingSeconds*float64(time.Second)))
				}
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return an error; failures live in results

	completed := time.Now()
	report.CompletedAt = &completed
	report.TotalSeconds = completed.Sub(start).Seconds()
	if report.ProcessedItems > 0 {
		report.AverageSeconds = report.TotalSeconds / float64(report.ProcessedItems)
	}
	s.state.Store(int32(StateCompleted))

	if s.collector != nil {
		s.collector.RecordBatch(completed.Sub(start))
	}
	if s.reports != nil {
		if err := s.reports.Save(report); err != nil {
			s.logger.Warn("persist batch report",
				zap.String("batch_id", batchID), zap.Error(err))
		}
	}

	s.logger.Info("batch completed",
		zap.String("batch_id", batchID),
		zap.Int("successful", report.SuccessfulItems),
		zap.Int("failed", report.FailedItems),
		zap.Duration("elapsed", completed.Sub(start)),
	)
	return report, nil
}

// validateItems rejects item lists that cannot produce a well-formed report:
// empty batches, blank ids, and duplicate ids (one result per id).
func validateItems(items []Item) error {
	if len(items) == 0 {
		return ErrEmptyBatch
	}
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.ID == "" {
			return fmt.Errorf("batch item %d: blank id", i)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("batch item %d: duplicate id %q", i, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

func newBatchID() string {
	return fmt.Sprintf("batch_%s_%s",
		time.Now().Format("20060102_150405"), uuid.NewString()[:8])
}
