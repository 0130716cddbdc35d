// Package promptrouter provides a top-level convenience entry point that
// assembles the whole prompt pipeline with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/promptrouter"
//
//	svc, err := promptrouter.New()
//	svc, err := promptrouter.New(promptrouter.WithConfigFile("config.yaml"))
//	svc, err := promptrouter.New(promptrouter.WithConfig(cfg), promptrouter.WithLogger(logger))
//
// A Service owns the fingerprint cache, the optimizer, the router, the
// analyzer with its history storage, and the batch machinery. Callers that
// need finer control wire the underlying packages directly.
package promptrouter

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/promptrouter/analyzer"
	"github.com/BaSui01/promptrouter/apiclient"
	"github.com/BaSui01/promptrouter/batch"
	"github.com/BaSui01/promptrouter/cache"
	"github.com/BaSui01/promptrouter/config"
	"github.com/BaSui01/promptrouter/internal/metrics"
	"github.com/BaSui01/promptrouter/optimizer"
	"github.com/BaSui01/promptrouter/router"
)

// Option configures the Service created by [New].
type Option func(*options)

type options struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
}

// WithConfig uses a pre-built configuration instead of the defaults.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigFile loads the configuration from a YAML file. Environment
// variables still override file values.
func WithConfigFile(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithLogger sets a custom zap logger. Defaults to one built from the
// resolved log configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Service bundles every pipeline stage behind a small API surface.
type Service struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector

	cache     *cache.Store
	optimizer *optimizer.PromptOptimizer
	router    *router.Router
	analyzer  *analyzer.PromptAnalyzer
	analytics *analyzer.Storage
	client    *apiclient.Client
	reports   *batch.ReportStore
	pipeline  *batch.Pipeline
}

// New assembles a Service from the resolved configuration. Every component
// is ready to use when New returns; Close releases them.
func New(opts ...Option) (*Service, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		loader := config.NewLoader()
		if o.configPath != "" {
			loader = loader.WithConfigPath(o.configPath)
		}
		loaded, err := loader.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := o.logger
	if logger == nil {
		logger = NewLogger(cfg.Log)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	store, err := cache.Open(cache.Config{
		Dir:          cfg.Cache.Dir,
		MaxSizeBytes: cfg.Cache.MaxSizeBytes,
		DefaultTTL:   cfg.Cache.DefaultTTL,
	}, logger, collector)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	svc := &Service{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		cache:     store,
		optimizer: optimizer.New(logger),
		router:    router.New(cfg.Router.TemplatesDir, logger),
		analyzer:  analyzer.New(logger),
		client: apiclient.New(apiclient.Config{
			ClaudeAPIKey:      cfg.API.ClaudeAPIKey,
			OpenAIAPIKey:      cfg.API.OpenAIAPIKey,
			CursorAPIKey:      cfg.API.CursorAPIKey,
			CursorEndpoint:    cfg.API.CursorEndpoint,
			RequestsPerSecond: cfg.API.RequestsPerSecond,
			Burst:             cfg.API.Burst,
		}, logger),
	}

	if cfg.Analytics.Enabled {
		svc.analytics, err = analyzer.OpenStorage(cfg.Analytics.DatabasePath, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open analytics: %w", err)
		}
	}

	svc.reports, err = batch.NewReportStore(cfg.Batch.ReportsDir, logger)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("open report store: %w", err)
	}

	svc.pipeline = batch.NewPipeline(
		batch.PipelineConfig{
			EnableAnalysis: cfg.Batch.EnableAnalysis,
			EnableCache:    cfg.Batch.EnableCache,
			CacheTTL:       cfg.Batch.CacheTTL,
		},
		store,
		svc.optimizer,
		batch.RouterAdapter{Router: svc.router},
		batch.AnalyzerAdapter{Analyzer: svc.analyzer, Storage: svc.analytics, Logger: logger},
		logger,
	)

	return svc, nil
}

// Process runs one prompt through the full pipeline, cache included, and
// returns its result. A failed stage surfaces as an error alongside the
// populated result.
func (s *Service) Process(ctx context.Context, prompt, targetLLM string) (*batch.Result, error) {
	if targetLLM == "" {
		targetLLM = s.cfg.Router.DefaultTarget
	}
	result := s.pipeline.Process(ctx, batch.Item{
		ID:        "adhoc",
		Prompt:    prompt,
		TargetLLM: targetLLM,
	})
	if !result.Success {
		return &result, fmt.Errorf("process prompt: %s", result.ErrorMessage)
	}
	return &result, nil
}

// RunBatch processes items through a fresh scheduler with the configured
// worker count. onProgress may be nil.
func (s *Service) RunBatch(ctx context.Context, items []batch.Item, onProgress func(batch.Progress)) (*batch.Report, error) {
	scheduler := batch.NewScheduler(batch.Config{
		Workers:    s.cfg.Batch.Workers,
		OnProgress: onProgress,
	}, s.pipeline, s.reports, s.logger, s.collector)
	return scheduler.Run(ctx, items)
}

// CacheStats reports the live state of the fingerprint cache.
func (s *Service) CacheStats() (*cache.Stats, error) {
	return s.cache.Stats()
}

// InvalidateCache removes every cache entry carrying any of the given tags
// and returns how many were removed.
func (s *Service) InvalidateCache(tags []string) (int, error) {
	return s.cache.InvalidateByTags(tags)
}

// ClearCache removes every cache entry.
func (s *Service) ClearCache() error {
	return s.cache.Clear()
}

// AnalyticsSummary aggregates analysis history for the last days days.
// Returns an error when analytics is disabled.
func (s *Service) AnalyticsSummary(days int) (*analyzer.Summary, error) {
	if s.analytics == nil {
		return nil, fmt.Errorf("analytics disabled")
	}
	return s.analytics.Summary(days)
}

// ReportSummary aggregates persisted batch reports for the last days days.
func (s *Service) ReportSummary(days int) (*batch.Summary, error) {
	return s.reports.Summary(days)
}

// Client exposes the outbound LLM client for cost estimates and key checks.
func (s *Service) Client() *apiclient.Client {
	return s.client
}

// Router exposes the underlying router, for template inspection.
func (s *Service) Router() *router.Router {
	return s.router
}

// Close releases the cache and analytics databases. The Service must not be
// used afterwards.
func (s *Service) Close() error {
	var firstErr error
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			firstErr = err
		}
	}
	if s.analytics != nil {
		if err := s.analytics.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewLogger builds a zap logger from the log configuration. It never fails;
// invalid settings fall back to a production logger.
func NewLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	var zapOpts []zap.Option
	if cfg.EnableCaller {
		zapOpts = append(zapOpts, zap.AddCaller())
	}
	zapOpts = append(zapOpts, zap.AddStacktrace(zapcore.ErrorLevel))

	logger, err := zapConfig.Build(zapOpts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
