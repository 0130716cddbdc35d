// =============================================================================
// Default configuration values
// =============================================================================
package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	base := defaultDataDir()

	return &Config{
		Cache: CacheConfig{
			Dir:          filepath.Join(base, "cache"),
			MaxSizeBytes: 100 * 1024 * 1024,
			DefaultTTL:   24 * time.Hour,
		},
		Batch: BatchConfig{
			Workers:        4,
			ReportsDir:     filepath.Join(base, "batch_reports"),
			EnableAnalysis: true,
			EnableCache:    true,
		},
		Router: RouterConfig{
			TemplatesDir:  filepath.Join(base, "templates"),
			DefaultTarget: "universal",
		},
		Analytics: AnalyticsConfig{
			Enabled:      true,
			DatabasePath: filepath.Join(base, "analytics", "history.db"),
		},
		API: APIConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Log: LogConfig{
			Level:        "info",
			Format:       "json",
			OutputPaths:  []string{"stdout"},
			EnableCaller: false,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "promptrouter",
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "promptrouter")
	}
	return filepath.Join(os.TempDir(), "promptrouter")
}
