// =============================================================================
// Prompt router configuration loader
// =============================================================================
// Unified configuration loading: YAML file + environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("PROMPTROUTER").
//	    Load()
//
// Precedence: defaults -> YAML file -> environment variables.
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full prompt router configuration tree.
type Config struct {
	// Cache fingerprint cache settings
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Batch batch engine settings
	Batch BatchConfig `yaml:"batch" env:"BATCH"`

	// Router prompt routing settings
	Router RouterConfig `yaml:"router" env:"ROUTER"`

	// Analytics analysis history settings
	Analytics AnalyticsConfig `yaml:"analytics" env:"ANALYTICS"`

	// API outbound LLM API settings
	API APIConfig `yaml:"api" env:"API"`

	// Log logging settings
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics metrics exposition settings
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// CacheConfig configures the fingerprint cache store.
type CacheConfig struct {
	// Directory holding the metadata database and blobs
	Dir string `yaml:"dir" env:"DIR"`
	// Cumulative size budget in bytes; 0 disables capacity eviction
	MaxSizeBytes int64 `yaml:"max_size_bytes" env:"MAX_SIZE_BYTES"`
	// TTL applied when a put does not carry one
	DefaultTTL time.Duration `yaml:"default_ttl" env:"DEFAULT_TTL"`
}

// BatchConfig configures the batch engine.
type BatchConfig struct {
	// Concurrent worker bound
	Workers int `yaml:"workers" env:"WORKERS"`
	// Directory where finished reports are persisted
	ReportsDir string `yaml:"reports_dir" env:"REPORTS_DIR"`
	// Whether items run the analyzer
	EnableAnalysis bool `yaml:"enable_analysis" env:"ENABLE_ANALYSIS"`
	// Whether items consult the fingerprint cache
	EnableCache bool `yaml:"enable_cache" env:"ENABLE_CACHE"`
	// TTL for cached item payloads; 0 uses the cache default
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// RouterConfig configures prompt routing.
type RouterConfig struct {
	// Directory holding <target>_template.txt files
	TemplatesDir string `yaml:"templates_dir" env:"TEMPLATES_DIR"`
	// Target used when a request names none
	DefaultTarget string `yaml:"default_target" env:"DEFAULT_TARGET"`
}

// AnalyticsConfig configures analysis history storage.
type AnalyticsConfig struct {
	// Whether analyses are persisted at all
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Path of the history sqlite database
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH"`
}

// APIConfig configures the outbound LLM API client.
type APIConfig struct {
	ClaudeAPIKey   string `yaml:"claude_api_key" env:"CLAUDE_API_KEY"`
	OpenAIAPIKey   string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	CursorAPIKey   string `yaml:"cursor_api_key" env:"CURSOR_API_KEY"`
	CursorEndpoint string `yaml:"cursor_endpoint" env:"CURSOR_ENDPOINT"`
	// Outbound rate bound
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Burst             int     `yaml:"burst" env:"BURST"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json or console
	Format string `yaml:"format" env:"FORMAT"`
	// Output paths, stdout/stderr or files
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// Whether to annotate entries with caller information
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// MetricsConfig configures metrics exposition.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Prometheus metric namespace
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// =============================================================================
// Loader
// =============================================================================

// Loader builds a Config (builder pattern).
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "PROMPTROUTER",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator appends a configuration validator.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration: defaults -> YAML file -> env vars.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file is not an error; defaults apply.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// setFieldsFromEnv walks the struct recursively, overriding from
// <prefix>_<ENV_TAG> variables.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Comma-separated string slices.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// MustLoad loads the configuration, panicking on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []string

	if c.Batch.Workers <= 0 {
		errs = append(errs, "batch workers must be positive")
	}
	if c.Cache.MaxSizeBytes < 0 {
		errs = append(errs, "cache max_size_bytes must not be negative")
	}
	if c.API.RequestsPerSecond <= 0 {
		errs = append(errs, "api requests_per_second must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
