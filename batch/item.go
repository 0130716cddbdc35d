package batch

import "time"

// Item is a single unit of work submitted to a batch.
type Item struct {
	ID               string         `json:"id"`
	Prompt           string         `json:"prompt"`
	TargetLLM        string         `json:"target_llm"`
	OptimizationType string         `json:"optimization_type,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Result records the outcome of processing one item.
type Result struct {
	ItemID            string         `json:"item_id"`
	OriginalPrompt    string         `json:"original_prompt"`
	OptimizedPrompt   string         `json:"optimized_prompt"`
	FormattedPrompt   string         `json:"formatted_prompt"`
	TargetLLM         string         `json:"target_llm"`
	ProcessingSeconds float64        `json:"processing_time_seconds"`
	Success           bool           `json:"success"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	Analysis          map[string]any `json:"analysis,omitempty"`
	RoutingMetadata   map[string]any `json:"routing_metadata,omitempty"`
	CacheHit          bool           `json:"cache_hit"`
}

// Report is the complete record of one batch run, with exactly one result
// per submitted item.
type Report struct {
	BatchID         string     `json:"batch_id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	TotalItems      int        `json:"total_items"`
	ProcessedItems  int        `json:"processed_items"`
	SuccessfulItems int        `json:"successful_items"`
	FailedItems     int        `json:"failed_items"`
	TotalSeconds    float64    `json:"total_time_seconds"`
	AverageSeconds  float64    `json:"average_time_per_item"`
	Results         []Result   `json:"results"`
	Errors          []string   `json:"errors"`
}
