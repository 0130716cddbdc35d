package analyzer

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Record is one persisted analysis row.
type Record struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	TargetLLM string `gorm:"index;size:32" json:"target_llm"`
	Language  string `gorm:"size:16" json:"language"`
	Prompt    string `json:"prompt"`

	WordCount  int `json:"word_count"`
	TokenCount int `json:"token_count"`

	ComplexityScore       float64 `json:"complexity_score"`
	ReadabilityScore      float64 `json:"readability_score"`
	ClarityScore          float64 `json:"clarity_score"`
	SpecificityScore      float64 `json:"specificity_score"`
	CompletenessScore     float64 `json:"completeness_score"`
	OptimizationPotential float64 `json:"optimization_potential"`

	// Improvements is the suggested-improvements list as a JSON array.
	Improvements string `json:"improvements"`
}

// Storage keeps analysis history in a local sqlite database.
type Storage struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenStorage opens (creating and migrating if needed) the history database
// at path. ":memory:" works for throwaway instances.
func OpenStorage(path string, logger *zap.Logger) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open analytics storage: %w", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate analytics storage: %w", err)
	}

	return &Storage{
		db:     db,
		logger: logger.With(zap.String("component", "analytics_storage")),
	}, nil
}

// Save appends one analysis to the history.
func (s *Storage) Save(an *Analysis) error {
	improvements, err := json.Marshal(an.SuggestedImprovements)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}

	rec := Record{
		CreatedAt:             an.Timestamp,
		TargetLLM:             an.TargetLLM,
		Language:              an.Language,
		Prompt:                an.Prompt,
		WordCount:             an.WordCount,
		TokenCount:            an.TokenCount,
		ComplexityScore:       an.ComplexityScore,
		ReadabilityScore:      an.ReadabilityScore,
		ClarityScore:          an.ClarityScore,
		SpecificityScore:      an.SpecificityScore,
		CompletenessScore:     an.CompletenessScore,
		OptimizationPotential: an.OptimizationPotential,
		Improvements:          string(improvements),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	s.logger.Debug("analysis saved", zap.Uint("id", rec.ID))
	return nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// Count returns the number of stored analyses.
func (s *Storage) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&Record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count analyses: %w", err)
	}
	return n, nil
}

// Summary aggregates recent analysis history.
type Summary struct {
	PeriodDays             int                `json:"period_days"`
	TotalAnalyses          int                `json:"total_analyses"`
	AverageScores          map[string]float64 `json:"average_scores"`
	TopTargets             map[string]int     `json:"top_llm_targets"`
	ComplexityDistribution map[string]int     `json:"complexity_distribution"`
	LanguageDistribution   map[string]int     `json:"language_distribution"`
	CommonImprovements     []string           `json:"improvement_suggestions"`
	GeneratedAt            time.Time          `json:"generated_at"`
}

// Summary aggregates every analysis recorded within the last days days.
func (s *Storage) Summary(days int) (*Summary, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	var records []Record
	if err := s.db.Where("created_at >= ?", cutoff).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("analytics summary: %w", err)
	}

	summary := &Summary{
		PeriodDays:             days,
		TotalAnalyses:          len(records),
		AverageScores:          make(map[string]float64),
		TopTargets:             make(map[string]int),
		ComplexityDistribution: map[string]int{"low": 0, "medium": 0, "high": 0},
		LanguageDistribution:   make(map[string]int),
		GeneratedAt:            time.Now(),
	}
	if len(records) == 0 {
		return summary, nil
	}

	sums := map[string]float64{}
	improvementCounts := map[string]int{}
	for _, rec := range records {
		sums["complexity_score"] += rec.ComplexityScore
		sums["readability_score"] += rec.ReadabilityScore
		sums["clarity_score"] += rec.ClarityScore
		sums["specificity_score"] += rec.SpecificityScore
		sums["completeness_score"] += rec.CompletenessScore

		summary.TopTargets[rec.TargetLLM]++
		summary.LanguageDistribution[rec.Language]++

		switch {
		case rec.ComplexityScore < 0.3:
			summary.ComplexityDistribution["low"]++
		case rec.ComplexityScore < 0.7:
			summary.ComplexityDistribution["medium"]++
		default:
			summary.ComplexityDistribution["high"]++
		}

		var improvements []string
		if err := json.Unmarshal([]byte(rec.Improvements), &improvements); err == nil {
			for _, imp := range improvements {
				improvementCounts[imp]++
			}
		}
	}

	n := float64(len(records))
	for metric, sum := range sums {
		summary.AverageScores[metric] = sum / n
	}
	summary.CommonImprovements = topImprovements(improvementCounts, 5)
	return summary, nil
}

// topImprovements returns the n most frequent suggestions, most common
// first, ties broken alphabetically for stable output.
func topImprovements(counts map[string]int, n int) []string {
	type pair struct {
		text  string
		count int
	}
	pairs := make([]pair, 0, len(counts))
	for text, count := range counts {
		pairs = append(pairs, pair{text, count})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].text < pairs[j].text
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.text
	}
	return out
}
