// Package analyzer scores prompts on complexity, readability, structure and
// quality, and suggests improvements. Analyses can be persisted to a local
// history database for trend reporting.
package analyzer

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Analysis is the full scoring of one prompt.
type Analysis struct {
	Prompt    string    `json:"prompt"`
	Timestamp time.Time `json:"timestamp"`
	TargetLLM string    `json:"target_llm"`

	CharCount      int `json:"char_count"`
	WordCount      int `json:"word_count"`
	SentenceCount  int `json:"sentence_count"`
	ParagraphCount int `json:"paragraph_count"`
	TokenCount     int `json:"token_count"`

	ComplexityScore  float64 `json:"complexity_score"`
	ReadabilityScore float64 `json:"readability_score"`
	TechnicalDensity float64 `json:"technical_density"`

	Language         string  `json:"language"`
	SentimentScore   float64 `json:"sentiment_score"`
	QuestionRatio    float64 `json:"question_ratio"`
	InstructionRatio float64 `json:"instruction_ratio"`

	HasStructure  bool   `json:"has_structure"`
	StructureType string `json:"structure_type"`
	CodeBlocks    int    `json:"code_blocks"`
	ListsCount    int    `json:"lists_count"`

	ClarityScore      float64 `json:"clarity_score"`
	SpecificityScore  float64 `json:"specificity_score"`
	CompletenessScore float64 `json:"completeness_score"`

	OptimizationPotential float64  `json:"optimization_potential"`
	SuggestedImprovements []string `json:"suggested_improvements"`
}

var technicalTerms = []string{
	"function", "code", "algorithm", "variable", "class", "method", "debug", "api",
	"machine learning", "artificial intelligence", "model", "training", "dataset",
	"strategy", "roi", "kpi", "analysis", "market", "sales", "marketing",
	"research", "study", "theory", "hypothesis", "evidence",
}

var (
	instructionPattern = regexp.MustCompile(`(?:create|make|develop|implement|write|analyze|explain|describe)|(?:please|i need|i would like|could you)|(?:step by step|detailed|specific|clear)`)
	questionPattern    = regexp.MustCompile(`\?|(?:\bhow\b|\bwhen\b|\bwhere\b|\bwhy\b|\bwhat\b|\bwhich\b)|(?:is it possible|can you|are you able)`)
	sentenceSplit      = regexp.MustCompile(`[.!?]+`)
	xmlTag             = regexp.MustCompile(`<\w+>`)
	markdownHeading    = regexp.MustCompile(`#{1,6}\s`)
	bulletLine         = regexp.MustCompile(`(?m)^\s*[-*]\s`)
	numberedLine       = regexp.MustCompile(`(?m)^\s*\d+\.\s`)
	digits             = regexp.MustCompile(`\d+`)
)

var (
	clarityIndicators      = []string{"clear", "specific", "detailed", "precise"}
	completenessIndicators = []string{"complete", "comprehensive", "all", "include"}
	positiveWords          = []string{"good", "great", "excellent", "best"}
	negativeWords          = []string{"bad", "terrible", "worst", "error"}
	specificityWords       = []string{"specific", "detailed", "exact", "precise"}
)

// tokenizer is shared process-wide; tiktoken encoding setup is not free.
var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

// PromptAnalyzer computes Analysis values. Stateless and safe for
// concurrent use.
type PromptAnalyzer struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *PromptAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptAnalyzer{
		logger: logger.With(zap.String("component", "analyzer")),
	}
}

// Analyze scores prompt for targetLLM.
func (a *PromptAnalyzer) Analyze(_ context.Context, prompt, targetLLM string) (*Analysis, error) {
	words := strings.Fields(prompt)
	lower := strings.ToLower(prompt)

	an := &Analysis{
		Prompt:    prompt,
		Timestamp: time.Now(),
		TargetLLM: targetLLM,

		CharCount:      len(prompt),
		WordCount:      len(words),
		SentenceCount:  countSentences(prompt),
		ParagraphCount: countParagraphs(prompt),
		TokenCount:     a.countTokens(prompt),
	}

	an.TechnicalDensity = technicalDensity(words)
	an.ComplexityScore = complexity(prompt, words, an.TechnicalDensity)
	an.ReadabilityScore = readability(prompt)

	an.Language = detectLanguage(lower)
	an.SentimentScore = sentiment(lower, len(words))
	an.QuestionRatio = patternRatio(questionPattern, lower, len(words))
	an.InstructionRatio = patternRatio(instructionPattern, lower, len(words))

	an.HasStructure, an.StructureType = structure(prompt)
	an.CodeBlocks = strings.Count(prompt, "```")
	an.ListsCount = len(bulletLine.FindAllString(prompt, -1)) +
		len(numberedLine.FindAllString(prompt, -1))

	an.ClarityScore = indicatorScore(lower, clarityIndicators)
	an.SpecificityScore = specificity(prompt, lower)
	an.CompletenessScore = completeness(lower, len(words))

	an.OptimizationPotential, an.SuggestedImprovements = optimizationPotential(prompt, lower, targetLLM, len(words))

	a.logger.Debug("prompt analyzed",
		zap.String("target_llm", targetLLM),
		zap.Int("words", an.WordCount),
		zap.Float64("complexity", an.ComplexityScore),
	)
	return an, nil
}

// countTokens uses the cl100k_base encoding when available and falls back to
// a chars/4 estimate; the encoding tables may be unavailable offline.
func (a *PromptAnalyzer) countTokens(prompt string) int {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			a.logger.Warn("tiktoken unavailable, estimating token counts", zap.Error(err))
			return
		}
		tokenizer = enc
	})
	if tokenizer == nil {
		return (len(prompt) + 3) / 4
	}
	return len(tokenizer.Encode(prompt, nil, nil))
}

func countSentences(prompt string) int {
	n := 0
	for _, s := range sentenceSplit.Split(strings.TrimSpace(prompt), -1) {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

func countParagraphs(prompt string) int {
	n := 0
	for _, p := range strings.Split(prompt, "\n\n") {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

func technicalDensity(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	hits := 0
	for _, word := range words {
		wl := strings.ToLower(word)
		for _, term := range technicalTerms {
			if strings.Contains(wl, term) {
				hits++
			}
		}
	}
	return float64(hits) / float64(len(words))
}

func complexity(prompt string, words []string, density float64) float64 {
	if len(words) == 0 {
		return 0
	}
	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLen := float64(totalLen) / float64(len(words))

	score := min(float64(len(prompt))/1000, 1.0)*0.3 +
		min(avgWordLen/10, 1.0)*0.3 +
		min(density*5, 1.0)*0.2 +
		min(float64(strings.Count(prompt, ","))/10, 1.0)*0.1 +
		min(float64(strings.Count(prompt, "("))/5, 1.0)*0.1
	return score
}

// readability rewards sentences near 15 words.
func readability(prompt string) float64 {
	var lengths []int
	for _, s := range sentenceSplit.Split(strings.TrimSpace(prompt), -1) {
		if strings.TrimSpace(s) != "" {
			lengths = append(lengths, len(strings.Fields(s)))
		}
	}
	if len(lengths) == 0 {
		return 1
	}
	total := 0
	for _, l := range lengths {
		total += l
	}
	avg := float64(total) / float64(len(lengths))
	return max(0, 1-(avg-15)/20)
}

var (
	portugueseIndicators = []string{"e ", "o ", "de ", "em ", "para ", "com ", "não ", "é ", "do ", "da "}
	englishIndicators    = []string{"the ", "and ", "an ", "of ", "in ", "for ", "with ", "is ", "are ", "a "}
)

func detectLanguage(lower string) string {
	var pt, en int
	for _, ind := range portugueseIndicators {
		if strings.Contains(lower, ind) {
			pt++
		}
	}
	for _, ind := range englishIndicators {
		if strings.Contains(lower, ind) {
			en++
		}
	}
	switch {
	case pt > en:
		return "pt"
	case en > 0:
		return "en"
	default:
		return "unknown"
	}
}

func sentiment(lower string, wordCount int) float64 {
	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	score := float64(pos-neg) / max(float64(wordCount)/10, 1)
	return max(-1, min(1, score))
}

func patternRatio(pattern *regexp.Regexp, lower string, wordCount int) float64 {
	matches := len(pattern.FindAllString(lower, -1))
	return min(1, float64(matches)/max(float64(wordCount)/20, 1))
}

func structure(prompt string) (bool, string) {
	switch {
	case xmlTag.MatchString(prompt):
		return true, "xml"
	case markdownHeading.MatchString(prompt) || strings.Contains(prompt, "```"):
		return true, "markdown"
	case bulletLine.MatchString(prompt) || numberedLine.MatchString(prompt):
		return true, "list"
	default:
		return false, "plain"
	}
}

func indicatorScore(lower string, indicators []string) float64 {
	hits := 0
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			hits++
		}
	}
	return min(1.0, float64(hits)/2)
}

func specificity(prompt, lower string) float64 {
	numbers := len(digits.FindAllString(prompt, -1))
	hits := 0
	for _, w := range specificityWords {
		if strings.Contains(lower, w) {
			hits++
		}
	}
	return min(1.0, (float64(numbers)/5+float64(hits)/2)/2)
}

func completeness(lower string, wordCount int) float64 {
	hits := 0
	for _, ind := range completenessIndicators {
		if strings.Contains(lower, ind) {
			hits++
		}
	}
	lengthFactor := min(1.0, float64(wordCount)/20)
	return min(1.0, (float64(hits)/2+lengthFactor)/2)
}

func optimizationPotential(prompt, lower, targetLLM string, wordCount int) (float64, []string) {
	improvements := []string{}
	potential := 0.0

	switch {
	case wordCount < 10:
		improvements = append(improvements, "Prompt too short - add more context and details")
		potential += 0.3
	case wordCount > 500:
		improvements = append(improvements, "Prompt too long - consider splitting into smaller parts")
		potential += 0.2
	}

	if targetLLM == "claude" && !strings.Contains(prompt, "<instructions>") {
		improvements = append(improvements, "For Claude: consider XML tags such as <instructions>")
		potential += 0.2
	}

	if targetLLM == "cursor" &&
		!containsAny(lower, "code", "function", "programming") &&
		containsAny(lower, "create", "develop", "implement") {
		improvements = append(improvements, "For Cursor: be more specific about the programming context")
		potential += 0.15
	}

	if wordCount > 20 && !containsAny(lower, "please", "i need", "i would like") {
		improvements = append(improvements, "Consider adding more courteous, specific language")
		potential += 0.1
	}

	if strings.Contains(prompt, "?") && !strings.Contains(lower, "how") {
		improvements = append(improvements, "For questions, be specific about the kind of answer expected")
		potential += 0.15
	}

	return min(1.0, potential), improvements
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
