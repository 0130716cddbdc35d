// Package optimizer rewrites prompts according to the conventions of their
// destination LLM. Each target has its own rule set; a general cleanup pass
// runs first for every target.
package optimizer

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Supported target LLM identifiers.
const (
	TargetClaude    = "claude"
	TargetOpenAI    = "openai"
	TargetCursor    = "cursor"
	TargetUniversal = "universal"
)

var ErrEmptyPrompt = errors.New("empty prompt")

var (
	blankLines = regexp.MustCompile(`\n\s*\n`)
	runSpaces  = regexp.MustCompile(`[ \t]+`)
)

// PromptOptimizer applies per-target prompt rewrites. Safe for concurrent
// use; it holds no mutable state.
type PromptOptimizer struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *PromptOptimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptOptimizer{
		logger: logger.With(zap.String("component", "optimizer")),
	}
}

// Optimize rewrites prompt for targetLLM. Unknown targets receive only the
// general cleanup pass.
func (o *PromptOptimizer) Optimize(_ context.Context, prompt, targetLLM string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	optimized := generalCleanup(prompt)

	switch strings.ToLower(targetLLM) {
	case TargetClaude:
		optimized = optimizeForClaude(optimized)
	case TargetOpenAI:
		optimized = optimizeForOpenAI(optimized)
	case TargetCursor:
		optimized = optimizeForCursor(optimized)
	case TargetUniversal:
		optimized = optimizeUniversal(optimized)
	default:
		o.logger.Debug("unknown target, general cleanup only",
			zap.String("target_llm", targetLLM))
	}

	o.logger.Debug("prompt optimized",
		zap.String("target_llm", targetLLM),
		zap.Int("original_chars", len(prompt)),
		zap.Int("optimized_chars", len(optimized)),
	)
	return optimized, nil
}

// generalCleanup normalizes whitespace and guarantees terminal punctuation.
func generalCleanup(prompt string) string {
	prompt = blankLines.ReplaceAllString(prompt, "\n\n")
	prompt = runSpaces.ReplaceAllString(prompt, " ")
	prompt = strings.TrimSpace(prompt)

	if !strings.HasSuffix(prompt, ".") && !strings.HasSuffix(prompt, ":") &&
		!strings.HasSuffix(prompt, "?") && !strings.HasSuffix(prompt, "!") {
		prompt += "."
	}
	return prompt
}

// Claude responds best to explicit XML structure; prompts that already carry
// structural tags pass through unchanged.
func optimizeForClaude(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, tag := range []string{"<thinking>", "<instructions>", "<context>"} {
		if strings.Contains(lower, tag) {
			return prompt
		}
	}
	return "<instructions>\n" + prompt + "\n</instructions>\n\n" +
		"<thinking>\nI will analyze this request carefully and provide a detailed, useful answer.\n</thinking>"
}

// OpenAI models work well with an explicit role preamble.
func optimizeForOpenAI(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, prefix := range []string{"you are", "act as", "role:"} {
		if strings.HasPrefix(lower, prefix) {
			return prompt
		}
	}
	return "You are a specialized, helpful assistant. " + prompt
}

const cursorCodeContext = `As an experienced development assistant, consider:
- Code best practices
- Readability and maintainability
- Language idioms
- Explanatory comments where needed

`

// Cursor is code-focused; non-code prompts are left alone.
func optimizeForCursor(prompt string) string {
	lower := strings.ToLower(prompt)
	isCode := false
	for _, kw := range []string{"code", "function", "class", "def ", "func "} {
		if strings.Contains(lower, kw) {
			isCode = true
			break
		}
	}
	if !isCode {
		return prompt
	}
	return cursorCodeContext + prompt
}

func optimizeUniversal(prompt string) string {
	return "Please carefully analyze the following request and provide a detailed, precise and useful answer:\n\n" +
		prompt +
		"\n\nAnswer in a structured, clear way, considering the context and details provided."
}

// Stats describes the effect of one optimization for reporting.
type Stats struct {
	OriginalLength   int     `json:"original_length"`
	OptimizedLength  int     `json:"optimized_length"`
	LengthChange     int     `json:"length_change"`
	OriginalWords    int     `json:"original_words"`
	OptimizedWords   int     `json:"optimized_words"`
	WordsChange      int     `json:"words_change"`
	HasStructure     bool    `json:"has_structure"`
	ImprovementRatio float64 `json:"improvement_ratio"`
}

// OptimizationStats compares a prompt before and after optimization.
func OptimizationStats(original, optimized string) Stats {
	origWords := len(strings.Fields(original))
	optWords := len(strings.Fields(optimized))

	hasStructure := false
	lower := strings.ToLower(optimized)
	for _, marker := range []string{"<", "```", "###", "---"} {
		if strings.Contains(lower, marker) {
			hasStructure = true
			break
		}
	}

	ratio := 1.0
	if len(original) > 0 {
		ratio = float64(len(optimized)) / float64(len(original))
	}

	return Stats{
		OriginalLength:   len(original),
		OptimizedLength:  len(optimized),
		LengthChange:     len(optimized) - len(original),
		OriginalWords:    origWords,
		OptimizedWords:   optWords,
		WordsChange:      optWords - origWords,
		HasStructure:     hasStructure,
		ImprovementRatio: ratio,
	}
}
