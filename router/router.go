// Package router formats optimized prompts for their destination LLM. A
// per-target template from the template directory wins when present;
// otherwise a built-in basic format applies. The "auto" target picks the
// destination by scoring content indicators.
package router

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TargetAuto asks the router to pick the destination itself.
const TargetAuto = "auto"

const templateSuffix = "_template.txt"

var ErrEmptyPrompt = errors.New("empty prompt")

// Content indicators used for automatic target detection. Scored in order;
// the first strict maximum wins and a zero-score prompt defaults to claude.
var routingIndicators = []struct {
	target     string
	indicators []string
}{
	{"claude", []string{
		"detailed analysis", "critical thinking", "complex context",
		"reasoning", "argumentation", "deep analysis",
	}},
	{"openai", []string{
		"creative writing", "brainstorm", "creative ideas",
		"storytelling", "marketing", "copywriting",
	}},
	{"cursor", []string{
		"code", "programming", "debug", "function", "class",
		"algorithm", "refactoring", "code review",
	}},
}

// Metadata describes one routing decision.
type Metadata struct {
	WordCount         int     `json:"word_count"`
	CharCount         int     `json:"char_count"`
	HasCode           bool    `json:"has_code"`
	ComplexityScore   float64 `json:"complexity_score"`
	LanguageDetected  string  `json:"language_detected"`
	RoutingConfidence float64 `json:"routing_confidence"`
}

// Result is a fully formatted prompt plus everything known about how it got
// that way.
type Result struct {
	FormattedPrompt string    `json:"formatted_prompt"`
	TargetLLM       string    `json:"target_llm"`
	TemplateUsed    string    `json:"template_used"`
	Timestamp       time.Time `json:"timestamp"`
	PromptLength    int       `json:"prompt_length"`
	OriginalLength  int       `json:"original_length"`
	Metadata        Metadata  `json:"metadata"`
}

// Router formats prompts per target. Loaded templates are cached for the
// router's lifetime; safe for concurrent use.
type Router struct {
	templatesDir string
	logger       *zap.Logger

	mu        sync.RWMutex
	templates map[string]string
}

// New creates a router reading templates from templatesDir. The directory
// may be empty or absent; basic formatting covers every target without one.
func New(templatesDir string, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		templatesDir: templatesDir,
		logger:       logger.With(zap.String("component", "router")),
		templates:    make(map[string]string),
	}
}

// Route formats prompt for target. TargetAuto resolves the target from the
// prompt's content first.
func (r *Router) Route(_ context.Context, prompt, target string) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	if target == TargetAuto {
		target = r.detectTarget(prompt)
		r.logger.Debug("target auto-detected", zap.String("target_llm", target))
	}

	now := time.Now()
	templateName := target + "_template"
	formatted := ""
	templateUsed := templateName

	if tpl, ok := r.loadTemplate(target); ok {
		formatted = applyTemplate(tpl, prompt, now)
	} else {
		formatted = formatBasic(prompt, target)
		templateUsed = "basic_format"
	}

	r.logger.Debug("prompt routed",
		zap.String("target_llm", target),
		zap.String("template", templateUsed),
	)
	return &Result{
		FormattedPrompt: formatted,
		TargetLLM:       target,
		TemplateUsed:    templateUsed,
		Timestamp:       now,
		PromptLength:    len(formatted),
		OriginalLength:  len(prompt),
		Metadata: Metadata{
			WordCount:         len(strings.Fields(prompt)),
			CharCount:         len(prompt),
			HasCode:           hasCode(prompt),
			ComplexityScore:   complexityScore(prompt),
			LanguageDetected:  detectLanguage(prompt),
			RoutingConfidence: routingConfidence(prompt, target),
		},
	}, nil
}

// AvailableTemplates lists the template names present on disk, sorted.
func (r *Router) AvailableTemplates() []string {
	matches, err := filepath.Glob(filepath.Join(r.templatesDir, "*"+templateSuffix))
	if err != nil || len(matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".txt"))
	}
	return names
}

func (r *Router) detectTarget(prompt string) string {
	lower := strings.ToLower(prompt)

	best, bestScore := "claude", 0
	for _, rule := range routingIndicators {
		score := 0
		for _, ind := range rule.indicators {
			if strings.Contains(lower, ind) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = rule.target, score
		}
	}
	return best
}

// loadTemplate returns the template for target, reading it from disk at most
// once. A missing or unreadable file is not an error; formatting falls back.
func (r *Router) loadTemplate(target string) (string, bool) {
	r.mu.RLock()
	tpl, ok := r.templates[target]
	r.mu.RUnlock()
	if ok {
		return tpl, tpl != ""
	}

	data, err := os.ReadFile(filepath.Join(r.templatesDir, target+templateSuffix))
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("template unreadable",
				zap.String("target_llm", target), zap.Error(err))
		}
		// Negative-cache as empty so the miss is not retried per item.
		r.mu.Lock()
		r.templates[target] = ""
		r.mu.Unlock()
		return "", false
	}

	tpl = string(data)
	r.mu.Lock()
	r.templates[target] = tpl
	r.mu.Unlock()
	r.logger.Debug("template loaded", zap.String("target_llm", target))
	return tpl, true
}

// applyTemplate fills the {prompt}, {timestamp}, {date} and {time}
// placeholders.
func applyTemplate(tpl, prompt string, now time.Time) string {
	return strings.NewReplacer(
		"{prompt}", prompt,
		"{timestamp}", now.Format("2006-01-02 15:04:05"),
		"{date}", now.Format("2006-01-02"),
		"{time}", now.Format("15:04:05"),
	).Replace(tpl)
}

func formatBasic(prompt, target string) string {
	switch target {
	case "claude":
		return fmt.Sprintf("<instructions>\n%s\n</instructions>\n\nPlease process this request in a detailed, structured way.", prompt)
	case "openai":
		return fmt.Sprintf("System: You are a helpful, precise AI assistant.\n\nUser: %s\n\nProvide a clear, detailed answer.", prompt)
	case "cursor":
		return fmt.Sprintf("# Cursor AI Assistant\n\n**Prompt:**\n%s\n\n**Instructions:**\n- Focus on practical, efficient solutions\n- Include code examples where relevant\n- Explain the reasoning behind suggestions", prompt)
	default:
		return fmt.Sprintf("**Prompt:**\n%s\n\n**Instructions:**\n- Analyze the request carefully\n- Provide a structured, detailed answer\n- Be precise and useful", prompt)
	}
}

func hasCode(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, ind := range []string{"def ", "function", "class ", "import ", "```", "func "} {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

// complexityScore folds length, vocabulary, structure and question density
// into a 0..1 score.
func complexityScore(prompt string) float64 {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return 0
	}

	long := 0
	for _, w := range words {
		if len(w) > 8 {
			long++
		}
	}
	structure := strings.Count(prompt, "\n") + strings.Count(prompt, ".") + strings.Count(prompt, ":")

	score := min(float64(len(prompt))/1000, 1.0)*0.3 +
		float64(long)/float64(len(words))*0.3 +
		float64(structure)/50*0.2 +
		float64(strings.Count(prompt, "?"))/10*0.2
	return min(score, 1.0)
}

var (
	portugueseWords = map[string]struct{}{
		"e": {}, "o": {}, "de": {}, "em": {}, "para": {},
		"com": {}, "não": {}, "um": {}, "uma": {}, "que": {},
	}
	englishWords = map[string]struct{}{
		"and": {}, "the": {}, "an": {}, "of": {}, "in": {},
		"for": {}, "with": {}, "not": {}, "is": {}, "a": {},
	}
)

// detectLanguage is a crude stop-word counter, good enough for routing
// metadata.
func detectLanguage(prompt string) string {
	var pt, en int
	for _, word := range strings.Fields(strings.ToLower(prompt)) {
		if _, ok := portugueseWords[word]; ok {
			pt++
		}
		if _, ok := englishWords[word]; ok {
			en++
		}
	}
	switch {
	case pt > en:
		return "pt"
	case en > pt:
		return "en"
	default:
		return "unknown"
	}
}

func routingConfidence(prompt, target string) float64 {
	lower := strings.ToLower(prompt)
	for _, rule := range routingIndicators {
		if rule.target != target {
			continue
		}
		matches := 0
		for _, ind := range rule.indicators {
			if strings.Contains(lower, ind) {
				matches++
			}
		}
		switch {
		case matches == 0:
			return 0.3
		case matches <= 2:
			return 0.7
		default:
			return 0.9
		}
	}
	return 0.3
}
