// =============================================================================
// promptrouter entry point
// =============================================================================
// Command line front end for the prompt pipeline.
//
// Usage:
//
//	promptrouter optimize "refactor this function" --target claude
//	promptrouter batch --input prompts.csv --export results.csv
//	promptrouter cache stats
//	promptrouter cache invalidate --tags claude,batch
//	promptrouter analytics --days 7
//	promptrouter version
// =============================================================================
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/promptrouter"
	"github.com/BaSui01/promptrouter/batch"
	"github.com/BaSui01/promptrouter/ingest"
)

// =============================================================================
// Version information (injected at build time)
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "optimize":
		runOptimize(os.Args[2:])
	case "batch":
		runBatch(os.Args[2:])
	case "cache":
		runCache(os.Args[2:])
	case "analytics":
		runAnalytics(os.Args[2:])
	case "reports":
		runReports(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// newService builds a Service from the optional config file path, exiting on
// failure. The caller is responsible for Close.
func newService(configPath string) *promptrouter.Service {
	opts := []promptrouter.Option{}
	if configPath != "" {
		opts = append(opts, promptrouter.WithConfigFile(configPath))
	}
	svc, err := promptrouter.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	return svc
}

// =============================================================================
// optimize command
// =============================================================================

func runOptimize(args []string) {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	target := fs.String("target", "auto", "Target LLM: claude, openai, cursor, universal or auto")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	fs.Parse(args)

	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "optimize: a prompt argument is required")
		os.Exit(1)
	}

	svc := newService(*configPath)
	defer svc.Close()

	result, err := svc.Process(rootContext(), prompt, *target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "optimize: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		printJSON(result)
		return
	}
	fmt.Println(result.FormattedPrompt)
}

// =============================================================================
// batch command
// =============================================================================

func runBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	input := fs.String("input", "", "Input file: .csv or .json")
	export := fs.String("export", "", "Optional CSV file for the results")
	quiet := fs.Bool("quiet", false, "Suppress per-item progress output")
	fs.Parse(args)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "batch: --input is required")
		os.Exit(1)
	}

	svc := newService(*configPath)
	defer svc.Close()

	items, err := loadItems(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "batch: %v\n", err)
		os.Exit(1)
	}

	var onProgress func(batch.Progress)
	if !*quiet {
		onProgress = func(p batch.Progress) {
			fmt.Fprintf(os.Stderr, "\rprocessed %d/%d (%.1f%%)", p.CompletedItems, p.TotalItems, p.Percent)
		}
	}

	report, err := svc.RunBatch(rootContext(), items, onProgress)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "batch: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Batch %s: %d items, %d ok, %d failed in %.2fs\n",
		report.BatchID, report.ProcessedItems, report.SuccessfulItems,
		report.FailedItems, report.TotalSeconds)
	for _, msg := range report.Errors {
		fmt.Fprintf(os.Stderr, "  %s\n", msg)
	}

	if *export != "" {
		f, err := os.Create(*export)
		if err != nil {
			fmt.Fprintf(os.Stderr, "batch export: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := ingest.ExportCSV(f, report); err != nil {
			fmt.Fprintf(os.Stderr, "batch export: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Results written to %s\n", *export)
	}
}

func loadItems(path string) ([]batch.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	logger := zap.NewNop()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ingest.FromCSV(f, ingest.DefaultCSVOptions(), logger)
	case ".json":
		return ingest.FromJSON(f, logger)
	default:
		return nil, fmt.Errorf("unsupported input format %q, expected .csv or .json", filepath.Ext(path))
	}
}

// =============================================================================
// cache command
// =============================================================================

func runCache(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "cache: a subcommand is required: stats, clear, invalidate")
		os.Exit(1)
	}
	sub := args[0]

	fs := flag.NewFlagSet("cache "+sub, flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	tags := fs.String("tags", "", "Comma separated tags (invalidate)")
	fs.Parse(args[1:])

	svc := newService(*configPath)
	defer svc.Close()

	switch sub {
	case "stats":
		stats, err := svc.CacheStats()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cache stats: %v\n", err)
			os.Exit(1)
		}
		printJSON(stats)
	case "clear":
		if err := svc.ClearCache(); err != nil {
			fmt.Fprintf(os.Stderr, "cache clear: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cache cleared")
	case "invalidate":
		if *tags == "" {
			fmt.Fprintln(os.Stderr, "cache invalidate: --tags is required")
			os.Exit(1)
		}
		removed, err := svc.InvalidateCache(strings.Split(*tags, ","))
		if err != nil {
			fmt.Fprintf(os.Stderr, "cache invalidate: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Invalidated %d entries\n", removed)
	default:
		fmt.Fprintf(os.Stderr, "cache: unknown subcommand %q\n", sub)
		os.Exit(1)
	}
}

// =============================================================================
// analytics and reports commands
// =============================================================================

func runAnalytics(args []string) {
	fs := flag.NewFlagSet("analytics", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	days := fs.Int("days", 30, "Period to aggregate in days")
	fs.Parse(args)

	svc := newService(*configPath)
	defer svc.Close()

	summary, err := svc.AnalyticsSummary(*days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analytics: %v\n", err)
		os.Exit(1)
	}
	printJSON(summary)
}

func runReports(args []string) {
	fs := flag.NewFlagSet("reports", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	days := fs.Int("days", 30, "Period to aggregate in days")
	fs.Parse(args)

	svc := newService(*configPath)
	defer svc.Close()

	summary, err := svc.ReportSummary(*days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reports: %v\n", err)
		os.Exit(1)
	}
	printJSON(summary)
}

// =============================================================================
// Helpers
// =============================================================================

// rootContext is cancelled by SIGINT or SIGTERM so long running batches can
// wind down instead of being killed mid-item.
func rootContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("promptrouter %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`promptrouter - prompt optimization, routing and batch processing

Usage:
  promptrouter <command> [options]

Commands:
  optimize    Optimize and route one prompt
  batch       Process a CSV or JSON file of prompts
  cache       Cache maintenance: stats, clear, invalidate
  analytics   Aggregate analysis history
  reports     Aggregate persisted batch reports
  version     Show version information
  help        Show this help message

Common options:
  --config <path>   Path to configuration file (YAML)

Options for 'optimize':
  --target <llm>    claude, openai, cursor, universal or auto (default auto)
  --json            Print the full result as JSON

Options for 'batch':
  --input <path>    Input file, .csv or .json (required)
  --export <path>   Write per-item results to a CSV file
  --quiet           Suppress progress output

Options for 'cache invalidate':
  --tags <a,b>      Tags whose entries should be removed`)
}
