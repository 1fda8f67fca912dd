package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimlens/internal/logging"
	"github.com/ppiankov/claimlens/internal/report"
	"github.com/ppiankov/claimlens/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file.jsonl>",
	Short: "Analyze many articles from a JSON Lines file in parallel",
	Long: `Batch runs one analysis per line of a JSON Lines file. Each line is an
analysis request with an optional id:

  {"id": "budget", "query": "council budget", "targetArticle": {"title": "...", "text": "..."}}

Blank lines and lines starting with # are ignored. A JSON and a Markdown
report are written per successful analysis.

Example:
  claimlens batch articles.jsonl
  claimlens batch articles.jsonl --concurrency 4 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent analyses (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./claimlens-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.BatchWorkers
	}

	reqs, err := worker.ReadRequestsFromFile(file)
	if err != nil {
		return fmt.Errorf("read requests: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s (%d requests)\n", file, len(reqs))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	processor := worker.NewBatchProcessor(a.orchestrator, concurrency, logging.Component("batch"))
	results := processor.Process(ctx, reqs)

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if err := result.GetError(); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.ID, err)
			continue
		}

		rec := outcomeRecord(reqs[result.Index].AnalysisRequest, result.Outcome)
		slug := sanitizeFilename(result.ID)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")
		if err := report.WriteFiles(rec, jsonPath, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.ID, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (risk: %d/100)\n", result.ID, rec.Report.OverallAssessment.MisleadingRiskScore)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d analyses failed", failureCount, len(results))
	}
	return nil
}

// sanitizeFilename makes s safe to use as a file name
func sanitizeFilename(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	s = replacer.Replace(s)
	s = strings.Trim(s, ".")
	if s == "" {
		return "analysis"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
