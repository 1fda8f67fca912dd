package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/report"
	"github.com/ppiankov/claimlens/internal/score"
)

var (
	query          string
	articleTitle   string
	articleURL     string
	articleDate    string
	maxReferences  int
	reputableOnly  bool
	jsonEvents     bool
	outJSON        string
	outMD          string
	analyzeTimeout time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <article>",
	Short: "Review every sentence of one article against reference reporting",
	Long: `Analyze reads an article, gathers reference articles for the query,
judges each sentence and prints the aggregate assessment.

The article file is either JSON ({"title", "text", "url", "date"}) or
plain text, in which case --title, --url and --date describe it.

Example:
  claimlens analyze article.json --query "city council budget vote"
  claimlens analyze story.txt --title "Budget passes" --query "council budget" --md report.md
  claimlens analyze article.json --query "..." --json-events | jq .type`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&query, "query", "q", "", "search query for reference articles (required)")
	analyzeCmd.Flags().StringVar(&articleTitle, "title", "", "article title (plain-text input)")
	analyzeCmd.Flags().StringVar(&articleURL, "url", "", "article URL (plain-text input)")
	analyzeCmd.Flags().StringVar(&articleDate, "date", "", "article publication date, e.g. 2025-03-01 (plain-text input)")
	analyzeCmd.Flags().IntVar(&maxReferences, "max-references", 0, "maximum reference articles to use (default from config)")
	analyzeCmd.Flags().BoolVar(&reputableOnly, "reputable", true, "restrict search to reputable outlets")
	analyzeCmd.Flags().BoolVar(&jsonEvents, "json-events", false, "print the event stream as JSON lines")
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 15*time.Minute, "overall analysis timeout")

	_ = analyzeCmd.MarkFlagRequired("query")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	article, err := readArticle(args[0])
	if err != nil {
		return err
	}
	req := model.AnalysisRequest{
		TargetArticle:       article,
		Query:               query,
		MaxArticlesToFetch:  maxReferences,
		UseReputableSources: &reputableOnly,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var out *model.AnalysisOutcome
	if jsonEvents {
		out, err = streamEvents(ctx, a, req)
	} else {
		out, err = a.orchestrator.Collect(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("analysis interrupted: %w", err)
	}
	if out.Error != nil {
		return fmt.Errorf("analysis failed: %s", out.Error.Message)
	}

	rec := outcomeRecord(req, out)
	if !jsonEvents {
		printAssessment(rec)
	}
	if err := report.WriteFiles(rec, outJSON, outMD); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if verbose && a.store != nil {
		fmt.Fprintf(os.Stderr, "✓ Saved analysis %s\n", rec.ID)
	}
	return nil
}

// streamEvents prints each event as it arrives and collects the outcome
func streamEvents(ctx context.Context, a *app, req model.AnalysisRequest) (*model.AnalysisOutcome, error) {
	enc := json.NewEncoder(os.Stdout)
	out := &model.AnalysisOutcome{}
	completed := false

	for ev := range a.orchestrator.Run(ctx, req) {
		if err := enc.Encode(ev); err != nil {
			return nil, fmt.Errorf("write event: %w", err)
		}
		if out.Apply(ev) {
			completed = true
		}
	}
	if !completed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("event stream ended without complete")
	}
	return out, nil
}

// readArticle loads a JSON article, or plain text described by flags
func readArticle(path string) (model.TargetArticle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.TargetArticle{}, fmt.Errorf("read article: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var article model.TargetArticle
		if err := json.Unmarshal(data, &article); err != nil {
			return model.TargetArticle{}, fmt.Errorf("parse article: %w", err)
		}
		return article, nil
	}

	date, err := model.ParseCalendarDate(articleDate)
	if err != nil {
		return model.TargetArticle{}, fmt.Errorf("parse --date: %w", err)
	}
	return model.TargetArticle{
		Title: articleTitle,
		Body:  string(data),
		URL:   articleURL,
		Date:  date,
	}, nil
}

// outcomeRecord shapes a finished outcome like a saved analysis
func outcomeRecord(req model.AnalysisRequest, out *model.AnalysisOutcome) *model.AnalysisRecord {
	rec := &model.AnalysisRecord{
		ID:          out.RunID,
		TargetURL:   req.TargetArticle.URL,
		TargetTitle: req.TargetArticle.Title,
		Query:       req.Query,
		CreatedAt:   time.Now().UTC(),
		Reviews:     out.Reviews,
	}
	if out.Report != nil {
		rec.Report = *out.Report
	}
	return rec
}

func printAssessment(rec *model.AnalysisRecord) {
	overall := rec.Report.OverallAssessment
	fmt.Printf("Misleading risk: %d/100 (%s)\n", overall.MisleadingRiskScore, score.Band(overall.MisleadingRiskScore))
	fmt.Println(overall.Summary)
	fmt.Println()

	for _, r := range rec.Reviews {
		fmt.Printf("%3d. [%s %.0f%%] %s\n", r.SentenceIndex+1, r.Verdict, r.Confidence*100, r.SentenceText)
		if r.Explanation != "" && r.Verdict != model.VerdictSupported && r.Verdict != model.VerdictNoFactualClaim {
			fmt.Printf("     %s\n", r.Explanation)
		}
	}
}
