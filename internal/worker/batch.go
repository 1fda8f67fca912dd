package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimlens/internal/logging"
	"github.com/ppiankov/claimlens/internal/model"
)

// maxLineBytes bounds one JSONL line; article bodies can be long
const maxLineBytes = 16 << 20

// Analyzer runs one analysis to completion
type Analyzer interface {
	Collect(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisOutcome, error)
}

// BatchRequest is one line of a batch file
type BatchRequest struct {
	ID string `json:"id,omitempty"`
	model.AnalysisRequest
}

// AnalyzeJob runs one batch request
type AnalyzeJob struct {
	Index    int
	Request  BatchRequest
	Analyzer Analyzer
}

// Execute executes the analysis job
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	out, err := j.Analyzer.Collect(ctx, j.Request.AnalysisRequest)
	return &AnalyzeResult{
		Index:   j.Index,
		ID:      j.Request.ID,
		Outcome: out,
		Error:   err,
	}
}

// AnalyzeResult is the result of one batch request
type AnalyzeResult struct {
	Index   int
	ID      string
	Outcome *model.AnalysisOutcome
	Error   error
}

// GetError returns the run error, or the analysis failure if the run completed with one
func (r *AnalyzeResult) GetError() error {
	if r.Error != nil {
		return r.Error
	}
	if r.Outcome != nil && r.Outcome.Error != nil {
		return r.Outcome.Error
	}
	return nil
}

// BatchProcessor runs many analyses concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	log         *logrus.Entry
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int, log *logrus.Entry) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = logging.Discard()
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		log:         log,
	}
}

// Process runs every request and returns results in input order.
// Requests that never ran because ctx ended carry ctx's error.
func (b *BatchProcessor) Process(ctx context.Context, reqs []BatchRequest) []*AnalyzeResult {
	results := make([]*AnalyzeResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	defer pool.Shutdown()

	jobs := make([]Job, len(reqs))
	for i, req := range reqs {
		jobs[i] = &AnalyzeJob{Index: i, Request: req, Analyzer: b.analyzer}
	}
	pool.SubmitAll(jobs)

	done := 0
	for r := range pool.Results() {
		res := r.(*AnalyzeResult)
		results[res.Index] = res
		done++

		entry := b.log.WithFields(logrus.Fields{"id": res.ID, "done": done, "total": len(reqs)})
		if err := res.GetError(); err != nil {
			entry.WithError(err).Warn("batch item failed")
		} else {
			entry.Info("batch item complete")
		}
	}

	for i, res := range results {
		if res == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("request %s was not run", reqs[i].ID)
			}
			results[i] = &AnalyzeResult{Index: i, ID: reqs[i].ID, Error: err}
		}
	}
	return results
}

// ProcessFile reads requests from a JSONL file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AnalyzeResult, error) {
	reqs, err := ReadRequestsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}

	return b.Process(ctx, reqs), nil
}

// ReadRequestsFromFile reads one JSON request per line.
// Blank lines and lines starting with # are skipped; missing ids become "item-<line>".
func ReadRequestsFromFile(filePath string) ([]BatchRequest, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var reqs []BatchRequest
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var req BatchRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if req.ID == "" {
			req.ID = fmt.Sprintf("item-%d", lineNo)
		}
		if seen[req.ID] {
			return nil, fmt.Errorf("line %d: duplicate id %q", lineNo, req.ID)
		}
		seen[req.ID] = true
		reqs = append(reqs, req)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return reqs, nil
}
