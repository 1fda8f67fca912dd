package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/claimlens/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(id, url string, created time.Time, score int) model.AnalysisRecord {
	counts := model.NewVerdictCounts()
	counts[model.VerdictContradicted] = 1
	return model.AnalysisRecord{
		ID:          id,
		TargetURL:   url,
		TargetTitle: "Title " + id,
		Query:       "query " + id,
		CreatedAt:   created,
		Report: model.AnalysisReport{
			PatternSummary: model.PatternSummary{
				CountsByVerdict:      counts,
				TopRecurringPatterns: []model.PatternCount{{Pattern: "Missing context", Instances: 1}},
				TotalSentences:       1,
			},
			OverallAssessment: model.OverallAssessment{MisleadingRiskScore: score, Summary: "summary"},
		},
		Reviews: []model.SentenceReview{{SentenceIndex: 0, SentenceText: "s", Verdict: model.VerdictContradicted, Issues: []string{}}},
	}
}

func TestOpen_MigratesToLatest(t *testing.T) {
	s := openTestStore(t)
	version, err := s.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != latestVersion() {
		t.Errorf("Expected schema version %d, got %d", latestVersion(), version)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()
	if err := s.SaveAnalysis(ctx, record("a", "https://example.com/a", time.Now(), 10)); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer func() { _ = s.Close() }()
	if _, err := s.GetAnalysis(ctx, "a"); err != nil {
		t.Errorf("Expected record to survive reopen, got %v", err)
	}
}

func TestSaveAndGetAnalysis(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.SaveAnalysis(ctx, record("run-1", "https://example.com/story", created, 42)); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}

	got, err := s.GetAnalysis(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if got.TargetTitle != "Title run-1" || !got.CreatedAt.Equal(created) {
		t.Errorf("Unexpected record: %+v", got)
	}
	if got.Report.OverallAssessment.MisleadingRiskScore != 42 {
		t.Errorf("Expected score 42, got %d", got.Report.OverallAssessment.MisleadingRiskScore)
	}
	if got.Report.PatternSummary.CountsByVerdict[model.VerdictContradicted] != 1 {
		t.Errorf("Expected counts to round-trip, got %v", got.Report.PatternSummary.CountsByVerdict)
	}
	if len(got.Reviews) != 1 || got.Reviews[0].Verdict != model.VerdictContradicted {
		t.Errorf("Expected reviews to round-trip, got %+v", got.Reviews)
	}
}

func TestGetAnalysis_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetAnalysis(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListAnalyses_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		if err := s.SaveAnalysis(ctx, record(id, "", base.Add(time.Duration(i)*time.Hour), i*10)); err != nil {
			t.Fatalf("SaveAnalysis failed: %v", err)
		}
	}

	list, err := s.ListAnalyses(ctx, 2)
	if err != nil {
		t.Fatalf("ListAnalyses failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "mid" {
		t.Errorf("Expected [new mid], got %+v", list)
	}
	if list[0].RiskScore != 20 || list[0].TotalSentences != 1 {
		t.Errorf("Unexpected summary: %+v", list[0])
	}
}

func TestLatestForURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = s.SaveAnalysis(ctx, record("first", "https://www.example.com/story?utm_source=x", base, 10))
	_ = s.SaveAnalysis(ctx, record("second", "https://example.com/story", base.Add(time.Minute), 20))
	_ = s.SaveAnalysis(ctx, record("other", "https://example.com/other", base.Add(time.Hour), 30))

	got, err := s.LatestForURL(ctx, "https://example.com/story/#comments")
	if err != nil {
		t.Fatalf("LatestForURL failed: %v", err)
	}
	if got.ID != "second" {
		t.Errorf("Expected latest analysis for the page, got %s", got.ID)
	}

	if _, err := s.LatestForURL(ctx, "https://example.com/never"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := s.LatestForURL(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty URL, got %v", err)
	}
}

func TestSaveAnalysis_Replace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_ = s.SaveAnalysis(ctx, record("run-1", "", time.Now(), 10))
	if err := s.SaveAnalysis(ctx, record("run-1", "", time.Now(), 90)); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}

	got, _ := s.GetAnalysis(ctx, "run-1")
	if got.Report.OverallAssessment.MisleadingRiskScore != 90 {
		t.Errorf("Expected replaced record, got score %d", got.Report.OverallAssessment.MisleadingRiskScore)
	}

	if err := s.DeleteAnalysis(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteAnalysis failed: %v", err)
	}
	if _, err := s.GetAnalysis(ctx, "run-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
