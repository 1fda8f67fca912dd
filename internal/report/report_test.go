package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/claimlens/internal/model"
)

func testRecord() *model.AnalysisRecord {
	counts := model.NewVerdictCounts()
	counts[model.VerdictSupported] = 1
	counts[model.VerdictContradicted] = 1

	return &model.AnalysisRecord{
		ID:          "run-1",
		TargetURL:   "https://example.com/story",
		TargetTitle: "Council passes budget",
		Query:       "council budget",
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Report: model.AnalysisReport{
			PatternSummary: model.PatternSummary{
				CountsByVerdict:      counts,
				TopRecurringPatterns: []model.PatternCount{{Pattern: "Wrong figure", Instances: 1}},
				TotalSentences:       2,
			},
			OverallAssessment: model.OverallAssessment{
				MisleadingRiskScore: 50,
				Summary:             "Of 2 sentences reviewed, 1 supported.",
			},
			DocumentMetadata: model.DocumentMetadata{
				TargetTitle: "Council passes budget",
				TargetURL:   "https://example.com/story",
				TargetDate:  "2025-03-01",
				ReferencesUsed: []model.ReferenceSummary{
					{RefID: "R1", Title: "Budget vote", URL: "https://news.example.org/vote", Date: "2025-02-28"},
				},
			},
		},
		Reviews: []model.SentenceReview{
			{SentenceIndex: 0, SentenceText: "The council met.", Verdict: model.VerdictSupported, Confidence: 0.9, Issues: []string{}},
			{
				SentenceIndex: 1,
				SentenceText:  "It approved <script>alert(1)</script> 9 billion.",
				Verdict:       model.VerdictContradicted,
				Confidence:    0.8,
				Explanation:   "R1 reports 4.2 billion.",
				Issues:        []string{"Wrong figure"},
				Citations:     []model.Citation{{RefID: "R1", Quote: "4.2 billion"}},
			},
		},
	}
}

func TestMarkdown_Sections(t *testing.T) {
	out := Markdown(testRecord())

	required := []string{
		"# Claim review: Council passes budget",
		"<https://example.com/story>",
		"**Misleading risk:** 50/100 (moderate)",
		"| Contradicted | 1 |",
		"| NoFactualClaim | 0 |",
		"## Recurring issues",
		"Wrong figure (1)",
		"2. **Contradicted** (80%)",
		"[R1] \"4.2 billion\"",
		"[Budget vote](https://news.example.org/vote)",
	}
	for _, s := range required {
		if !strings.Contains(out, s) {
			t.Errorf("Expected markdown to contain %q", s)
		}
	}
}

func TestMarkdown_Nil(t *testing.T) {
	if Markdown(nil) != "" {
		t.Error("Expected empty markdown for nil record")
	}
}

func TestHTML_EscapesArticleText(t *testing.T) {
	page, err := HTML(testRecord())
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	html := string(page)

	if !strings.Contains(html, "<h1>") || !strings.Contains(html, "<table>") {
		t.Errorf("Expected heading and table in HTML, got %s", html)
	}
	if strings.Contains(html, "<script>") {
		t.Error("Expected sentence markup to be escaped")
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "report.json")
	mdPath := filepath.Join(dir, "out", "report.md")

	if err := WriteFiles(testRecord(), jsonPath, mdPath); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("Expected JSON file: %v", err)
	}
	var rec model.AnalysisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if rec.ID != "run-1" {
		t.Errorf("Expected run-1, got %s", rec.ID)
	}

	if _, err := os.Stat(mdPath); err != nil {
		t.Errorf("Expected Markdown file: %v", err)
	}
}
