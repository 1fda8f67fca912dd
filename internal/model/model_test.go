package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		in      string
		want    Verdict
		wantErr bool
	}{
		{"Supported", VerdictSupported, false},
		{"contradicted", VerdictContradicted, false},
		{"Misleading by context", VerdictMisleadingByContext, false},
		{"misleading_by_context", VerdictMisleadingByContext, false},
		{"No-Factual-Claim", VerdictNoFactualClaim, false},
		{"True", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseVerdict(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVerdict(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVerdict(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCalendarDate_JSON(t *testing.T) {
	var article TargetArticle
	if err := json.Unmarshal([]byte(`{"title": "T", "text": "B.", "date": "March 1, 2025"}`), &article); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if article.Date.String() != "2025-03-01" {
		t.Errorf("Expected 2025-03-01, got %s", article.Date)
	}

	data, _ := json.Marshal(TargetArticle{Title: "T"})
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	if raw["date"] != "" {
		t.Errorf("Expected empty date for unknown, got %v", raw["date"])
	}
	if (CalendarDate{}).String() != "Unknown" {
		t.Error("Expected zero date to render as Unknown")
	}

	if _, err := ParseCalendarDate("yesterday"); err == nil {
		t.Error("Expected error for unrecognized date")
	}
}

func TestAnalysisRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  AnalysisRequest
		want error
	}{
		{"ok", AnalysisRequest{Query: "q", TargetArticle: TargetArticle{Body: "A."}}, nil},
		{"missing query", AnalysisRequest{Query: "  ", TargetArticle: TargetArticle{Body: "A."}}, ErrMissingQuery},
		{"empty body", AnalysisRequest{Query: "q", TargetArticle: TargetArticle{Body: "\n "}}, ErrEmptyArticle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAnalysisRequest_WithDefaults(t *testing.T) {
	cfg := SearchConfig{MaxResults: 10, MaxReferences: 5, PreferReputable: false}

	req := AnalysisRequest{Query: "q"}.WithDefaults(cfg)
	if req.MaxResults != 10 || req.MaxArticlesToFetch != 5 || req.PreferReputable() {
		t.Errorf("Expected config defaults, got %+v", req)
	}

	prefer := true
	req = AnalysisRequest{Query: "q", MaxArticlesToFetch: 2, UseReputableSources: &prefer}.WithDefaults(cfg)
	if req.MaxArticlesToFetch != 2 || !req.PreferReputable() {
		t.Errorf("Expected request values to win, got %+v", req)
	}
}

func TestAnalysisOutcome_Apply(t *testing.T) {
	out := &AnalysisOutcome{}
	review := SentenceReview{SentenceIndex: 0, Verdict: VerdictSupported}

	events := []Event{
		StatusEvent("Searching for reference articles..."),
		FetchSummaryEvent(FetchSummary{ArticlesFetched: 2}),
		SentenceReviewEvent(review, 1, 1),
		AnalysisCompleteEvent(AnalysisReport{}),
	}
	for _, ev := range events {
		if out.Apply(ev) {
			t.Fatalf("Expected %s not to complete the outcome", ev.Type)
		}
	}
	if !out.Apply(CompleteEvent()) {
		t.Error("Expected complete to end the outcome")
	}

	if !out.Succeeded() || out.Summary.ArticlesFetched != 2 || len(out.Reviews) != 1 || len(out.Events) != 5 {
		t.Errorf("Unexpected outcome: %+v", out)
	}

	failed := &AnalysisOutcome{}
	failed.Apply(ErrorEvent(ErrorInfo{Code: ErrorCodeGathering, Message: "no evidence"}))
	if failed.Succeeded() || failed.Error.Code != ErrorCodeGathering {
		t.Errorf("Expected failed outcome, got %+v", failed)
	}
}

func TestEvidence_RefIDs(t *testing.T) {
	ev := Evidence{{URL: "https://a.example"}, {URL: "https://b.example"}}
	ev.AssignRefIDs()

	doc, ok := ev.Lookup("r2")
	if !ok || doc.URL != "https://b.example" {
		t.Errorf("Expected case-insensitive lookup of R2, got %+v %v", doc, ok)
	}
	if _, ok := ev.Lookup("R3"); ok {
		t.Error("Expected R3 to be unknown")
	}

	refs := ev.References()
	if len(refs) != 2 || refs[0].RefID != "R1" {
		t.Errorf("Unexpected references: %+v", refs)
	}
}

func TestVerdictCounts_AllKeys(t *testing.T) {
	counts := NewVerdictCounts()
	if len(counts) != len(AllVerdicts) || counts.Total() != 0 {
		t.Errorf("Expected five zero counts, got %v", counts)
	}
}

func TestEventType_Terminal(t *testing.T) {
	for _, typ := range []EventType{EventAnalysisComplete, EventError} {
		if !typ.Terminal() {
			t.Errorf("Expected %s to be terminal", typ)
		}
	}
	for _, typ := range []EventType{EventStatus, EventSentenceReview, EventComplete} {
		if typ.Terminal() {
			t.Errorf("Expected %s not to be terminal", typ)
		}
	}
}
