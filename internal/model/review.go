package model

import (
	"fmt"
	"strings"
)

// Verdict is the judgment for one sentence
type Verdict string

const (
	VerdictSupported           Verdict = "Supported"
	VerdictContradicted        Verdict = "Contradicted"
	VerdictUnverifiable        Verdict = "Unverifiable"
	VerdictMisleadingByContext Verdict = "MisleadingByContext"
	VerdictNoFactualClaim      Verdict = "NoFactualClaim"
)

// AllVerdicts lists every verdict in reporting order
var AllVerdicts = []Verdict{
	VerdictSupported,
	VerdictContradicted,
	VerdictUnverifiable,
	VerdictMisleadingByContext,
	VerdictNoFactualClaim,
}

// ParseVerdict maps oracle output to a Verdict.
// Matching ignores case, spaces, underscores and hyphens, so
// "Misleading by context" and "misleading_by_context" both parse.
func ParseVerdict(s string) (Verdict, error) {
	key := verdictKey(s)
	for _, v := range AllVerdicts {
		if verdictKey(string(v)) == key {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}

func verdictKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '_', '-', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Valid reports whether v is one of the five verdicts
func (v Verdict) Valid() bool {
	for _, known := range AllVerdicts {
		if v == known {
			return true
		}
	}
	return false
}

// Citation links part of a review to a reference document
type Citation struct {
	RefID     string `json:"ref_id"`
	Locator   string `json:"locator,omitempty"`   // Paragraph or section hint
	Quote     string `json:"quote,omitempty"`     // Short supporting excerpt
	Alignment string `json:"alignment,omitempty"` // supports, contradicts, context
}

// SentenceReview is the judged result for one sentence
type SentenceReview struct {
	SentenceIndex  int        `json:"sentence_index"`
	SentenceText   string     `json:"sentence"`
	Verdict        Verdict    `json:"verdict"`
	Confidence     float64    `json:"confidence"`
	Explanation    string     `json:"explanation"`
	Issues         []string   `json:"issues"`
	Types          []string   `json:"types,omitempty"`
	ClaimExtracted *string    `json:"claim_extracted,omitempty"`
	Citations      []Citation `json:"evidence,omitempty"`
}

// OracleErrorIssue marks a review that was downgraded after oracle failures
const OracleErrorIssue = "oracle_error"

// Downgraded reports whether the review was produced by the failure path
func (r SentenceReview) Downgraded() bool {
	for _, issue := range r.Issues {
		if issue == OracleErrorIssue {
			return true
		}
	}
	return false
}

// VerdictCounts holds a count for every verdict, zeros included
type VerdictCounts map[Verdict]int

// NewVerdictCounts returns counts with all five keys present
func NewVerdictCounts() VerdictCounts {
	counts := make(VerdictCounts, len(AllVerdicts))
	for _, v := range AllVerdicts {
		counts[v] = 0
	}
	return counts
}

// Total sums all counts
func (c VerdictCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// PatternCount is a recurring issue label and how often it appeared
type PatternCount struct {
	Pattern              string `json:"pattern"`
	Instances            int    `json:"instances"`
	ExampleSentenceIndex int    `json:"example_sentence_index"`
}

// RiskBreakdown exposes the inputs of the risk score
type RiskBreakdown struct {
	Weights     map[Verdict]float64 `json:"weights"`
	WeightedSum float64             `json:"weighted_sum"`
	Sentences   int                 `json:"sentences"`
	Formula     string              `json:"formula"`
}

// FinalAssessment is the aggregate over a completed review log
type FinalAssessment struct {
	MisleadingRiskScore  int            `json:"misleading_risk_score"`
	CountsByVerdict      VerdictCounts  `json:"counts_by_verdict"`
	TopRecurringPatterns []PatternCount `json:"top_recurring_patterns"`
	Summary              string         `json:"summary"`
	RiskBreakdown        RiskBreakdown  `json:"risk_breakdown"`
}
