package model

import "time"

// AnalysisReport is the analysis_complete payload
type AnalysisReport struct {
	PatternSummary    PatternSummary    `json:"pattern_summary"`
	OverallAssessment OverallAssessment `json:"overall_assessment"`
	DocumentMetadata  DocumentMetadata  `json:"document_metadata"`
}

// PatternSummary groups verdict counts and recurring issues
type PatternSummary struct {
	CountsByVerdict      VerdictCounts  `json:"counts_by_verdict"`
	TopRecurringPatterns []PatternCount `json:"top_recurring_patterns"`
	TotalSentences       int            `json:"total_sentences"`
}

// OverallAssessment carries the risk score and summary text
type OverallAssessment struct {
	MisleadingRiskScore int           `json:"misleading_risk_score"`
	Summary             string        `json:"summary"`
	RiskBreakdown       RiskBreakdown `json:"risk_breakdown"`
}

// DocumentMetadata describes the target and the references used
type DocumentMetadata struct {
	TargetTitle    string             `json:"target_title"`
	TargetURL      string             `json:"target_url,omitempty"`
	TargetDate     string             `json:"target_date"`
	ReferencesUsed []ReferenceSummary `json:"references_used"`
}

// NewAnalysisReport shapes a FinalAssessment for the wire
func NewAnalysisReport(fa FinalAssessment, totalSentences int, article TargetArticle, evidence Evidence) AnalysisReport {
	patterns := fa.TopRecurringPatterns
	if patterns == nil {
		patterns = []PatternCount{}
	}
	return AnalysisReport{
		PatternSummary: PatternSummary{
			CountsByVerdict:      fa.CountsByVerdict,
			TopRecurringPatterns: patterns,
			TotalSentences:       totalSentences,
		},
		OverallAssessment: OverallAssessment{
			MisleadingRiskScore: fa.MisleadingRiskScore,
			Summary:             fa.Summary,
			RiskBreakdown:       fa.RiskBreakdown,
		},
		DocumentMetadata: DocumentMetadata{
			TargetTitle:    article.Title,
			TargetURL:      article.URL,
			TargetDate:     article.Date.String(),
			ReferencesUsed: evidence.References(),
		},
	}
}

// AnalysisRecord is a persisted run
type AnalysisRecord struct {
	ID          string           `json:"id"`           // Run id
	TargetURL   string           `json:"target_url"`   // May be empty for pasted text
	TargetTitle string           `json:"target_title"` // Article headline
	Query       string           `json:"query"`        // Search query used for evidence
	CreatedAt   time.Time        `json:"created_at"`
	Report      AnalysisReport   `json:"report"`
	Reviews     []SentenceReview `json:"reviews"`
}
