package model

import "strings"

// AnalysisRequest is the inbound request to verify one article
type AnalysisRequest struct {
	TargetArticle       TargetArticle `json:"targetArticle"`
	Query               string        `json:"query"`
	MaxResults          int           `json:"maxResults,omitempty"`
	MaxArticlesToFetch  int           `json:"maxArticlesToFetch,omitempty"`
	UseReputableSources *bool         `json:"useReputableSources,omitempty"`
}

// Validate checks the fields that must be present before a run starts.
// An empty body is detected by segmentation, not here.
func (r AnalysisRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrMissingQuery
	}
	if strings.TrimSpace(r.TargetArticle.Body) == "" {
		return ErrEmptyArticle
	}
	return nil
}

// WithDefaults fills unset limits from the search configuration
func (r AnalysisRequest) WithDefaults(cfg SearchConfig) AnalysisRequest {
	if r.MaxResults <= 0 {
		r.MaxResults = cfg.MaxResults
	}
	if r.MaxArticlesToFetch <= 0 {
		r.MaxArticlesToFetch = cfg.MaxReferences
	}
	if r.UseReputableSources == nil {
		prefer := cfg.PreferReputable
		r.UseReputableSources = &prefer
	}
	return r
}

// PreferReputable reports the effective reputable-source flag
func (r AnalysisRequest) PreferReputable() bool {
	return r.UseReputableSources == nil || *r.UseReputableSources
}

// AnalysisOutcome is a fully drained run
type AnalysisOutcome struct {
	RunID   string           `json:"run_id"`
	Report  *AnalysisReport  `json:"report,omitempty"`
	Reviews []SentenceReview `json:"reviews,omitempty"`
	Summary *FetchSummary    `json:"fetch_summary,omitempty"`
	Error   *ErrorInfo       `json:"error,omitempty"`
	Events  []Event          `json:"-"`
}

// Succeeded reports whether the run reached analysis_complete
func (o *AnalysisOutcome) Succeeded() bool {
	return o != nil && o.Report != nil && o.Error == nil
}

// Apply folds one event into the outcome and reports whether it was complete
func (o *AnalysisOutcome) Apply(ev Event) bool {
	o.Events = append(o.Events, ev)
	switch ev.Type {
	case EventFetchSummary:
		if s, ok := ev.Data.(FetchSummary); ok {
			o.Summary = &s
		}
	case EventSentenceReview:
		if review, ok := ev.Data.(SentenceReview); ok {
			o.Reviews = append(o.Reviews, review)
		}
	case EventAnalysisComplete:
		if report, ok := ev.Data.(AnalysisReport); ok {
			o.Report = &report
		}
	case EventError:
		if info, ok := ev.Data.(ErrorInfo); ok {
			o.Error = &info
		}
	case EventComplete:
		return true
	}
	return false
}
