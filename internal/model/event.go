package model

// EventType names a pipeline event
type EventType string

const (
	EventStatus            EventType = "status"
	EventProgress          EventType = "progress"
	EventWarning           EventType = "warning"
	EventFetchSummary      EventType = "fetch_summary"
	EventAnalysisStart     EventType = "analysis_start"
	EventSentenceReview    EventType = "sentence_review"
	EventGeneratingSummary EventType = "generating_summary"
	EventAnalysisComplete  EventType = "analysis_complete"
	EventError             EventType = "error"
	EventComplete          EventType = "complete"
)

// Terminal reports whether the event ends a run's payload stream.
// Only complete may follow a terminal event.
func (t EventType) Terminal() bool {
	return t == EventAnalysisComplete || t == EventError
}

// Event is one element of the ordered stream sent to the client
type Event struct {
	Type           EventType `json:"type"`
	Message        string    `json:"message,omitempty"`
	Current        int       `json:"current,omitempty"`
	Total          int       `json:"total,omitempty"`
	TotalSentences int       `json:"total_sentences,omitempty"`
	TargetTitle    string    `json:"target_title,omitempty"`
	TargetDate     string    `json:"target_date,omitempty"`
	Progress       *Progress `json:"progress,omitempty"`
	Data           any       `json:"data,omitempty"`
}

// Progress is a current/total pair
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// FetchSummary reports how evidence gathering went
type FetchSummary struct {
	OriginalQuery        string `json:"original_query"`
	SearchQuery          string `json:"google_search_query"`
	UsedReputableSources bool   `json:"used_reputable_sources"`
	SearchResultsCount   int    `json:"search_results_count"`
	URLsExtracted        int    `json:"urls_extracted"`
	ArticlesFetched      int    `json:"articles_fetched"`
	ArticlesFailed       int    `json:"articles_failed"`
}

// StatusEvent builds a status event
func StatusEvent(msg string) Event {
	return Event{Type: EventStatus, Message: msg}
}

// ProgressEvent builds a fetch progress event
func ProgressEvent(current, total int, msg string) Event {
	return Event{Type: EventProgress, Current: current, Total: total, Message: msg}
}

// WarningEvent builds a warning event
func WarningEvent(msg string) Event {
	return Event{Type: EventWarning, Message: msg}
}

// FetchSummaryEvent builds the gathering summary event
func FetchSummaryEvent(summary FetchSummary) Event {
	return Event{Type: EventFetchSummary, Data: summary}
}

// AnalysisStartEvent announces the judging phase
func AnalysisStartEvent(totalSentences int, article TargetArticle) Event {
	return Event{
		Type:           EventAnalysisStart,
		TotalSentences: totalSentences,
		TargetTitle:    article.Title,
		TargetDate:     article.Date.String(),
	}
}

// SentenceReviewEvent wraps one review with its 1-based position
func SentenceReviewEvent(review SentenceReview, current, total int) Event {
	return Event{
		Type:     EventSentenceReview,
		Data:     review,
		Progress: &Progress{Current: current, Total: total},
	}
}

// GeneratingSummaryEvent announces aggregation
func GeneratingSummaryEvent() Event {
	return Event{Type: EventGeneratingSummary, Message: "Generating final summary..."}
}

// AnalysisCompleteEvent carries the final report
func AnalysisCompleteEvent(report AnalysisReport) Event {
	return Event{Type: EventAnalysisComplete, Data: report}
}

// ErrorEvent carries a terminal failure
func ErrorEvent(info ErrorInfo) Event {
	return Event{Type: EventError, Message: info.Message, Data: info}
}

// CompleteEvent closes the stream
func CompleteEvent() Event {
	return Event{Type: EventComplete}
}
