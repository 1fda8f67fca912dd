package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/claimlens/internal/gather"
	"github.com/ppiankov/claimlens/internal/model"
)

// timeLayout sorts lexically in time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Summary is a list entry for a saved analysis
type Summary struct {
	ID             string    `json:"id"`
	TargetURL      string    `json:"target_url"`
	TargetTitle    string    `json:"target_title"`
	Query          string    `json:"query"`
	RiskScore      int       `json:"misleading_risk_score"`
	TotalSentences int       `json:"total_sentences"`
	CreatedAt      time.Time `json:"created_at"`
}

// pageKey is the lookup key for "saved analysis for this page"
func pageKey(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if normalized, err := gather.NormalizeURL(rawURL); err == nil {
		return normalized
	}
	return rawURL
}

// SaveAnalysis inserts or replaces a completed analysis
func (s *Store) SaveAnalysis(ctx context.Context, rec model.AnalysisRecord) error {
	reportJSON, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	reviews := rec.Reviews
	if reviews == nil {
		reviews = []model.SentenceReview{}
	}
	reviewsJSON, err := json.Marshal(reviews)
	if err != nil {
		return fmt.Errorf("marshal reviews: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO analyses
		(id, target_url, page_key, target_title, query, risk_score, total_sentences, report_json, reviews_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TargetURL, pageKey(rec.TargetURL), rec.TargetTitle, rec.Query,
		rec.Report.OverallAssessment.MisleadingRiskScore,
		rec.Report.PatternSummary.TotalSentences,
		string(reportJSON), string(reviewsJSON),
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert analysis %s: %w", rec.ID, err)
	}
	return nil
}

const recordColumns = "id, target_url, target_title, query, report_json, reviews_json, created_at"

// GetAnalysis returns the analysis with the given id
func (s *Store) GetAnalysis(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM analyses WHERE id = ?", id)
	return scanRecord(row)
}

// LatestForURL returns the most recent analysis of the page at rawURL
func (s *Store) LatestForURL(ctx context.Context, rawURL string) (*model.AnalysisRecord, error) {
	key := pageKey(rawURL)
	if key == "" {
		return nil, ErrNotFound
	}
	row := s.conn.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM analyses WHERE page_key = ? ORDER BY created_at DESC LIMIT 1", key)
	return scanRecord(row)
}

// ListAnalyses returns up to limit analyses, newest first
func (s *Store) ListAnalyses(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, target_url, target_title, query, risk_score, total_sentences, created_at
		FROM analyses ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := []Summary{}
	for rows.Next() {
		var sum Summary
		var createdAt string
		if err := rows.Scan(&sum.ID, &sum.TargetURL, &sum.TargetTitle, &sum.Query,
			&sum.RiskScore, &sum.TotalSentences, &createdAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		sum.CreatedAt = parseTime(createdAt)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// DeleteAnalysis removes an analysis; missing ids are not an error
func (s *Store) DeleteAnalysis(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM analyses WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	return nil
}

func scanRecord(row *sql.Row) (*model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var reportJSON, reviewsJSON, createdAt string
	if err := row.Scan(&rec.ID, &rec.TargetURL, &rec.TargetTitle, &rec.Query,
		&reportJSON, &reviewsJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan analysis: %w", err)
	}

	if err := json.Unmarshal([]byte(reportJSON), &rec.Report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if err := json.Unmarshal([]byte(reviewsJSON), &rec.Reviews); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
