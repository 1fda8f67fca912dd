package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/report"
	"github.com/ppiankov/claimlens/internal/store"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	StoreEnabled  bool   `json:"store_enabled"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{
		Status:        "ok",
		Service:       "claimlens",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		StoreEnabled:  s.analyses != nil,
	})
}

// --- Streaming analysis ---

// sseWriter writes events as "data: <json>\n\n" frames
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (sw *sseWriter) send(ev model.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", data); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	sw := &sseWriter{w: w, flusher: flusher}

	var req model.AnalysisRequest
	if err := readJSON(w, r, &req); err != nil {
		info := model.ErrorInfo{Code: model.ErrorCodeInput, Message: "Invalid request body: " + err.Error()}
		if sw.send(model.ErrorEvent(info)) == nil {
			_ = sw.send(model.CompleteEvent())
		}
		return
	}

	// The request context ends when the client disconnects, which cancels the run
	for ev := range s.analyzer.Run(r.Context(), req) {
		if err := sw.send(ev); err != nil {
			s.log.WithError(err).Info("client went away")
			return
		}
	}
}

// --- Blocking analysis ---

type analyzeResponse struct {
	Success      bool                   `json:"success"`
	RunID        string                 `json:"run_id,omitempty"`
	Report       *model.AnalysisReport  `json:"report,omitempty"`
	Reviews      []model.SentenceReview `json:"reviews,omitempty"`
	FetchSummary *model.FetchSummary    `json:"fetch_summary,omitempty"`
	Error        *model.ErrorInfo       `json:"error,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req model.AnalysisRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, analyzeResponse{
			Error: &model.ErrorInfo{Code: model.ErrorCodeInput, Message: "Invalid request body: " + err.Error()},
		})
		return
	}

	out, err := s.analyzer.Collect(r.Context(), req)
	if err != nil {
		s.log.WithError(err).Info("analysis abandoned")
		s.writeJSON(w, http.StatusServiceUnavailable, analyzeResponse{
			Error: &model.ErrorInfo{Code: model.ErrorCodeInternal, Message: err.Error()},
		})
		return
	}

	resp := analyzeResponse{
		Success:      out.Succeeded(),
		RunID:        out.RunID,
		Report:       out.Report,
		Reviews:      out.Reviews,
		FetchSummary: out.Summary,
		Error:        out.Error,
	}
	s.writeJSON(w, statusFor(out.Error), resp)
}

func statusFor(info *model.ErrorInfo) int {
	if info == nil {
		return http.StatusOK
	}
	switch info.Code {
	case model.ErrorCodeInput:
		return http.StatusBadRequest
	case model.ErrorCodeGathering, model.ErrorCodeJudging:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// --- Saved analyses ---

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 200)
	}

	list, err := s.analyses.ListAnalyses(r.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("list analyses failed")
		s.writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"analyses": list})
}

func (s *Server) handleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	rec, err := s.analyses.LatestForURL(r.Context(), pageURL)
	s.writeRecord(w, rec, err)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, err := s.analyses.GetAnalysis(r.Context(), r.PathValue("id"))
	s.writeRecord(w, rec, err)
}

func (s *Server) writeRecord(w http.ResponseWriter, rec *model.AnalysisRecord, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "analysis not found")
	case err != nil:
		s.log.WithError(err).Error("load analysis failed")
		s.writeError(w, http.StatusInternalServerError, "failed to load analysis")
	default:
		s.writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleAnalysisReport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.analyses.GetAnalysis(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeRecord(w, nil, err)
		return
	}

	page, err := report.HTML(rec)
	if err != nil {
		s.log.WithError(err).Error("render report failed")
		s.writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
