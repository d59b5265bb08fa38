package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/a11y-remediator/internal/db"
	"github.com/jonathan/a11y-remediator/internal/pipeline"
)

// runTimeout bounds a single background remediation run.
const runTimeout = 30 * time.Minute

// keepAliveInterval is how often idle SSE connections receive a comment ping.
const keepAliveInterval = 15 * time.Second

// RunRequest represents the request body for POST /runs
type RunRequest struct {
	Target string `json:"target"`
	Flow   string `json:"flow"`
	AppURL string `json:"app_url,omitempty"`
}

// RunResponse represents the response for POST /runs
type RunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// handleStartRun starts a new remediation run in the background
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// Validate required fields
	if req.Target == "" {
		s.errorResponse(w, http.StatusBadRequest, "target is required")
		return
	}
	switch req.Flow {
	case db.FlowWeb:
		u, err := url.Parse(req.Target)
		if err != nil || u.Scheme != "http" && u.Scheme != "https" {
			s.errorResponse(w, http.StatusBadRequest, "web flow requires an http(s) target URL")
			return
		}
	case db.FlowAngular, db.FlowReact:
		info, err := os.Stat(req.Target)
		if err != nil || !info.IsDir() {
			s.errorResponse(w, http.StatusBadRequest, "target project directory not found")
			return
		}
	case "":
		s.errorResponse(w, http.StatusBadRequest, "flow is required (web, angular or react)")
		return
	default:
		s.errorResponse(w, http.StatusBadRequest, "unknown flow: "+req.Flow)
		return
	}

	runDir := pipeline.NewRunDir(s.resultsDir, req.Target)
	runID, err := s.db.CreateRun(r.Context(), req.Target, req.Flow, runDir)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	log.Printf("Starting %s run %s for %s", req.Flow, runID, req.Target)

	s.hub.Open(runID)
	go s.executeRun(runID, runDir, req)

	s.jsonResponse(w, http.StatusAccepted, RunResponse{
		RunID:  runID.String(),
		Status: db.StatusRunning,
	})
}

// executeRun drives a remediation run to completion and records its outcome.
func (s *Server) executeRun(runID uuid.UUID, runDir string, req RunRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	opts := pipeline.RunOptions{
		RunID:      runID,
		RunDir:     runDir,
		APIKey:     s.apiKey,
		ResultsDir: s.resultsDir,
		CacheDir:   s.cacheDir,
		DB:         s.db,
		OnProgress: func(event pipeline.ProgressEvent) {
			s.hub.Publish(runID, event)
		},
	}

	var runErr error
	switch req.Flow {
	case db.FlowWeb:
		opts.URL = req.Target
		runErr = pipeline.RunWeb(ctx, opts)
	case db.FlowAngular:
		opts.ProjectPath = req.Target
		opts.AppURL = req.AppURL
		runErr = pipeline.RunAngular(ctx, opts)
	case db.FlowReact:
		opts.ProjectPath = req.Target
		opts.AppURL = req.AppURL
		runErr = pipeline.RunReact(ctx, opts)
	}

	status := db.StatusCompleted
	if runErr != nil {
		status = db.StatusFailed
		log.Printf("Run %s failed: %v", runID, runErr)
	}

	// The outer context may already be expired; record the outcome regardless.
	finishCtx, finishCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer finishCancel()
	if err := s.db.CompleteRun(finishCtx, runID, status); err != nil {
		log.Printf("Failed to record outcome of run %s: %v", runID, err)
	}

	s.hub.Close(runID)
}

// handleListRuns returns recent runs, optionally filtered by flow and status
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filters := db.RunFilters{
		Flow:   r.URL.Query().Get("flow"),
		Status: r.URL.Query().Get("status"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filters.Limit = limit
	}

	runs, err := s.db.ListRuns(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns a single run by ID
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, run)
}

// handleGetSummary returns the stored run summary JSON
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	summary, err := s.db.GetRunSummary(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if summary == nil {
		s.errorResponse(w, http.StatusNotFound, "Summary not available")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(summary); err != nil {
		log.Printf("Error writing summary response: %v", err)
	}
}

// handleReport serves the before/after comparison page for a run
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}
	if run.RunDir == "" {
		s.errorResponse(w, http.StatusNotFound, "Report not available")
		return
	}

	reportPath := filepath.Join(run.RunDir, pipeline.ComparisonFile)
	if _, err := os.Stat(reportPath); err != nil {
		s.errorResponse(w, http.StatusNotFound, "Report not available")
		return
	}

	http.ServeFile(w, r, reportPath)
}

// handleDeleteRun deletes a run record. Requires authentication.
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	run, err := s.db.GetRun(r.Context(), runID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		s.errorResponse(w, http.StatusNotFound, "Run not found")
		return
	}
	if run.Status == db.StatusRunning {
		s.errorResponse(w, http.StatusConflict, "Run is still in progress")
		return
	}

	if err := s.db.DeleteRun(r.Context(), runID); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{
		"message": "Run deleted",
		"run_id":  runID.String(),
	})
}

// handleRunEvents streams run progress via SSE
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.parseRunID(w, r)
	if !ok {
		return
	}

	events, cancel, live := s.hub.Subscribe(runID)
	if !live {
		// No active stream; report the stored terminal status if the run exists.
		run, err := s.db.GetRun(r.Context(), runID)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
			return
		}
		if run == nil {
			s.errorResponse(w, http.StatusNotFound, "Run not found")
			return
		}
		sse, err := NewSSEWriter(w)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
		sse.WriteComplete(run.ID.String(), run.Status)
		return
	}
	defer cancel()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				// Stream closed; the run's terminal status is already stored.
				status := db.StatusCompleted
				if run, err := s.db.GetRun(context.Background(), runID); err == nil && run != nil {
					status = run.Status
				}
				sse.WriteComplete(runID.String(), status)
				return
			}
			if err := sse.WriteEvent("step", event); err != nil {
				return
			}
		case <-keepAlive.C:
			if err := sse.WriteKeepAlive(); err != nil {
				return
			}
		}
	}
}

// parseRunID extracts and parses the {id} path value, writing an error
// response on failure.
func (s *Server) parseRunID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		s.errorResponse(w, http.StatusBadRequest, "Run ID is required")
		return uuid.Nil, false
	}
	runID, err := uuid.Parse(idStr)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID format")
		return uuid.Nil, false
	}
	return runID, true
}
