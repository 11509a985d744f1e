package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/finzora/signal-engine/internal/api/middleware"
	"github.com/finzora/signal-engine/internal/infra"
	"github.com/finzora/signal-engine/internal/jobs"
	"github.com/finzora/signal-engine/internal/report"
	"github.com/finzora/signal-engine/internal/signal"
)

// evaluateRequest is the shared request body for the signal endpoints. A
// snapshot comes either from the repository (userId) or inline as raw
// documents; an optional fixed clock makes responses reproducible.
type evaluateRequest struct {
	UserID              string                   `json:"userId"`
	Transactions        []map[string]interface{} `json:"transactions"`
	Budgets             []map[string]interface{} `json:"budgets"`
	ManualSubscriptions []map[string]interface{} `json:"manualSubscriptions"`
	Now                 string                   `json:"now"`
	Archive             bool                     `json:"archive"`
}

// SignalsHandler serves the signal evaluation endpoints.
type SignalsHandler struct {
	repo       infra.SnapshotRepository
	publisher  jobs.Publisher
	archiver   report.Archiver
	thresholds signal.Thresholds
	log        zerolog.Logger
}

// NewSignalsHandler creates a new signals handler. The archiver may be nil
// when report archiving is disabled.
func NewSignalsHandler(repo infra.SnapshotRepository, publisher jobs.Publisher, archiver report.Archiver, thresholds signal.Thresholds, log zerolog.Logger) *SignalsHandler {
	return &SignalsHandler{
		repo:       repo,
		publisher:  publisher,
		archiver:   archiver,
		thresholds: thresholds,
		log:        log,
	}
}

// Subscriptions handles POST /api/signals/subscriptions
func (h *SignalsHandler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	_, snap, now, ok := h.prepare(w, r)
	if !ok {
		return
	}

	detected := signal.DetectRecurring(snap.Transactions, now)
	merged := signal.MergeSubscriptions(detected, snap.ManualSubscriptions, now)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"subscriptions": merged,
		"count":         len(merged),
	})
}

// Insights handles POST /api/signals/insights
func (h *SignalsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	_, snap, now, ok := h.prepare(w, r)
	if !ok {
		return
	}

	insights := signal.GenerateInsights(snap.Transactions, now)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"insights": insights,
		"count":    len(insights),
	})
}

// Alerts handles POST /api/signals/alerts
func (h *SignalsHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	_, snap, now, ok := h.prepare(w, r)
	if !ok {
		return
	}

	alerts := signal.GenerateAlertsWith(h.thresholds, snap.Transactions, snap.Budgets, now)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// Report handles POST /api/signals/report
func (h *SignalsHandler) Report(w http.ResponseWriter, r *http.Request) {
	req, snap, now, ok := h.prepare(w, r)
	if !ok {
		return
	}

	rep := report.Build(snap, req.UserID, h.thresholds, now)

	if req.Archive {
		if h.archiver == nil {
			middleware.WriteError(w, http.StatusBadRequest, "Report archiving is not configured")
			return
		}
		uri, err := h.archiver.Archive(r.Context(), rep)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to archive report")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to archive report")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"report":    rep,
			"reportUri": uri,
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"report": rep})
}

// Refresh handles POST /api/signals/refresh
// It enqueues an asynchronous evaluation for the given user.
func (h *SignalsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "userId is required")
		return
	}

	now, err := parseClock(req.Now)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid now value")
		return
	}

	job := &jobs.EvaluateSignalsJob{
		UserID:        req.UserID,
		ArchiveReport: req.Archive,
	}
	if req.Now != "" {
		job.AsOf = now
	}

	if err := h.publisher.PublishEvaluateSignals(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue evaluation job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue evaluation job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("user_id", req.UserID).Msg("Evaluation job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"user_id": req.UserID,
		"status":  string(job.Status),
	})
}

// prepare decodes the request, resolves a snapshot and the evaluation
// clock. On failure it writes the error response and returns ok=false.
func (h *SignalsHandler) prepare(w http.ResponseWriter, r *http.Request) (*evaluateRequest, *infra.Snapshot, time.Time, bool) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return nil, nil, time.Time{}, false
	}

	now, err := parseClock(req.Now)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid now value")
		return nil, nil, time.Time{}, false
	}

	snap, err := h.resolveSnapshot(r.Context(), &req)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to load snapshot")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load snapshot")
		return nil, nil, time.Time{}, false
	}

	return &req, snap, now, true
}

// resolveSnapshot prefers the repository when a userId is given; otherwise
// the inline documents are parsed. Missing inline collections count as
// empty.
func (h *SignalsHandler) resolveSnapshot(ctx context.Context, req *evaluateRequest) (*infra.Snapshot, error) {
	if req.UserID != "" {
		return infra.LoadSnapshot(ctx, h.repo, req.UserID)
	}

	return infra.ParseSnapshot(&infra.RawSnapshot{
		Transactions:        req.Transactions,
		Budgets:             req.Budgets,
		ManualSubscriptions: req.ManualSubscriptions,
	})
}

// parseClock parses the optional fixed evaluation clock. Empty means wall
// time.
func parseClock(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Layout: time.RFC3339, Value: value}
}

// Suggester provides AI-assisted category suggestions.
type Suggester interface {
	Suggest(ctx context.Context, title, description string) (string, error)
}

// CategorizeHandler handles category suggestion requests.
type CategorizeHandler struct {
	suggester Suggester
	log       zerolog.Logger
}

// NewCategorizeHandler creates a new categorize handler. The suggester may
// be nil, in which case only the keyword table is used.
func NewCategorizeHandler(suggester Suggester, log zerolog.Logger) *CategorizeHandler {
	return &CategorizeHandler{suggester: suggester, log: log}
}

// Categorize handles POST /api/categorize
func (h *CategorizeHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" {
		middleware.WriteError(w, http.StatusBadRequest, "title is required")
		return
	}

	source := "keyword"
	category := signal.Categorize(req.Title)

	if h.suggester != nil {
		suggested, err := h.suggester.Suggest(r.Context(), req.Title, req.Description)
		if err != nil {
			h.log.Warn().Err(err).Str("title", req.Title).Msg("AI suggestion failed, using keyword match")
		} else {
			source = "ai"
			category = suggested
		}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"category": category,
		"source":   source,
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: query.Get("user_id"),
	}

	if statusStr := query.Get("status"); statusStr != "" {
		status := jobs.JobStatus(statusStr)
		if !status.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, "Unknown status value")
			return
		}
		filter.Status = status
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
