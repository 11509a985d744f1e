package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/finzora/signal-engine/internal/domain"
	"github.com/finzora/signal-engine/internal/jobs"
	"github.com/finzora/signal-engine/internal/logger"
	"github.com/finzora/signal-engine/internal/report"
	"github.com/finzora/signal-engine/internal/signal"
)

type mockRepo struct {
	transactions []map[string]interface{}
	budgets      []map[string]interface{}
	manual       []map[string]interface{}
	err          error
}

func (m *mockRepo) Transactions(ctx context.Context, userID string) ([]map[string]interface{}, error) {
	return m.transactions, m.err
}

func (m *mockRepo) Budgets(ctx context.Context, userID string) ([]map[string]interface{}, error) {
	return m.budgets, m.err
}

func (m *mockRepo) ManualSubscriptions(ctx context.Context, userID string) ([]map[string]interface{}, error) {
	return m.manual, m.err
}

func (m *mockRepo) Close() error { return nil }

type mockPublisher struct {
	published []*jobs.EvaluateSignalsJob
	err       error
}

func (m *mockPublisher) PublishEvaluateSignals(ctx context.Context, job *jobs.EvaluateSignalsJob) error {
	if m.err != nil {
		return m.err
	}
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	m.published = append(m.published, job)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

type mockArchiver struct {
	archived int
	uri      string
	err      error
}

func (m *mockArchiver) Archive(ctx context.Context, r *report.Report) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.archived++
	return m.uri, nil
}

func newTestHandler(repo *mockRepo, pub *mockPublisher, arch report.Archiver) *SignalsHandler {
	log := logger.NewWithWriter(bytes.NewBuffer(nil))
	return NewSignalsHandler(repo, pub, arch, signal.DefaultThresholds(), log)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestSubscriptionsInlineSnapshot(t *testing.T) {
	h := newTestHandler(&mockRepo{}, &mockPublisher{}, nil)

	body := map[string]interface{}{
		"now": "2025-06-15",
		"transactions": []map[string]interface{}{
			{"id": "t1", "title": "Netflix", "amount": 799.0, "date": "2025-03-15", "type": "expense"},
			{"id": "t2", "title": "Netflix", "amount": 799.0, "date": "2025-04-15", "type": "expense"},
			{"id": "t3", "title": "Netflix", "amount": 799.0, "date": "2025-05-15", "type": "expense"},
		},
	}

	rec := postJSON(t, h.Subscriptions, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Subscriptions []domain.Subscription `json:"subscriptions"`
		Count         int                   `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Count != 1 || len(resp.Subscriptions) != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Subscriptions[0].Name != "Netflix" {
		t.Errorf("name = %s", resp.Subscriptions[0].Name)
	}
}

func TestSubscriptionsLoadsFromRepo(t *testing.T) {
	repo := &mockRepo{
		transactions: []map[string]interface{}{
			{"id": "t1", "title": "Spotify", "amount": 119.0, "date": "2025-04-01", "type": "expense"},
			{"id": "t2", "title": "Spotify", "amount": 119.0, "date": "2025-05-01", "type": "expense"},
		},
		budgets: []map[string]interface{}{},
		manual:  []map[string]interface{}{},
	}
	h := newTestHandler(repo, &mockPublisher{}, nil)

	rec := postJSON(t, h.Subscriptions, map[string]interface{}{"userId": "u1", "now": "2025-05-20"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Count != 1 {
		t.Errorf("count = %d, want detected Spotify", resp.Count)
	}
}

func TestSubscriptionsRepoFailure(t *testing.T) {
	h := newTestHandler(&mockRepo{err: errors.New("backend down")}, &mockPublisher{}, nil)

	rec := postJSON(t, h.Subscriptions, map[string]interface{}{"userId": "u1"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestInsightsEmptySnapshot(t *testing.T) {
	h := newTestHandler(&mockRepo{}, &mockPublisher{}, nil)

	rec := postJSON(t, h.Insights, map[string]interface{}{"now": "2025-06-15"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Insights []domain.Insight `json:"insights"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Insights) != 1 || resp.Insights[0].ID != "no-data" {
		t.Errorf("insights = %+v, want the no-data insight", resp.Insights)
	}
}

func TestAlertsBudgetBreach(t *testing.T) {
	h := newTestHandler(&mockRepo{}, &mockPublisher{}, nil)

	body := map[string]interface{}{
		"now": "2025-06-20",
		"transactions": []map[string]interface{}{
			{"id": "t1", "title": "Groceries", "amount": 9000.0, "date": "2025-06-05", "category": "Food", "type": "expense"},
		},
		"budgets": []map[string]interface{}{
			{"category": "Food", "limit": 8000.0},
		},
	}

	rec := postJSON(t, h.Alerts, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Alerts []domain.SmartAlert `json:"alerts"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)

	found := false
	for _, a := range resp.Alerts {
		if a.ID == "budget-crit-Food" && a.Type == domain.AlertCritical {
			found = true
		}
	}
	if !found {
		t.Errorf("expected critical budget alert, got %+v", resp.Alerts)
	}
}

func TestInvalidNowRejected(t *testing.T) {
	h := newTestHandler(&mockRepo{}, &mockPublisher{}, nil)
	rec := postJSON(t, h.Alerts, map[string]interface{}{"now": "yesterday"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestInvalidBodyRejected(t *testing.T) {
	h := newTestHandler(&mockRepo{}, &mockPublisher{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Insights(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestReportArchives(t *testing.T) {
	arch := &mockArchiver{uri: "gs://bucket/reports/u1/report-x.json"}
	h := newTestHandler(&mockRepo{
		transactions: []map[string]interface{}{},
		budgets:      []map[string]interface{}{},
		manual:       []map[string]interface{}{},
	}, &mockPublisher{}, arch)

	rec := postJSON(t, h.Report, map[string]interface{}{
		"userId": "u1", "now": "2025-06-15", "archive": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if arch.archived != 1 {
		t.Errorf("archived = %d, want 1", arch.archived)
	}

	var resp struct {
		ReportURI string `json:"reportUri"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ReportURI != arch.uri {
		t.Errorf("reportUri = %s", resp.ReportURI)
	}
}

func TestReportArchiveUnconfigured(t *testing.T) {
	h := newTestHandler(&mockRepo{}, &mockPublisher{}, nil)

	rec := postJSON(t, h.Report, map[string]interface{}{"archive": true})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRefreshEnqueuesJob(t *testing.T) {
	pub := &mockPublisher{}
	h := newTestHandler(&mockRepo{}, pub, nil)

	rec := postJSON(t, h.Refresh, map[string]interface{}{"userId": "u1", "now": "2025-06-15"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(pub.published))
	}
	if pub.published[0].UserID != "u1" || pub.published[0].AsOf.IsZero() {
		t.Errorf("unexpected job: %+v", pub.published[0])
	}
}

func TestRefreshRequiresUser(t *testing.T) {
	h := newTestHandler(&mockRepo{}, &mockPublisher{}, nil)
	rec := postJSON(t, h.Refresh, map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

type mockSuggester struct {
	label string
	err   error
}

func (m *mockSuggester) Suggest(ctx context.Context, title, description string) (string, error) {
	return m.label, m.err
}

func TestCategorizeKeywordFallback(t *testing.T) {
	log := logger.NewWithWriter(bytes.NewBuffer(nil))
	h := NewCategorizeHandler(nil, log)

	rec := postJSON(t, h.Categorize, map[string]string{"title": "Starbucks Coffee"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["category"] != "Food" || resp["source"] != "keyword" {
		t.Errorf("resp = %v", resp)
	}
}

func TestCategorizeUsesSuggester(t *testing.T) {
	log := logger.NewWithWriter(bytes.NewBuffer(nil))
	h := NewCategorizeHandler(&mockSuggester{label: "Entertainment"}, log)

	rec := postJSON(t, h.Categorize, map[string]string{"title": "Some Venue"})
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["category"] != "Entertainment" || resp["source"] != "ai" {
		t.Errorf("resp = %v", resp)
	}
}

func TestCategorizeSuggesterFailureFallsBack(t *testing.T) {
	log := logger.NewWithWriter(bytes.NewBuffer(nil))
	h := NewCategorizeHandler(&mockSuggester{err: errors.New("quota")}, log)

	rec := postJSON(t, h.Categorize, map[string]string{"title": "Uber ride"})
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["category"] != "Transport" || resp["source"] != "keyword" {
		t.Errorf("resp = %v", resp)
	}
}

func TestCategorizeRequiresTitle(t *testing.T) {
	log := logger.NewWithWriter(bytes.NewBuffer(nil))
	h := NewCategorizeHandler(nil, log)

	rec := postJSON(t, h.Categorize, map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestJobsEndpoints(t *testing.T) {
	store := &mockStore{jobs: map[string]*jobs.EvaluateSignalsJob{
		"j1": {JobID: "j1", UserID: "u1", Status: jobs.JobStatusCompleted},
	}}
	log := logger.NewWithWriter(bytes.NewBuffer(nil))
	h := NewJobsHandler(store, log)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ListJobs status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?status=completed", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ListJobs known status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?status=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ListJobs unknown status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/j1", nil), "j1")
	if rec.Code != http.StatusOK {
		t.Errorf("GetJob status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), "nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GetJob missing status = %d, want 404", rec.Code)
	}
}

type mockStore struct {
	jobs map[string]*jobs.EvaluateSignalsJob
}

func (m *mockStore) SaveJob(ctx context.Context, job *jobs.EvaluateSignalsJob) error {
	m.jobs[job.JobID] = job
	return nil
}

func (m *mockStore) GetJob(ctx context.Context, jobID string) (*jobs.EvaluateSignalsJob, error) {
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, errors.New("job not found")
	}
	return job, nil
}

func (m *mockStore) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.EvaluateSignalsJob, error) {
	var out []*jobs.EvaluateSignalsJob
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (m *mockStore) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	return nil
}
