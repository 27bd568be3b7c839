package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dfliao/redmine-report/internal/config"
	"github.com/dfliao/redmine-report/internal/domain"
	"github.com/dfliao/redmine-report/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	statsErr error
	changes  []domain.DueDateChange
	lastDate time.Time
	lastStat string
}

func (s *stubService) IssueStatistics(context.Context, time.Time, time.Time, services.Scope) ([]domain.StatisticsRow, error) {
	return []domain.StatisticsRow{{Role: "工程師", Assignee: "陳工程師", Counts: map[string]int{"進行中": 2}}}, s.statsErr
}
func (s *stubService) IssueList(context.Context, time.Time, time.Time, services.Scope) ([]domain.IssueRow, error) {
	return nil, nil
}
func (s *stubService) DueDateChanges(_ context.Context, statusFilter string, target time.Time) ([]domain.DueDateChange, error) {
	s.lastStat, s.lastDate = statusFilter, target
	return s.changes, nil
}
func (s *stubService) ListUsers(context.Context) []domain.User {
	return []domain.User{{ID: 1, Name: "System Admin", Mail: "admin@example.com"}}
}
func (s *stubService) Statuses(context.Context) ([]domain.IssueStatus, error) { return nil, nil }
func (s *stubService) Trackers(context.Context) ([]domain.Tracker, error)     { return nil, nil }
func (s *stubService) DashboardStats(context.Context) domain.DashboardStats {
	return domain.DashboardStats{TotalIssues: 10}
}

type stubGenerator struct {
	sent []int
	err  error
	runs *services.RunLog
}

func (g *stubGenerator) SendReport(_ context.Context, reportType int, _ []string) (int, error) {
	g.sent = append(g.sent, reportType)
	return 1, g.err
}
func (g *stubGenerator) Runs() *services.RunLog { return g.runs }

func newTestRouter(svc *stubService, gen *stubGenerator) http.Handler {
	if gen.runs == nil { gen.runs = services.NewRunLog() }
	cfg := config.Config{AppEnv: "test", ReportDays: 14, Spec: config.DefaultReportSpec()}
	return NewRouter(cfg, zerolog.Nop(), svc, gen)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := get(t, newTestRouter(&stubService{}, &stubGenerator{}), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReport1Data(t *testing.T) {
	w := get(t, newTestRouter(&stubService{}, &stubGenerator{}), "/api/report1/data?days=7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "陳工程師")
	assert.Contains(t, w.Body.String(), "加總") // footnote ships with the data
}

func TestReport1DataUpstreamFailure(t *testing.T) {
	w := get(t, newTestRouter(&stubService{statsErr: errors.New("redmine down")}, &stubGenerator{}), "/api/report1/data")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestReport2DataValidation(t *testing.T) {
	svc := &stubService{}
	h := newTestRouter(svc, &stubGenerator{})

	w := get(t, h, "/api/report2/data?status=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, h, "/api/report2/data?update_date=18-03-2024")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, h, "/api/report2/data?status=all&update_date=2024-03-18")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "all", svc.lastStat)
	assert.Equal(t, "2024-03-18", svc.lastDate.Format("2006-01-02"))
}

func TestSendReportValidation(t *testing.T) {
	gen := &stubGenerator{}
	h := newTestRouter(&stubService{}, gen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/send-report", strings.NewReader(`{"report_type":9}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, gen.sent)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/send-report", strings.NewReader(`{"report_type":2,"recipients":["a@x.com"]}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{2}, gen.sent)
}

func TestAdminRunFiresSelectedReports(t *testing.T) {
	gen := &stubGenerator{}
	h := newTestRouter(&stubService{}, gen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/run?reports=1,3", nil)
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{1, 3}, gen.sent)
}

func TestAdminRunDefaultsToEnabledReports(t *testing.T) {
	gen := &stubGenerator{runs: services.NewRunLog()}
	cfg := config.Config{AppEnv: "test", ReportDays: 14, Spec: config.DefaultReportSpec(),
		Report1AutoSend: true, Report2AutoSend: true}
	h := NewRouter(cfg, zerolog.Nop(), &stubService{}, gen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/run", nil)
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{1, 2}, gen.sent)
}

func TestAdminRunReportsFailures(t *testing.T) {
	gen := &stubGenerator{err: errors.New("smtp down")}
	h := newTestRouter(&stubService{}, gen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/run?reports=1", nil)
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "smtp down")
}

func TestLastRunEmpty(t *testing.T) {
	w := get(t, newTestRouter(&stubService{}, &stubGenerator{}), "/admin/last-run")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "runs")
}
