/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dfliao/redmine-report/internal/config"
	"github.com/dfliao/redmine-report/internal/domain"
	"github.com/dfliao/redmine-report/internal/services"
	"github.com/rs/zerolog"
)

type reportService interface {
	IssueStatistics(ctx context.Context, start, end time.Time, scope services.Scope) ([]domain.StatisticsRow, error)
	IssueList(ctx context.Context, start, end time.Time, scope services.Scope) ([]domain.IssueRow, error)
	DueDateChanges(ctx context.Context, statusFilter string, target time.Time) ([]domain.DueDateChange, error)
	ListUsers(ctx context.Context) []domain.User
	Statuses(ctx context.Context) ([]domain.IssueStatus, error)
	Trackers(ctx context.Context) ([]domain.Tracker, error)
	DashboardStats(ctx context.Context) domain.DashboardStats
}

type reportGenerator interface {
	SendReport(ctx context.Context, reportType int, override []string) (int, error)
	Runs() *services.RunLog
}

type Handlers struct {
	cfg config.Config
	log zerolog.Logger
	svc reportService
	gen reportGenerator
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc reportService, gen reportGenerator) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc, gen: gen}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) days(c *gin.Context) int {
	d, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(h.cfg.ReportDays)))
	if err != nil || d <= 0 { d = h.cfg.ReportDays }
	return d
}

func (h *Handlers) statisticsData(c *gin.Context, scope services.Scope) {
	now := time.Now()
	start := now.AddDate(0, 0, -h.days(c))
	rows, err := h.svc.IssueStatistics(c.Request.Context(), start, now, scope)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	issues, err := h.svc.IssueList(c.Request.Context(), start, now, scope)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"start_date": start.Format("2006-01-02"),
		"end_date":   now.Format("2006-01-02"),
		"statuses":   h.cfg.Spec.DisplayStatuses(),
		"statistics": rows,
		"issues":     issues,
		"note":       h.cfg.Spec.AggregationNote(),
	})
}

func (h *Handlers) Report1Data(c *gin.Context) { h.statisticsData(c, services.ScopeRegular) }
func (h *Handlers) Report3Data(c *gin.Context) { h.statisticsData(c, services.ScopeSpecial) }

func (h *Handlers) Report2Data(c *gin.Context) {
	status := c.DefaultQuery("status", "open")
	if status != "open" && status != "all" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be open or all"})
		return
	}
	target := time.Now()
	if raw := c.Query("update_date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "update_date must be YYYY-MM-DD"})
			return
		}
		target = parsed
	}
	changes, err := h.svc.DueDateChanges(c.Request.Context(), status, target)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":    target.Format("2006-01-02"),
		"status":  status,
		"changes": changes,
	})
}

func (h *Handlers) Users(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.svc.ListUsers(c.Request.Context())})
}

func (h *Handlers) Statuses(c *gin.Context) {
	statuses, err := h.svc.Statuses(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

func (h *Handlers) Trackers(c *gin.Context) {
	trackers, err := h.svc.Trackers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trackers": trackers})
}

func (h *Handlers) DashboardStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.DashboardStats(c.Request.Context()))
}

type sendReportRequest struct {
	ReportType int      `json:"report_type" binding:"required"`
	Recipients []string `json:"recipients"`
}

// SendReport generates and delivers synchronously so the caller learns
// the real outcome; triggering twice in parallel just sends twice.
func (h *Handlers) SendReport(c *gin.Context) {
	var req sendReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ReportType < 1 || req.ReportType > 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report_type must be 1, 2 or 3"})
		return
	}
	n, err := h.gen.SendReport(c.Request.Context(), req.ReportType, req.Recipients)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true, "recipients": n})
}

// RunNow fires reports in sequence and reports per-report outcomes.
// Without a "reports" query the auto-send-enabled set runs, same as a
// cron fire; an explicit comma list overrides the flags.
func (h *Handlers) RunNow(c *gin.Context) {
	var types []int
	if raw := c.Query("reports"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			typ, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || typ < 1 || typ > 3 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "reports must be a comma list of 1..3"})
				return
			}
			types = append(types, typ)
		}
	} else {
		if h.cfg.Report1AutoSend { types = append(types, 1) }
		if h.cfg.Report2AutoSend { types = append(types, 2) }
		if h.cfg.Report3AutoSend { types = append(types, 3) }
	}
	results := gin.H{}
	ok := true
	for _, typ := range types {
		if _, err := h.gen.SendReport(c.Request.Context(), typ, nil); err != nil {
			results[strconv.Itoa(typ)] = err.Error()
			ok = false
			continue
		}
		results[strconv.Itoa(typ)] = "sent"
	}
	status := http.StatusOK
	if !ok { status = http.StatusBadGateway }
	c.JSON(status, gin.H{"ok": ok, "results": results})
}

func (h *Handlers) LastRun(c *gin.Context) {
	last, ok := h.gen.Runs().Last()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"runs": []services.RunRecord{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"last": last, "runs": h.gen.Runs().Recent()})
}
