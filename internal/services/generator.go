/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dfliao/redmine-report/internal/config"
	"github.com/dfliao/redmine-report/internal/render"
	"github.com/rs/zerolog"
)

type MailSender interface {
	Send(ctx context.Context, subject, htmlBody string, recipients []string) error
}

type ReportRenderer interface {
	Statistics(data render.StatisticsData) (string, error)
	DueDates(data render.DueDateData) (string, error)
}

// Generator orchestrates one report end to end: gather, render, resolve
// recipients, deliver, record.
type Generator struct {
	cfg      config.Config
	log      zerolog.Logger
	svc      *Service
	renderer ReportRenderer
	sender   MailSender
	runs     *RunLog
}

func NewGenerator(cfg config.Config, log zerolog.Logger, svc *Service, renderer ReportRenderer, sender MailSender, runs *RunLog) *Generator {
	return &Generator{cfg: cfg, log: log, svc: svc, renderer: renderer, sender: sender, runs: runs}
}

// SendReport builds and delivers one report, recording the attempt in
// the run log. It returns the number of recipients reached.
func (g *Generator) SendReport(ctx context.Context, reportType int, override []string) (int, error) {
	started := time.Now()
	n, recipients, err := g.send(ctx, reportType, override)
	rec := RunRecord{Report: reportType, StartedAt: started, FinishedAt: time.Now(), Recipients: recipients, OK: err == nil}
	if err != nil { rec.Error = err.Error() }
	g.runs.Add(rec)
	return n, err
}

func (g *Generator) send(ctx context.Context, reportType int, override []string) (int, []string, error) {
	now := time.Now()
	var body string
	var err error
	switch reportType {
	case 1:
		body, err = g.statisticsBody(ctx, "議題進度統計報表", ScopeRegular, now)
	case 2:
		body, err = g.dueDatesBody(ctx, now)
	case 3:
		body, err = g.statisticsBody(ctx, "專項用專案統計報表", ScopeSpecial, now)
	default:
		return 0, nil, fmt.Errorf("unknown report type %d", reportType)
	}
	if err != nil { return 0, nil, err }

	recipients := g.svc.ResolveRecipients(ctx, reportType, override)
	if len(recipients) == 0 {
		return 0, nil, fmt.Errorf("report %d: no recipients resolved", reportType)
	}
	subject := g.cfg.Subject(reportType, now.Format("2006-01-02"))
	if err := g.sender.Send(ctx, subject, body, recipients); err != nil {
		return 0, recipients, fmt.Errorf("report %d: %w", reportType, err)
	}
	g.log.Info().Int("report", reportType).Int("recipients", len(recipients)).Msg("report delivered")
	return len(recipients), recipients, nil
}

func (g *Generator) statisticsBody(ctx context.Context, title string, scope Scope, now time.Time) (string, error) {
	start := now.AddDate(0, 0, -g.cfg.ReportDays)
	rows, err := g.svc.IssueStatistics(ctx, start, now, scope)
	if err != nil { return "", err }
	issues, err := g.svc.IssueList(ctx, start, now, scope)
	if err != nil { return "", err }
	return g.renderer.Statistics(render.StatisticsData{
		Title:       title,
		StartDate:   start.Format("2006-01-02"),
		EndDate:     now.Format("2006-01-02"),
		Rows:        rows,
		Issues:      issues,
		GeneratedAt: now.Format("2006-01-02 15:04:05"),
	})
}

func (g *Generator) dueDatesBody(ctx context.Context, now time.Time) (string, error) {
	changes, err := g.svc.DueDateChanges(ctx, "open", now)
	if err != nil { return "", err }
	return g.renderer.DueDates(render.DueDateData{
		Title:       "完成日期異動追蹤報表",
		Date:        now.Format("2006-01-02"),
		Changes:     changes,
		GeneratedAt: now.Format("2006-01-02 15:04:05"),
	})
}

// RunScheduled fires every auto-send-enabled report in sequence. One
// report failing never blocks the others.
func (g *Generator) RunScheduled(ctx context.Context) {
	enabled := []struct {
		typ int
		on  bool
	}{
		{1, g.cfg.Report1AutoSend},
		{2, g.cfg.Report2AutoSend},
		{3, g.cfg.Report3AutoSend},
	}
	for _, r := range enabled {
		if !r.on { continue }
		if _, err := g.SendReport(ctx, r.typ, nil); err != nil {
			g.log.Error().Err(err).Int("report", r.typ).Msg("scheduled report failed")
		}
	}
}

// Runs exposes the run log for the admin endpoints.
func (g *Generator) Runs() *RunLog { return g.runs }
