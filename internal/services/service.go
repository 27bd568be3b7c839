/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dfliao/redmine-report/internal/adapters/redmine"
	"github.com/dfliao/redmine-report/internal/config"
	"github.com/dfliao/redmine-report/internal/domain"
	"github.com/rs/zerolog"
)

const (
	dateLayout   = "2006-01-02"
	minuteLayout = "2006-01-02 15:04"
)

type TrackerClient interface {
	Issues(ctx context.Context, f redmine.IssueFilter) ([]domain.Issue, error)
	Projects(ctx context.Context) ([]domain.Project, error)
	UsersByStatus(ctx context.Context, status, limit int) ([]domain.User, error)
	AllUsers(ctx context.Context, limit int) ([]domain.User, error)
	Statuses(ctx context.Context) ([]domain.IssueStatus, error)
	Trackers(ctx context.Context) ([]domain.Tracker, error)
	TotalIssueCount(ctx context.Context) (int, error)
	OpenIssueCount(ctx context.Context) (int, error)
	TodayUpdateCount(ctx context.Context) (int, error)
}

// Scope selects which half of the special-project partition a report
// covers. Every issue lands in exactly one of the two.
type Scope int

const (
	ScopeRegular Scope = iota
	ScopeSpecial
)

type Service struct {
	cfg        config.Config
	log        zerolog.Logger
	rm         TrackerClient
	classifier RoleClassifier
	special    map[int64]struct{} // write-once at construction, read-only after
}

func New(cfg config.Config, log zerolog.Logger, rm TrackerClient, classifier RoleClassifier, special map[int64]struct{}) *Service {
	if special == nil { special = map[int64]struct{}{} }
	return &Service{cfg: cfg, log: log, rm: rm, classifier: classifier, special: special}
}

func (s *Service) excluded(is domain.Issue, scope Scope) bool {
	_, inSpecial := s.special[is.Project.ID]
	if scope == ScopeSpecial {
		return !inSpecial
	}
	return inSpecial
}

// IssueStatistics builds the role×assignee×status count matrix for issues
// updated on/after start and created on/before end. The update window has
// no upper bound on purpose; the filter test in the redmine package pins
// the exact parameters.
func (s *Service) IssueStatistics(ctx context.Context, start, end time.Time, scope Scope) ([]domain.StatisticsRow, error) {
	issues, err := s.rm.Issues(ctx, redmine.IssueFilter{
		UpdatedOn:       ">=" + start.Format(dateLayout),
		CreatedOn:       "<=" + end.Format(dateLayout),
		StatusID:        "*",
		IncludeJournals: true,
	})
	if err != nil { return nil, fmt.Errorf("issue statistics: %w", err) }

	type key struct{ role, assignee string }
	tallies := map[key]map[string]int{}
	for _, is := range issues {
		if s.excluded(is, scope) { continue }
		assignee := s.cfg.Spec.Roles.Unassigned
		role := s.cfg.Spec.Roles.Unassigned
		if is.Assignee != nil && is.Assignee.Name != "" {
			assignee = is.Assignee.Name
			role = s.classify(is)
		}
		status := is.Status.Name
		if status == "" { status = "未知狀態" }
		k := key{role: role, assignee: assignee}
		if tallies[k] == nil { tallies[k] = map[string]int{} }
		tallies[k][status]++
	}

	display := s.cfg.Spec.DisplayStatuses()
	rows := make([]domain.StatisticsRow, 0, len(tallies))
	for k, statuses := range tallies {
		counts := make(map[string]int, len(display))
		for _, st := range display { counts[st] = 0 }
		for name, n := range statuses {
			if s.cfg.Spec.IsAggregated(name) {
				counts[s.cfg.Spec.Aggregate.Name] += n
				continue
			}
			if _, ok := counts[name]; ok { counts[name] += n }
		}
		rows = append(rows, domain.StatisticsRow{Role: k.role, Assignee: k.assignee, Counts: counts})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Role != rows[j].Role { return rows[i].Role < rows[j].Role }
		return rows[i].Assignee < rows[j].Assignee
	})
	s.log.Info().Int("rows", len(rows)).Int("scope", int(scope)).Msg("issue statistics built")
	return rows, nil
}

// classify never aborts the batch: a classifier failure downgrades that
// one issue to the generic role.
func (s *Service) classify(is domain.Issue) string {
	role, err := s.classifier.Classify(is.Assignee.Name, nil)
	if err != nil {
		s.log.Warn().Err(err).Int64("issue", is.ID).Str("assignee", is.Assignee.Name).Msg("role classification failed")
		return s.cfg.Spec.Roles.Default
	}
	return role
}

// IssueList returns the flat listing of issues due inside [start, end],
// re-sorted client-side for deterministic display grouping.
func (s *Service) IssueList(ctx context.Context, start, end time.Time, scope Scope) ([]domain.IssueRow, error) {
	issues, err := s.rm.Issues(ctx, redmine.IssueFilter{
		DueDate:         "><" + start.Format(dateLayout) + "|" + end.Format(dateLayout),
		StatusID:        "*",
		Sort:            "due_date:asc",
		IncludeJournals: true,
	})
	if err != nil { return nil, fmt.Errorf("issue list: %w", err) }

	rows := make([]domain.IssueRow, 0, len(issues))
	for _, is := range issues {
		if s.excluded(is, scope) { continue }
		assignee := s.cfg.Spec.Roles.Unassigned
		if is.Assignee != nil && is.Assignee.Name != "" { assignee = is.Assignee.Name }
		updated := ""
		if !is.UpdatedOn.IsZero() { updated = is.UpdatedOn.In(time.Local).Format(minuteLayout) }
		rows = append(rows, domain.IssueRow{
			Project:   is.Project.Name,
			Priority:  is.Priority.Name,
			Tracker:   is.Tracker.Name,
			Assignee:  assignee,
			Status:    is.Status.Name,
			Subject:   is.Subject,
			DueDate:   is.DueDate,
			StartDate: is.StartDate,
			UpdatedOn: updated,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Project != b.Project { return a.Project < b.Project }
		if a.Priority != b.Priority { return a.Priority < b.Priority }
		if a.Tracker != b.Tracker { return a.Tracker < b.Tracker }
		if a.Assignee != b.Assignee { return a.Assignee < b.Assignee }
		return a.Status < b.Status
	})
	s.log.Info().Int("rows", len(rows)).Msg("issue list built")
	return rows, nil
}

// DueDateChanges extracts one row per journal detail that moved an
// issue's due date on the target calendar day. statusFilter is "open" or
// "all".
func (s *Service) DueDateChanges(ctx context.Context, statusFilter string, target time.Time) ([]domain.DueDateChange, error) {
	statusID := "*"
	if statusFilter == "open" { statusID = "o" }
	issues, err := s.rm.Issues(ctx, redmine.IssueFilter{
		UpdatedOn:       target.Format(dateLayout),
		StatusID:        statusID,
		IncludeJournals: true,
	})
	if err != nil { return nil, fmt.Errorf("due date changes: %w", err) }

	ty, tm, td := target.Date()
	var out []domain.DueDateChange
	for _, is := range issues {
		if s.excluded(is, ScopeRegular) { continue }
		assignee := s.cfg.Spec.Roles.Unassigned
		if is.Assignee != nil && is.Assignee.Name != "" { assignee = is.Assignee.Name }
		for _, j := range is.Journals {
			created := j.CreatedOn.In(time.Local)
			jy, jm, jd := created.Date()
			if jy != ty || jm != tm || jd != td { continue }
			modifier := j.User.Name
			if modifier == "" { modifier = "Unknown" }
			for _, d := range j.Details {
				if d.Property != "attr" || d.Name != "due_date" { continue }
				days, ok := dayDelta(d.OldValue, d.NewValue)
				out = append(out, domain.DueDateChange{
					Project:    is.Project.Name,
					Priority:   is.Priority.Name,
					Subject:    is.Subject,
					Modifier:   modifier,
					Assignee:   assignee,
					OldDueDate: d.OldValue,
					NewDueDate: d.NewValue,
					Days:       days,
					HasDays:    ok,
					ChangeDate: created.Format(minuteLayout),
				})
			}
		}
	}
	// largest slips first within a project
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Project != b.Project { return a.Project < b.Project }
		if a.SortDays() != b.SortDays() { return a.SortDays() > b.SortDays() }
		if a.Priority != b.Priority { return a.Priority < b.Priority }
		return a.Assignee < b.Assignee
	})
	s.log.Info().Int("rows", len(out)).Str("date", target.Format(dateLayout)).Msg("due date changes built")
	return out, nil
}

func dayDelta(oldStr, newStr string) (int, bool) {
	if oldStr == "" || newStr == "" { return 0, false }
	o, err := time.Parse(dateLayout, oldStr)
	if err != nil { return 0, false }
	n, err := time.Parse(dateLayout, newStr)
	if err != nil { return 0, false }
	return int(n.Sub(o).Hours() / 24), true
}

// ListUsers walks the user-listing fallback chain: active-only query,
// then an uncapped-filter query limited to the first 50, then a static
// admin entry. Only users with a plausible email survive.
func (s *Service) ListUsers(ctx context.Context) []domain.User {
	users, err := s.rm.UsersByStatus(ctx, 1, 100)
	if err != nil || len(users) == 0 {
		if err != nil { s.log.Warn().Err(err).Msg("users: status filter failed, trying unfiltered") }
		users, err = s.rm.AllUsers(ctx, 50)
	}
	if err != nil || len(users) == 0 {
		if err != nil { s.log.Error().Err(err).Msg("users: all listing methods failed, using fallback") }
		return []domain.User{{ID: 1, Login: "admin", Name: "System Admin", Mail: "admin@example.com"}}
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if !validEmail(u.Mail) { continue }
		if u.Name == "" { u.Name = u.Login }
		out = append(out, u)
	}
	return out
}

// Statuses and Trackers pass the tracker catalogs through for the
// report filter dropdowns.
func (s *Service) Statuses(ctx context.Context) ([]domain.IssueStatus, error) {
	return s.rm.Statuses(ctx)
}

func (s *Service) Trackers(ctx context.Context) ([]domain.Tracker, error) {
	return s.rm.Trackers(ctx)
}

// DashboardStats degrades per counter: a failed count logs and shows
// zero, the dashboard still renders.
func (s *Service) DashboardStats(ctx context.Context) domain.DashboardStats {
	stats := domain.DashboardStats{LastUpdated: time.Now().Format("2006-01-02 15:04:05")}
	var err error
	if stats.TotalIssues, err = s.rm.TotalIssueCount(ctx); err != nil {
		s.log.Warn().Err(err).Msg("dashboard: total count failed")
	}
	if stats.OpenIssues, err = s.rm.OpenIssueCount(ctx); err != nil {
		s.log.Warn().Err(err).Msg("dashboard: open count failed")
	}
	if stats.TodayUpdates, err = s.rm.TodayUpdateCount(ctx); err != nil {
		s.log.Warn().Err(err).Msg("dashboard: today count failed")
	}
	return stats
}
