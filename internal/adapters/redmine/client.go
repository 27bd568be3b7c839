/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package redmine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dfliao/redmine-report/internal/config"
	"github.com/dfliao/redmine-report/internal/domain"
	"github.com/rs/zerolog"
)

const pageSize = 100

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.RedmineURL, "/"),
		apiKey:  cfg.RedmineAPIKey,
		http:    &http.Client{Timeout: cfg.RedmineTimeout},
		log:     log,
	}
}

// IssueFilter carries the server-side query knobs of /issues.json. Values
// use Redmine's own filter grammar (">=2024-03-01", "><a|b", "*", "o").
type IssueFilter struct {
	UpdatedOn       string
	CreatedOn       string
	DueDate         string
	StatusID        string
	Sort            string
	IncludeJournals bool
}

func (f IssueFilter) query() url.Values {
	q := url.Values{}
	if f.UpdatedOn != "" { q.Set("updated_on", f.UpdatedOn) }
	if f.CreatedOn != "" { q.Set("created_on", f.CreatedOn) }
	if f.DueDate != "" { q.Set("due_date", f.DueDate) }
	if f.StatusID != "" { q.Set("status_id", f.StatusID) }
	if f.Sort != "" { q.Set("sort", f.Sort) }
	if f.IncludeJournals { q.Set("include", "journals") }
	return q
}

func (c *Client) apiURL(path string, q url.Values) string {
	if !strings.HasPrefix(path, "/") { path = "/" + path }
	u := c.baseURL + path
	if len(q) > 0 { u = u + "?" + q.Encode() }
	return u
}

func (c *Client) doJSON(ctx context.Context, u string, out any) error {
	if c.baseURL == "" { return errors.New("redmine: empty baseURL") }
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil { return err }
		if c.apiKey != "" { req.Header.Set("X-Redmine-API-Key", c.apiKey) }
		req.Header.Set("Accept", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode >= 300 {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			apiErr := fmt.Errorf("redmine api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
			// retry on 429/5xx only
			if resp.StatusCode == 429 || resp.StatusCode >= 500 {
				lastErr = apiErr
			} else {
				return apiErr
			}
		} else {
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil { return err }
			return nil
		}
		// backoff
		time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}

// Issues fetches every page matching the filter and returns normalized
// records. Errors propagate to the caller; there is no partial result.
func (c *Client) Issues(ctx context.Context, f IssueFilter) ([]domain.Issue, error) {
	var out []domain.Issue
	offset := 0
	for {
		q := f.query()
		q.Set("offset", fmt.Sprint(offset))
		q.Set("limit", fmt.Sprint(pageSize))
		var page issuesPage
		if err := c.doJSON(ctx, c.apiURL("/issues.json", q), &page); err != nil {
			return nil, err
		}
		for _, is := range page.Issues {
			out = append(out, is.toDomain())
		}
		offset += len(page.Issues)
		if len(page.Issues) < pageSize || offset >= page.TotalCount { break }
	}
	return out, nil
}

// issueCount runs a limit=1 query and returns the server-reported total.
func (c *Client) issueCount(ctx context.Context, f IssueFilter) (int, error) {
	q := f.query()
	q.Set("limit", "1")
	var page issuesPage
	if err := c.doJSON(ctx, c.apiURL("/issues.json", q), &page); err != nil {
		return 0, err
	}
	return page.TotalCount, nil
}

func (c *Client) TotalIssueCount(ctx context.Context) (int, error) {
	return c.issueCount(ctx, IssueFilter{StatusID: "*"})
}

// OpenIssueCount counts non-closed issues. Redmine's "o" magic status is
// tried first; servers that reject it get an explicit list of non-closed
// status ids instead.
func (c *Client) OpenIssueCount(ctx context.Context) (int, error) {
	n, err := c.issueCount(ctx, IssueFilter{StatusID: "o"})
	if err == nil { return n, nil }
	c.log.Warn().Err(err).Msg("redmine: open status 'o' rejected, falling back to status ids")
	ids, err2 := c.OpenStatusIDs(ctx)
	if err2 != nil { return 0, err }
	if len(ids) == 0 { return 0, nil }
	return c.issueCount(ctx, IssueFilter{StatusID: joinIDs(ids)})
}

func (c *Client) TodayUpdateCount(ctx context.Context) (int, error) {
	today := time.Now().Format("2006-01-02")
	return c.issueCount(ctx, IssueFilter{UpdatedOn: ">=" + today, StatusID: "*"})
}

// OpenStatusIDs lists the ids of all non-closed issue statuses.
func (c *Client) OpenStatusIDs(ctx context.Context) ([]int64, error) {
	statuses, err := c.Statuses(ctx)
	if err != nil { return nil, err }
	var ids []int64
	for _, s := range statuses {
		if !s.IsClosed { ids = append(ids, s.ID) }
	}
	return ids, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids { parts = append(parts, fmt.Sprint(id)) }
	return strings.Join(parts, "|")
}

// Projects fetches the full flat project list, parent references included.
func (c *Client) Projects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	offset := 0
	for {
		q := url.Values{}
		q.Set("offset", fmt.Sprint(offset))
		q.Set("limit", fmt.Sprint(pageSize))
		var page projectsPage
		if err := c.doJSON(ctx, c.apiURL("/projects.json", q), &page); err != nil {
			return nil, err
		}
		for _, p := range page.Projects {
			out = append(out, p.toDomain())
		}
		offset += len(page.Projects)
		if len(page.Projects) < pageSize || offset >= page.TotalCount { break }
	}
	return out, nil
}

// UsersByStatus lists users with the given account status (1 = active),
// capped at limit. Requires admin visibility on the API key.
func (c *Client) UsersByStatus(ctx context.Context, status, limit int) ([]domain.User, error) {
	q := url.Values{}
	q.Set("status", fmt.Sprint(status))
	q.Set("limit", fmt.Sprint(limit))
	var page usersPage
	if err := c.doJSON(ctx, c.apiURL("/users.json", q), &page); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(page.Users))
	for _, u := range page.Users {
		out = append(out, u.toDomain())
	}
	return out, nil
}

// AllUsers lists users without a status filter, capped at limit.
func (c *Client) AllUsers(ctx context.Context, limit int) ([]domain.User, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	var page usersPage
	if err := c.doJSON(ctx, c.apiURL("/users.json", q), &page); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(page.Users))
	for _, u := range page.Users {
		out = append(out, u.toDomain())
	}
	return out, nil
}

func (c *Client) Statuses(ctx context.Context) ([]domain.IssueStatus, error) {
	var page statusesPage
	if err := c.doJSON(ctx, c.apiURL("/issue_statuses.json", nil), &page); err != nil {
		return nil, err
	}
	out := make([]domain.IssueStatus, 0, len(page.IssueStatuses))
	for _, s := range page.IssueStatuses {
		out = append(out, domain.IssueStatus{ID: s.ID, Name: s.Name, IsClosed: s.IsClosed})
	}
	return out, nil
}

func (c *Client) Trackers(ctx context.Context) ([]domain.Tracker, error) {
	var page trackersPage
	if err := c.doJSON(ctx, c.apiURL("/trackers.json", nil), &page); err != nil {
		return nil, err
	}
	out := make([]domain.Tracker, 0, len(page.Trackers))
	for _, t := range page.Trackers {
		out = append(out, domain.Tracker{ID: t.ID, Name: t.Name})
	}
	return out, nil
}
