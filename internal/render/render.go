// Package render turns report data into the self-contained HTML bodies
// the mailer ships. Templates are parsed once at construction; data in,
// string out, no I/O.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dfliao/redmine-report/internal/config"
	"github.com/dfliao/redmine-report/internal/domain"
)

// StatisticsData feeds the statistics+list report (types 1 and 3).
type StatisticsData struct {
	Title       string
	StartDate   string
	EndDate     string
	Statuses    []string
	Rows        []domain.StatisticsRow
	Note        string
	Issues      []domain.IssueRow
	GeneratedAt string
}

// DueDateData feeds the due-date-change report (type 2).
type DueDateData struct {
	Title       string
	Date        string
	Changes     []domain.DueDateChange
	GeneratedAt string
}

type Renderer struct {
	spec       config.ReportSpec
	statistics *template.Template
	dueDates   *template.Template
}

func New(spec config.ReportSpec) *Renderer {
	return &Renderer{
		spec:       spec,
		statistics: template.Must(template.New("statistics").Parse(statisticsTmpl)),
		dueDates:   template.Must(template.New("duedates").Parse(dueDatesTmpl)),
	}
}

// Statistics renders the role×assignee count table followed by the flat
// issue list. Every row carries a cell for every status column, so the
// table stays rectangular even when a row never saw a status.
func (r *Renderer) Statistics(data StatisticsData) (string, error) {
	if data.Note == "" { data.Note = r.spec.AggregationNote() }
	if len(data.Statuses) == 0 { data.Statuses = r.spec.DisplayStatuses() }
	var buf bytes.Buffer
	if err := r.statistics.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render statistics: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) DueDates(data DueDateData) (string, error) {
	var buf bytes.Buffer
	if err := r.dueDates.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render due dates: %w", err)
	}
	return buf.String(), nil
}

const styleBlock = `<style>
body { font-family: "Microsoft JhengHei", Arial, sans-serif; font-size: 14px; color: #222; }
h2 { border-bottom: 2px solid #2c6e91; padding-bottom: 4px; }
table { border-collapse: collapse; width: 100%; margin: 12px 0; }
th, td { border: 1px solid #bbb; padding: 4px 8px; text-align: left; }
th { background: #2c6e91; color: #fff; }
tr:nth-child(even) { background: #f4f7f9; }
.num { text-align: right; }
.note { color: #666; font-size: 12px; }
.footer { color: #999; font-size: 11px; margin-top: 16px; }
</style>`

const statisticsTmpl = `<!DOCTYPE html>
<html><head><meta charset="utf-8">` + styleBlock + `</head><body>
<h2>{{.Title}}</h2>
<p>統計期間：{{.StartDate}} ~ {{.EndDate}}</p>
<table>
<tr><th>角色</th><th>人員</th>{{range .Statuses}}<th>{{.}}</th>{{end}}</tr>
{{range $row := .Rows}}<tr><td>{{$row.Role}}</td><td>{{$row.Assignee}}</td>{{range $.Statuses}}<td class="num">{{index $row.Counts .}}</td>{{end}}</tr>
{{end}}</table>
<p class="note">{{.Note}}</p>
<h2>議題清單</h2>
{{if .Issues}}<table>
<tr><th>專案</th><th>優先權</th><th>追蹤標籤</th><th>人員</th><th>狀態</th><th>主旨</th><th>完成日期</th><th>開始日期</th><th>更新時間</th></tr>
{{range .Issues}}<tr><td>{{.Project}}</td><td>{{.Priority}}</td><td>{{.Tracker}}</td><td>{{.Assignee}}</td><td>{{.Status}}</td><td>{{.Subject}}</td><td>{{.DueDate}}</td><td>{{.StartDate}}</td><td>{{.UpdatedOn}}</td></tr>
{{end}}</table>{{else}}<p>此期間內無符合條件的議題。</p>{{end}}
<p class="footer">報表產生時間：{{.GeneratedAt}}</p>
</body></html>`

const dueDatesTmpl = `<!DOCTYPE html>
<html><head><meta charset="utf-8">` + styleBlock + `</head><body>
<h2>{{.Title}}</h2>
<p>異動日期：{{.Date}}</p>
{{if .Changes}}<table>
<tr><th>專案</th><th>優先權</th><th>主旨</th><th>異動者</th><th>人員</th><th>原完成日期</th><th>新完成日期</th><th>調整天數</th><th>異動時間</th></tr>
{{range .Changes}}<tr><td>{{.Project}}</td><td>{{.Priority}}</td><td>{{.Subject}}</td><td>{{.Modifier}}</td><td>{{.Assignee}}</td><td>{{.OldDueDate}}</td><td>{{.NewDueDate}}</td><td class="num">{{.Adjustment}}</td><td>{{.ChangeDate}}</td></tr>
{{end}}</table>{{else}}<p>本日無完成日期異動。</p>{{end}}
<p class="footer">報表產生時間：{{.GeneratedAt}}</p>
</body></html>`
