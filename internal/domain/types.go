package domain

import (
	"fmt"
	"time"
)

// Ref is a canonical id+name pair for every nested tracker field
// (project, status, priority, assignee ...). The redmine adapter
// normalizes all upstream shapes into this one form.
type Ref struct {
	ID   int64
	Name string
}

type Issue struct {
	ID        int64
	Project   Ref
	Tracker   Ref
	Status    Ref
	Priority  Ref
	Assignee  *Ref
	Subject   string
	StartDate string // YYYY-MM-DD, empty when unset
	DueDate   string // YYYY-MM-DD, empty when unset
	CreatedOn time.Time
	UpdatedOn time.Time
	Journals  []Journal
}

type Journal struct {
	User      Ref
	CreatedOn time.Time
	Details   []JournalDetail
}

type JournalDetail struct {
	Property string // "attr" for attribute changes, "cf" for custom fields
	Name     string
	OldValue string
	NewValue string
}

type Project struct {
	ID     int64
	Name   string
	Parent *Ref
}

type User struct {
	ID        int64
	Login     string
	Name      string
	Firstname string
	Lastname  string
	Mail      string
}

type IssueStatus struct {
	ID       int64
	Name     string
	IsClosed bool
}

type Tracker struct {
	ID   int64
	Name string
}

// StatisticsRow is one (role, assignee) line of the statistics table.
// Counts holds a defined value for every displayed status, including the
// aggregated bucket; folded constituent statuses do not appear.
type StatisticsRow struct {
	Role     string
	Assignee string
	Counts   map[string]int
}

type IssueRow struct {
	Project   string
	Priority  string
	Tracker   string
	Assignee  string
	Status    string
	Subject   string
	DueDate   string
	StartDate string
	UpdatedOn string // YYYY-MM-DD HH:MM
}

// DueDateChange is one journal detail that moved an issue's due date on
// the target day. Days carries the signed day delta; HasDays is false
// when either side of the change was empty or unparseable.
type DueDateChange struct {
	Project    string
	Priority   string
	Subject    string
	Modifier   string
	Assignee   string
	OldDueDate string
	NewDueDate string
	Days       int
	HasDays    bool
	ChangeDate string // YYYY-MM-DD HH:MM
}

// Adjustment renders the day delta the way the reports display it:
// "+5天" for a later date, "-3天" for an earlier one, "N/A" when a side
// is missing.
func (c DueDateChange) Adjustment() string {
	if !c.HasDays {
		return "N/A"
	}
	if c.Days > 0 {
		return fmt.Sprintf("+%d天", c.Days)
	}
	return fmt.Sprintf("%d天", c.Days)
}

// SortDays is the value the descending delta sort uses; N/A counts as 0.
func (c DueDateChange) SortDays() int {
	if !c.HasDays {
		return 0
	}
	return c.Days
}

type DashboardStats struct {
	TotalIssues  int
	OpenIssues   int
	TodayUpdates int
	LastUpdated  string
}
