package redmine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dfliao/redmine-report/internal/domain"
)

// Different Redmine versions (and the jsonp shim some installs run behind)
// serialize nested fields in different shapes: `{"id":1,"name":"x"}`, a bare
// string, or a bare id. nameRef accepts all of them so downstream code only
// ever sees domain.Ref.
type nameRef struct {
	ID   int64
	Name string
}

func (r *nameRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = nameRef{}
		return nil
	}
	switch data[0] {
	case '{':
		var obj struct {
			ID   flexInt64  `json:"id"`
			Name flexString `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil { return err }
		*r = nameRef{ID: int64(obj.ID), Name: string(obj.Name)}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil { return err }
		*r = nameRef{Name: s}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil { return err }
		id, err := n.Int64()
		if err != nil { return err }
		*r = nameRef{ID: id}
		return nil
	}
}

func (r nameRef) ref() domain.Ref { return domain.Ref{ID: r.ID, Name: r.Name} }

// flexString tolerates string, number, bool and null values; journal
// detail old/new values in particular come back as any of these.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil { return err }
		*s = flexString(v)
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil { return err }
	*s = flexString(fmt.Sprint(v))
	return nil
}

// flexInt64 tolerates number and numeric-string ids.
type flexInt64 int64

func (i *flexInt64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil { return err }
		if v == "" {
			*i = 0
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil { return err }
		*i = flexInt64(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil { return err }
	*i = flexInt64(n)
	return nil
}

// apiTime parses the timestamp layouts seen across Redmine versions.
type apiTime struct{ time.Time }

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006/01/02 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

func (t *apiTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = apiTime{}
		return nil
	}
	if s == "" {
		*t = apiTime{}
		return nil
	}
	for _, l := range timeLayouts {
		if v, err := time.Parse(l, s); err == nil {
			*t = apiTime{v}
			return nil
		}
	}
	*t = apiTime{}
	return nil
}

type issuesPage struct {
	Issues     []issueJSON `json:"issues"`
	TotalCount int         `json:"total_count"`
	Offset     int         `json:"offset"`
	Limit      int         `json:"limit"`
}

type issueJSON struct {
	ID        flexInt64     `json:"id"`
	Project   nameRef       `json:"project"`
	Tracker   nameRef       `json:"tracker"`
	Status    nameRef       `json:"status"`
	Priority  nameRef       `json:"priority"`
	Assignee  *nameRef      `json:"assigned_to"`
	Subject   flexString    `json:"subject"`
	StartDate flexString    `json:"start_date"`
	DueDate   flexString    `json:"due_date"`
	CreatedOn apiTime       `json:"created_on"`
	UpdatedOn apiTime       `json:"updated_on"`
	Journals  []journalJSON `json:"journals"`
}

type journalJSON struct {
	User      nameRef      `json:"user"`
	CreatedOn apiTime      `json:"created_on"`
	Details   []detailJSON `json:"details"`
}

type detailJSON struct {
	Property flexString `json:"property"`
	Name     flexString `json:"name"`
	OldValue flexString `json:"old_value"`
	NewValue flexString `json:"new_value"`
}

func (i issueJSON) toDomain() domain.Issue {
	out := domain.Issue{
		ID:        int64(i.ID),
		Project:   i.Project.ref(),
		Tracker:   i.Tracker.ref(),
		Status:    i.Status.ref(),
		Priority:  i.Priority.ref(),
		Subject:   string(i.Subject),
		StartDate: string(i.StartDate),
		DueDate:   string(i.DueDate),
		CreatedOn: i.CreatedOn.Time,
		UpdatedOn: i.UpdatedOn.Time,
	}
	if i.Assignee != nil && (i.Assignee.ID != 0 || i.Assignee.Name != "") {
		ref := i.Assignee.ref()
		out.Assignee = &ref
	}
	for _, j := range i.Journals {
		journal := domain.Journal{User: j.User.ref(), CreatedOn: j.CreatedOn.Time}
		for _, d := range j.Details {
			journal.Details = append(journal.Details, domain.JournalDetail{
				Property: string(d.Property),
				Name:     string(d.Name),
				OldValue: string(d.OldValue),
				NewValue: string(d.NewValue),
			})
		}
		out.Journals = append(out.Journals, journal)
	}
	return out
}

type projectsPage struct {
	Projects   []projectJSON `json:"projects"`
	TotalCount int           `json:"total_count"`
}

type projectJSON struct {
	ID     flexInt64  `json:"id"`
	Name   flexString `json:"name"`
	Parent *nameRef   `json:"parent"`
}

func (p projectJSON) toDomain() domain.Project {
	out := domain.Project{ID: int64(p.ID), Name: string(p.Name)}
	if p.Parent != nil && (p.Parent.ID != 0 || p.Parent.Name != "") {
		ref := p.Parent.ref()
		out.Parent = &ref
	}
	return out
}

type usersPage struct {
	Users      []userJSON `json:"users"`
	TotalCount int        `json:"total_count"`
}

type userJSON struct {
	ID        flexInt64  `json:"id"`
	Login     flexString `json:"login"`
	Firstname flexString `json:"firstname"`
	Lastname  flexString `json:"lastname"`
	Name      flexString `json:"name"`
	Mail      flexString `json:"mail"`
	Email     flexString `json:"email"`
}

func (u userJSON) toDomain() domain.User {
	name := string(u.Name)
	if name == "" {
		first := string(u.Firstname)
		last := string(u.Lastname)
		switch {
		case first != "" && last != "":
			name = first + " " + last
		case first != "":
			name = first
		default:
			name = last
		}
	}
	mail := string(u.Mail)
	if mail == "" { mail = string(u.Email) }
	return domain.User{
		ID:        int64(u.ID),
		Login:     string(u.Login),
		Name:      name,
		Firstname: string(u.Firstname),
		Lastname:  string(u.Lastname),
		Mail:      mail,
	}
}

type statusesPage struct {
	IssueStatuses []struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		IsClosed bool   `json:"is_closed"`
	} `json:"issue_statuses"`
}

type trackersPage struct {
	Trackers []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"trackers"`
}
