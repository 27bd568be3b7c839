package redmine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameRefAcceptsAllUpstreamShapes(t *testing.T) {
	cases := []struct {
		in       string
		wantID   int64
		wantName string
	}{
		{`{"id": 7, "name": "工程部"}`, 7, "工程部"},
		{`{"id": "7", "name": "工程部"}`, 7, "工程部"},
		{`"工程部"`, 0, "工程部"},
		{`7`, 7, ""},
		{`null`, 0, ""},
	}
	for _, tc := range cases {
		var r nameRef
		require.NoError(t, json.Unmarshal([]byte(tc.in), &r), "input %s", tc.in)
		assert.Equal(t, tc.wantID, r.ID, "input %s", tc.in)
		assert.Equal(t, tc.wantName, r.Name, "input %s", tc.in)
	}
}

func TestDetailValuesTolerateNonStrings(t *testing.T) {
	raw := `{"property":"attr","name":"due_date","old_value":null,"new_value":20240315}`
	var d detailJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	assert.Equal(t, "attr", string(d.Property))
	assert.Equal(t, "due_date", string(d.Name))
	assert.Equal(t, "", string(d.OldValue))
	assert.Equal(t, "20240315", string(d.NewValue))
}

func TestIssueToDomainNormalizesOptionalFields(t *testing.T) {
	raw := `{
		"id": 101,
		"project": {"id": 3, "name": "專項用"},
		"tracker": "任務",
		"status": {"id": 1, "name": "執行中"},
		"priority": {"id": 2, "name": "正常"},
		"subject": "測試議題",
		"due_date": null,
		"created_on": "2024-03-01T08:00:00Z",
		"updated_on": "2024/03/18 10:30:00 +0800",
		"journals": [
			{
				"user": {"id": 5, "name": "王小明"},
				"created_on": "2024-03-18T02:30:00Z",
				"details": [
					{"property": "attr", "name": "due_date", "old_value": "2024-03-15", "new_value": "2024-03-20"}
				]
			}
		]
	}`
	var is issueJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &is))
	d := is.toDomain()

	assert.Equal(t, int64(101), d.ID)
	assert.Equal(t, "專項用", d.Project.Name)
	assert.Equal(t, "任務", d.Tracker.Name)
	assert.Nil(t, d.Assignee)
	assert.Equal(t, "", d.DueDate)
	assert.False(t, d.CreatedOn.IsZero())
	assert.False(t, d.UpdatedOn.IsZero())
	require.Len(t, d.Journals, 1)
	require.Len(t, d.Journals[0].Details, 1)
	assert.Equal(t, "王小明", d.Journals[0].User.Name)
	assert.Equal(t, "2024-03-20", d.Journals[0].Details[0].NewValue)
}

func TestUserToDomainFallsBackToNameParts(t *testing.T) {
	raw := `{"id": 9, "login": "amy", "firstname": "Amy", "lastname": "Chen", "mail": "amy@example.com"}`
	var u userJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	d := u.toDomain()
	assert.Equal(t, "Amy Chen", d.Name)
	assert.Equal(t, "amy@example.com", d.Mail)
}

func TestIssueFilterQueryPinsAsymmetricStatisticsWindow(t *testing.T) {
	// The statistics query deliberately bounds updates from below and
	// creation from above only; any tightening must show up here.
	f := IssueFilter{
		UpdatedOn:       ">=2024-03-01",
		CreatedOn:       "<=2024-03-14",
		StatusID:        "*",
		IncludeJournals: true,
	}
	q := f.query()
	assert.Equal(t, ">=2024-03-01", q.Get("updated_on"))
	assert.Equal(t, "<=2024-03-14", q.Get("created_on"))
	assert.Equal(t, "*", q.Get("status_id"))
	assert.Equal(t, "journals", q.Get("include"))
	assert.Empty(t, q.Get("due_date"))
}
