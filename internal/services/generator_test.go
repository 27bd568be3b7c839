package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dfliao/redmine-report/internal/config"
	"github.com/dfliao/redmine-report/internal/render"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	statsData render.StatisticsData
	dueData   render.DueDateData
}

func (r *stubRenderer) Statistics(data render.StatisticsData) (string, error) {
	r.statsData = data
	return "<html>stats</html>", nil
}
func (r *stubRenderer) DueDates(data render.DueDateData) (string, error) {
	r.dueData = data
	return "<html>due</html>", nil
}

type stubSender struct {
	subjects   []string
	recipients [][]string
	err        error
}

func (s *stubSender) Send(_ context.Context, subject, _ string, recipients []string) error {
	s.subjects = append(s.subjects, subject)
	s.recipients = append(s.recipients, recipients)
	return s.err
}

func newTestGenerator(rm TrackerClient, cfg config.Config, sender *stubSender) (*Generator, *stubRenderer) {
	svc := New(cfg, zerolog.Nop(), rm, NewRoleClassifier(cfg.Spec.Roles), nil)
	renderer := &stubRenderer{}
	return NewGenerator(cfg, zerolog.Nop(), svc, renderer, sender, NewRunLog()), renderer
}

func TestSendReportDeliversAndRecords(t *testing.T) {
	cfg := testConfig()
	cfg.Report1Subject = "【Redmine報表】%s - 議題進度統計"
	sender := &stubSender{}
	gen, _ := newTestGenerator(&fakeTracker{}, cfg, sender)

	n, err := gen.SendReport(context.Background(), 1, []string{"boss@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sender.subjects, 1)
	assert.Contains(t, sender.subjects[0], "議題進度統計")
	assert.Equal(t, []string{"boss@example.com"}, sender.recipients[0])

	last, ok := gen.Runs().Last()
	require.True(t, ok)
	assert.True(t, last.OK)
	assert.Equal(t, 1, last.Report)
}

func TestSendReportOverrideBeatsConfiguredList(t *testing.T) {
	cfg := testConfig()
	cfg.Report1Subject = "%s"
	cfg.Report1Recipients = []string{"team@example.com"}
	sender := &stubSender{}
	gen, _ := newTestGenerator(&fakeTracker{}, cfg, sender)

	_, err := gen.SendReport(context.Background(), 1, []string{"override@example.com", "override@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"override@example.com"}, sender.recipients[0])
}

func TestSendReportUnknownType(t *testing.T) {
	cfg := testConfig()
	gen, _ := newTestGenerator(&fakeTracker{}, cfg, &stubSender{})
	_, err := gen.SendReport(context.Background(), 9, nil)
	require.Error(t, err)

	last, ok := gen.Runs().Last()
	require.True(t, ok)
	assert.False(t, last.OK)
	assert.NotEmpty(t, last.Error)
}

func TestSendReportFailureRecorded(t *testing.T) {
	cfg := testConfig()
	cfg.Report1Subject = "%s"
	sender := &stubSender{err: errors.New("smtp down")}
	gen, _ := newTestGenerator(&fakeTracker{}, cfg, sender)

	_, err := gen.SendReport(context.Background(), 1, []string{"a@example.com"})
	require.Error(t, err)
	last, _ := gen.Runs().Last()
	assert.False(t, last.OK)
	assert.Contains(t, last.Error, "smtp down")
}

func TestRunScheduledHonorsAutoSendFlags(t *testing.T) {
	cfg := testConfig()
	cfg.Report1Subject, cfg.Report2Subject, cfg.Report3Subject = "%s-1", "%s-2", "%s-3"
	cfg.Report1AutoSend = true
	cfg.Report2AutoSend = true
	cfg.Report3AutoSend = false
	sender := &stubSender{}
	gen, _ := newTestGenerator(&fakeTracker{}, cfg, sender)

	gen.RunScheduled(context.Background())

	require.Len(t, sender.subjects, 2)
	assert.Len(t, gen.Runs().Recent(), 2)
}

func TestRunLogRingKeepsNewest(t *testing.T) {
	l := NewRunLog()
	for i := 0; i < runLogCapacity+5; i++ {
		l.Add(RunRecord{Report: i})
	}
	recent := l.Recent()
	require.Len(t, recent, runLogCapacity)
	assert.Equal(t, runLogCapacity+4, recent[0].Report)
}
