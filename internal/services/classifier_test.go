package services

import (
	"testing"

	"github.com/dfliao/redmine-report/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifierKeywordMatching(t *testing.T) {
	c := NewRoleClassifier(config.DefaultReportSpec().Roles)

	cases := []struct {
		name string
		want string
	}{
		{"王經理", "管理階層"},
		{"Project Manager Lin", "管理階層"},
		{"陳工程師", "工程師"},
		{"Software Engineer", "工程師"},
		{"系統管理員", "系統管理員"},
		{"李小明", "一般使用者"},
	}
	for _, tc := range cases {
		got, err := c.Classify(tc.name, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.name)
	}
}

func TestClassifierGroupMembershipWins(t *testing.T) {
	c := NewRoleClassifier(config.DefaultReportSpec().Roles)
	got, err := c.Classify("陳工程師", []string{"", "客服"})
	require.NoError(t, err)
	assert.Equal(t, "客服", got)
}

func TestClassifierCaseInsensitive(t *testing.T) {
	c := NewRoleClassifier(config.DefaultReportSpec().Roles)
	got, err := c.Classify("LEAD ENGINEER", nil)
	require.NoError(t, err)
	assert.Equal(t, "工程師", got)
}
