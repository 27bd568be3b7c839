package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dfliao/redmine-report/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestResolveRecipientsChain(t *testing.T) {
	t.Run("override wins", func(t *testing.T) {
		svc := newTestService(&fakeTracker{}, nil)
		got := svc.ResolveRecipients(context.Background(), 1, []string{" a@x.com ", "a@x.com", "b@x.com"})
		assert.Equal(t, []string{"a@x.com", "b@x.com"}, got)
	})

	t.Run("configured list next", func(t *testing.T) {
		cfg := testConfig()
		cfg.Report2Recipients = []string{"team@x.com"}
		svc := New(cfg, zerolog.Nop(), &fakeTracker{}, NewRoleClassifier(cfg.Spec.Roles), nil)
		got := svc.ResolveRecipients(context.Background(), 2, nil)
		assert.Equal(t, []string{"team@x.com"}, got)
	})

	t.Run("tracker users next", func(t *testing.T) {
		rm := &fakeTracker{users: []domain.User{
			{Name: "王經理", Mail: "manager@x.com"},
			{Name: "no-mail"},
		}}
		svc := newTestService(rm, nil)
		got := svc.ResolveRecipients(context.Background(), 1, nil)
		assert.Equal(t, []string{"manager@x.com"}, got)
	})

	t.Run("static admin when user listing fails", func(t *testing.T) {
		rm := &fakeTracker{usersErr: errors.New("403"), allErr: errors.New("500")}
		svc := newTestService(rm, nil)
		got := svc.ResolveRecipients(context.Background(), 1, nil)
		assert.Equal(t, []string{"admin@example.com"}, got)
	})

	t.Run("configured fallback when no user has a mail", func(t *testing.T) {
		rm := &fakeTracker{users: []domain.User{{Name: "王經理"}}}
		svc := newTestService(rm, nil)
		got := svc.ResolveRecipients(context.Background(), 1, nil)
		assert.Equal(t, []string{"ops@example.com"}, got)
	})
}
