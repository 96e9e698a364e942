package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from ProjectStatus
		to   ProjectStatus
		want bool
	}{
		{StatusDraft, StatusSent, true},
		{StatusSent, StatusViewed, true},
		{StatusViewed, StatusApproved, true},
		{StatusViewed, StatusRejected, true},
		{StatusApproved, StatusRevised, true},
		{StatusRejected, StatusRevised, true},
		{StatusRevised, StatusSent, true},
		{StatusDraft, StatusApproved, false},
		{StatusDraft, StatusRejected, false},
		{StatusSent, StatusApproved, false},
		{StatusApproved, StatusSent, false},
		{StatusViewed, StatusViewed, false},
		{"unknown", StatusSent, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestClientProject_AppendStatusChange(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewClientProject("p-1", now)

	steps := []struct {
		to    ProjectStatus
		actor string
	}{
		{StatusSent, ActorAdmin},
		{StatusViewed, "client@example.com"},
		{StatusApproved, "client@example.com"},
		{StatusRevised, ActorAdmin},
		{StatusSent, ActorAdmin},
	}

	for i, s := range steps {
		require.NoError(t, p.AppendStatusChange(s.to, s.actor, "", now.Add(time.Duration(i)*time.Minute)))
		assert.Equal(t, s.to, p.Status)
		assert.Equal(t, s.to, p.StatusHistory[len(p.StatusHistory)-1].Status)
		assert.Equal(t, s.actor, p.StatusHistory[len(p.StatusHistory)-1].ChangedBy)
	}
	assert.Len(t, p.StatusHistory, len(steps)+1)
}

func TestClientProject_AppendStatusChangeRejects(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		to      ProjectStatus
		actor   string
		wantErr error
	}{
		{name: "skip to approved", to: StatusApproved, actor: ActorAdmin, wantErr: ErrInvalidTransition},
		{name: "skip to rejected", to: StatusRejected, actor: ActorAdmin, wantErr: ErrInvalidTransition},
		{name: "unknown status", to: "archived", actor: ActorAdmin, wantErr: ErrInvalidInput},
		{name: "bad actor", to: StatusSent, actor: "someone", wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewClientProject("p-1", now)

			err := p.AppendStatusChange(tt.to, tt.actor, "", now)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, StatusDraft, p.Status)
			assert.Len(t, p.StatusHistory, 1)
		})
	}
}
