package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestGroup(now time.Time) *Group {
	return &Group{
		ID:           "g1",
		Name:         "Bulk textbooks",
		CreatorID:    "alice",
		Members:      []string{"alice"},
		MaxMembers:   2,
		TargetAmount: 100,
		Status:       GroupOpen,
		ExpiryDate:   now.Add(7 * 24 * time.Hour),
	}
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(g *Group)
		want   GroupStatus
	}{
		{"open stays open", func(g *Group) {}, GroupOpen},
		{"target reached completes", func(g *Group) { g.CurrentAmount = 100 }, GroupCompleted},
		{"full closes", func(g *Group) { g.Members = []string{"alice", "bob"} }, GroupClosed},
		{"expired closes", func(g *Group) { g.ExpiryDate = now }, GroupClosed},
		{"completed is terminal", func(g *Group) { g.Status = GroupCompleted }, GroupCompleted},
		{"closed is not reopened", func(g *Group) { g.Status = GroupClosed }, GroupClosed},
		{"target beats full", func(g *Group) {
			g.Members = []string{"alice", "bob"}
			g.CurrentAmount = 100
		}, GroupCompleted},
		{"closed completes on target", func(g *Group) {
			g.Status = GroupClosed
			g.CurrentAmount = 100
		}, GroupCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGroup(now)
			tt.mutate(g)
			if got := DeriveStatus(g, now); got != tt.want {
				t.Errorf("DeriveStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRefreshReportsChange(t *testing.T) {
	now := time.Now()
	g := newTestGroup(now)
	if g.Refresh(now) {
		t.Error("expected no change for a fresh group")
	}
	g.ExpiryDate = now.Add(-time.Minute)
	if !g.Refresh(now) {
		t.Error("expected change for an expired group")
	}
	if g.Status != GroupClosed {
		t.Errorf("status = %s, want closed", g.Status)
	}
}

func TestCheckTransition(t *testing.T) {
	now := time.Now()

	t.Run("completed is terminal", func(t *testing.T) {
		g := newTestGroup(now)
		g.Status = GroupCompleted
		for _, to := range []GroupStatus{GroupOpen, GroupClosed, GroupCompleted} {
			if err := g.CheckTransition(to, now); err == nil {
				t.Errorf("expected error for completed -> %s", to)
			}
		}
	})

	t.Run("cannot reopen full group", func(t *testing.T) {
		g := newTestGroup(now)
		g.Status = GroupClosed
		g.Members = []string{"alice", "bob"}
		if err := g.CheckTransition(GroupOpen, now); err == nil {
			t.Error("expected error reopening a full group")
		}
	})

	t.Run("cannot reopen expired group", func(t *testing.T) {
		g := newTestGroup(now)
		g.Status = GroupClosed
		g.ExpiryDate = now.Add(-time.Hour)
		if err := g.CheckTransition(GroupOpen, now); err == nil {
			t.Error("expected error reopening an expired group")
		}
	})

	t.Run("closed to open and completed", func(t *testing.T) {
		g := newTestGroup(now)
		g.Status = GroupClosed
		if err := g.CheckTransition(GroupOpen, now); err != nil {
			t.Errorf("closed -> open: %v", err)
		}
		if err := g.CheckTransition(GroupCompleted, now); err != nil {
			t.Errorf("closed -> completed: %v", err)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		g := newTestGroup(now)
		if err := g.CheckTransition("archived", now); err == nil {
			t.Error("expected error for unknown status")
		}
	})
}

func TestValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		mutate    func(g *Group)
		wantField string
	}{
		{"valid", func(g *Group) {}, ""},
		{"amount over target", func(g *Group) { g.CurrentAmount = 101 }, "targetAmount"},
		{"negative amount", func(g *Group) { g.CurrentAmount = -1 }, "currentAmount"},
		{"zero target", func(g *Group) { g.TargetAmount = 0 }, "targetAmount"},
		{"target over max", func(g *Group) { g.TargetAmount = MaxTargetAmount + 1 }, "targetAmount"},
		{"rule over 200 characters", func(g *Group) { g.Rules = []string{strings.Repeat("é", MaxRuleLength+1)} }, "rules"},
		{"multibyte rule within 200 characters", func(g *Group) { g.Rules = []string{strings.Repeat("é", MaxRuleLength)} }, ""},
		{"max members below two", func(g *Group) { g.MaxMembers = 1 }, "maxMembers"},
		{"creator not a member", func(g *Group) { g.Members = []string{"bob"} }, "creator"},
		{"too many members", func(g *Group) { g.Members = []string{"alice", "bob", "carol"} }, "maxMembers"},
		{"duplicate members", func(g *Group) {
			g.MaxMembers = 3
			g.Members = []string{"alice", "bob", "bob"}
		}, "members"},
		{"too many rules", func(g *Group) { g.Rules = make([]string, 11) }, "rules"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGroup(now)
			tt.mutate(g)
			err := g.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ie *InvariantError
			if !errors.As(err, &ie) {
				t.Fatalf("expected InvariantError, got %v", err)
			}
			if ie.Field != tt.wantField {
				t.Errorf("field = %s, want %s", ie.Field, tt.wantField)
			}
		})
	}
}

func TestMembership(t *testing.T) {
	g := newTestGroup(time.Now())
	if !g.AddMember("bob") {
		t.Fatal("expected bob to be added")
	}
	if g.AddMember("bob") {
		t.Error("expected duplicate add to be a no-op")
	}
	if !g.RemoveMember("bob") {
		t.Error("expected bob to be removed")
	}
	if g.RemoveMember("bob") {
		t.Error("expected second removal to report false")
	}

	c := g.Clone()
	c.Members[0] = "mallory"
	if g.Members[0] != "alice" {
		t.Error("Clone shares the members slice")
	}
}
