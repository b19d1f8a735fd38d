package models

import (
	"testing"
	"time"
)

func TestPeriodBounds(t *testing.T) {
	tests := []struct {
		name  string
		date  time.Time
		start string
		end   string
	}{
		{"mid-month", time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC), "2026-03-01", "2026-03-31"},
		{"first day", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "2026-04-01", "2026-04-30"},
		{"february non-leap", time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), "2026-02-01", "2026-02-28"},
		{"february leap", time.Date(2028, 2, 1, 0, 0, 0, 0, time.UTC), "2028-02-01", "2028-02-29"},
		{"december", time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), "2026-12-01", "2026-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := PeriodBounds(tt.date)
			if start != tt.start || end != tt.end {
				t.Errorf("PeriodBounds = (%q, %q), want (%q, %q)", start, end, tt.start, tt.end)
			}
		})
	}
}

func TestRolePermissions(t *testing.T) {
	if !RoleOwner.CanInvite() || !RoleAdmin.CanInvite() {
		t.Error("Owners and admins must be able to invite")
	}
	if RoleMember.CanInvite() {
		t.Error("Plain members must not be able to invite")
	}
	if Role("ghost").Valid() {
		t.Error("Unknown role reported valid")
	}
}

func TestStatusValidity(t *testing.T) {
	if !EntryPending.Valid() || !EntryCompleted.Valid() || EntryStatus("x").Valid() {
		t.Error("EntryStatus validity wrong")
	}
	if !InvitePending.Valid() || InviteStatus("x").Valid() {
		t.Error("InviteStatus validity wrong")
	}
	if !PeriodOpen.Valid() || PeriodStatus("x").Valid() {
		t.Error("PeriodStatus validity wrong")
	}
	if !SharePending.Valid() || ShareStatus("x").Valid() {
		t.Error("ShareStatus validity wrong")
	}
	if !TransactionTime.Valid() || TransactionType("x").Valid() {
		t.Error("TransactionType validity wrong")
	}
}
