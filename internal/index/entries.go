package index

import (
	"github.com/tallyhour/tallyhour/internal/kv"
	"github.com/tallyhour/tallyhour/internal/models"
)

// Pointer is the value stored under every secondary-index key: the
// primary record's ID, nothing else.
func Pointer(id string) []byte { return []byte(id) }

// UserEntries derives the index entries for a user record.
func UserEntries(u *models.User) []kv.Put {
	return []kv.Put{
		{Key: UserEmailKey(u.Email), Value: Pointer(u.ID)},
	}
}

// ActiveTimerEntries derives the index entries for a running timer: the
// per-user singleton (the mutex slot) and the project-scoped pointer.
func ActiveTimerEntries(t *models.ActiveTimer) []kv.Put {
	return []kv.Put{
		{Key: ActiveTimerUserKey(t.UserID), Value: Pointer(t.ID)},
		{Key: ActiveTimerProjectKey(t.ProjectID, t.ID), Value: Pointer(t.ID)},
	}
}

// ActiveTimerIndexKeys returns the index keys a timer occupies, for
// deletion in the same batch that removes the primary record.
func ActiveTimerIndexKeys(t *models.ActiveTimer) []string {
	return []string{
		ActiveTimerUserKey(t.UserID),
		ActiveTimerProjectKey(t.ProjectID, t.ID),
	}
}

// TimeEntryEntries derives the index entries for a time entry.
func TimeEntryEntries(e *models.TimeEntry) []kv.Put {
	return []kv.Put{
		{Key: TimeUserKey(e.UserID, e.Date, e.ID), Value: Pointer(e.ID)},
		{Key: TimeProjectKey(e.ProjectID, e.Date, e.ID), Value: Pointer(e.ID)},
	}
}

// BudgetTransactionEntries derives the index entries for a budget
// transaction.
func BudgetTransactionEntries(tx *models.BudgetTransaction) []kv.Put {
	return []kv.Put{
		{Key: BudgetTransactionProjectKey(tx.ProjectID, tx.ID), Value: Pointer(tx.ID)},
	}
}

// PayPeriodEntries derives the index entries for a pay period.
func PayPeriodEntries(p *models.PayPeriod) []kv.Put {
	return []kv.Put{
		{Key: PayPeriodUserKey(p.UserID, p.StartDate, p.ID), Value: Pointer(p.ID)},
	}
}

// EarningsEntries derives the index entries for an earnings record.
func EarningsEntries(e *models.Earnings) []kv.Put {
	return []kv.Put{
		{Key: EarningsUserKey(e.UserID, e.PayPeriodID, e.ID), Value: Pointer(e.ID)},
		{Key: EarningsProjectKey(e.ProjectID, e.PayPeriodID, e.ID), Value: Pointer(e.ID)},
	}
}

// ProfitShareEntries derives the index entries for a profit share.
func ProfitShareEntries(s *models.ProfitShare) []kv.Put {
	return []kv.Put{
		{Key: ProfitShareProjectKey(s.ProjectID, s.ID), Value: Pointer(s.ID)},
	}
}

// InvitationEntries derives the index entries for a project invitation.
func InvitationEntries(inv *models.ProjectInvitation) []kv.Put {
	return []kv.Put{
		{Key: InvitationProjectKey(inv.ProjectID, inv.ID), Value: Pointer(inv.ID)},
		{Key: InvitationUserKey(inv.InviteeID, inv.ID), Value: Pointer(inv.ID)},
	}
}
