package models

// Role is a member's role within a project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// CanInvite reports whether a member with this role may invite others.
func (r Role) CanInvite() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Project represents a billable project with a fixed budget.
type Project struct {
	// ID is the unique identifier for the project (UUID format).
	ID string `json:"id"`

	// Name is the display name of the project.
	Name string `json:"name"`

	// OwnerID is the user who created the project.
	OwnerID string `json:"owner_id"`

	// Budget is the total budget allocated to the project. Fixed at
	// creation.
	Budget float64 `json:"budget"`

	// RemainingBudget is budget minus the sum of all budget transactions.
	// Derived aggregate: mutated only inside a ledger cascade commit that
	// carries a version check on the project record.
	RemainingBudget float64 `json:"remaining_budget"`

	// ProfitSharingEnabled gates profit distribution runs.
	ProfitSharingEnabled bool `json:"profit_sharing_enabled"`

	// ProfitSharePercent is the fraction of the budget (as a percentage)
	// distributed per run when sharing is enabled.
	ProfitSharePercent float64 `json:"profit_share_percent"`

	// BonusPool accumulates the total amount distributed so far.
	BonusPool float64 `json:"bonus_pool"`

	// DistributedThrough is the completion-timestamp watermark of the
	// newest time entry counted by the last distribution run. Entries
	// completed at or before it never count again.
	DistributedThrough int64 `json:"distributed_through"`

	// CreatedAt is the Unix timestamp when the project was created.
	CreatedAt int64 `json:"created_at"`
}

// ProjectMember links a user to a project. One record per (project, user)
// pair, keyed project_member/{projectId}/{userId}.
type ProjectMember struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`

	Role Role `json:"role"`

	// HourlyRate is the user's rate snapshotted when they joined. Time
	// entry cost is always computed from this snapshot.
	HourlyRate float64 `json:"hourly_rate"`

	// TotalHours accumulates hours across the member's time entries.
	// Derived aggregate, updated in the same commit as each entry.
	TotalHours float64 `json:"total_hours"`

	// JoinedAt is the Unix timestamp when the membership was created.
	JoinedAt int64 `json:"joined_at"`
}

// InviteStatus is the lifecycle state of a project invitation.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
	InviteExpired  InviteStatus = "expired"
)

// Valid reports whether the status is one of the known variants.
func (s InviteStatus) Valid() bool {
	switch s {
	case InvitePending, InviteAccepted, InviteDeclined, InviteExpired:
		return true
	}
	return false
}

// ProjectInvitation is a pending offer of membership. Accepting after
// ExpiresAt, or accepting twice, fails.
type ProjectInvitation struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"project_id"`
	InviterID string       `json:"inviter_id"`
	InviteeID string       `json:"invitee_id"`
	Role      Role         `json:"role"`
	Status    InviteStatus `json:"status"`
	CreatedAt int64        `json:"created_at"`
	ExpiresAt int64        `json:"expires_at"`
}
