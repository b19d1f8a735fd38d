package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tallyhour/tallyhour/internal/apperr"
	"github.com/tallyhour/tallyhour/internal/index"
	"github.com/tallyhour/tallyhour/internal/kv"
	"github.com/tallyhour/tallyhour/internal/models"
)

// DefaultProfitSharePercent applies when profit sharing is enabled
// without an explicit percentage.
const DefaultProfitSharePercent = 10

// Membership manages projects, project members, and invitations.
type Membership struct {
	store kv.Store

	// Now supplies the current time; overridable in tests.
	Now func() time.Time
}

// NewMembership creates a membership registry on the given store.
func NewMembership(store kv.Store) *Membership {
	return &Membership{store: store, Now: time.Now}
}

// CreateProject creates a project and its owner membership in one atomic
// commit. The owner's hourly rate is snapshotted from their user record.
func (r *Membership) CreateProject(ctx context.Context, ownerID, name string, budget float64, sharingEnabled bool, sharePercent float64) (*models.Project, error) {
	if name == "" {
		return nil, apperr.Validation("project name is required")
	}
	if budget < 0 {
		return nil, apperr.Validation("budget must not be negative")
	}
	if sharePercent < 0 || sharePercent > 100 {
		return nil, apperr.Validation("profit share percent must be between 0 and 100")
	}

	ownerPair, ok, err := r.store.Get(ctx, index.UserKey(ownerID))
	if err != nil {
		return nil, fmt.Errorf("failed to get owner: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("owner not found")
	}
	owner := &models.User{}
	if err := kv.Decode(ownerPair, owner); err != nil {
		return nil, err
	}

	if sharingEnabled && sharePercent == 0 {
		sharePercent = DefaultProfitSharePercent
	}

	now := r.Now().Unix()
	project := &models.Project{
		ID:                   uuid.New().String(),
		Name:                 name,
		OwnerID:              ownerID,
		Budget:               budget,
		RemainingBudget:      budget,
		ProfitSharingEnabled: sharingEnabled,
		ProfitSharePercent:   sharePercent,
		CreatedAt:            now,
	}
	member := &models.ProjectMember{
		ProjectID:  project.ID,
		UserID:     ownerID,
		Role:       models.RoleOwner,
		HourlyRate: owner.HourlyRate,
		JoinedAt:   now,
	}

	projectValue, err := kv.Encode(project)
	if err != nil {
		return nil, err
	}
	memberValue, err := kv.Encode(member)
	if err != nil {
		return nil, err
	}

	batch := &kv.Batch{}
	batch.CheckAbsent(index.ProjectKey(project.ID))
	batch.Put(index.ProjectKey(project.ID), projectValue)
	batch.Put(index.ProjectMemberKey(project.ID, ownerID), memberValue)

	if err := r.store.Commit(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	slog.Info("project created", "project_id", project.ID, "owner_id", ownerID, "budget", budget)
	return project, nil
}

// GetProject retrieves a project by ID.
func (r *Membership) GetProject(ctx context.Context, id string) (*models.Project, error) {
	pair, ok, err := r.store.Get(ctx, index.ProjectKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("project not found")
	}
	project := &models.Project{}
	if err := kv.Decode(pair, project); err != nil {
		return nil, err
	}
	return project, nil
}

// AddProjectMember upserts a membership. Adding an existing member
// updates their role and rate but preserves accumulated hours.
func (r *Membership) AddProjectMember(ctx context.Context, projectID, userID string, role models.Role, hourlyRate float64) (*models.ProjectMember, error) {
	if !role.Valid() {
		return nil, apperr.Validation("invalid role")
	}
	if hourlyRate < 0 {
		return nil, apperr.Validation("hourly rate must not be negative")
	}
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if _, ok, err := r.store.Get(ctx, index.UserKey(userID)); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	} else if !ok {
		return nil, apperr.NotFound("user not found")
	}

	key := index.ProjectMemberKey(projectID, userID)
	for attempt := 0; attempt < kv.MaxCommitAttempts; attempt++ {
		existing, ok, err := r.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		}

		member := &models.ProjectMember{
			ProjectID:  projectID,
			UserID:     userID,
			Role:       role,
			HourlyRate: hourlyRate,
			JoinedAt:   r.Now().Unix(),
		}
		batch := &kv.Batch{}
		if ok {
			prev := &models.ProjectMember{}
			if err := kv.Decode(existing, prev); err != nil {
				return nil, err
			}
			member.TotalHours = prev.TotalHours
			member.JoinedAt = prev.JoinedAt
			batch.Check(key, existing.Version)
		} else {
			batch.CheckAbsent(key)
		}

		value, err := kv.Encode(member)
		if err != nil {
			return nil, err
		}
		batch.Put(key, value)

		err = r.store.Commit(ctx, batch)
		if errors.Is(err, kv.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to add member: %w", err)
		}
		slog.Info("project member upserted", "project_id", projectID, "user_id", userID, "role", role)
		return member, nil
	}
	return nil, apperr.Contention("add member", kv.MaxCommitAttempts)
}

// GetProjectMember retrieves one membership record, or nil when the user
// is not a member.
func (r *Membership) GetProjectMember(ctx context.Context, projectID, userID string) (*models.ProjectMember, error) {
	pair, ok, err := r.store.Get(ctx, index.ProjectMemberKey(projectID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if !ok {
		return nil, nil
	}
	member := &models.ProjectMember{}
	if err := kv.Decode(pair, member); err != nil {
		return nil, err
	}
	return member, nil
}

// GetProjectMembers lists all members of a project.
func (r *Membership) GetProjectMembers(ctx context.Context, projectID string) ([]*models.ProjectMember, error) {
	pairs, err := r.store.Scan(ctx, index.ProjectMemberPrefix(projectID))
	if err != nil {
		return nil, fmt.Errorf("failed to scan members: %w", err)
	}
	members := make([]*models.ProjectMember, 0, len(pairs))
	for _, pair := range pairs {
		member := &models.ProjectMember{}
		if err := kv.Decode(pair, member); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, nil
}

// CreateInvitation invites a user to a project. The inviter must be an
// owner or admin member.
func (r *Membership) CreateInvitation(ctx context.Context, projectID, inviterID, inviteeID string, role models.Role, ttl time.Duration) (*models.ProjectInvitation, error) {
	if !role.Valid() || role == models.RoleOwner {
		return nil, apperr.Validation("invitation role must be admin or member")
	}
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	inviter, err := r.GetProjectMember(ctx, projectID, inviterID)
	if err != nil {
		return nil, err
	}
	if inviter == nil || !inviter.Role.CanInvite() {
		return nil, apperr.Precondition(apperr.CodeNotAuthorized, "inviter may not invite members")
	}
	if _, ok, err := r.store.Get(ctx, index.UserKey(inviteeID)); err != nil {
		return nil, fmt.Errorf("failed to get invitee: %w", err)
	} else if !ok {
		return nil, apperr.NotFound("invitee not found")
	}

	now := r.Now()
	inv := &models.ProjectInvitation{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		InviterID: inviterID,
		InviteeID: inviteeID,
		Role:      role,
		Status:    models.InvitePending,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	value, err := kv.Encode(inv)
	if err != nil {
		return nil, err
	}

	batch := &kv.Batch{}
	batch.Put(index.InvitationKey(inv.ID), value)
	batch.Puts = append(batch.Puts, index.InvitationEntries(inv)...)
	if err := r.store.Commit(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	slog.Info("invitation created", "invitation_id", inv.ID, "project_id", projectID, "invitee_id", inviteeID)
	return inv, nil
}

// RespondToInvitation accepts or declines a pending invitation. Accepting
// writes the new membership in the same commit as the status change, with
// a version check on the invitation so concurrent responses cannot both
// win.
func (r *Membership) RespondToInvitation(ctx context.Context, invitationID string, accept bool) (*models.ProjectInvitation, error) {
	pair, ok, err := r.store.Get(ctx, index.InvitationKey(invitationID))
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("invitation not found")
	}
	inv := &models.ProjectInvitation{}
	if err := kv.Decode(pair, inv); err != nil {
		return nil, err
	}

	if inv.Status != models.InvitePending {
		return nil, apperr.Precondition(apperr.CodeInviteAnswered, "invitation already answered")
	}
	now := r.Now()
	if now.Unix() > inv.ExpiresAt {
		return nil, apperr.Precondition(apperr.CodeInviteExpired, "invitation expired")
	}

	batch := &kv.Batch{}
	batch.Check(index.InvitationKey(inv.ID), pair.Version)

	if accept {
		inv.Status = models.InviteAccepted
		invitee, err := r.getUser(ctx, inv.InviteeID)
		if err != nil {
			return nil, err
		}
		memberKey := index.ProjectMemberKey(inv.ProjectID, inv.InviteeID)
		if _, exists, err := r.store.Get(ctx, memberKey); err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		} else if !exists {
			member := &models.ProjectMember{
				ProjectID:  inv.ProjectID,
				UserID:     inv.InviteeID,
				Role:       inv.Role,
				HourlyRate: invitee.HourlyRate,
				JoinedAt:   now.Unix(),
			}
			memberValue, err := kv.Encode(member)
			if err != nil {
				return nil, err
			}
			batch.CheckAbsent(memberKey)
			batch.Put(memberKey, memberValue)
		}
	} else {
		inv.Status = models.InviteDeclined
	}

	value, err := kv.Encode(inv)
	if err != nil {
		return nil, err
	}
	batch.Put(index.InvitationKey(inv.ID), value)

	if err := r.store.Commit(ctx, batch); err != nil {
		if errors.Is(err, kv.ErrConflict) {
			return nil, apperr.Precondition(apperr.CodeInviteAnswered, "invitation answered concurrently")
		}
		return nil, fmt.Errorf("failed to respond to invitation: %w", err)
	}

	slog.Info("invitation answered", "invitation_id", inv.ID, "status", inv.Status)
	return inv, nil
}

func (r *Membership) getUser(ctx context.Context, id string) (*models.User, error) {
	pair, ok, err := r.store.Get(ctx, index.UserKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	user := &models.User{}
	if err := kv.Decode(pair, user); err != nil {
		return nil, err
	}
	return user, nil
}
