package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"communehub-api/apperrors"
	"communehub-api/models"
	"communehub-api/pagination"
	"communehub-api/repositories"
)

// Notifier is the fire-and-forget side channel invoked on state-machine
// transitions. Errors are logged by the caller and never fail the transition.
type Notifier interface {
	Dispatch(ctx context.Context, event models.MembershipEvent) error
}

// MembershipService owns the lifecycle of a user's relationship to a
// community. Every operation runs in a single transaction; every guard
// violation aborts before any write and maps to a distinct stable code.
type MembershipService struct {
	store    repositories.MembershipTxStore
	notifier Notifier
}

func NewMembershipService(store repositories.MembershipTxStore, notifier Notifier) *MembershipService {
	return &MembershipService{
		store:    store,
		notifier: notifier,
	}
}

// Join creates the membership row for (community, user). The resulting status
// is PENDING for private communities and APPROVED otherwise; paid communities
// reject the direct join and require the payment-completion path.
func (s *MembershipService) Join(ctx context.Context, communityID, userID string) (*models.Membership, error) {
	var created *models.Membership
	err := s.store.InTx(ctx, func(tx repositories.MembershipStore) error {
		community, err := tx.GetCommunityForUpdate(ctx, communityID)
		if err != nil {
			return err
		}
		m, err := s.createMembership(ctx, tx, community, userID, true)
		if err != nil {
			return err
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}
	return created, nil
}

// GrantPaidMembership is the separate operation that creates the membership
// once the external payment flow has completed. It skips the payment gate but
// enforces every other join guard.
func (s *MembershipService) GrantPaidMembership(ctx context.Context, communityID, userID string) (*models.Membership, error) {
	var created *models.Membership
	err := s.store.InTx(ctx, func(tx repositories.MembershipStore) error {
		community, err := tx.GetCommunityForUpdate(ctx, communityID)
		if err != nil {
			return err
		}
		if !community.IsPaid {
			return apperrors.New(apperrors.CodeBadRequestInput, "community is not paid")
		}
		m, err := s.createMembership(ctx, tx, community, userID, false)
		if err != nil {
			return err
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}
	return created, nil
}

// createMembership holds the shared join path. The caller has already locked
// the community row. The status-specific conflict for an existing row wins
// over the payment gate.
func (s *MembershipService) createMembership(ctx context.Context, tx repositories.MembershipStore, community *models.Community, userID string, enforcePaymentGate bool) (*models.Membership, error) {
	existing, err := tx.GetMembership(ctx, community.ID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, joinConflict(existing.Status)
	}
	if enforcePaymentGate && community.IsPaid {
		return nil, apperrors.New(apperrors.CodePaymentRequired, "community requires payment to join")
	}

	status := models.StatusApproved
	if community.IsPrivate {
		status = models.StatusPending
	}

	now := time.Now()
	m := &models.Membership{
		ID:          uuid.New().String(),
		CommunityID: community.ID,
		UserID:      userID,
		Role:        models.RoleMember,
		Status:      status,
		RequestedAt: now,
	}
	if status == models.StatusApproved {
		m.JoinedAt = &now
	}

	if err := tx.CreateMembership(ctx, m); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			// Lost a concurrent join race; the winner's row is the one that
			// counts, so surface the same conflict a pre-existing row would.
			winner, rerr := tx.GetMembership(ctx, community.ID, userID)
			if rerr != nil {
				return nil, rerr
			}
			if winner != nil {
				return nil, joinConflict(winner.Status)
			}
			return nil, apperrors.New(apperrors.CodeAlreadyMember, "membership already exists")
		}
		return nil, err
	}

	if status == models.StatusApproved {
		if err := tx.AdjustMemberCount(ctx, community.ID, 1); err != nil {
			return nil, err
		}
	} else {
		adminIDs := s.adminIDs(ctx, tx, community.ID)
		s.notify(ctx, models.MembershipEvent{
			Type:         models.NotificationTypeJoinRequest,
			CommunityID:  community.ID,
			ActorUserID:  userID,
			RecipientIDs: adminIDs,
			OccurredAt:   now,
		})
	}
	return m, nil
}

func joinConflict(status models.MemberStatus) error {
	switch status {
	case models.StatusApproved:
		return apperrors.New(apperrors.CodeAlreadyMember, "user is already a member")
	case models.StatusPending:
		return apperrors.New(apperrors.CodePendingMember, "membership request is already pending")
	case models.StatusBanned:
		return apperrors.New(apperrors.CodeBanned, "user is banned from this community")
	default:
		// A rejected user is not silently allowed back in.
		return apperrors.New(apperrors.CodeRejected, "membership request was rejected")
	}
}

// Approve moves a PENDING membership to APPROVED and increments the member count.
func (s *MembershipService) Approve(ctx context.Context, communityID, membershipID, actingUserID string) (*models.Membership, error) {
	var approved *models.Membership
	err := s.store.InTx(ctx, func(tx repositories.MembershipStore) error {
		if _, err := tx.GetCommunityForUpdate(ctx, communityID); err != nil {
			return err
		}
		if err := s.requireRole(ctx, tx, communityID, actingUserID, models.RoleOwner, models.RoleAdmin, models.RoleModerator); err != nil {
			return err
		}
		m, err := tx.GetMembershipByID(ctx, communityID, membershipID)
		if err != nil {
			return err
		}
		if m.UserID == actingUserID {
			return apperrors.New(apperrors.CodeForbiddenSelf, "cannot approve your own request")
		}
		if m.Status != models.StatusPending {
			return apperrors.New(apperrors.CodeNotPending, "membership is not pending")
		}

		now := time.Now()
		m.Status = models.StatusApproved
		if m.JoinedAt == nil {
			m.JoinedAt = &now
		}
		if err := tx.SaveMembership(ctx, m); err != nil {
			return err
		}
		if err := tx.AdjustMemberCount(ctx, communityID, 1); err != nil {
			return err
		}

		s.notify(ctx, models.MembershipEvent{
			Type:         models.NotificationTypeRequestApproved,
			CommunityID:  communityID,
			ActorUserID:  actingUserID,
			RecipientIDs: []string{m.UserID},
			OccurredAt:   now,
		})
		approved = m
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}
	return approved, nil
}

// Reject moves a PENDING membership to REJECTED. No counter changes.
func (s *MembershipService) Reject(ctx context.Context, communityID, membershipID, actingUserID string) (*models.Membership, error) {
	var rejected *models.Membership
	err := s.store.InTx(ctx, func(tx repositories.MembershipStore) error {
		if _, err := tx.GetCommunityForUpdate(ctx, communityID); err != nil {
			return err
		}
		if err := s.requireRole(ctx, tx, communityID, actingUserID, models.RoleOwner, models.RoleAdmin, models.RoleModerator); err != nil {
			return err
		}
		m, err := tx.GetMembershipByID(ctx, communityID, membershipID)
		if err != nil {
			return err
		}
		if m.UserID == actingUserID {
			return apperrors.New(apperrors.CodeForbiddenSelf, "cannot reject your own request")
		}
		if m.Status != models.StatusPending {
			return apperrors.New(apperrors.CodeNotPending, "membership is not pending")
		}

		m.Status = models.StatusRejected
		if err := tx.SaveMembership(ctx, m); err != nil {
			return err
		}

		s.notify(ctx, models.MembershipEvent{
			Type:         models.NotificationTypeRequestRejected,
			CommunityID:  communityID,
			ActorUserID:  actingUserID,
			RecipientIDs: []string{m.UserID},
			OccurredAt:   time.Now(),
		})
		rejected = m
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}
	return rejected, nil
}

// AssignRole changes the role of an APPROVED membership. Only the current
// owner may hand out OWNER, and the sole remaining owner cannot be demoted.
func (s *MembershipService) AssignRole(ctx context.Context, communityID, membershipID, actingUserID string, role models.MemberRole) (*models.Membership, error) {
	if !role.Valid() {
		return nil, apperrors.New(apperrors.CodeBadRequestInput, "unknown role")
	}

	var updated *models.Membership
	err := s.store.InTx(ctx, func(tx repositories.MembershipStore) error {
		community, err := tx.GetCommunityForUpdate(ctx, communityID)
		if err != nil {
			return err
		}
		if err := s.requireRole(ctx, tx, communityID, actingUserID, models.RoleOwner, models.RoleAdmin); err != nil {
			return err
		}
		m, err := tx.GetMembershipByID(ctx, communityID, membershipID)
		if err != nil {
			return err
		}
		// Checked before the self-action guard so the sole owner demoting
		// themselves still gets the owner-specific error.
		if m.Role == models.RoleOwner && m.Status == models.StatusApproved && role != models.RoleOwner {
			owners, err := tx.CountApprovedOwners(ctx, communityID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return apperrors.New(apperrors.CodeOnlyOwnerDemote, "cannot demote the only owner")
			}
		}
		if m.UserID == actingUserID {
			return apperrors.New(apperrors.CodeForbiddenSelf, "cannot change your own role")
		}
		if m.Status != models.StatusApproved {
			return apperrors.New(apperrors.CodeNotApproved, "membership is not approved")
		}
		if m.Role == role {
			return apperrors.New(apperrors.CodeSameRole, "membership already has this role")
		}
		if role == models.RoleOwner && actingUserID != community.OwnerID {
			return apperrors.New(apperrors.CodeForbidden, "only the owner can assign ownership")
		}

		m.Role = role
		if err := tx.SaveMembership(ctx, m); err != nil {
			return err
		}

		s.notify(ctx, models.MembershipEvent{
			Type:         models.NotificationTypeRoleChanged,
			CommunityID:  communityID,
			ActorUserID:  actingUserID,
			RecipientIDs: []string{m.UserID},
			Role:         string(role),
			OccurredAt:   time.Now(),
		})
		updated = m
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}
	return updated, nil
}

// RemoveRole resets a membership back to plain MEMBER.
func (s *MembershipService) RemoveRole(ctx context.Context, communityID, membershipID, actingUserID string) (*models.Membership, error) {
	var updated *models.Membership
	err := s.store.InTx(ctx, func(tx repositories.MembershipStore) error {
		if _, err := tx.GetCommunityForUpdate(ctx, communityID); err != nil {
			return err
		}
		if err := s.requireRole(ctx, tx, communityID, actingUserID, models.RoleOwner, models.RoleAdmin); err != nil {
			return err
		}
		m, err := tx.GetMembershipByID(ctx, communityID, membershipID)
		if err != nil {
			return err
		}
		// Same guard order as AssignRole: the sole owner stripping their own
		// role gets the owner-specific error.
		if m.Role == models.RoleOwner && m.Status == models.StatusApproved {
			owners, err := tx.CountApprovedOwners(ctx, communityID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return apperrors.New(apperrors.CodeOnlyOwnerRemove, "cannot remove the only owner")
			}
		}
		if m.UserID == actingUserID {
			return apperrors.New(apperrors.CodeForbiddenSelf, "cannot remove your own role")
		}
		if m.Status != models.StatusApproved {
			return apperrors.New(apperrors.CodeNotApproved, "membership is not approved")
		}
		if m.Role == models.RoleMember {
			return apperrors.New(apperrors.CodeSameRole, "membership has no role to remove")
		}

		m.Role = models.RoleMember
		if err := tx.SaveMembership(ctx, m); err != nil {
			return err
		}

		s.notify(ctx, models.MembershipEvent{
			Type:         models.NotificationTypeRoleChanged,
			CommunityID:  communityID,
			ActorUserID:  actingUserID,
			RecipientIDs: []string{m.UserID},
			Role:         string(models.RoleMember),
			OccurredAt:   time.Now(),
		})
		updated = m
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}
	return updated, nil
}

// Ban moves a membership to BANNED and records the ban metadata. A ban of an
// APPROVED member decrements the member count so it keeps reflecting the
// approved membership set.
func (s *MembershipService) Ban(ctx context.Context, communityID, membershipID, actingUserID, reason string) (*models.Membership, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.New(apperrors.CodeBanReasonNeeded, "ban reason is required")
	}

	var banned *models.Membership
	err := s.store.InTx(ctx, func(tx repositories.MembershipStore) error {
		if _, err := tx.GetCommunityForUpdate(ctx, communityID); err != nil {
			return err
		}
		if err := s.requireRole(ctx, tx, communityID, actingUserID, models.RoleOwner, models.RoleAdmin, models.RoleModerator); err != nil {
			return err
		}
		m, err := tx.GetMembershipByID(ctx, communityID, membershipID)
		if err != nil {
			return err
		}
		if m.UserID == actingUserID {
			return apperrors.New(apperrors.CodeForbiddenSelf, "cannot ban yourself")
		}
		if m.Role == models.RoleOwner {
			return apperrors.New(apperrors.CodeCannotBanOwner, "cannot ban the owner")
		}
		if m.Status == models.StatusBanned {
			return apperrors.New(apperrors.CodeAlreadyBanned, "membership is already banned")
		}

		wasApproved := m.Status == models.StatusApproved
		now := time.Now()
		m.Status = models.StatusBanned
		m.BanReason = &reason
		m.BannedBy = &actingUserID
		m.BannedAt = &now
		if err := tx.SaveMembership(ctx, m); err != nil {
			return err
		}
		if wasApproved {
			if err := tx.AdjustMemberCount(ctx, communityID, -1); err != nil {
				return err
			}
		}

		s.notify(ctx, models.MembershipEvent{
			Type:         models.NotificationTypeMemberBanned,
			CommunityID:  communityID,
			ActorUserID:  actingUserID,
			RecipientIDs: []string{m.UserID},
			Reason:       reason,
			OccurredAt:   now,
		})
		banned = m
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}
	return banned, nil
}

// Unban lifts a ban. The outcome is REJECTED with role MEMBER and cleared ban
// metadata, never APPROVED: the user has to re-request membership.
func (s *MembershipService) Unban(ctx context.Context, communityID, membershipID, actingUserID string) (*models.Membership, error) {
	var unbanned *models.Membership
	err := s.store.InTx(ctx, func(tx repositories.MembershipStore) error {
		if _, err := tx.GetCommunityForUpdate(ctx, communityID); err != nil {
			return err
		}
		if err := s.requireRole(ctx, tx, communityID, actingUserID, models.RoleOwner, models.RoleAdmin, models.RoleModerator); err != nil {
			return err
		}
		m, err := tx.GetMembershipByID(ctx, communityID, membershipID)
		if err != nil {
			return err
		}
		if m.UserID == actingUserID {
			return apperrors.New(apperrors.CodeForbiddenSelf, "cannot unban yourself")
		}
		if m.Role == models.RoleOwner {
			return apperrors.New(apperrors.CodeCannotUnbanOwner, "cannot unban the owner")
		}
		if m.Status != models.StatusBanned {
			return apperrors.New(apperrors.CodeNotBanned, "membership is not banned")
		}

		m.Status = models.StatusRejected
		m.Role = models.RoleMember
		m.BanReason = nil
		m.BannedBy = nil
		m.BannedAt = nil
		if err := tx.SaveMembership(ctx, m); err != nil {
			return err
		}

		s.notify(ctx, models.MembershipEvent{
			Type:         models.NotificationTypeMemberUnbanned,
			CommunityID:  communityID,
			ActorUserID:  actingUserID,
			RecipientIDs: []string{m.UserID},
			OccurredAt:   time.Now(),
		})
		unbanned = m
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err)
	}
	return unbanned, nil
}

// Leave deletes the caller's membership row. The owner may never leave.
func (s *MembershipService) Leave(ctx context.Context, communityID, userID string) error {
	err := s.store.InTx(ctx, func(tx repositories.MembershipStore) error {
		if _, err := tx.GetCommunityForUpdate(ctx, communityID); err != nil {
			return err
		}
		m, err := tx.GetMembership(ctx, communityID, userID)
		if err != nil {
			return err
		}
		if m == nil {
			return apperrors.New(apperrors.CodeNotFound, "membership not found")
		}
		if m.Role == models.RoleOwner {
			return apperrors.New(apperrors.CodeOwnerCannotLeave, "the owner cannot leave the community")
		}

		wasApproved := m.Status == models.StatusApproved
		if err := tx.DeleteMembership(ctx, m.ID); err != nil {
			return err
		}
		if wasApproved {
			if err := tx.AdjustMemberCount(ctx, communityID, -1); err != nil {
				return err
			}
		}

		adminIDs := s.adminIDs(ctx, tx, communityID)
		s.notify(ctx, models.MembershipEvent{
			Type:         models.NotificationTypeMemberLeft,
			CommunityID:  communityID,
			ActorUserID:  userID,
			RecipientIDs: adminIDs,
			OccurredAt:   time.Now(),
		})
		return nil
	})
	return wrapInternal(err)
}

// ListMembers pages the APPROVED member list of a community.
func (s *MembershipService) ListMembers(ctx context.Context, communityID, cursor string, limit int) (*models.MembershipConnection, error) {
	if limit < 1 || limit > 100 {
		return nil, apperrors.New(apperrors.CodeBadRequestInput, "limit must be between 1 and 100")
	}
	cur, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequestInput, "malformed cursor", err)
	}
	if _, err := s.store.GetCommunity(ctx, communityID); err != nil {
		return nil, wrapInternal(err)
	}

	memberships, total, err := s.store.ListMemberships(ctx, communityID, cur, limit+1)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, apperrors.Wrap(apperrors.CodeBadRequestInput, "malformed cursor", err)
		}
		return nil, wrapInternal(err)
	}

	hasNext := len(memberships) > limit
	if hasNext {
		memberships = memberships[:limit]
	}

	ordering := repositories.MemberListOrdering()
	value := func(m models.Membership, field string) interface{} {
		switch field {
		case "joined_at":
			return m.JoinedAt
		default:
			return m.ID
		}
	}

	conn := &models.MembershipConnection{
		Edges: make([]models.MembershipEdge, 0, len(memberships)),
		PageInfo: models.PageInfo{
			HasNextPage:     hasNext,
			HasPreviousPage: cur != nil,
			TotalCount:      int(total),
		},
	}
	for _, m := range memberships {
		conn.Edges = append(conn.Edges, models.MembershipEdge{
			Node:   m,
			Cursor: pagination.CursorFor(m, ordering, value),
		})
	}
	if n := len(conn.Edges); n > 0 {
		conn.PageInfo.Cursor = conn.Edges[n-1].Cursor
	}
	return conn, nil
}

// requireRole verifies the acting user holds an APPROVED membership with one
// of the given roles.
func (s *MembershipService) requireRole(ctx context.Context, tx repositories.MembershipStore, communityID, userID string, roles ...models.MemberRole) error {
	m, err := tx.GetMembership(ctx, communityID, userID)
	if err != nil {
		return err
	}
	if m != nil && m.Status == models.StatusApproved {
		for _, role := range roles {
			if m.Role == role {
				return nil
			}
		}
	}
	return apperrors.New(apperrors.CodeForbidden, "insufficient permissions")
}

func (s *MembershipService) adminIDs(ctx context.Context, tx repositories.MembershipStore, communityID string) []string {
	ids, err := tx.AdminUserIDs(ctx, communityID)
	if err != nil {
		log.Printf("failed to load admin recipients for community %s: %v", communityID, err)
		return nil
	}
	return ids
}

func (s *MembershipService) notify(ctx context.Context, event models.MembershipEvent) {
	if s.notifier == nil || len(event.RecipientIDs) == 0 {
		return
	}
	if err := s.notifier.Dispatch(ctx, event); err != nil {
		log.Printf("notification dispatch failed for %s in community %s: %v",
			event.Type, event.CommunityID, err)
	}
}

// wrapInternal hides unexpected storage failures behind the generic code
// while letting coded guard errors pass through untouched.
func wrapInternal(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Internal(err)
}
