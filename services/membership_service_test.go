package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communehub-api/apperrors"
	"communehub-api/models"
	"communehub-api/pagination"
	"communehub-api/repositories"
)

// ---- in-memory fakes ---------------------------------------------------------

type fakeMembershipStore struct {
	communities map[string]*models.Community
	memberships map[string]*models.Membership

	// forceDuplicate makes the next CreateMembership lose the insert race;
	// raceWinner, when set, is the row the winning insert committed.
	forceDuplicate bool
	raceWinner     *models.Membership
}

func newFakeMembershipStore() *fakeMembershipStore {
	return &fakeMembershipStore{
		communities: make(map[string]*models.Community),
		memberships: make(map[string]*models.Membership),
	}
}

func (f *fakeMembershipStore) InTx(ctx context.Context, fn func(repositories.MembershipStore) error) error {
	return fn(f)
}

func (f *fakeMembershipStore) GetCommunity(ctx context.Context, id string) (*models.Community, error) {
	c, ok := f.communities[id]
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "community not found")
	}
	copied := *c
	return &copied, nil
}

func (f *fakeMembershipStore) GetCommunityForUpdate(ctx context.Context, id string) (*models.Community, error) {
	return f.GetCommunity(ctx, id)
}

func (f *fakeMembershipStore) GetMembership(ctx context.Context, communityID, userID string) (*models.Membership, error) {
	for _, m := range f.memberships {
		if m.CommunityID == communityID && m.UserID == userID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeMembershipStore) GetMembershipByID(ctx context.Context, communityID, membershipID string) (*models.Membership, error) {
	m, ok := f.memberships[membershipID]
	if !ok || m.CommunityID != communityID {
		return nil, apperrors.New(apperrors.CodeNotFound, "membership not found")
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMembershipStore) CreateMembership(ctx context.Context, m *models.Membership) error {
	if f.forceDuplicate {
		f.forceDuplicate = false
		if f.raceWinner != nil {
			copied := *f.raceWinner
			f.memberships[copied.ID] = &copied
		}
		return repositories.ErrDuplicateKey
	}
	for _, existing := range f.memberships {
		if existing.CommunityID == m.CommunityID && existing.UserID == m.UserID {
			return repositories.ErrDuplicateKey
		}
	}
	copied := *m
	f.memberships[m.ID] = &copied
	return nil
}

func (f *fakeMembershipStore) SaveMembership(ctx context.Context, m *models.Membership) error {
	copied := *m
	f.memberships[m.ID] = &copied
	return nil
}

func (f *fakeMembershipStore) DeleteMembership(ctx context.Context, id string) error {
	delete(f.memberships, id)
	return nil
}

func (f *fakeMembershipStore) AdjustMemberCount(ctx context.Context, communityID string, delta int) error {
	f.communities[communityID].MemberCount += delta
	return nil
}

func (f *fakeMembershipStore) CountApprovedOwners(ctx context.Context, communityID string) (int64, error) {
	var count int64
	for _, m := range f.memberships {
		if m.CommunityID == communityID && m.Status == models.StatusApproved && m.Role == models.RoleOwner {
			count++
		}
	}
	return count, nil
}

func (f *fakeMembershipStore) AdminUserIDs(ctx context.Context, communityID string) ([]string, error) {
	var ids []string
	for _, m := range f.memberships {
		if m.CommunityID == communityID && m.Status == models.StatusApproved &&
			(m.Role == models.RoleOwner || m.Role == models.RoleAdmin) {
			ids = append(ids, m.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeMembershipStore) ListMemberships(ctx context.Context, communityID string, cur pagination.Cursor, limit int) ([]models.Membership, int64, error) {
	var rows []models.Membership
	for _, m := range f.memberships {
		if m.CommunityID == communityID && m.Status == models.StatusApproved {
			rows = append(rows, *m)
		}
	}
	total := int64(len(rows))

	ordering := repositories.MemberListOrdering()
	value := func(m models.Membership, field string) interface{} {
		if field == "joined_at" {
			return m.JoinedAt
		}
		return m.ID
	}
	pagination.Sort(rows, ordering, value)

	page, err := pagination.Paginate(rows, ordering, value, cur, limit)
	if err != nil {
		return nil, 0, err
	}
	return page.Items, total, nil
}

type fakeNotifier struct {
	events []models.MembershipEvent
}

func (f *fakeNotifier) Dispatch(ctx context.Context, event models.MembershipEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) lastEvent(t *testing.T) models.MembershipEvent {
	t.Helper()
	require.NotEmpty(t, f.events)
	return f.events[len(f.events)-1]
}

// ---- fixtures ----------------------------------------------------------------

type membershipFixture struct {
	store    *fakeMembershipStore
	notifier *fakeNotifier
	service  *MembershipService
	ctx      context.Context
}

func newMembershipFixture() *membershipFixture {
	store := newFakeMembershipStore()
	notifier := &fakeNotifier{}
	return &membershipFixture{
		store:    store,
		notifier: notifier,
		service:  NewMembershipService(store, notifier),
		ctx:      context.Background(),
	}
}

// seedCommunity creates a community plus its approved owner membership and
// returns the community id.
func (fx *membershipFixture) seedCommunity(ownerID string, private, paid bool) string {
	id := uuid.New().String()
	fx.store.communities[id] = &models.Community{
		ID:          id,
		Name:        "Test Community",
		OwnerID:     ownerID,
		IsPrivate:   private,
		IsPaid:      paid,
		MemberCount: 1,
	}
	fx.seedMembership(id, ownerID, models.RoleOwner, models.StatusApproved)
	return id
}

func (fx *membershipFixture) seedMembership(communityID, userID string, role models.MemberRole, status models.MemberStatus) string {
	now := time.Now()
	m := &models.Membership{
		ID:          uuid.New().String(),
		CommunityID: communityID,
		UserID:      userID,
		Role:        role,
		Status:      status,
		RequestedAt: now,
	}
	if status == models.StatusApproved {
		m.JoinedAt = &now
	}
	fx.store.memberships[m.ID] = m
	return m.ID
}

func (fx *membershipFixture) memberCount(communityID string) int {
	return fx.store.communities[communityID].MemberCount
}

func assertCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperrors.CodeOf(err))
}

// ---- Join --------------------------------------------------------------------

func TestJoin_PublicCommunityApprovesImmediately(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)

	m, err := fx.service.Join(fx.ctx, communityID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, m.Status)
	assert.Equal(t, models.RoleMember, m.Role)
	require.NotNil(t, m.JoinedAt)
	assert.Equal(t, 2, fx.memberCount(communityID))
}

func TestJoin_PrivateCommunityIsPendingAndNotifiesAdmins(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", true, false)
	fx.seedMembership(communityID, "admin", models.RoleAdmin, models.StatusApproved)

	m, err := fx.service.Join(fx.ctx, communityID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, m.Status)
	assert.Nil(t, m.JoinedAt)
	// Pending joins must not touch the member count.
	assert.Equal(t, 1, fx.memberCount(communityID))

	event := fx.notifier.lastEvent(t)
	assert.Equal(t, models.NotificationTypeJoinRequest, event.Type)
	assert.ElementsMatch(t, []string{"owner", "admin"}, event.RecipientIDs)
}

func TestJoin_PaidCommunityRequiresPayment(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, true)

	_, err := fx.service.Join(fx.ctx, communityID, "alice")
	assertCode(t, err, apperrors.CodePaymentRequired)
	assert.Equal(t, 1, fx.memberCount(communityID))
}

func TestJoin_ConflictCodesPerExistingStatus(t *testing.T) {
	cases := []struct {
		status models.MemberStatus
		code   apperrors.Code
	}{
		{models.StatusApproved, apperrors.CodeAlreadyMember},
		{models.StatusPending, apperrors.CodePendingMember},
		{models.StatusBanned, apperrors.CodeBanned},
		{models.StatusRejected, apperrors.CodeRejected},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			fx := newMembershipFixture()
			communityID := fx.seedCommunity("owner", false, false)
			fx.seedMembership(communityID, "alice", models.RoleMember, tc.status)

			_, err := fx.service.Join(fx.ctx, communityID, "alice")
			assertCode(t, err, tc.code)
		})
	}
}

// The conflict for an existing row wins over the payment gate.
func TestJoin_ExistingRowBeatsPaymentGate(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, true)
	fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusBanned)

	_, err := fx.service.Join(fx.ctx, communityID, "alice")
	assertCode(t, err, apperrors.CodeBanned)
}

func TestJoin_LostInsertRaceSurfacesAlreadyMember(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	fx.store.forceDuplicate = true

	_, err := fx.service.Join(fx.ctx, communityID, "alice")
	assertCode(t, err, apperrors.CodeAlreadyMember)
	assert.Equal(t, 1, fx.memberCount(communityID))
}

// When the winning insert is visible, the lost race reports the winner's
// status-specific conflict instead of a blanket ALREADY_MEMBER.
func TestJoin_LostInsertRaceSurfacesWinnersStatus(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", true, false)
	fx.store.forceDuplicate = true
	fx.store.raceWinner = &models.Membership{
		ID:          "winner",
		CommunityID: communityID,
		UserID:      "alice",
		Role:        models.RoleMember,
		Status:      models.StatusPending,
	}

	_, err := fx.service.Join(fx.ctx, communityID, "alice")
	assertCode(t, err, apperrors.CodePendingMember)
}

func TestJoin_UnknownCommunity(t *testing.T) {
	fx := newMembershipFixture()
	_, err := fx.service.Join(fx.ctx, "missing", "alice")
	assertCode(t, err, apperrors.CodeNotFound)
}

// ---- GrantPaidMembership -----------------------------------------------------

func TestGrantPaidMembership_CreatesApprovedMembership(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, true)

	m, err := fx.service.GrantPaidMembership(fx.ctx, communityID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, m.Status)
	assert.Equal(t, 2, fx.memberCount(communityID))
}

func TestGrantPaidMembership_PrivatePaidCommunityStaysPending(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", true, true)

	m, err := fx.service.GrantPaidMembership(fx.ctx, communityID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, m.Status)
	assert.Equal(t, 1, fx.memberCount(communityID))
}

func TestGrantPaidMembership_FreeCommunityIsRejected(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)

	_, err := fx.service.GrantPaidMembership(fx.ctx, communityID, "alice")
	assertCode(t, err, apperrors.CodeBadRequestInput)
}

// ---- Approve / Reject --------------------------------------------------------

func TestApprove_PendingMembership(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", true, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusPending)

	m, err := fx.service.Approve(fx.ctx, communityID, membershipID, "owner")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, m.Status)
	require.NotNil(t, m.JoinedAt)
	assert.Equal(t, 2, fx.memberCount(communityID))

	event := fx.notifier.lastEvent(t)
	assert.Equal(t, models.NotificationTypeRequestApproved, event.Type)
	assert.Equal(t, []string{"alice"}, event.RecipientIDs)
}

func TestApprove_NonPendingFails(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", true, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusApproved)

	_, err := fx.service.Approve(fx.ctx, communityID, membershipID, "owner")
	assertCode(t, err, apperrors.CodeNotPending)
	assert.Equal(t, 1, fx.memberCount(communityID))
}

func TestApprove_RequiresModeratorRole(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", true, false)
	fx.seedMembership(communityID, "bob", models.RoleMember, models.StatusApproved)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusPending)

	_, err := fx.service.Approve(fx.ctx, communityID, membershipID, "bob")
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestApprove_SelfForbidden(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", true, false)
	membershipID := fx.seedMembership(communityID, "admin", models.RoleAdmin, models.StatusApproved)

	_, err := fx.service.Approve(fx.ctx, communityID, membershipID, "admin")
	assertCode(t, err, apperrors.CodeForbiddenSelf)
}

func TestReject_PendingMembership(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", true, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusPending)

	m, err := fx.service.Reject(fx.ctx, communityID, membershipID, "owner")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, m.Status)
	// Rejection never moves the counter.
	assert.Equal(t, 1, fx.memberCount(communityID))
}

func TestReject_SelfForbidden(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", true, false)
	membershipID := fx.seedMembership(communityID, "admin", models.RoleAdmin, models.StatusApproved)

	_, err := fx.service.Reject(fx.ctx, communityID, membershipID, "admin")
	assertCode(t, err, apperrors.CodeForbiddenSelf)
}

// ---- AssignRole / RemoveRole -------------------------------------------------

func TestAssignRole_PromoteToModerator(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusApproved)

	m, err := fx.service.AssignRole(fx.ctx, communityID, membershipID, "owner", models.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, m.Role)

	event := fx.notifier.lastEvent(t)
	assert.Equal(t, models.NotificationTypeRoleChanged, event.Type)
	assert.Equal(t, string(models.RoleModerator), event.Role)
}

func TestAssignRole_SameRoleFails(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleModerator, models.StatusApproved)

	_, err := fx.service.AssignRole(fx.ctx, communityID, membershipID, "owner", models.RoleModerator)
	assertCode(t, err, apperrors.CodeSameRole)
}

func TestAssignRole_OnlyOwnerHandsOutOwnership(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	fx.seedMembership(communityID, "admin", models.RoleAdmin, models.StatusApproved)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusApproved)

	_, err := fx.service.AssignRole(fx.ctx, communityID, membershipID, "admin", models.RoleOwner)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestAssignRole_SoleOwnerCannotBeDemoted(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	fx.seedMembership(communityID, "admin", models.RoleAdmin, models.StatusApproved)

	var ownerMembershipID string
	for id, m := range fx.store.memberships {
		if m.UserID == "owner" {
			ownerMembershipID = id
		}
	}

	_, err := fx.service.AssignRole(fx.ctx, communityID, ownerMembershipID, "admin", models.RoleMember)
	assertCode(t, err, apperrors.CodeOnlyOwnerDemote)
}

// The sole owner demoting themselves gets the owner-specific error, not the
// generic self-action refusal.
func TestAssignRole_SoleOwnerSelfDemotion(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)

	var ownerMembershipID string
	for id, m := range fx.store.memberships {
		if m.UserID == "owner" {
			ownerMembershipID = id
		}
	}

	_, err := fx.service.AssignRole(fx.ctx, communityID, ownerMembershipID, "owner", models.RoleAdmin)
	assertCode(t, err, apperrors.CodeOnlyOwnerDemote)
}

func TestAssignRole_NotApprovedFails(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", true, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusPending)

	_, err := fx.service.AssignRole(fx.ctx, communityID, membershipID, "owner", models.RoleModerator)
	assertCode(t, err, apperrors.CodeNotApproved)
}

func TestAssignRole_SelfChangeForbidden(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	membershipID := fx.seedMembership(communityID, "admin", models.RoleAdmin, models.StatusApproved)

	_, err := fx.service.AssignRole(fx.ctx, communityID, membershipID, "admin", models.RoleModerator)
	assertCode(t, err, apperrors.CodeForbiddenSelf)
}

func TestAssignRole_UnknownRole(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)

	_, err := fx.service.AssignRole(fx.ctx, communityID, "whatever", "owner", models.MemberRole("SUPERUSER"))
	assertCode(t, err, apperrors.CodeBadRequestInput)
}

func TestRemoveRole_ResetsToMember(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleModerator, models.StatusApproved)

	m, err := fx.service.RemoveRole(fx.ctx, communityID, membershipID, "owner")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, m.Role)
}

func TestRemoveRole_PlainMemberHasNothingToRemove(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusApproved)

	_, err := fx.service.RemoveRole(fx.ctx, communityID, membershipID, "owner")
	assertCode(t, err, apperrors.CodeSameRole)
}

func TestRemoveRole_SoleOwnerSelfRemoval(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)

	var ownerMembershipID string
	for id, m := range fx.store.memberships {
		if m.UserID == "owner" {
			ownerMembershipID = id
		}
	}

	_, err := fx.service.RemoveRole(fx.ctx, communityID, ownerMembershipID, "owner")
	assertCode(t, err, apperrors.CodeOnlyOwnerRemove)
}

// ---- Ban / Unban -------------------------------------------------------------

func TestBan_RequiresReason(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusApproved)

	_, err := fx.service.Ban(fx.ctx, communityID, membershipID, "owner", "   ")
	assertCode(t, err, apperrors.CodeBanReasonNeeded)
}

func TestBan_ApprovedMemberDecrementsCount(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusApproved)
	fx.store.communities[communityID].MemberCount = 2

	m, err := fx.service.Ban(fx.ctx, communityID, membershipID, "owner", "spam")
	require.NoError(t, err)
	assert.Equal(t, models.StatusBanned, m.Status)
	require.NotNil(t, m.BanReason)
	assert.Equal(t, "spam", *m.BanReason)
	require.NotNil(t, m.BannedBy)
	assert.Equal(t, "owner", *m.BannedBy)
	assert.NotNil(t, m.BannedAt)
	assert.Equal(t, 1, fx.memberCount(communityID))
}

func TestBan_PendingMemberLeavesCountAlone(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", true, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusPending)

	_, err := fx.service.Ban(fx.ctx, communityID, membershipID, "owner", "spam")
	require.NoError(t, err)
	assert.Equal(t, 1, fx.memberCount(communityID))
}

func TestBan_OwnerCannotBeBanned(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	fx.seedMembership(communityID, "admin", models.RoleAdmin, models.StatusApproved)

	var ownerMembershipID string
	for id, m := range fx.store.memberships {
		if m.UserID == "owner" {
			ownerMembershipID = id
		}
	}

	_, err := fx.service.Ban(fx.ctx, communityID, ownerMembershipID, "admin", "coup")
	assertCode(t, err, apperrors.CodeCannotBanOwner)
}

func TestBan_AlreadyBanned(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusBanned)

	_, err := fx.service.Ban(fx.ctx, communityID, membershipID, "owner", "again")
	assertCode(t, err, apperrors.CodeAlreadyBanned)
}

// Unban lands on REJECTED with cleared metadata, never straight back to
// APPROVED.
func TestUnban_ResultsInRejectedWithClearedMetadata(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleModerator, models.StatusApproved)

	_, err := fx.service.Ban(fx.ctx, communityID, membershipID, "owner", "spam")
	require.NoError(t, err)

	m, err := fx.service.Unban(fx.ctx, communityID, membershipID, "owner")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, m.Status)
	assert.Equal(t, models.RoleMember, m.Role)
	assert.Nil(t, m.BanReason)
	assert.Nil(t, m.BannedBy)
	assert.Nil(t, m.BannedAt)

	// The unbanned user still cannot rejoin without a fresh decision.
	_, err = fx.service.Join(fx.ctx, communityID, "alice")
	assertCode(t, err, apperrors.CodeRejected)
}

func TestUnban_OwnerCannotBeUnbanned(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	fx.seedMembership(communityID, "admin", models.RoleAdmin, models.StatusApproved)

	var ownerMembershipID string
	for id, m := range fx.store.memberships {
		if m.UserID == "owner" {
			ownerMembershipID = id
		}
	}

	_, err := fx.service.Unban(fx.ctx, communityID, ownerMembershipID, "admin")
	assertCode(t, err, apperrors.CodeCannotUnbanOwner)
}

func TestUnban_SelfForbidden(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	membershipID := fx.seedMembership(communityID, "admin", models.RoleAdmin, models.StatusApproved)

	_, err := fx.service.Unban(fx.ctx, communityID, membershipID, "admin")
	assertCode(t, err, apperrors.CodeForbiddenSelf)
}

func TestUnban_NotBannedFails(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	membershipID := fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusApproved)

	_, err := fx.service.Unban(fx.ctx, communityID, membershipID, "owner")
	assertCode(t, err, apperrors.CodeNotBanned)
}

// ---- Leave -------------------------------------------------------------------

func TestLeave_OwnerCannotLeave(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)

	err := fx.service.Leave(fx.ctx, communityID, "owner")
	assertCode(t, err, apperrors.CodeOwnerCannotLeave)
	assert.Equal(t, 1, fx.memberCount(communityID))
}

func TestLeave_DeletesRowAndDecrements(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	fx.seedMembership(communityID, "alice", models.RoleMember, models.StatusApproved)
	fx.store.communities[communityID].MemberCount = 2

	err := fx.service.Leave(fx.ctx, communityID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, fx.memberCount(communityID))

	m, err := fx.store.GetMembership(fx.ctx, communityID, "alice")
	require.NoError(t, err)
	assert.Nil(t, m)

	event := fx.notifier.lastEvent(t)
	assert.Equal(t, models.NotificationTypeMemberLeft, event.Type)
}

func TestLeave_WithoutMembership(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)

	err := fx.service.Leave(fx.ctx, communityID, "alice")
	assertCode(t, err, apperrors.CodeNotFound)
}

// Leaving fully clears the row, so a later join starts from NONE again.
func TestJoinLeaveJoinCycle(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)

	_, err := fx.service.Join(fx.ctx, communityID, "alice")
	require.NoError(t, err)
	require.NoError(t, fx.service.Leave(fx.ctx, communityID, "alice"))

	m, err := fx.service.Join(fx.ctx, communityID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, m.Status)
	assert.Equal(t, 2, fx.memberCount(communityID))
}

// ---- ListMembers -------------------------------------------------------------

func TestListMembers_PagesThroughApprovedMembers(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)
	for i := 0; i < 5; i++ {
		userID := string(rune('a' + i))
		fx.seedMembership(communityID, userID, models.RoleMember, models.StatusApproved)
	}
	fx.seedMembership(communityID, "pending-user", models.RoleMember, models.StatusPending)

	seen := make(map[string]bool)
	cursor := ""
	for {
		conn, err := fx.service.ListMembers(fx.ctx, communityID, cursor, 2)
		require.NoError(t, err)
		assert.Equal(t, 6, conn.PageInfo.TotalCount) // owner + 5, pending excluded
		for _, edge := range conn.Edges {
			require.False(t, seen[edge.Node.UserID], "duplicate member %s", edge.Node.UserID)
			seen[edge.Node.UserID] = true
			assert.Equal(t, models.StatusApproved, edge.Node.Status)
		}
		if !conn.PageInfo.HasNextPage {
			break
		}
		cursor = conn.PageInfo.Cursor
	}
	assert.Len(t, seen, 6)
	assert.False(t, seen["pending-user"])
}

func TestListMembers_LimitOutOfRange(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)

	_, err := fx.service.ListMembers(fx.ctx, communityID, "", 0)
	assertCode(t, err, apperrors.CodeBadRequestInput)

	_, err = fx.service.ListMembers(fx.ctx, communityID, "", 101)
	assertCode(t, err, apperrors.CodeBadRequestInput)
}

func TestListMembers_MalformedCursorIsHardError(t *testing.T) {
	fx := newMembershipFixture()
	communityID := fx.seedCommunity("owner", false, false)

	_, err := fx.service.ListMembers(fx.ctx, communityID, "not-a-cursor", 10)
	assertCode(t, err, apperrors.CodeBadRequestInput)
}
