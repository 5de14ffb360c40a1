package repositories

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"communehub-api/apperrors"
	"communehub-api/models"
	"communehub-api/pagination"
)

// ErrDuplicateKey surfaces a unique-constraint violation so the caller can
// turn a lost insert race into the right conflict code.
var ErrDuplicateKey = errors.New("duplicate key")

// MembershipStore is the persistence surface the membership state machine
// runs against. Inside InTx every call operates on the same transaction.
type MembershipStore interface {
	GetCommunity(ctx context.Context, id string) (*models.Community, error)
	// GetCommunityForUpdate row-locks the community so counter updates and
	// owner checks are consistent under concurrent transitions.
	GetCommunityForUpdate(ctx context.Context, id string) (*models.Community, error)
	GetMembership(ctx context.Context, communityID, userID string) (*models.Membership, error)
	GetMembershipByID(ctx context.Context, communityID, membershipID string) (*models.Membership, error)
	CreateMembership(ctx context.Context, m *models.Membership) error
	SaveMembership(ctx context.Context, m *models.Membership) error
	DeleteMembership(ctx context.Context, id string) error
	AdjustMemberCount(ctx context.Context, communityID string, delta int) error
	CountApprovedOwners(ctx context.Context, communityID string) (int64, error)
	AdminUserIDs(ctx context.Context, communityID string) ([]string, error)
	ListMemberships(ctx context.Context, communityID string, cur pagination.Cursor, limit int) ([]models.Membership, int64, error)
}

// MembershipTxStore adds the transaction boundary every state-machine
// operation is wrapped in.
type MembershipTxStore interface {
	MembershipStore
	InTx(ctx context.Context, fn func(MembershipStore) error) error
}

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) InTx(ctx context.Context, fn func(MembershipStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&MembershipRepository{db: tx})
	})
}

func (r *MembershipRepository) GetCommunity(ctx context.Context, id string) (*models.Community, error) {
	var community models.Community
	err := r.db.WithContext(ctx).First(&community, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "community not found")
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *MembershipRepository) GetCommunityForUpdate(ctx context.Context, id string) (*models.Community, error) {
	var community models.Community
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&community, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "community not found")
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

// GetMembership returns (nil, nil) when no row exists: "no membership" is the
// NONE state of the machine, not an error.
func (r *MembershipRepository) GetMembership(ctx context.Context, communityID, userID string) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		First(&membership, "community_id = ? AND user_id = ?", communityID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *MembershipRepository) GetMembershipByID(ctx context.Context, communityID, membershipID string) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		First(&membership, "id = ? AND community_id = ?", membershipID, communityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "membership not found")
	}
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *MembershipRepository) CreateMembership(ctx context.Context, m *models.Membership) error {
	err := r.db.WithContext(ctx).Create(m).Error
	if isDuplicateKey(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *MembershipRepository) SaveMembership(ctx context.Context, m *models.Membership) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *MembershipRepository) DeleteMembership(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Membership{}, "id = ?", id).Error
}

// AdjustMemberCount applies a database-level atomic counter update; a
// read-modify-write in service code would race concurrent transitions.
func (r *MembershipRepository) AdjustMemberCount(ctx context.Context, communityID string, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("id = ?", communityID).
		UpdateColumn("member_count", gorm.Expr("member_count + ?", delta)).Error
}

func (r *MembershipRepository) CountApprovedOwners(ctx context.Context, communityID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("community_id = ? AND status = ? AND role = ?",
			communityID, models.StatusApproved, models.RoleOwner).
		Count(&count).Error
	return count, err
}

func (r *MembershipRepository) AdminUserIDs(ctx context.Context, communityID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("community_id = ? AND status = ? AND role IN ?",
			communityID, models.StatusApproved,
			[]models.MemberRole{models.RoleOwner, models.RoleAdmin}).
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListMemberships pages a community's member list store-side, ordered by
// joined_at then id, continuing after the supplied cursor.
func (r *MembershipRepository) ListMemberships(ctx context.Context, communityID string, cur pagination.Cursor, limit int) ([]models.Membership, int64, error) {
	ordering := MemberListOrdering()

	q := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("community_id = ? AND status = ?", communityID, models.StatusApproved)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if cur != nil {
		cond, args, err := pagination.Condition(ordering, cur, memberListColumn)
		if err != nil {
			return nil, 0, err
		}
		q = q.Where(cond, args...)
	}

	var memberships []models.Membership
	err := q.Preload("User").
		Order("joined_at ASC, id ASC").
		Limit(limit).
		Find(&memberships).Error
	return memberships, total, err
}

// MemberListOrdering is the fixed composite ordering of the member listing.
func MemberListOrdering() []pagination.OrderField {
	return []pagination.OrderField{
		{Field: "joined_at"},
		{Field: "id"},
	}
}

func memberListColumn(field string) string {
	return field
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
