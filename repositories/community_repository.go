package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"communehub-api/apperrors"
	"communehub-api/models"
)

// CommunityStore covers community CRUD outside the membership state machine.
type CommunityStore interface {
	CreateCommunityWithOwner(ctx context.Context, c *models.Community, interestIDs []string) error
	GetCommunityByID(ctx context.Context, id string) (*models.Community, error)
	GetCommunityBySlug(ctx context.Context, slug string) (*models.Community, error)
	UpdateCommunity(ctx context.Context, c *models.Community, interestIDs []string) error
	DeleteCommunity(ctx context.Context, id string) error
	SlugTaken(ctx context.Context, slug string) bool
	GetInterests(ctx context.Context, ids []string) ([]models.Interest, error)
}

type CommunityRepository struct {
	db *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// CreateCommunityWithOwner inserts the community and its owner membership
// (role OWNER, status APPROVED) in one transaction, so the "exactly one
// approved owner" invariant holds from the first committed state.
func (r *CommunityRepository) CreateCommunityWithOwner(ctx context.Context, c *models.Community, interestIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(interestIDs) > 0 {
			var interests []models.Interest
			if err := tx.Where("id IN ?", interestIDs).Find(&interests).Error; err != nil {
				return err
			}
			c.Interests = interests
		}

		c.MemberCount = 1
		if err := tx.Create(c).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateKey
			}
			return err
		}

		now := time.Now()
		owner := models.Membership{
			ID:          uuid.New().String(),
			CommunityID: c.ID,
			UserID:      c.OwnerID,
			Role:        models.RoleOwner,
			Status:      models.StatusApproved,
			RequestedAt: now,
			JoinedAt:    &now,
		}
		return tx.Create(&owner).Error
	})
}

func (r *CommunityRepository) GetCommunityByID(ctx context.Context, id string) (*models.Community, error) {
	var community models.Community
	err := r.db.WithContext(ctx).
		Preload("Interests").
		Preload("Stats").
		First(&community, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "community not found")
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *CommunityRepository) GetCommunityBySlug(ctx context.Context, slug string) (*models.Community, error) {
	var community models.Community
	err := r.db.WithContext(ctx).
		Preload("Interests").
		Preload("Stats").
		First(&community, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeNotFound, "community not found")
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *CommunityRepository) UpdateCommunity(ctx context.Context, c *models.Community, interestIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(c).Error; err != nil {
			return err
		}
		if interestIDs == nil {
			return nil
		}
		var interests []models.Interest
		if err := tx.Where("id IN ?", interestIDs).Find(&interests).Error; err != nil {
			return err
		}
		return tx.Model(c).Association("Interests").Replace(interests)
	})
}

// DeleteCommunity removes the community together with its membership and
// stats rows so no orphaned lifecycle state survives.
func (r *CommunityRepository) DeleteCommunity(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Membership{}, "community_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.CommunityStats{}, "community_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Community{}, "id = ?", id).Error
	})
}

func (r *CommunityRepository) SlugTaken(ctx context.Context, slug string) bool {
	var count int64
	r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("slug = ?", slug).
		Count(&count)
	return count > 0
}

func (r *CommunityRepository) GetInterests(ctx context.Context, ids []string) ([]models.Interest, error) {
	var interests []models.Interest
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&interests).Error
	return interests, err
}
