package repositories

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"communehub-api/apperrors"
	"communehub-api/models"
)

// DiscoveryStore issues the per-tier candidate queries for the discovery
// engine. The tier queries are independent reads and deliberately not
// mutually transactional; the engine tolerates minor skew between them.
type DiscoveryStore interface {
	GetUserWithInterests(ctx context.Context, userID string) (*models.User, error)
	// MembershipCommunityIDs returns communities the user has any membership
	// row in, regardless of status; all of them are excluded from discovery.
	MembershipCommunityIDs(ctx context.Context, userID string) ([]string, error)
	CommunitiesByInterests(ctx context.Context, interestIDs, excludeIDs []string, limit int) ([]models.Community, error)
	TrendingCommunities(ctx context.Context, excludeIDs []string, limit int) ([]models.Community, error)
	RecentCommunities(ctx context.Context, excludeIDs []string, limit int) ([]models.Community, error)
	LocatedCommunities(ctx context.Context, excludeIDs []string, limit int) ([]models.Community, error)
	SearchCommunities(ctx context.Context, query string, excludeIDs []string, limit int) ([]models.Community, error)
}

type DiscoveryRepository struct {
	db *gorm.DB
}

func NewDiscoveryRepository(db *gorm.DB) *DiscoveryRepository {
	return &DiscoveryRepository{db: db}
}

func (r *DiscoveryRepository) GetUserWithInterests(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Interests").
		First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.CodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *DiscoveryRepository) MembershipCommunityIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Pluck("community_id", &ids).Error
	return ids, err
}

func (r *DiscoveryRepository) CommunitiesByInterests(ctx context.Context, interestIDs, excludeIDs []string, limit int) ([]models.Community, error) {
	if len(interestIDs) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).
		Model(&models.Community{}).
		Distinct("communities.*").
		Joins("JOIN community_interests ci ON ci.community_id = communities.id").
		Where("ci.interest_id IN ?", interestIDs)
	q = excludeCommunities(q, excludeIDs)

	var communities []models.Community
	err := q.Preload("Interests").
		Order("communities.member_count DESC, communities.id ASC").
		Limit(limit).
		Find(&communities).Error
	return communities, err
}

func (r *DiscoveryRepository) TrendingCommunities(ctx context.Context, excludeIDs []string, limit int) ([]models.Community, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Community{}).
		Joins("LEFT JOIN community_stats cs ON cs.community_id = communities.id")
	q = excludeCommunities(q, excludeIDs)

	var communities []models.Community
	err := q.Preload("Interests").
		Order("communities.member_count DESC, cs.last_post_at DESC, communities.id ASC").
		Limit(limit).
		Find(&communities).Error
	return communities, err
}

func (r *DiscoveryRepository) RecentCommunities(ctx context.Context, excludeIDs []string, limit int) ([]models.Community, error) {
	q := excludeCommunities(r.db.WithContext(ctx).Model(&models.Community{}), excludeIDs)

	var communities []models.Community
	err := q.Preload("Interests").
		Order("communities.created_at DESC, communities.id ASC").
		Limit(limit).
		Find(&communities).Error
	return communities, err
}

// LocatedCommunities returns candidates that carry coordinates; the engine
// applies the great-circle distance filter in memory.
func (r *DiscoveryRepository) LocatedCommunities(ctx context.Context, excludeIDs []string, limit int) ([]models.Community, error) {
	q := excludeCommunities(r.db.WithContext(ctx).Model(&models.Community{}), excludeIDs).
		Where("communities.latitude IS NOT NULL AND communities.longitude IS NOT NULL")

	var communities []models.Community
	err := q.Preload("Interests").
		Order("communities.member_count DESC, communities.id ASC").
		Limit(limit).
		Find(&communities).Error
	return communities, err
}

// SearchCommunities does a case-insensitive substring match on name and
// description. Relevance ranking happens in memory in the engine.
func (r *DiscoveryRepository) SearchCommunities(ctx context.Context, query string, excludeIDs []string, limit int) ([]models.Community, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	q := r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("LOWER(communities.name) LIKE ? OR LOWER(communities.description) LIKE ?", pattern, pattern)
	q = excludeCommunities(q, excludeIDs)

	var communities []models.Community
	err := q.Preload("Interests").
		Order("communities.member_count DESC, communities.id ASC").
		Limit(limit).
		Find(&communities).Error
	return communities, err
}

func excludeCommunities(q *gorm.DB, excludeIDs []string) *gorm.DB {
	if len(excludeIDs) == 0 {
		return q
	}
	return q.Where("communities.id NOT IN ?", excludeIDs)
}
