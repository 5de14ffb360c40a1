package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"communehub-api/models"
)

const statsCacheTTL = 10 * time.Minute

// StatsProvider hands the discovery engine the stats aggregates it scores
// with. The aggregates are refreshed out of band and may lag reality.
type StatsProvider interface {
	StatsFor(ctx context.Context, communityIDs []string) (map[string]models.CommunityStats, error)
}

// StatsRepository reads community stats through a redis cache and recomputes
// them for the recurring refresh job. Cache failures degrade to database
// reads; they are logged, never propagated.
type StatsRepository struct {
	db    *gorm.DB
	cache *redis.Client
}

func NewStatsRepository(db *gorm.DB, cache *redis.Client) *StatsRepository {
	return &StatsRepository{db: db, cache: cache}
}

func statsCacheKey(communityID string) string {
	return "community:stats:" + communityID
}

func (r *StatsRepository) StatsFor(ctx context.Context, communityIDs []string) (map[string]models.CommunityStats, error) {
	result := make(map[string]models.CommunityStats, len(communityIDs))
	if len(communityIDs) == 0 {
		return result, nil
	}

	missing := communityIDs
	if r.cache != nil {
		missing = missing[:0:0]
		keys := make([]string, len(communityIDs))
		for i, id := range communityIDs {
			keys[i] = statsCacheKey(id)
		}
		values, err := r.cache.MGet(ctx, keys...).Result()
		if err != nil {
			log.Printf("stats cache read failed: %v", err)
			missing = communityIDs
		} else {
			for i, v := range values {
				raw, ok := v.(string)
				if !ok {
					missing = append(missing, communityIDs[i])
					continue
				}
				var stats models.CommunityStats
				if err := json.Unmarshal([]byte(raw), &stats); err != nil {
					missing = append(missing, communityIDs[i])
					continue
				}
				result[stats.CommunityID] = stats
			}
		}
	}

	if len(missing) == 0 {
		return result, nil
	}

	var rows []models.CommunityStats
	if err := r.db.WithContext(ctx).Where("community_id IN ?", missing).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, stats := range rows {
		result[stats.CommunityID] = stats
		r.cacheSet(ctx, stats)
	}
	return result, nil
}

func (r *StatsRepository) cacheSet(ctx context.Context, stats models.CommunityStats) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, statsCacheKey(stats.CommunityID), raw, statsCacheTTL).Err(); err != nil {
		log.Printf("stats cache write failed: %v", err)
	}
}

// RefreshAll recomputes the stats aggregate of every community from the
// membership, post and reaction tables and upserts the result. member_count
// is never touched here; the state machine maintains it exactly.
func (r *StatsRepository) RefreshAll(ctx context.Context) error {
	var communityIDs []string
	if err := r.db.WithContext(ctx).Model(&models.Community{}).Pluck("id", &communityIDs).Error; err != nil {
		return err
	}

	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)

	for _, id := range communityIDs {
		stats := models.CommunityStats{
			CommunityID: id,
			RefreshedAt: now,
		}

		var weeklyGrowth int64
		if err := r.db.WithContext(ctx).Model(&models.Membership{}).
			Where("community_id = ? AND status = ? AND joined_at > ?", id, models.StatusApproved, weekAgo).
			Count(&weeklyGrowth).Error; err != nil {
			return err
		}
		stats.WeeklyGrowth = int(weeklyGrowth)

		var recentPosts int64
		if err := r.db.WithContext(ctx).Model(&models.Post{}).
			Where("community_id = ? AND created_at > ?", id, weekAgo).
			Count(&recentPosts).Error; err != nil {
			return err
		}
		stats.RecentPosts = int(recentPosts)

		var recentReactions int64
		if err := r.db.WithContext(ctx).Model(&models.PostReaction{}).
			Joins("JOIN posts ON posts.id = post_reactions.post_id").
			Where("posts.community_id = ? AND post_reactions.created_at > ?", id, weekAgo).
			Count(&recentReactions).Error; err != nil {
			return err
		}
		stats.RecentReactions = int(recentReactions)

		var lastPost models.Post
		err := r.db.WithContext(ctx).
			Where("community_id = ?", id).
			Order("created_at DESC").
			First(&lastPost).Error
		if err == nil {
			t := lastPost.CreatedAt
			stats.LastPostAt = &t
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&stats).Error; err != nil {
			return err
		}
		r.cacheSet(ctx, stats)
	}
	return nil
}
