// File: /database/database.go
package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"communehub-api/models"
)

func Initialize(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Info),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	// Auto migrate all models
	err := db.AutoMigrate(
		&models.User{},
		&models.Interest{},
		&models.Community{},
		&models.CommunityStats{},
		&models.Membership{},
		&models.Post{},
		&models.PostReaction{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := addCustomIndexes(db); err != nil {
		return fmt.Errorf("failed to add custom indexes: %w", err)
	}

	return nil
}

func addCustomIndexes(db *gorm.DB) error {
	// Member list pagination walks (community, status, joined_at, id)
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_memberships_community_status_joined ON memberships(community_id, status, joined_at, id)").Error; err != nil {
		fmt.Printf("Warning: Could not create index for memberships: %v\n", err)
	}

	// Discovery tier queries order by popularity and recency
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_communities_member_count ON communities(member_count DESC)").Error; err != nil {
		fmt.Printf("Warning: Could not create index for communities member_count: %v\n", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_communities_created ON communities(created_at DESC)").Error; err != nil {
		fmt.Printf("Warning: Could not create index for communities created_at: %v\n", err)
	}

	// Stats refresh scans posts per community by recency
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_posts_community_created ON posts(community_id, created_at DESC)").Error; err != nil {
		fmt.Printf("Warning: Could not create index for posts: %v\n", err)
	}

	// Notification inbox
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_target_created ON notifications(target_user_id, created_at DESC)").Error; err != nil {
		fmt.Printf("Warning: Could not create index for notifications: %v\n", err)
	}

	return nil
}

// SeedData can be used to populate the database with initial data for development/testing
func SeedData(db *gorm.DB) error {
	// Check if we already have interests
	var interestCount int64
	db.Model(&models.Interest{}).Count(&interestCount)

	if interestCount > 0 {
		fmt.Println("Database already has data, skipping seed")
		return nil
	}

	interests := []models.Interest{
		{ID: "interest-hiking", Name: "Hiking", Category: "Outdoors"},
		{ID: "interest-cycling", Name: "Cycling", Category: "Outdoors"},
		{ID: "interest-photography", Name: "Photography", Category: "Arts"},
		{ID: "interest-music", Name: "Music", Category: "Arts"},
		{ID: "interest-cooking", Name: "Cooking", Category: "Food"},
		{ID: "interest-gaming", Name: "Gaming", Category: "Entertainment"},
	}
	for _, interest := range interests {
		if err := db.Create(&interest).Error; err != nil {
			fmt.Printf("Warning: Could not create interest %s: %v\n", interest.Name, err)
		}
	}

	fmt.Println("Database seeded with onboarding interests")
	return nil
}
