// File: /routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"communehub-api/config"
	"communehub-api/controllers"
	"communehub-api/middleware"
	"communehub-api/repositories"
	"communehub-api/services"
)

func SetupRoutes(r *gin.Engine, db *gorm.DB, cache *redis.Client, cfg *config.Config, events *services.EventPublisher) {
	// Repositories
	membershipRepo := repositories.NewMembershipRepository(db)
	communityRepo := repositories.NewCommunityRepository(db)
	discoveryRepo := repositories.NewDiscoveryRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	statsRepo := repositories.NewStatsRepository(db, cache)

	// Services
	emailService := services.NewEmailService(cfg)
	notificationService := services.NewNotificationService(notificationRepo, emailService, events)
	membershipService := services.NewMembershipService(membershipRepo, notificationService)
	communityService := services.NewCommunityService(communityRepo)
	discoveryService := services.NewDiscoveryService(discoveryRepo, statsRepo)

	// Controllers
	authController := controllers.NewAuthController(db, cfg.JWTSecret)
	communityController := controllers.NewCommunityController(communityService)
	membershipController := controllers.NewMembershipController(membershipService)
	discoveryController := controllers.NewDiscoveryController(discoveryService)
	notificationController := controllers.NewNotificationController(notificationService)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// API version 1
	v1 := r.Group("/api/v1")

	// Auth routes (public)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authController.Login)
		auth.POST("/register", authController.Register)
		auth.POST("/logout", authController.Logout)
	}

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		// Community routes
		communities := protected.Group("/communities")
		{
			communities.POST("/", communityController.CreateCommunity)
			communities.GET("/:id", communityController.GetCommunity)
			communities.GET("/slug/:slug", communityController.GetCommunityBySlug)
			communities.PUT("/:id", communityController.UpdateCommunity)
			communities.DELETE("/:id", communityController.DeleteCommunity)

			// Membership lifecycle
			communities.POST("/:id/join", membershipController.Join)
			communities.POST("/:id/payment-complete", membershipController.CompletePayment)
			communities.POST("/:id/leave", membershipController.Leave)
			communities.GET("/:id/members", membershipController.ListMembers)
			communities.POST("/:id/members/:membershipId/approve", membershipController.Approve)
			communities.POST("/:id/members/:membershipId/reject", membershipController.Reject)
			communities.PUT("/:id/members/:membershipId/role", membershipController.AssignRole)
			communities.DELETE("/:id/members/:membershipId/role", membershipController.RemoveRole)
			communities.POST("/:id/members/:membershipId/ban", membershipController.Ban)
			communities.POST("/:id/members/:membershipId/unban", membershipController.Unban)
		}

		// Discovery routes
		discovery := protected.Group("/discovery")
		{
			discovery.GET("/", discoveryController.Discover)
			discovery.GET("/search", discoveryController.Search)
			discovery.GET("/recommendations", discoveryController.Recommend)
		}

		// Notification routes
		notifications := protected.Group("/notifications")
		{
			notifications.GET("/", notificationController.GetNotifications)
			notifications.PUT("/:id/read", notificationController.MarkRead)
		}
	}
}

// SetupCORS configures cross-origin access for browser clients.
func SetupCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
