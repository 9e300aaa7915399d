package main

import (
	"context"
	"log"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"pressroom/admin"
	"pressroom/analytics"
	"pressroom/blog"
	"pressroom/cache"
	"pressroom/common"
	"pressroom/content"
	"pressroom/database"
	"pressroom/models"
	"pressroom/site"
)

func main() {
	cfg := common.LoadConfig()
	gin.SetMode(cfg.GinMode)

	db := common.ConnectDb(cfg)
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	service := content.NewService(database.NewRepository(db), content.Options{
		MaxCommentDepth: cfg.MaxCommentDepth,
	})
	service.OnCommentSubmitted(func(ctx context.Context, comment models.Comment) {
		log.Printf("comment %d on post %d awaiting moderation (depth %d)", comment.ID, comment.PostID, comment.Depth)
	})

	store := cache.NewStore(cfg.CacheDir)
	if err := store.ClearOld(cfg.CacheMaxAge); err != nil {
		log.Printf("Error pruning cache dir %s: %v", cfg.CacheDir, err)
	}
	analyticsModule := analytics.NewAnalyticsModule(db)

	router := gin.Default()

	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})

	router.Use(sessions.Sessions("pressroom-session", sessionStore))

	adminModule := admin.NewAdminModule(service, analyticsModule, store)
	adminModule.RegisterRoutes(router)

	blogModule := blog.NewBlogModule(service, analyticsModule, store, cfg)
	blogModule.RegisterRoutes(router)

	siteModule := site.NewSiteModule(service, store, cfg)
	siteModule.RegisterRoutes(router)

	log.Printf("Starting server on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
