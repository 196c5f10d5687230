package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"gharbazaar/internal/cleanup"
	"gharbazaar/internal/config"
	"gharbazaar/internal/database"
	"gharbazaar/internal/handlers"
	"gharbazaar/internal/listings"
	"gharbazaar/internal/middleware"
	"gharbazaar/internal/notify"
	"gharbazaar/internal/photos"
	"gharbazaar/internal/ratelimit"
	"gharbazaar/internal/scheduler"
	"gharbazaar/internal/search"
	"gharbazaar/internal/taxonomy"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	configPath := getEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Warn("failed to load config, using defaults")
		cfg = config.DefaultConfig()
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	// Database
	db, err := database.Connect(cfg.Database.URI, cfg.Database.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Close(ctx)
	}()

	// Search (optional)
	var searchClient *search.SearchClient
	var indexer listings.Indexer
	if cfg.Search.Meilisearch.Enabled {
		searchClient = search.NewSearchClient(cfg.Search.Meilisearch.Host, cfg.Search.Meilisearch.APIKey)
		if err := searchClient.InitIndex(); err != nil {
			logger.WithError(err).Warn("failed to initialize search index")
		}
		indexer = searchClient
	}

	// Core services
	store := taxonomy.NewStore(db.Database())
	resolver := taxonomy.NewResolver(store, logger)
	builder := listings.NewFilterBuilder(resolver, cfg.Listings, logger)
	notifier := notify.NewService(db.Database(), cfg.Notify, logger)
	service := listings.NewService(db.Database(), builder, resolver, indexer, notifier, cfg.Listings, logger)
	cleanupService := cleanup.NewService(db.Database(), indexer, logger)
	photoRepo := photos.NewRepository(db.Database())

	limiter := ratelimit.NewRateLimiter(
		cfg.RateLimit.RequestsPerMinute,
		cfg.RateLimit.RequestsPerHour,
		cfg.RateLimit.Enabled,
	)

	// Scheduler
	sched := scheduler.NewScheduler(service, cfg, logger)
	if err := sched.Start(); err != nil {
		logger.WithError(err).Warn("failed to start scheduler")
	}
	defer sched.Stop()

	// Handlers
	propertyHandler := handlers.NewPropertyHandler(service, searchClient, limiter, logger)
	photoHandler := handlers.NewPhotoHandler(photoRepo, logger)
	notificationHandler := handlers.NewNotificationHandler(db.Database(), logger)
	adminHandler := handlers.NewAdminHandler(db.Database(), service, sched, cleanupService, limiter, logger)

	// Router
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
	})

	auth := middleware.RequireAuth(cfg.Auth.JWTSecret)

	// Public routes
	r.GET("/api/properties", propertyHandler.List)
	r.GET("/api/properties/featured", propertyHandler.Featured)
	r.GET("/api/properties/search", propertyHandler.Search)
	r.GET("/api/properties/:id", propertyHandler.GetByID)
	r.GET("/api/categories/:category", propertyHandler.ListByCategoryPath)
	r.GET("/api/categories/:category/:sub", propertyHandler.ListByCategoryPath)
	r.GET("/api/photos/:id", photoHandler.Download)

	// Authenticated routes
	user := r.Group("/api", auth)
	{
		user.GET("/properties/my", propertyHandler.My)
		user.POST("/properties", propertyHandler.Create)
		user.PUT("/properties/:id", propertyHandler.Update)
		user.DELETE("/properties/:id", propertyHandler.Delete)
		user.POST("/photos", photoHandler.Upload)

		user.GET("/notifications", notificationHandler.List)
		user.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		user.DELETE("/notifications/:id", notificationHandler.Delete)
		user.POST("/notifications/tokens", notificationHandler.SaveToken)
		user.DELETE("/notifications/tokens", notificationHandler.RemoveToken)
	}

	// Admin routes
	admin := r.Group("/api/admin", auth, middleware.RequireAdmin())
	{
		admin.GET("/properties/pending", adminHandler.Pending)
		admin.PUT("/properties/:id/approval", adminHandler.SetApproval)

		admin.GET("/taxonomy/categories", adminHandler.ListCategories)
		admin.POST("/taxonomy/categories", adminHandler.CreateCategory)
		admin.DELETE("/taxonomy/categories/:id", adminHandler.DeleteCategory)
		admin.POST("/taxonomy/subcategories", adminHandler.CreateSubcategory)
		admin.DELETE("/taxonomy/subcategories/:id", adminHandler.DeleteSubcategory)
		admin.POST("/taxonomy/mini-subcategories", adminHandler.CreateMiniSubcategory)
		admin.DELETE("/taxonomy/mini-subcategories/:id", adminHandler.DeleteMiniSubcategory)

		admin.GET("/stats", adminHandler.GetStats)
		admin.POST("/reindex", adminHandler.TriggerReindex)
		admin.POST("/maintenance", adminHandler.TriggerMaintenance)
		admin.POST("/cleanup/run", adminHandler.RunCleanup)
		admin.GET("/cleanup/logs", adminHandler.GetDeleteLogs)
		admin.GET("/ratelimit/:key", adminHandler.RateLimitStats)
	}

	port := cfg.Server.Port
	logger.WithField("port", port).Info("server starting")
	if err := r.Run(":" + port); err != nil {
		logger.WithError(err).Fatal("failed to start server")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
