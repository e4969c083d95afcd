package router

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/subatomicERROR/codenano-sub000/internal/capture"
	"github.com/subatomicERROR/codenano-sub000/internal/handlers"
	"github.com/subatomicERROR/codenano-sub000/internal/middleware"
	"github.com/subatomicERROR/codenano-sub000/internal/models"
	"github.com/subatomicERROR/codenano-sub000/internal/preview"
	"github.com/subatomicERROR/codenano-sub000/internal/repositories"
	"github.com/subatomicERROR/codenano-sub000/pkg/config"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.Logger())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, pgdb *gorm.DB, mgClient *mongo.Client, firebaseAuthClient *auth.Client) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Comment{},
		&models.Like{},
		&models.Follow{},
		&models.SavedProject{},
		&models.ReelView{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	projectRepo := repositories.NewPostgresProjectRepository(pgdb)
	postRepo := repositories.NewMongoPostRepository(mgClient.Database(config.MongoDatabase))
	commentRepo := repositories.NewPostgresCommentRepository(pgdb)
	likeRepo := repositories.NewPostgresLikeRepository(pgdb)
	followRepo := repositories.NewPostgresFollowRepository(pgdb)
	savedProjectRepo := repositories.NewPostgresSavedProjectRepository(pgdb)
	reelRepo := repositories.NewReelRepository(mgClient.Database(config.MongoDatabase), pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)

	// --- Preview and capture infrastructure ---
	bridge := preview.NewBridge(cfg.AppOrigin)
	manager := preview.NewManager(bridge)

	artifactStore, err := capture.NewStore(filepath.Join(cfg.ArtifactDir, "codenano-artifacts"))
	if err != nil {
		log.Fatalf("Failed to create artifact store: %v", err)
	}
	encoder := capture.NewEncoder(cfg.FFmpegPath)
	probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	capability := encoder.Detect(probeCtx)
	cancel()
	strategy := capture.Select(capability, encoder, artifactStore)
	log.Printf("Capture strategy selected: %s (%s)", strategy.Name(), strategy.MimeType())

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, firebaseAuthClient, cfg.JWTSecret)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterProfileRoutes(api)
	api.GET("/users/search", userHandler.SearchUsers)
	log.Println("User profile routes configured.")

	// Project routes
	projectHandler := handlers.NewProjectHandler(projectRepo)
	projectHandler.RegisterProjectRoutes(api)
	log.Println("Project routes configured.")

	// Preview session routes; the document and relay sockets are loaded by
	// the sandboxed iframe itself and cannot carry a JWT.
	previewHandler := handlers.NewPreviewHandler(manager, projectRepo)
	previewHandler.RegisterPreviewRoutes(api)
	previewHandler.RegisterSandboxRoutes(e)
	log.Println("Preview routes configured.")

	// Capture routes
	captureHandler := handlers.NewCaptureHandler(manager, artifactStore, strategy)
	captureHandler.RegisterCaptureRoutes(api)
	captureHandler.RegisterArtifactRoutes(e)
	log.Println("Capture routes configured.")

	// Post routes
	postHandler := handlers.NewPostHandler(postRepo, projectRepo)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	// Feed routes
	feedHandler := handlers.NewFeedHandler(postRepo, projectRepo, userRepo, followRepo, likeRepo, savedProjectRepo)
	feedHandler.RegisterFeedRoutes(api)
	log.Println("Feed routes configured.")

	// Follow routes
	followHandler := handlers.NewFollowHandler(followRepo, userRepo, notificationRepo)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	// Comment routes
	commentHandler := handlers.NewCommentHandler(commentRepo, postRepo, userRepo, notificationRepo)
	commentHandler.RegisterCommentRoutes(api)
	log.Println("Comment routes configured.")

	// Like routes
	likeHandler := handlers.NewLikeHandler(likeRepo, postRepo, userRepo, notificationRepo)
	likeHandler.RegisterLikeRoutes(api)
	log.Println("Like routes configured.")

	// Saved project routes
	savedProjectHandler := handlers.NewSavedProjectHandler(savedProjectRepo, projectRepo)
	savedProjectHandler.RegisterSavedProjectRoutes(api)
	log.Println("Saved project routes configured.")

	// Reel routes
	reelHandler := handlers.NewReelHandler(reelRepo, userRepo)
	reelHandler.RegisterReelRoutes(api)
	log.Println("Reel routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Expired reels are swept hourly
	go sweepExpiredReels(reelRepo)

	log.Println("All routes configured.")
}

func sweepExpiredReels(reelRepo repositories.ReelRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := reelRepo.DeleteExpiredReels(ctx); err != nil {
			log.Println("Failed to delete expired reels:", err)
		}
		cancel()
	}
}
