package router

import (
	"log"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/ripplefeed/backend/internal/engagement"
	"github.com/ripplefeed/backend/internal/handlers"
	"github.com/ripplefeed/backend/internal/middleware"
	"github.com/ripplefeed/backend/internal/models"
	"github.com/ripplefeed/backend/internal/repositories"
	"github.com/ripplefeed/backend/pkg/cache"
	"github.com/ripplefeed/backend/pkg/events"
)

// Dependencies carries everything the route handlers are built from. All
// collaborators arrive through here; handlers never reach for globals.
type Dependencies struct {
	Postgres         *gorm.DB
	UserRepo         repositories.UserRepository
	PostRepo         repositories.PostRepository
	NotificationRepo repositories.NotificationRepository
	Ledger           *engagement.Ledger
	FirebaseAuth     handlers.TokenVerifier
	Storage          handlers.ObjectStore
	Publisher        *events.Publisher
	Cache            *cache.Client
	JWTSecret        string
}

// SetupRoutes runs the Postgres migrations and wires every route group.
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	if err := deps.Postgres.AutoMigrate(&models.User{}, &models.Notification{}); err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed.")

	// Open routes: authentication and liveness.
	open := e.Group("/api/v1")
	authHandler := handlers.NewAuthHandler(deps.UserRepo, deps.FirebaseAuth, deps.JWTSecret)
	authHandler.RegisterAuthRoutes(open.Group("/auth"))
	open.GET("/health", handlers.HealthCheck)
	log.Println("Auth routes configured.")

	// Read routes: anonymous callers allowed, a token personalizes the
	// response (likedByCaller).
	read := e.Group("/api/v1", middleware.OptionalJWTAuth(deps.JWTSecret))

	// Protected routes: every mutation requires a verified caller.
	api := e.Group("/api/v1", middleware.JWTAuth(deps.JWTSecret))

	userHandler := handlers.NewUserHandler(deps.UserRepo)
	userHandler.RegisterUserRoutes(api)
	userHandler.RegisterUserReadRoutes(read)
	log.Println("User routes configured.")

	postHandler := handlers.NewPostHandler(deps.PostRepo, deps.UserRepo, deps.Ledger, deps.Cache)
	postHandler.RegisterPostRoutes(api)
	postHandler.RegisterPostReadRoutes(read)
	log.Println("Post routes configured.")

	engagementHandler := handlers.NewEngagementHandler(deps.Ledger, deps.PostRepo, deps.NotificationRepo, deps.Publisher)
	engagementHandler.RegisterEngagementRoutes(api)
	engagementHandler.RegisterEngagementReadRoutes(read)
	log.Println("Engagement routes configured.")

	mediaHandler := handlers.NewMediaHandler(deps.Storage)
	mediaHandler.RegisterMediaRoutes(api)
	log.Println("Media routes configured.")

	notificationHandler := handlers.NewNotificationHandler(deps.NotificationRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	log.Println("All routes configured.")
}
