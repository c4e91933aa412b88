package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/ripplefeed/backend/internal/engagement"
	"github.com/ripplefeed/backend/internal/handlers"
	"github.com/ripplefeed/backend/internal/jobs"
	"github.com/ripplefeed/backend/internal/repositories"
	"github.com/ripplefeed/backend/internal/router"
	"github.com/ripplefeed/backend/pkg/cache"
	"github.com/ripplefeed/backend/pkg/config"
	"github.com/ripplefeed/backend/pkg/events"
	"github.com/ripplefeed/backend/pkg/firebase"
	"github.com/ripplefeed/backend/pkg/metrics"
	"github.com/ripplefeed/backend/pkg/validators"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment.")
	}
	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	mongoDB := db.Mongo.Database(cfg.MongoDBName)
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	postRepo := repositories.NewMongoPostRepository(mongoDB)
	notificationRepo := repositories.NewPostgresNotificationRepository(db.Postgres)
	engagementRepo := repositories.NewMongoEngagementRepository(mongoDB)

	indexCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := engagementRepo.EnsureIndexes(indexCtx); err != nil {
		cancel()
		log.Fatalf("Failed to create engagement indexes: %v", err)
	}
	cancel()

	ledger := engagement.NewLedger(engagementRepo)

	// Firebase is optional: without credentials the bridge endpoint and media
	// uploads report unavailable, everything else keeps working.
	var firebaseAuth handlers.TokenVerifier
	storage := firebase.NewObjectStorage(nil, "")
	if _, err := os.Stat(cfg.FirebaseCredentialsPath); err == nil {
		firebaseApp, err := firebase.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath, cfg.FirebaseStorageBucket)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		firebaseAuth = firebaseApp.AuthClient
		storage = firebase.NewObjectStorage(firebaseApp.Bucket, firebaseApp.BucketName)
	} else {
		log.Println("Firebase credentials not found, Firebase login and media uploads disabled.")
	}

	publisher := events.Connect(cfg.NatsURL)
	defer publisher.Close()
	cacheClient := cache.New(cfg.MemcachedURL)

	e := echo.New()
	e.HideBanner = true
	config.SetupMiddleware(e)
	e.Validator = validators.NewValidator()

	router.SetupRoutes(e, router.Dependencies{
		Postgres:         db.Postgres,
		UserRepo:         userRepo,
		PostRepo:         postRepo,
		NotificationRepo: notificationRepo,
		Ledger:           ledger,
		FirebaseAuth:     firebaseAuth,
		Storage:          storage,
		Publisher:        publisher,
		Cache:            cacheClient,
		JWTSecret:        cfg.JWTSecret,
	})

	// Daily retention sweep: hard-deletes posts whose soft-delete expired,
	// cascading through engagement aggregates and media.
	purger := jobs.NewPurger(postRepo, engagementRepo, storage, cfg.RetentionDays)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@daily", func() { purger.Run(context.Background()) }); err != nil {
		log.Fatalf("Failed to schedule retention job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Metrics are served on their own listener so they stay off the public
	// surface.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
		log.Printf("Metrics listening on :%s", cfg.MetricsPort)
		if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
			log.Printf("Metrics listener stopped: %v", err)
		}
	}()

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
