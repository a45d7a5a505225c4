package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outfitter-service/internal/background"
	"outfitter-service/internal/clients"
	"outfitter-service/internal/config"
	"outfitter-service/internal/handlers"
	"outfitter-service/internal/metrics"
	"outfitter-service/internal/middleware"
	"outfitter-service/internal/models"
	natsClient "outfitter-service/internal/nats"
	"outfitter-service/internal/redis"
	"outfitter-service/internal/repository"
	"outfitter-service/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Load .env in development; ignored when absent
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	cfg := config.New()

	// Initialize database connection
	db, err := initDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis is optional: completion drafts and webhook replay markers degrade
	// gracefully without it
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		log.Println("Completion draft autosave disabled")
		redisClient = nil
	} else {
		log.Println("Connected to Redis successfully")
	}

	// NATS is optional: lifecycle events are advisory
	nc, err := natsClient.NewClient(nil) // Uses NATS_URL env var or default
	if err != nil {
		log.Printf("Warning: Failed to connect to NATS: %v", err)
		log.Println("Event publishing will be disabled")
		nc = nil
	} else {
		log.Println("Connected to NATS successfully")
		defer nc.Close()
	}

	// Initialize metrics
	registry := prometheus.DefaultRegisterer
	metricsCollector := metrics.New(registry)

	// Initialize repositories
	contractRepo := repository.NewContractRepository(db)
	paymentRepo := repository.NewPaymentItemRepository(db)
	huntRepo := repository.NewHuntRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)

	// Initialize the signature provider. Unconfigured means contracts get
	// mock envelopes and in-app typed-name signing.
	docusignClient := clients.NewDocuSignClient(cfg.DocuSign)
	if docusignClient.Configured() {
		log.Println("DocuSign provider configured")
	} else {
		log.Println("DocuSign provider not configured - contracts will use in-app typed-name signing")
	}

	// Initialize services
	membershipSvc := services.NewMembershipService(membershipRepo)

	settlementSvc := services.NewSettlementService(paymentRepo, cfg.Billing)
	settlementSvc.SetMetrics(metricsCollector)

	calendarSvc := services.NewCalendarService(huntRepo, contractRepo)

	contractSvc := services.NewContractService(contractRepo, settlementSvc, calendarSvc, membershipSvc)

	signatureSvc := services.NewSignatureService(contractRepo, docusignClient, cfg.DocuSign)
	signatureSvc.SetExecutedHook(contractSvc)
	signatureSvc.SetMetrics(metricsCollector)
	if redisClient != nil {
		signatureSvc.SetRedisClient(redisClient)
	}

	draftSvc := services.NewDraftService(redisClient, contractRepo, cfg.Draft)

	if nc != nil {
		contractSvc.SetEventPublisher(nc)
		settlementSvc.SetEventPublisher(nc)
		calendarSvc.SetEventPublisher(nc)
		signatureSvc.SetEventPublisher(nc)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, nc, redisClient)
	contractHandler := handlers.NewContractHandler(contractSvc, signatureSvc, draftSvc, membershipSvc)
	webhookHandler := handlers.NewWebhookHandler(signatureSvc)
	huntHandler := handlers.NewHuntHandler(calendarSvc, membershipSvc)
	paymentHandler := handlers.NewPaymentHandler(settlementSvc, membershipSvc)
	membershipHandler := handlers.NewMembershipHandler(membershipSvc)
	draftHandler := handlers.NewDraftHandler(draftSvc, membershipSvc)

	// Start background jobs (draft cleanup and reminders)
	bgRunner := background.NewRunner(draftSvc, cfg.Draft)
	bgRunner.Start()

	// Setup router
	router := setupRouter(
		cfg,
		healthHandler,
		contractHandler,
		webhookHandler,
		huntHandler,
		paymentHandler,
		membershipHandler,
		draftHandler,
		metricsCollector,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting outfitter-service on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop background jobs first
	bgRunner.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}

	log.Println("Server exited")
}

func setupRouter(
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	contractHandler *handlers.ContractHandler,
	webhookHandler *handlers.WebhookHandler,
	huntHandler *handlers.HuntHandler,
	paymentHandler *handlers.PaymentHandler,
	membershipHandler *handlers.MembershipHandler,
	draftHandler *handlers.DraftHandler,
	metricsCollector *metrics.Metrics,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:3000", // outfitter dashboard (local)
		"http://localhost:3001", // client portal (local)
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, origins)
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Outfitter-ID", "X-User-ID", "X-User-Email"}
	corsConfig.AllowCredentials = true

	// Global middleware
	router.Use(cors.New(corsConfig))             // CORS
	router.Use(gin.Recovery())                   // Panic recovery
	router.Use(middleware.RequestID())           // Correlation IDs
	router.Use(middleware.StructuredLogger())    // Structured logging
	router.Use(metricsCollector.Middleware())    // Prometheus metrics
	router.Use(middleware.OutfitterExtraction()) // Outfitter context

	// Metrics endpoint (Prometheus scraping)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	authLogger := logrus.New()
	auth := middleware.Auth(middleware.AuthConfig{
		JWTSecret:          cfg.App.JWTSecret,
		AllowLegacyHeaders: cfg.App.Environment != "production",
		Logger:             authLogger,
	})

	v1 := router.Group("/api/v1")
	{
		// Provider webhook: unauthenticated, idempotent
		v1.POST("/webhooks/docusign", webhookHandler.HandleEnvelopeStatus)

		// Contracts
		contracts := v1.Group("/contracts")
		contracts.Use(auth)
		{
			contracts.POST("", contractHandler.Create)
			contracts.GET("", contractHandler.List)
			contracts.GET("/mine", contractHandler.ListMine)
			contracts.GET("/:id", contractHandler.Get)
			contracts.POST("/:id/completion", contractHandler.SubmitCompletion)
			contracts.POST("/:id/review", contractHandler.Review)
			contracts.PUT("/:id/status", contractHandler.UpdateStatus)
			contracts.POST("/:id/cancel", contractHandler.Cancel)
			contracts.POST("/:id/send", contractHandler.SendForSignature)
			contracts.GET("/:id/signing-url", contractHandler.GetSigningURL)
			contracts.POST("/:id/sign", contractHandler.SignTypedName)

			// Completion draft autosave
			contracts.PUT("/:id/draft", draftHandler.Save)
			contracts.GET("/:id/draft", draftHandler.Get)
			contracts.DELETE("/:id/draft", draftHandler.Discard)
		}

		// Calendar hunts
		hunts := v1.Group("/hunts")
		hunts.Use(auth)
		{
			hunts.POST("", huntHandler.Create)
			hunts.GET("", huntHandler.List)
			hunts.GET("/:id", huntHandler.Get)
			hunts.PUT("/:id/guide", huntHandler.AssignGuide)
		}

		// Payment items
		payments := v1.Group("/payments")
		payments.Use(auth)
		{
			payments.GET("", paymentHandler.List)
			payments.GET("/mine", paymentHandler.ListMine)
			payments.GET("/:id", paymentHandler.Get)
			payments.POST("/:id/apply", paymentHandler.ApplyPayment)
		}

		// Memberships
		members := v1.Group("/members")
		members.Use(auth)
		{
			members.POST("/invite", membershipHandler.Invite)
			members.POST("/accept", membershipHandler.AcceptInvitation)
			members.GET("", membershipHandler.List)
			members.POST("/deactivate", membershipHandler.Deactivate)
		}
	}

	return router
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Connected to database successfully")
	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	log.Println("Starting database migration...")

	// Enable UUID extension in PostgreSQL
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		log.Printf("Warning: Failed to create uuid-ossp extension: %v", err)
	}

	modelsToMigrate := []interface{}{
		&models.Outfitter{},
		&models.OutfitterMembership{},
		&models.OutfitterActivityLog{},
		&models.Hunt{},
		&models.HuntContract{},
		&models.PaymentItem{},
	}

	for _, model := range modelsToMigrate {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	log.Println("Database migration completed")
	return nil
}
