package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/config"
	"github.com/adaptivestartup/webhooks-platform/src/database"
	"github.com/adaptivestartup/webhooks-platform/src/handlers"
	"github.com/adaptivestartup/webhooks-platform/src/logging"
	"github.com/adaptivestartup/webhooks-platform/src/middleware"
	"github.com/adaptivestartup/webhooks-platform/src/services"
	"github.com/adaptivestartup/webhooks-platform/src/vault"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// VendorSignatureHeader carries the identity vendor's "t=...,v1=..." value
const VendorSignatureHeader = "X-Vendor-Signature"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize structured logging
	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	log.Info().
		Int("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Msg("starting server")

	// Initialize database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	log.Info().Msg("database connected")

	// Initialize JWT secret in middleware
	if err := middleware.SetJWTSecret(cfg.JWTSecret); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize JWT secret")
	}

	// Vault encryption at rest (optional — empty key disables)
	encryptor, err := vault.NewEncryptor(cfg.VaultEncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize vault encryption")
	}
	if encryptor != nil {
		log.Info().Msg("vault secret encryption enabled (AES-256-GCM)")
	} else {
		log.Info().Msg("vault secret encryption disabled (VAULT_ENCRYPTION_KEY not set)")
	}
	secretVault := vault.NewPostgresVault(db.GetPool(), encryptor)

	// Initialize analytics
	analyticsService, err := services.NewAnalyticsService(services.AnalyticsConfig{
		PostHogAPIKey: cfg.PostHogAPIKey,
		PostHogHost:   cfg.PostHogHost,
		Enabled:       cfg.PostHogEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize analytics service")
	}
	defer analyticsService.Close()

	if cfg.PostHogEnabled {
		log.Info().Str("host", cfg.PostHogHost).Msg("PostHog analytics enabled")
	} else {
		log.Info().Msg("PostHog analytics disabled")
	}

	// Dead-letter alert emails (optional)
	var emailService *services.EmailService
	if cfg.MailgunAPIKey != "" && cfg.MailgunDomain != "" && cfg.AlertEmail != "" {
		emailService = services.NewEmailService(
			cfg.MailgunDomain,
			cfg.MailgunAPIKey,
			cfg.MailgunFromEmail,
			cfg.MailgunFromName,
		)
		log.Info().Str("alert_email", cfg.AlertEmail).Msg("Mailgun dead-letter alerts enabled")
	} else {
		log.Warn().Msg("Mailgun not configured - dead-letter alerts disabled")
	}

	// Initialize services
	subscriptionService := services.NewSubscriptionService(db.GetPool(), secretVault)
	deliveryService := services.NewDeliveryService(db.GetPool())
	publisher := services.NewPublisher(subscriptionService, deliveryService, cfg.MaxDeliveryAttempts)
	dispatcher := services.NewDispatcher(secretVault, cfg.DispatchTimeout)
	identityService := services.NewIdentityService(db.GetPool(), analyticsService)
	adminService := services.NewAdminService(db.GetPool())
	cleanupService := services.NewCleanupService(deliveryService, identityService, cfg.EnableAutoCleanup, cfg.DeliveryTTL)
	worker := services.NewDeliveryWorker(
		deliveryService,
		subscriptionService,
		dispatcher,
		emailService,
		analyticsService,
		cfg.WorkerInterval,
		cfg.WorkerBatchSize,
		cfg.AlertEmail,
	)

	// Auto-seed admin account on first run
	if err := adminService.SeedDefaultAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Error().Err(err).Msg("failed to seed admin account")
	}

	// Start background services
	worker.Start(context.Background())
	cleanupService.Start(context.Background())

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())

	// CORS for the dashboard and tenant tooling
	corsConfig := cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if origin == "http://localhost" || origin == "http://localhost:8080" || origin == "http://localhost:3000" {
				return true
			}
			for _, allowed := range cfg.AllowedOriginList() {
				if origin == allowed {
					return true
				}
			}
			return false
		},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Setup routes
	setupRoutes(router, db, subscriptionService, deliveryService, publisher, identityService, adminService, analyticsService, cfg)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              ":" + formatPort(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR2)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Stop background services
	worker.Stop()
	cleanupService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server shut down successfully")
}

func setupRoutes(router *gin.Engine, db *database.Database,
	subscriptionService *services.SubscriptionService, deliveryService *services.DeliveryService,
	publisher *services.Publisher, identityService *services.IdentityService,
	adminService *services.AdminService, analyticsService *services.AnalyticsService,
	cfg *config.Config) {

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService, analyticsService)
	eventHandler := handlers.NewEventHandler(publisher)
	vendorHandler := handlers.NewVendorWebhookHandler(identityService)
	adminHandler := handlers.NewAdminHandler(adminService, deliveryService, subscriptionService)

	// Health check endpoints
	router.GET("/health", healthHandler.HandleHealth)
	router.GET("/ready", healthHandler.HandleReady)
	router.GET("/info", healthHandler.HandleInfo)

	// Tenant API: webhook registration and event publishing
	api := router.Group("/api")
	api.Use(middleware.TenantAuthMiddleware())
	api.Use(middleware.NewOwnerRateLimitingMiddleware(middleware.RateLimitConfig{
		RequestsPerMinute: 100,
		Burst:             20,
	}))
	{
		api.POST("/webhooks", subscriptionHandler.HandleCreate)
		api.GET("/webhooks", subscriptionHandler.HandleList)
		api.GET("/webhooks/:id", subscriptionHandler.HandleGet)
		api.PATCH("/webhooks/:id", subscriptionHandler.HandleUpdate)
		api.DELETE("/webhooks/:id", subscriptionHandler.HandleDelete)
		api.POST("/events", eventHandler.HandlePublish)
	}

	// Inbound vendor webhook: signature verified before the handler runs.
	// Without a configured secret every signature would be forgeable, so the
	// endpoint is not registered at all.
	if cfg.VendorWebhookSecret != "" {
		router.POST("/vendor/identity/webhook",
			middleware.NewIPRateLimitingMiddleware(middleware.RateLimitConfig{
				RequestsPerMinute: 600,
				Burst:             100,
			}),
			middleware.VerifyVendorSignature(cfg.VendorWebhookSecret, VendorSignatureHeader),
			vendorHandler.HandleVendorEvent)
	} else {
		log.Warn().Msg("VENDOR_WEBHOOK_SECRET not set - vendor webhook endpoint disabled")
	}

	// Admin authentication endpoints
	router.POST("/admin/login", middleware.AuthRateLimitMiddleware(), adminHandler.HandleAdminLogin)
	router.POST("/admin/logout", middleware.AdminAuthMiddleware(), adminHandler.HandleAdminLogout)
	router.GET("/admin/status", middleware.AdminAuthMiddleware(), adminHandler.HandleAdminStatus)

	// Admin operations: dead-letter queue inspection and requeue
	router.GET("/admin/subscriptions", middleware.AdminAuthMiddleware(), adminHandler.HandleListSubscriptions)
	router.GET("/admin/deliveries/dead", middleware.AdminAuthMiddleware(), adminHandler.HandleListDeadDeliveries)
	router.POST("/admin/deliveries/:id/requeue", middleware.AdminAuthMiddleware(), adminHandler.HandleRequeueDelivery)
}

func formatPort(port int) string {
	return fmt.Sprintf("%d", port)
}
