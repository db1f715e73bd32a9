package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fieldops/dcinstall-api/docs" // Swagger docs
	"github.com/fieldops/dcinstall-api/internal/config"
	"github.com/fieldops/dcinstall-api/internal/database"
	"github.com/fieldops/dcinstall-api/internal/handlers"
	"github.com/fieldops/dcinstall-api/internal/jobs"
	"github.com/fieldops/dcinstall-api/internal/middleware"
	"github.com/fieldops/dcinstall-api/internal/repository"
	"github.com/fieldops/dcinstall-api/internal/services"
	"github.com/fieldops/dcinstall-api/internal/storage"
	"github.com/fieldops/dcinstall-api/pkg/logger"
)

// @title DC Installation API
// @version 1.0
// @description REST API for the datacenter installation record management system

// @contact.name API Support

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.ResendAPIKey == "" || cfg.FromEmail == "" {
		logger.Warn("Resend email disabled: RESEND_API_KEY or FROM_EMAIL not set")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	// Initialize storage
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized local storage")

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Login rate limiter (noop when Redis is not configured)
	limiter, err := services.NewRedisRateLimiter(cfg.RedisURL, cfg.LoginAttemptLimit, time.Duration(cfg.LoginBlockMinutes)*time.Minute)
	if err != nil {
		logger.Error("Failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}

	// Initialize services
	svcs := services.NewServices(repos, worker, store, cfg, limiter)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, store)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Redirect root to swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Authentication (public); request metadata still flows into the
		// audit context for failed logins
		auth := v1.Group("/auth")
		auth.Use(middleware.AuditContext())
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// Password recovery (public)
		v1.POST("/users/send_recovery_code", h.User.SendRecoveryCode)
		v1.POST("/users/update_password_with_code", h.User.UpdatePasswordWithCode)

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		protected.Use(middleware.AuditContext())
		{
			protected.POST("/auth/logout", h.Auth.Logout)
			protected.POST("/auth/confirm_password", h.Auth.ConfirmPassword)

			// Admin-only routes
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				// User management
				admin.GET("/users", h.User.Index)
				admin.POST("/users", h.User.Create)
				admin.DELETE("/users/:user_id", h.User.Delete)
				admin.PUT("/users/:user_id/toggle_status", h.User.ToggleStatus)
				admin.POST("/users/:user_id/restore", h.User.Restore)
				admin.GET("/users/technicians", h.User.Technicians)

				// Installation management
				admin.POST("/installations", h.Installation.Create)
				admin.PUT("/installations/:id", h.Installation.Update)
				admin.DELETE("/installations/:id", h.Installation.Delete)
				admin.PUT("/installations/:id/assign", h.Installation.Assign)
				admin.PUT("/installations/:id/schedule", h.Installation.Schedule)
				admin.PUT("/installations/:id/cancel", h.Installation.Cancel)
				admin.PUT("/installations/:id/reopen", h.Installation.Reopen)

				// Audit trail
				admin.GET("/audit", h.Audit.Index)
				admin.GET("/audit/summary", h.Audit.Summary)
				admin.DELETE("/audit", h.Audit.Clear)

				// Attachment removal
				admin.DELETE("/attachments/:attachment_id", h.Attachment.Delete)
			}

			// Technician + Admin routes (field work progress)
			fieldwork := protected.Group("")
			fieldwork.Use(middleware.RequireRole("admin", "user"))
			{
				fieldwork.PUT("/installations/:id/deliver", h.Installation.Deliver)
				fieldwork.PUT("/installations/:id/install", h.Installation.Install)
				fieldwork.PUT("/installations/:id/verify", h.Installation.Verify)
				fieldwork.POST("/installations/:id/attachments", h.Attachment.Upload)
			}

			// All authenticated users (visibility is scoped per role)
			protected.GET("/installations", h.Installation.Index)
			protected.GET("/installations/:id", h.Installation.Show)
			protected.GET("/installations/:id/attachments", h.Attachment.Index)
			protected.POST("/installations/:id/share", h.Installation.Share)
			protected.GET("/attachments/:attachment_id/download", h.Attachment.Download)

			// Profile access: admin or the owner
			protected.GET("/users/:user_id", middleware.RequireAdminOrOwner(), h.User.Show)
			protected.PUT("/users/:user_id", middleware.RequireAdminOrOwner(), h.User.Update)
			protected.PATCH("/users/:user_id/change_password", middleware.RequireAdminOrOwner(), h.User.ChangePassword)
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services) {
	// Sweep for overdue installations every hour
	worker.ScheduleEvery(1*time.Hour, func(ctx context.Context) error {
		logger.Info("[Job] Checking overdue installations...")
		return svcs.Installation.CheckOverdue(ctx)
	})

	logger.Info("Scheduled recurring jobs")
}
