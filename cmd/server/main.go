package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/grandstand-travel/backoffice/internal/cache"
	"github.com/grandstand-travel/backoffice/internal/config"
	"github.com/grandstand-travel/backoffice/internal/database"
	"github.com/grandstand-travel/backoffice/internal/handlers"
	"github.com/grandstand-travel/backoffice/internal/logger"
	"github.com/grandstand-travel/backoffice/internal/middleware"
	"github.com/grandstand-travel/backoffice/internal/services"
	"github.com/grandstand-travel/backoffice/pkg/jwt"
	"github.com/grandstand-travel/backoffice/pkg/validator"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Server)
	log.WithFields(logrus.Fields{
		"version":    version,
		"build_time": buildTime,
	}).Info("Starting Grandstand booking back-office")

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Database
	log.WithField("driver", cfg.Database.Driver).Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Redis (optional)
	var redisClient *redis.Client
	var statsCache services.StatsCache = cache.NoopStatsCache{}
	if cfg.Redis.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis.URL)
		cancel()
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, continuing without stats cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
			statsCache = cache.NewRedisStatsCache(redisClient, cfg.Redis.StatsCacheTTL, log)
			log.Info("Redis connection established")
		}
	}

	// Repositories
	quoteRepo := database.NewQuoteRepository(db.DB)
	inventoryRepo := database.NewInventoryRepository(db.DB)
	bookingRepo := database.NewBookingRepository(db.DB, quoteRepo, inventoryRepo, cfg.Booking.ReferencePrefix)
	activityRepo := database.NewActivityRepository(db.DB)

	// Services
	checker := services.NewAvailabilityChecker(inventoryRepo, log)
	activityLogger := services.NewActivityLogger(activityRepo, log)
	bookingService := services.NewBookingService(
		quoteRepo,
		inventoryRepo,
		bookingRepo,
		checker,
		activityLogger,
		statsCache,
		validator.NewPhoneValidator(cfg.Booking.PhoneCountryCode),
		services.BookingServiceConfig{
			ReserveInventory:  cfg.Booking.ReserveInventory,
			StrictTransitions: cfg.Booking.StrictTransitions,
			DefaultCurrency:   cfg.Booking.DefaultCurrency,
		},
		log,
	)
	log.WithFields(logrus.Fields{
		"reserve_inventory":  cfg.Booking.ReserveInventory,
		"strict_transitions": cfg.Booking.StrictTransitions,
	}).Info("Booking service initialized")

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)
	bookingHandler := handlers.NewBookingHandler(bookingService, log)

	var createLimiter gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		createLimiter, err = middleware.RateLimiter(cfg.RateLimit.BookingCreate, "booking_create", redisClient, log)
		if err != nil {
			log.Fatalf("Failed to configure rate limiter: %v", err)
		}
	}

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(jwtService, log))
	bookingHandler.RegisterRoutes(v1, createLimiter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      c.Request.URL.RawQuery,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}
		if userID, exists := c.Get("user_id"); exists {
			fields["user_id"] = userID
		}
		if teamID, exists := c.Get("team_id"); exists {
			fields["team_id"] = teamID
		}

		entry := log.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
