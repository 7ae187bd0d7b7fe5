package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"simplekanban/internal/config"
	"simplekanban/internal/database"
	"simplekanban/internal/handlers"
	"simplekanban/internal/jobs"
	"simplekanban/internal/logging"
	"simplekanban/internal/middleware"
	"simplekanban/internal/services"
	"simplekanban/internal/store"
	"simplekanban/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting SimpleKanban Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s)", cfg.Port)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	log.Printf("✅ Database ready (%s)", db.Driver())

	boardStore := store.New(db)

	// Broadcaster: Redis-backed when REDIS_URL is set, in-process otherwise
	var broadcaster services.Broadcaster
	if cfg.RedisURL != "" {
		redisBroadcaster, err := services.NewRedisBroadcaster(cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		broadcaster = redisBroadcaster
	} else {
		log.Println("⚠️  REDIS_URL not set - using in-process broadcasting (single instance only)")
		broadcaster = services.NewGroupBroadcaster()
	}
	defer broadcaster.Close()

	metrics := services.InitMetrics(broadcaster)
	throttler := services.NewCommandThrottler(cfg.ThrottleRate, cfg.ThrottleBurst)
	authorizer := services.NewAuthorizer(boardStore)

	var mailer services.Mailer
	if cfg.SMTPHost != "" {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		log.Printf("✅ SMTP mailer configured (%s:%d)", cfg.SMTPHost, cfg.SMTPPort)
	} else {
		mailer = services.LogMailer{}
		log.Println("⚠️  SMTP_HOST not set - invites will be logged, not mailed")
	}

	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET environment variable is required")
	}
	jwtAuth, err := auth.NewLocalJWTAuth(cfg.JWTSecret, 0, 0)
	if err != nil {
		log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
	}

	// Background jobs
	jobScheduler := jobs.NewJobScheduler()
	jobScheduler.Register("invite-token-cleanup", jobs.NewInviteTokenCleanupJob(boardStore, 1*time.Hour))
	if err := jobScheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start job scheduler: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "SimpleKanban v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("simplekanban")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Auth=%d/min, WS=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.AuthMax,
		rateLimitConfig.WebSocketMax,
	)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))

	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Handlers
	healthHandler := handlers.NewHealthHandler(broadcaster)
	authHandler := handlers.NewAuthHandler(jwtAuth, boardStore)
	boardHandler := handlers.NewBoardHandler(boardStore)
	sessionHandler := handlers.NewBoardSessionHandler(
		boardStore, broadcaster, throttler, authorizer, mailer, metrics,
		cfg.Domain, cfg.InviteExpiry,
	)

	// Routes
	app.Get("/health", healthHandler.Handle)

	authLimiter := middleware.AuthRateLimiter(rateLimitConfig)
	app.Post("/api/auth/register", authLimiter, authHandler.Register)
	app.Post("/api/auth/login", authLimiter, authHandler.Login)
	app.Post("/api/auth/refresh", authLimiter, authHandler.Refresh)

	api := app.Group("/api", middleware.AuthMiddleware(jwtAuth))
	api.Get("/boards", boardHandler.List)
	api.Post("/boards", boardHandler.Create)

	// Board WebSocket route (requires auth)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	wsConfig := websocket.Config{
		Origins: strings.Split(allowedOrigins, ","),
	}

	app.Use("/ws/board/:board_slug", middleware.WebSocketRateLimiter(rateLimitConfig))
	app.Use("/ws/board/:board_slug", middleware.AuthMiddleware(jwtAuth))
	app.Use("/ws/board/:board_slug", middleware.BoardSocketMiddleware())
	app.Get("/ws/board/:board_slug", websocket.New(sessionHandler.Handle, wsConfig))

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		jobScheduler.Stop()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
