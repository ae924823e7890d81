package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"chess-match-system/handlers"
	"chess-match-system/middleware"
	"chess-match-system/models"
	"chess-match-system/services"
	"chess-match-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func envInt(key string, def int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
		log.Printf("⚠️  invalid %s=%q, using default %d", key, os.Getenv(key), def)
	}
	return def
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	parts := strings.Split(allowedOrigins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(parts, ","),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Cache-Control",
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Invitation{},
		&models.ChallengeRequest{},
		&models.Game{},
		&models.Move{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	workersURL := os.Getenv("WORKERS_URL")
	if workersURL == "" {
		log.Fatal("WORKERS_URL environment variable not set")
	}
	workersTimeout := time.Duration(envInt("WORKERS_TIMEOUT_SECONDS", 10)) * time.Second

	secret := os.Getenv("APP_SECRET")
	if secret == "" {
		log.Println("⚠️  APP_SECRET not set, using insecure dev default")
		secret = "secret"
	}
	tokenTTL := time.Duration(envInt("TOKEN_TTL_DAYS", 7)) * 24 * time.Hour

	listPendingOnly := strings.EqualFold(os.Getenv("LIST_PENDING_ONLY"), "true")

	// In-process fan-out is only correct with a single server process; point
	// REDIS_URL at a broker when running replicas.
	var hub services.LiveUpdateHub
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL:", err)
		}
		hub = services.NewRedisHub(redis.NewClient(opts))
		log.Println("✅ Live updates: Redis pub/sub hub")
	} else {
		hub = services.NewMemoryHub()
		log.Println("✅ Live updates: in-process hub (single instance only)")
	}

	evaluator := services.NewEvaluatorClient(workersURL, workersTimeout)

	userService := services.NewUserService(db, secret, tokenTTL)
	invitationService := services.NewInvitationService(db, listPendingOnly)
	challengeService := services.NewChallengeService(db, listPendingOnly)
	gameService := services.NewGameService(db, hub)
	moveService := services.NewMoveService(db, evaluator, hub)

	auth := middleware.AuthRequired(db, secret)

	handlers.SetupUserRoutes(app, userService, auth)
	handlers.SetupLobbyRoutes(app, invitationService, challengeService, auth)
	handlers.SetupGameRoutes(app, gameService, moveService, auth)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if hours := envInt("GAME_TIMEOUT_HOURS", 720); hours > 0 {
		sched, err := workers.StartTimeoutSweeper(gameService, time.Duration(hours)*time.Hour)
		if err != nil {
			log.Fatal("failed to start timeout sweeper:", err)
		}
		defer func() { _ = sched.Shutdown() }()
		log.Printf("✅ Timeout sweeper running (game timeout: %dh)", hours)
	} else {
		log.Println("⚠️  GAME_TIMEOUT_HOURS=0, timeout sweeper disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()
	log.Printf("✅ Server running on http://localhost:%s", port)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
