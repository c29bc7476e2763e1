package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"petreunite-chat/internal/db"
	"petreunite-chat/internal/handlers"
	"petreunite-chat/internal/services"
	"petreunite-chat/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// Config is the server configuration, read from the environment.
type Config struct {
	Env         string
	LogLevel    string
	Port        string
	Store       string
	DatabaseURL string
	JWTSecret   string
}

func LoadConfig() Config {
	connString := utils.GetEnv("DATABASE_URL", "")
	if connString == "" {
		// Fallback to individual vars
		connString = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "petreunite") + "?sslmode=disable"
	}
	return Config{
		Env:         utils.GetEnv("APP_ENV", "development"),
		LogLevel:    utils.GetEnv("LOG_LEVEL", ""),
		Port:        utils.GetEnv("PORT", "3001"),
		Store:       utils.GetEnv("CHAT_STORE", "postgres"),
		DatabaseURL: connString,
		JWTSecret:   utils.GetEnv("JWT_SECRET", "secret"),
	}
}

// New builds the fiber app over a store. It does not listen.
func New(store services.Store, users *services.UserService, hub *handlers.Hub) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	// Middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n"}))
	app.Use(recover.New())
	app.Use(cors.New())

	auth := handlers.NewAuthHandler(users)
	convos := handlers.NewConversationHandler(store, hub)

	// Routes
	api := app.Group("/api")

	// Public Routes
	api.Post("/register", auth.Register)
	api.Post("/login", auth.Login)

	// Protected Routes
	protected := api.Group("/", auth.Middleware)
	convos.Register(protected)

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// WebSocket Route
	// Note: Middleware order matters. Upgrade check first, then the token.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", auth.Middleware)
	app.Get("/ws", handlers.WebSocketHandler(hub))

	return app
}

func Run() error {
	// Load Env
	if err := utils.LoadEnv(); err != nil {
		slog.Warn(".env file not found")
	}
	cfg := LoadConfig()
	utils.SetupLogger(cfg.Env, cfg.LogLevel, os.Stdout)

	ctx := context.Background()

	var store services.Store
	switch cfg.Store {
	case "memory":
		slog.Warn("using in-memory store; data is lost on restart")
		store = services.NewMemoryChatService()
	case "postgres":
		if err := db.InitDB(ctx, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.CloseDB()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		store = services.NewChatService(db.Pool)
	default:
		return fmt.Errorf("unknown CHAT_STORE %q", cfg.Store)
	}

	users := services.NewUserService(store, cfg.JWTSecret)
	app := New(store, users, handlers.NewHub())

	// Start Server
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "port", cfg.Port, "store", cfg.Store)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	// Graceful Shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
	case err := <-errCh:
		return err
	}
	slog.Info("gracefully shutting down")
	if err := app.Shutdown(); err != nil {
		return err
	}
	slog.Info("server shutdown complete")
	return nil
}
