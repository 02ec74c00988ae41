package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/skycast/backend/internal/delivery/http"
	"github.com/skycast/backend/internal/domain"
	"github.com/skycast/backend/internal/repository/postgres"
	"github.com/skycast/backend/internal/repository/supabase"
	"github.com/skycast/backend/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg := loadConfig()

	// Session service (auth backend may be absent; offline mode then)
	sessionSvc := service.NewSessionService(cfg.SupabaseURL, cfg.SupabaseAnonKey)

	// Favorites backend selection: direct Postgres when DATABASE_URL is
	// set, Supabase REST when configured, otherwise memory-only offline.
	var favoritesRepo domain.FavoritesRepository
	switch {
	case cfg.DatabaseURL != "":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
			log.Println("Running in offline mode only")
		} else {
			defer pool.Close()
			log.Println("Connected to PostgreSQL")
			favoritesRepo = postgres.NewRepository(pool)
		}
	case cfg.SupabaseURL != "":
		favoritesRepo = supabase.NewRepository(cfg.SupabaseURL, cfg.SupabaseAnonKey, sessionSvc.AccessToken)
		log.Println("Using Supabase REST favorites backend")
	default:
		log.Println("No favorites backend configured, running in offline mode only")
	}

	// Dependency Injection: Services
	weatherSvc := service.NewWeatherService(cfg.WeatherAPIKey, cfg.WeatherAPIURL)
	overviewSvc := service.NewOverviewService(weatherSvc)
	favoritesSvc := service.NewFavoritesService(favoritesRepo, cfg.SeedDelay)
	favoritesSvc.BindSession(sessionSvc)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "Skycast API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	http.SetupRoutes(app, weatherSvc, overviewSvc, favoritesSvc, sessionSvc)

	// Graceful shutdown
	go func() {
		port := cfg.Port
		if port == "" {
			port = "8080"
		}
		log.Printf("Server starting on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully")
}

type Config struct {
	SupabaseURL     string
	SupabaseAnonKey string
	WeatherAPIKey   string
	WeatherAPIURL   string
	DatabaseURL     string
	Port            string
	Env             string
	SeedDelay       time.Duration
}

func loadConfig() *Config {
	seedDelayMs, err := strconv.Atoi(getEnv("SEED_DELAY_MS", "500"))
	if err != nil || seedDelayMs < 0 {
		seedDelayMs = 500
	}

	return &Config{
		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", ""),
		WeatherAPIKey:   getEnv("WEATHER_API_KEY", ""),
		WeatherAPIURL:   getEnv("WEATHER_API_URL", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("GO_ENV", "development"),
		SeedDelay:       time.Duration(seedDelayMs) * time.Millisecond,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
