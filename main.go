package main

import (
	"log/slog"
	"os"

	"quizmaster/config"
	"quizmaster/handlers"
	"quizmaster/middleware"
	"quizmaster/models"
	"quizmaster/routes"
	"quizmaster/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Structured JSON logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.QuizResult{},
	)
	if err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	quizService := services.NewQuizService(db, redisClient)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	quizHandler := handlers.NewQuizHandler(quizService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, quizHandler, cfg.JWTSecret)

	// Start server
	slog.Info("server starting", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}
