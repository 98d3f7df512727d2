package routes

import (
	"net/http"

	"quizmaster/handlers"
	"quizmaster/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	quizHandler *handlers.QuizHandler,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			// User profile
			protected.GET("/auth/profile", authHandler.GetProfile)

			// Quiz routes
			quizzes := protected.Group("/quizzes")
			{
				quizzes.GET("", quizHandler.ListQuizzes)
				quizzes.GET("/mine", quizHandler.ListUserQuizzes)
				quizzes.GET("/results", quizHandler.GetResults)
				quizzes.GET("/code/:code", quizHandler.GetQuizByCode)
				quizzes.GET("/:id", quizHandler.GetQuizByID)
				quizzes.POST("", quizHandler.CreateQuiz)
				quizzes.POST("/complete", quizHandler.CompleteQuiz)
				quizzes.PUT("/:id", quizHandler.UpdateQuiz)
				quizzes.DELETE("/:id", quizHandler.DeleteQuiz)
			}
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
