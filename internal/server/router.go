package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/textdigest-backend/internal/handlers"
	"github.com/yungbote/textdigest-backend/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins    []string
	AuthMiddleware  *middleware.AuthMiddleware
	DocumentHandler *handlers.DocumentHandler
	ProjectHandler  *handlers.ProjectHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	docs := api.Group("/documents")
	docs.POST("/ingest", cfg.DocumentHandler.Ingest)
	docs.GET("/messages/:conversationId", cfg.DocumentHandler.Messages)
	docs.GET("/:id", cfg.DocumentHandler.Get)
	docs.POST("/:id/ask", cfg.DocumentHandler.Ask)
	docs.POST("/:id/regenerate", cfg.DocumentHandler.Regenerate)
	docs.POST("/:id/toggle-selection", cfg.DocumentHandler.ToggleSelection)
	docs.POST("/:id/clear-conversation", cfg.DocumentHandler.ClearConversation)

	projects := api.Group("/projects")
	projects.POST("/ask", cfg.ProjectHandler.Ask)
	projects.GET("/messages/:projectId", cfg.ProjectHandler.Messages)

	return router
}
