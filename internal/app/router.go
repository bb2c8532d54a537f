package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/textdigest-backend/internal/server"
)

func wireRouter(cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AllowOrigins:    cfg.AllowOrigins,
		AuthMiddleware:  middleware.Auth,
		DocumentHandler: handlers.Document,
		ProjectHandler:  handlers.Project,
	})
}
