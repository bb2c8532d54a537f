package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/textdigest-backend/internal/middleware"
	"github.com/yungbote/textdigest-backend/internal/services"
)

type ProjectHandler struct {
	askService services.ProjectAskService
}

func NewProjectHandler(askService services.ProjectAskService) *ProjectHandler {
	return &ProjectHandler{askService: askService}
}

type projectAskRequest struct {
	ProjectID uuid.UUID `json:"projectId" binding:"required"`
	Question  string    `json:"question" binding:"required"`
}

func (ph *ProjectHandler) Ask(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req projectAskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := ph.askService.Ask(c.Request.Context(), userID, req.ProjectID, req.Question)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ph *ProjectHandler) Messages(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	projectID, ok := pathUUID(c, "projectId")
	if !ok {
		return
	}
	msgs, err := ph.askService.Messages(c.Request.Context(), userID, projectID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
