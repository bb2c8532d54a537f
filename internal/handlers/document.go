package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/textdigest-backend/internal/middleware"
	"github.com/yungbote/textdigest-backend/internal/services"
	"github.com/yungbote/textdigest-backend/internal/types"
)

type DocumentHandler struct {
	ingestService   services.IngestService
	documentService services.DocumentService
	askService      services.DocumentAskService
}

func NewDocumentHandler(ingestService services.IngestService, documentService services.DocumentService, askService services.DocumentAskService) *DocumentHandler {
	return &DocumentHandler{
		ingestService:   ingestService,
		documentService: documentService,
		askService:      askService,
	}
}

type ingestRequest struct {
	ProjectID  uuid.UUID                `json:"projectId" binding:"required"`
	StorageKey string                   `json:"storageKey" binding:"required"`
	Filename   string                   `json:"filename" binding:"required"`
	Visibility types.DocumentVisibility `json:"visibility"`
}

func (dh *DocumentHandler) Ingest(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	doc, err := dh.ingestService.Ingest(c.Request.Context(), userID, services.IngestRequest{
		ProjectID:  req.ProjectID,
		StorageKey: req.StorageKey,
		Filename:   req.Filename,
		Visibility: req.Visibility,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"document": doc})
}

type askRequest struct {
	Question       string     `json:"question" binding:"required"`
	ConversationID *uuid.UUID `json:"conversationId"`
}

func (dh *DocumentHandler) Ask(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	docID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := dh.askService.Ask(c.Request.Context(), userID, docID, req.ConversationID, req.Question)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (dh *DocumentHandler) Regenerate(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	docID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := dh.ingestService.Regenerate(c.Request.Context(), userID, docID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

func (dh *DocumentHandler) ToggleSelection(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	docID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	doc, err := dh.documentService.ToggleSelection(c.Request.Context(), userID, docID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

func (dh *DocumentHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	docID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	doc, err := dh.documentService.Get(c.Request.Context(), userID, docID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": doc})
}

func (dh *DocumentHandler) Messages(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	convID, ok := pathUUID(c, "conversationId")
	if !ok {
		return
	}
	msgs, err := dh.documentService.Messages(c.Request.Context(), userID, convID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (dh *DocumentHandler) ClearConversation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	docID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := dh.documentService.ClearConversation(c.Request.Context(), userID, docID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
