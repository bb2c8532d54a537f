package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/repos"
	"github.com/yungbote/textdigest-backend/internal/types"
)

// DocumentService covers the non-pipeline document operations: status
// polling, selection toggling and conversation maintenance.
type DocumentService interface {
	Get(ctx context.Context, userID uuid.UUID, docID uuid.UUID) (*types.Document, error)
	ToggleSelection(ctx context.Context, userID uuid.UUID, docID uuid.UUID) (*types.Document, error)
	ClearConversation(ctx context.Context, userID uuid.UUID, docID uuid.UUID) error
	Messages(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) ([]*types.Message, error)
}

type documentService struct {
	log      *logger.Logger
	docs     repos.DocumentRepo
	convs    repos.ConversationRepo
	messages repos.MessageRepo
}

func NewDocumentService(baseLog *logger.Logger, docs repos.DocumentRepo, convs repos.ConversationRepo, messages repos.MessageRepo) DocumentService {
	return &documentService{
		log:      baseLog.With("service", "DocumentService"),
		docs:     docs,
		convs:    convs,
		messages: messages,
	}
}

func (s *documentService) Get(ctx context.Context, userID uuid.UUID, docID uuid.UUID) (*types.Document, error) {
	return s.docs.GetOwned(ctx, nil, docID, userID)
}

func (s *documentService) ToggleSelection(ctx context.Context, userID uuid.UUID, docID uuid.UUID) (*types.Document, error) {
	doc, err := s.docs.GetOwned(ctx, nil, docID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.docs.SetSelected(ctx, nil, doc.ID, !doc.Selected); err != nil {
		return nil, err
	}
	doc.Selected = !doc.Selected
	s.log.Info("document selection toggled", "docId", doc.ID, "selected", doc.Selected)
	return doc, nil
}

func (s *documentService) ClearConversation(ctx context.Context, userID uuid.UUID, docID uuid.UUID) error {
	if _, err := s.docs.GetOwned(ctx, nil, docID, userID); err != nil {
		return err
	}
	return s.convs.DeleteForDocument(ctx, nil, docID, userID)
}

func (s *documentService) Messages(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) ([]*types.Message, error) {
	conv, err := s.convs.GetByID(ctx, nil, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		// Do not leak whether the conversation exists.
		return nil, gorm.ErrRecordNotFound
	}
	return s.messages.ListByConversation(ctx, nil, conversationID)
}
