package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/types"
)

type ConversationRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Conversation, error)
	GetForDocument(ctx context.Context, tx *gorm.DB, id uuid.UUID, docID uuid.UUID, userID uuid.UUID) (*types.Conversation, error)
	CreateForDocument(ctx context.Context, tx *gorm.DB, docID uuid.UUID, userID uuid.UUID) (*types.Conversation, error)
	LatestForProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Conversation, error)
	CreateForProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, userID uuid.UUID) (*types.Conversation, error)
	DeleteForDocument(ctx context.Context, tx *gorm.DB, docID uuid.UUID, userID uuid.UUID) error
}

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.MessageStatus) error
	// RecentBefore returns up to limit messages created strictly before the
	// given time, newest first.
	RecentBefore(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, before time.Time, limit int) ([]*types.Message, error)
	ListByConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) ([]*types.Message, error)
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: baseLog.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *conversationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Conversation, error) {
	var conv types.Conversation
	if err := r.handle(tx).WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) GetForDocument(ctx context.Context, tx *gorm.DB, id uuid.UUID, docID uuid.UUID, userID uuid.UUID) (*types.Conversation, error) {
	var conv types.Conversation
	if err := r.handle(tx).WithContext(ctx).
		First(&conv, "id = ? AND document_id = ? AND user_id = ?", id, docID, userID).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) CreateForDocument(ctx context.Context, tx *gorm.DB, docID uuid.UUID, userID uuid.UUID) (*types.Conversation, error) {
	conv := &types.Conversation{DocumentID: &docID, UserID: userID}
	if err := r.handle(tx).WithContext(ctx).Create(conv).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *conversationRepo) LatestForProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Conversation, error) {
	var conv types.Conversation
	err := r.handle(tx).WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) CreateForProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, userID uuid.UUID) (*types.Conversation, error) {
	conv := &types.Conversation{ProjectID: &projectID, UserID: userID}
	if err := r.handle(tx).WithContext(ctx).Create(conv).Error; err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *conversationRepo) DeleteForDocument(ctx context.Context, tx *gorm.DB, docID uuid.UUID, userID uuid.UUID) error {
	return r.handle(tx).WithContext(ctx).
		Where("document_id = ? AND user_id = ?", docID, userID).
		Delete(&types.Conversation{}).Error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *messageRepo) Create(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error) {
	if err := r.handle(tx).WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.MessageStatus) error {
	return r.handle(tx).WithContext(ctx).Model(&types.Message{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *messageRepo) RecentBefore(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, before time.Time, limit int) ([]*types.Message, error) {
	var msgs []*types.Message
	if err := r.handle(tx).WithContext(ctx).
		Where("conversation_id = ? AND created_at < ?", conversationID, before).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) ([]*types.Message, error) {
	var msgs []*types.Message
	if err := r.handle(tx).WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
