package repos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/types"
)

// InvalidTransitionError reports a rejected document status write.
type InvalidTransitionError struct {
	DocumentID uuid.UUID
	From       types.DocumentStatus
	To         types.DocumentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s for document %s", e.From, e.To, e.DocumentID)
}

type DocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, doc *types.Document) (*types.Document, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Document, error)
	GetOwned(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Document, error)
	GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Document, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, next types.DocumentStatus) error
	MarkError(ctx context.Context, tx *gorm.DB, id uuid.UUID, msg string) error
	SetContent(ctx context.Context, tx *gorm.DB, id uuid.UUID, content string) error
	SetSummary(ctx context.Context, tx *gorm.DB, id uuid.UUID, summary datatypes.JSON) error
	SetSelected(ctx context.Context, tx *gorm.DB, id uuid.UUID, selected bool) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *documentRepo) Create(ctx context.Context, tx *gorm.DB, doc *types.Document) (*types.Document, error) {
	if err := r.handle(tx).WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *documentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Document, error) {
	var doc types.Document
	if err := r.handle(tx).WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetOwned(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Document, error) {
	var doc types.Document
	if err := r.handle(tx).WithContext(ctx).
		First(&doc, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Document, error) {
	var docs []*types.Document
	if err := r.handle(tx).WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// UpdateStatus applies the next status only when the transition table allows
// it from the row's current value. The pipeline coordinator is the single
// writer, so the row lock is only guarding against a concurrent regenerate.
func (r *documentRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, next types.DocumentStatus) error {
	return r.handle(tx).WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		var doc types.Document
		if err := txn.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&doc, "id = ?", id).Error; err != nil {
			return err
		}
		if !doc.Status.CanTransition(next) {
			return &InvalidTransitionError{DocumentID: id, From: doc.Status, To: next}
		}
		return txn.Model(&types.Document{}).
			Where("id = ?", id).
			Update("status", next).Error
	})
}

// MarkError is the terminal transition taken on fatal failures or exhausted
// retries. It is valid from every state.
func (r *documentRepo) MarkError(ctx context.Context, tx *gorm.DB, id uuid.UUID, msg string) error {
	return r.handle(tx).WithContext(ctx).Model(&types.Document{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": types.StatusError, "error_msg": msg}).Error
}

func (r *documentRepo) SetContent(ctx context.Context, tx *gorm.DB, id uuid.UUID, content string) error {
	return r.handle(tx).WithContext(ctx).Model(&types.Document{}).
		Where("id = ?", id).
		Update("content", content).Error
}

func (r *documentRepo) SetSummary(ctx context.Context, tx *gorm.DB, id uuid.UUID, summary datatypes.JSON) error {
	return r.handle(tx).WithContext(ctx).Model(&types.Document{}).
		Where("id = ?", id).
		Update("summary", summary).Error
}

func (r *documentRepo) SetSelected(ctx context.Context, tx *gorm.DB, id uuid.UUID, selected bool) error {
	return r.handle(tx).WithContext(ctx).Model(&types.Document{}).
		Where("id = ?", id).
		Update("selected", selected).Error
}
