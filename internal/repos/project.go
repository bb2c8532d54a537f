package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/types"
)

type ProjectRepo interface {
	GetOwned(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Project, error)
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (r *projectRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *projectRepo) GetOwned(ctx context.Context, tx *gorm.DB, id uuid.UUID, userID uuid.UUID) (*types.Project, error) {
	var project types.Project
	if err := r.handle(tx).WithContext(ctx).
		First(&project, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &project, nil
}
