package repos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/types"
)

type ChunkRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error)
	GetByDocumentID(ctx context.Context, tx *gorm.DB, docID uuid.UUID) ([]*types.Chunk, error)
	GetByDocumentIDs(ctx context.Context, tx *gorm.DB, docIDs []uuid.UUID) ([]*types.Chunk, error)
	DeleteByDocumentID(ctx context.Context, tx *gorm.DB, docID uuid.UUID) error
	UpdateEmbedding(ctx context.Context, tx *gorm.DB, docID uuid.UUID, chunkIndex int, vector []float32) error
	UpdateSummary(ctx context.Context, tx *gorm.DB, docID uuid.UUID, chunkIndex int, summary string) error
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return &chunkRepo{db: db, log: baseLog.With("repo", "ChunkRepo")}
}

func (r *chunkRepo) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *chunkRepo) CreateBatch(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error) {
	if len(chunks) == 0 {
		return []*types.Chunk{}, nil
	}
	// Keep batches small because Text is large.
	const batchSize = 100
	if err := r.handle(tx).WithContext(ctx).CreateInBatches(chunks, batchSize).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *chunkRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, docID uuid.UUID) ([]*types.Chunk, error) {
	var results []*types.Chunk
	if err := r.handle(tx).WithContext(ctx).
		Where("document_id = ?", docID).
		Order("chunk_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chunkRepo) GetByDocumentIDs(ctx context.Context, tx *gorm.DB, docIDs []uuid.UUID) ([]*types.Chunk, error) {
	var results []*types.Chunk
	if len(docIDs) == 0 {
		return results, nil
	}
	if err := r.handle(tx).WithContext(ctx).
		Where("document_id IN ?", docIDs).
		Order("document_id, chunk_index ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chunkRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, docID uuid.UUID) error {
	return r.handle(tx).WithContext(ctx).
		Where("document_id = ?", docID).
		Delete(&types.Chunk{}).Error
}

func (r *chunkRepo) UpdateEmbedding(ctx context.Context, tx *gorm.DB, docID uuid.UUID, chunkIndex int, vector []float32) error {
	raw, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	return r.handle(tx).WithContext(ctx).Model(&types.Chunk{}).
		Where("document_id = ? AND chunk_index = ?", docID, chunkIndex).
		Update("embedding", raw).Error
}

func (r *chunkRepo) UpdateSummary(ctx context.Context, tx *gorm.DB, docID uuid.UUID, chunkIndex int, summary string) error {
	return r.handle(tx).WithContext(ctx).Model(&types.Chunk{}).
		Where("document_id = ? AND chunk_index = ?", docID, chunkIndex).
		Update("summary", summary).Error
}
