package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/textdigest-backend/internal/repos"
	"github.com/yungbote/textdigest-backend/internal/retrieval"
)

// chunkVectorStore lets the retrieval engine persist embeddings it repaired
// during a query.
type chunkVectorStore struct {
	chunks repos.ChunkRepo
}

func NewChunkVectorStore(chunks repos.ChunkRepo) retrieval.VectorStore {
	return &chunkVectorStore{chunks: chunks}
}

func (v *chunkVectorStore) SaveVector(ctx context.Context, docID uuid.UUID, chunkIndex int, vector []float32) error {
	return v.chunks.UpdateEmbedding(ctx, nil, docID, chunkIndex, vector)
}
