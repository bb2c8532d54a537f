package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Chunk struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DocumentID uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_chunk_doc_index" json:"document_id"`
	Document   *Document      `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`
	ChunkIndex int            `gorm:"column:chunk_index;not null;uniqueIndex:idx_chunk_doc_index" json:"chunk_index"`
	Text       string         `gorm:"column:text;not null" json:"text"`
	Summary    string         `gorm:"column:summary" json:"summary,omitempty"`
	Embedding  datatypes.JSON `gorm:"type:jsonb;column:embedding" json:"embedding,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Chunk) TableName() string { return "chunk" }

// Vector decodes the stored embedding. Returns nil when the column is null
// or holds something other than a JSON float array.
func (c *Chunk) Vector() []float32 {
	if len(c.Embedding) == 0 {
		return nil
	}
	var v []float32
	if err := json.Unmarshal(c.Embedding, &v); err != nil {
		return nil
	}
	return v
}

// EmbeddingUsable reports whether the stored vector is present and
// non-degenerate. Providers occasionally return an all-near-zero placeholder;
// those are treated as missing so the pipeline recomputes them.
func EmbeddingUsable(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	return sumSquares > 1e-8
}
