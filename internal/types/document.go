package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentVisibility trades chunk granularity against processing cost.
// Public documents are chunked coarsely (cheaper to embed and summarize).
type DocumentVisibility string

const (
	VisibilityPrivate DocumentVisibility = "private"
	VisibilityPublic  DocumentVisibility = "public"
)

type Document struct {
	ID         uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID  uuid.UUID          `gorm:"type:uuid;not null;index" json:"project_id"`
	Project    *Project           `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	UserID     uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	Filename   string             `gorm:"column:filename;not null" json:"filename"`
	StorageKey string             `gorm:"column:storage_key;not null" json:"storage_key"`
	Status     DocumentStatus     `gorm:"column:status;not null;default:'queued'" json:"status"`
	Visibility DocumentVisibility `gorm:"column:visibility;not null;default:'private'" json:"visibility"`
	Selected   bool               `gorm:"column:selected;not null;default:true" json:"selected"`
	Content    string             `gorm:"column:content" json:"-"`
	Summary    datatypes.JSON     `gorm:"type:jsonb;column:summary" json:"summary,omitempty"`
	ErrorMsg   string             `gorm:"column:error_msg" json:"error_msg,omitempty"`
	CreatedAt  time.Time          `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt     `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }

// StructuredSummary is the shape persisted in Document.Summary.
type StructuredSummary struct {
	Overview  string   `json:"overview"`
	KeyPoints []string `json:"keyPoints"`
}
