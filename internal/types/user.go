package types

import (
	"time"

	"github.com/google/uuid"
)

// User is the owner row for documents and conversations. Account lifecycle
// (signup, passwords, tokens) lives in the auth service, not here.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email     string    `gorm:"column:email;uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "app_user" }
