package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type APIKey struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	KeyHash string    `gorm:"uniqueIndex;not null" json:"-"`
	Name    string    `gorm:"not null" json:"name"`
	// UserID is the owning user; metered requests made with this key are
	// billed against that user's credit balance.
	UserID     uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	Tier       string     `gorm:"default:'free'" json:"tier"`
	// BYOK mirrors the owning user's flag at key creation time so the
	// metering middleware can skip charging without a second lookup.
	BYOK       bool       `gorm:"default:false" json:"byok"`
	IsActive   bool       `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func (a *APIKey) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (APIKey) TableName() string {
	return "api_keys"
}
