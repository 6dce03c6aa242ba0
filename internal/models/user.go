package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null"`
	Name         string    `json:"name"`
	Role         string    `gorm:"default:'member'" json:"role"`
	Tier         string    `gorm:"default:'free'" json:"tier"`
	// CreditsRemaining is the durable balance the gateway debits after each
	// metered operation. Never driven below zero by a debit.
	CreditsRemaining int `gorm:"default:100" json:"credits_remaining"`
	// BYOK users supply their own provider API keys, so metered operations
	// skip the credit gate and debit for them.
	BYOK      bool      `gorm:"default:false" json:"byok"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	return nil
}

func (User) TableName() string {
	return "users"
}
