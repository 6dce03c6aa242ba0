package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreditTransaction is one ledger row per metered request. RequestID is
// unique: replaying a charge for the same request is a no-op, which is what
// makes post-proxy accounting idempotent.
type CreditTransaction struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	RequestID   string    `gorm:"uniqueIndex;not null" json:"request_id"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	OperationID string    `gorm:"index" json:"operation_id"`
	Tier        string    `json:"tier"`
	// Amount is negative for debits, positive for top-ups.
	Amount     int    `gorm:"not null" json:"amount"`
	Breakdown  string `json:"breakdown"`
	StatusCode int    `json:"status_code"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (t *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
