package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/manicinc/synthstack-gateway/internal/models"
	"github.com/manicinc/synthstack-gateway/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerRepository struct {
	db *storage.Postgres
}

func NewLedgerRepository(db *storage.Postgres) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Balance reads the user's current credit balance. Unknown users read as
// zero balance rather than an error.
func (r *LedgerRepository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var user models.User
	err := r.db.DB.WithContext(ctx).
		Select("credits_remaining").
		Where("id = ?", userID).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return user.CreditsRemaining, nil
}

// Debit applies a charge inside one transaction: insert the ledger row keyed
// by request id, then decrement the balance, clamped at zero. A second call
// with the same request id inserts nothing and debits nothing, so replays
// and retried post-handlers cannot double-charge.
func (r *LedgerRepository) Debit(ctx context.Context, tx *models.CreditTransaction) (applied bool, err error) {
	err = r.db.DB.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "request_id"}},
			DoNothing: true,
		}).Create(tx)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			// Already recorded for this request id
			return nil
		}
		applied = true

		if tx.Amount >= 0 {
			return nil
		}

		return db.Model(&models.User{}).
			Where("id = ?", tx.UserID).
			Update("credits_remaining", gorm.Expr("GREATEST(credits_remaining + ?, 0)", tx.Amount)).Error
	})

	return applied, err
}

// Credit tops up a user's balance and records the matching ledger row.
func (r *LedgerRepository) Credit(ctx context.Context, userID uuid.UUID, amount int, reason string) error {
	if amount <= 0 {
		return errors.New("credit amount must be positive")
	}

	tx := &models.CreditTransaction{
		RequestID:   "credit:" + uuid.NewString(),
		UserID:      userID,
		OperationID: reason,
		Amount:      amount,
		CreatedAt:   time.Now(),
	}

	return r.db.DB.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Create(tx).Error; err != nil {
			return err
		}

		return db.Model(&models.User{}).
			Where("id = ?", userID).
			Update("credits_remaining", gorm.Expr("credits_remaining + ?", amount)).Error
	})
}

// FindByRequestID returns the ledger row for a request, or nil if none.
func (r *LedgerRepository) FindByRequestID(ctx context.Context, requestID string) (*models.CreditTransaction, error) {
	var tx models.CreditTransaction
	err := r.db.DB.WithContext(ctx).
		Where("request_id = ?", requestID).
		First(&tx).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	return &tx, err
}

// ListByUser returns a user's ledger rows, newest first.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.CreditTransaction, error) {
	var txs []models.CreditTransaction
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error

	return txs, err
}

// SpentSince sums the credits debited by a user since a point in time.
func (r *LedgerRepository) SpentSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var total int
	err := r.db.DB.WithContext(ctx).
		Model(&models.CreditTransaction{}).
		Select("COALESCE(SUM(-amount), 0)").
		Where("user_id = ? AND amount < 0 AND created_at >= ?", userID, since).
		Scan(&total).Error

	return total, err
}
