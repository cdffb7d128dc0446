package repository

import (
	"context"
	"time"

	"fuelpump/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	// ListIndentAmounts returns the raw amount of every transaction recorded by
	// staffID with created_at in [start, end]. The nominal date column is ignored.
	ListIndentAmounts(ctx context.Context, fuelPumpID, staffID uuid.UUID, start, end time.Time) ([]string, error)
	Create(ctx context.Context, t *model.Transaction) error
}

type transactionRepo struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) TransactionRepository { return &transactionRepo{db: db} }

func (r *transactionRepo) ListIndentAmounts(ctx context.Context, fuelPumpID, staffID uuid.UUID, start, end time.Time) ([]string, error) {
	var amounts []string
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("fuel_pump_id = ? AND staff_id = ?", fuelPumpID, staffID).
		Where("created_at >= ? AND created_at <= ?", start.UTC(), end.UTC()).
		Order("created_at ASC").
		Pluck("CAST(amount AS TEXT)", &amounts).Error
	return amounts, err
}

func (r *transactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}
