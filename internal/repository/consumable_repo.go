package repository

import (
	"context"
	"errors"

	"fuelpump/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInsufficientStock is returned when an allocation exceeds the stock on hand.
var ErrInsufficientStock = errors.New("insufficient consumable stock")

type ConsumableRepository interface {
	// ListByShift returns the shift's allocations with item metadata preloaded.
	// Consumable is nil when the item row no longer exists.
	ListByShift(ctx context.Context, shiftID uuid.UUID) ([]model.ShiftConsumable, error)
	// Allocate issues stock to a shift, decrementing consumables.quantity.
	Allocate(ctx context.Context, fuelPumpID uuid.UUID, sc *model.ShiftConsumable) error
	List(ctx context.Context, fuelPumpID uuid.UUID) ([]model.Consumable, error)
}

type consumableRepo struct{ db *gorm.DB }

func NewConsumableRepository(db *gorm.DB) ConsumableRepository { return &consumableRepo{db: db} }

func (r *consumableRepo) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]model.ShiftConsumable, error) {
	var rows []model.ShiftConsumable
	err := r.db.WithContext(ctx).
		Preload("Consumable").
		Where("shift_id = ?", shiftID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *consumableRepo) Allocate(ctx context.Context, fuelPumpID uuid.UUID, sc *model.ShiftConsumable) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Consumable{}).
			Where("id = ? AND fuel_pump_id = ? AND quantity >= ?", sc.ConsumableID, fuelPumpID, sc.QuantityAllocated).
			Update("quantity", gorm.Expr("quantity - ?", sc.QuantityAllocated))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientStock
		}
		sc.Status = model.ConsumableAllocated
		sc.QuantityReturned = decimal.Zero
		return tx.Omit("Consumable").Create(sc).Error
	})
}

func (r *consumableRepo) List(ctx context.Context, fuelPumpID uuid.UUID) ([]model.Consumable, error) {
	var items []model.Consumable
	err := r.db.WithContext(ctx).Where("fuel_pump_id = ?", fuelPumpID).Order("name ASC").Find(&items).Error
	return items, err
}
