package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fuelpump/internal/dto"
	"fuelpump/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrShiftNotActive is returned by FinalizeShift when the conditional status
// update matched no row: the shift is missing, belongs to another tenant, or
// was already closed by a concurrent request.
var ErrShiftNotActive = errors.New("shift is not active")

// Finalization is everything written when a shift is closed.
type Finalization struct {
	FuelPumpID    uuid.UUID
	ShiftID       uuid.UUID
	EndTime       time.Time
	CashRemaining decimal.Decimal
	Readings      []ReadingClose
	Consumables   []ConsumableReturn
}

// ReadingClose is the final state of one fuel type's reading row.
type ReadingClose struct {
	FuelType           model.FuelType
	ClosingReading     decimal.Decimal
	CardSales          decimal.Decimal
	UpiSales           decimal.Decimal
	CashSales          decimal.Decimal
	IndentSales        decimal.Decimal
	IndentSource       string
	TestingFuel        decimal.Decimal
	Expenses           decimal.Decimal
	ConsumableExpenses decimal.Decimal
	CashRemaining      decimal.Decimal
}

// ConsumableReturn records the unsold quantity of one allocation.
type ConsumableReturn struct {
	AllocationID     uuid.UUID
	ConsumableID     uuid.UUID
	QuantityReturned decimal.Decimal
}

// ShiftEdit is an administrative correction of a completed shift.
// Nil fields are left untouched.
type ShiftEdit struct {
	CashRemaining   *decimal.Decimal
	Notes           *string
	CardSales       *decimal.Decimal
	UpiSales        *decimal.Decimal
	CashSales       *decimal.Decimal
	IndentSales     *decimal.Decimal
	Expenses        *decimal.Decimal
	ClosingReadings map[model.FuelType]decimal.Decimal
}

type ShiftRepository interface {
	Create(ctx context.Context, s *model.Shift, readings []model.Reading) error
	FindByID(ctx context.Context, fuelPumpID, id uuid.UUID) (*model.Shift, error)
	FindActiveByStaff(ctx context.Context, fuelPumpID, staffID uuid.UUID) (*model.Shift, error)
	FindActiveByPump(ctx context.Context, fuelPumpID uuid.UUID, pumpID string) (*model.Shift, error)
	List(ctx context.Context, fuelPumpID uuid.UUID, filter dto.ShiftFilter) ([]model.Shift, int64, error)

	ListReadings(ctx context.Context, shiftID uuid.UUID) ([]model.Reading, error)
	// LastClosingReadings returns the closing meter values of the most recently
	// completed shift on the pump, keyed by fuel type.
	LastClosingReadings(ctx context.Context, fuelPumpID uuid.UUID, pumpID string) (map[model.FuelType]decimal.Decimal, error)

	// FinalizeShift writes the shift row, the reading rows and the consumable
	// returns in that order inside one transaction.
	FinalizeShift(ctx context.Context, f Finalization) error
	UpdateCompleted(ctx context.Context, fuelPumpID, id uuid.UUID, edit ShiftEdit) error
	Delete(ctx context.Context, fuelPumpID, id uuid.UUID) error
}

type shiftRepo struct{ db *gorm.DB }

func NewShiftRepository(db *gorm.DB) ShiftRepository { return &shiftRepo{db: db} }

func (r *shiftRepo) Create(ctx context.Context, s *model.Shift, readings []model.Reading) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Staff", "Readings", "Consumables").Create(s).Error; err != nil {
			return err
		}
		for i := range readings {
			readings[i].ShiftID = s.ID
		}
		if len(readings) == 0 {
			return nil
		}
		return tx.Create(&readings).Error
	})
}

func (r *shiftRepo) FindByID(ctx context.Context, fuelPumpID, id uuid.UUID) (*model.Shift, error) {
	var s model.Shift
	err := r.db.WithContext(ctx).
		Preload("Staff").
		Preload("Readings", func(db *gorm.DB) *gorm.DB { return db.Order("fuel_type ASC") }).
		Where("id = ? AND fuel_pump_id = ?", id, fuelPumpID).
		First(&s).Error
	return &s, err
}

func (r *shiftRepo) FindActiveByStaff(ctx context.Context, fuelPumpID, staffID uuid.UUID) (*model.Shift, error) {
	var s model.Shift
	err := r.db.WithContext(ctx).
		Where("fuel_pump_id = ? AND staff_id = ? AND status = ?", fuelPumpID, staffID, model.ShiftActive).
		Order("start_time DESC").
		First(&s).Error
	return &s, err
}

func (r *shiftRepo) FindActiveByPump(ctx context.Context, fuelPumpID uuid.UUID, pumpID string) (*model.Shift, error) {
	var s model.Shift
	err := r.db.WithContext(ctx).
		Where("fuel_pump_id = ? AND pump_id = ? AND status = ?", fuelPumpID, pumpID, model.ShiftActive).
		First(&s).Error
	return &s, err
}

func (r *shiftRepo) List(ctx context.Context, fuelPumpID uuid.UUID, filter dto.ShiftFilter) ([]model.Shift, int64, error) {
	var shifts []model.Shift
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Shift{}).Where("fuel_pump_id = ?", fuelPumpID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.StaffID != "" {
		q = q.Where("staff_id = ?", filter.StaffID)
	}
	if filter.PumpID != "" {
		q = q.Where("pump_id = ?", filter.PumpID)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	order := "start_time DESC"
	if filter.Status == model.ShiftCompleted {
		order = "end_time DESC"
	}
	err := q.Preload("Staff").
		Preload("Readings", func(db *gorm.DB) *gorm.DB { return db.Order("fuel_type ASC") }).
		Order(order).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&shifts).Error
	return shifts, total, err
}

func (r *shiftRepo) ListReadings(ctx context.Context, shiftID uuid.UUID) ([]model.Reading, error) {
	var readings []model.Reading
	err := r.db.WithContext(ctx).Where("shift_id = ?", shiftID).Order("fuel_type ASC").Find(&readings).Error
	return readings, err
}

func (r *shiftRepo) LastClosingReadings(ctx context.Context, fuelPumpID uuid.UUID, pumpID string) (map[model.FuelType]decimal.Decimal, error) {
	out := map[model.FuelType]decimal.Decimal{}

	var last model.Shift
	err := r.db.WithContext(ctx).
		Where("fuel_pump_id = ? AND pump_id = ? AND status = ?", fuelPumpID, pumpID, model.ShiftCompleted).
		Order("end_time DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	readings, err := r.ListReadings(ctx, last.ID)
	if err != nil {
		return nil, err
	}
	for _, rd := range readings {
		if rd.ClosingReading != nil {
			out[rd.FuelType] = *rd.ClosingReading
		} else {
			out[rd.FuelType] = rd.OpeningReading
		}
	}
	return out, nil
}

// ── FinalizeShift ─────────────────────────────────────────────────────────────

func (r *shiftRepo) FinalizeShift(ctx context.Context, f Finalization) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. shift row, only while still active
		res := tx.Model(&model.Shift{}).
			Where("id = ? AND fuel_pump_id = ? AND status = ?", f.ShiftID, f.FuelPumpID, model.ShiftActive).
			Updates(map[string]any{
				"status":         model.ShiftCompleted,
				"end_time":       f.EndTime,
				"cash_remaining": f.CashRemaining,
			})
		if res.Error != nil {
			return fmt.Errorf("update shift: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrShiftNotActive
		}

		// 2. one reading row per fuel type
		for _, rc := range f.Readings {
			res := tx.Model(&model.Reading{}).
				Where("shift_id = ? AND fuel_type = ?", f.ShiftID, rc.FuelType).
				Updates(map[string]any{
					"closing_reading":     rc.ClosingReading,
					"card_sales":          rc.CardSales,
					"upi_sales":           rc.UpiSales,
					"cash_sales":          rc.CashSales,
					"indent_sales":        rc.IndentSales,
					"indent_source":       rc.IndentSource,
					"testing_fuel":        rc.TestingFuel,
					"expenses":            rc.Expenses,
					"consumable_expenses": rc.ConsumableExpenses,
					"cash_remaining":      rc.CashRemaining,
				})
			if res.Error != nil {
				return fmt.Errorf("update reading %s: %w", rc.FuelType, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("update reading %s: %w", rc.FuelType, gorm.ErrRecordNotFound)
			}
		}

		// 3. consumable returns, restocking what came back
		for _, cr := range f.Consumables {
			res := tx.Model(&model.ShiftConsumable{}).
				Where("id = ? AND shift_id = ? AND consumable_id = ?", cr.AllocationID, f.ShiftID, cr.ConsumableID).
				Updates(map[string]any{
					"quantity_returned": cr.QuantityReturned,
					"status":            model.ConsumableReturned,
				})
			if res.Error != nil {
				return fmt.Errorf("update consumable %s: %w", cr.AllocationID, res.Error)
			}
			// only stock issued to this shift goes back on the shelf
			if res.RowsAffected == 0 {
				return fmt.Errorf("update consumable %s: %w", cr.AllocationID, gorm.ErrRecordNotFound)
			}
			if cr.QuantityReturned.IsPositive() {
				if err := tx.Model(&model.Consumable{}).
					Where("id = ?", cr.ConsumableID).
					Update("quantity", gorm.Expr("quantity + ?", cr.QuantityReturned)).Error; err != nil {
					return fmt.Errorf("restock consumable %s: %w", cr.ConsumableID, err)
				}
			}
		}
		return nil
	})
}

// ── Admin ─────────────────────────────────────────────────────────────────────

func (r *shiftRepo) UpdateCompleted(ctx context.Context, fuelPumpID, id uuid.UUID, edit ShiftEdit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shiftPatch := map[string]any{}
		if edit.CashRemaining != nil {
			shiftPatch["cash_remaining"] = *edit.CashRemaining
		}
		if edit.Notes != nil {
			shiftPatch["notes"] = *edit.Notes
		}
		q := tx.Model(&model.Shift{}).
			Where("id = ? AND fuel_pump_id = ? AND status = ?", id, fuelPumpID, model.ShiftCompleted)
		if len(shiftPatch) > 0 {
			res := q.Updates(shiftPatch)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}

		readingPatch := map[string]any{}
		for col, v := range map[string]*decimal.Decimal{
			"card_sales":     edit.CardSales,
			"upi_sales":      edit.UpiSales,
			"cash_sales":     edit.CashSales,
			"indent_sales":   edit.IndentSales,
			"expenses":       edit.Expenses,
			"cash_remaining": edit.CashRemaining,
		} {
			if v != nil {
				readingPatch[col] = *v
			}
		}
		if edit.IndentSales != nil {
			readingPatch["indent_source"] = model.IndentManual
		}
		if len(readingPatch) > 0 {
			if err := tx.Model(&model.Reading{}).Where("shift_id = ?", id).Updates(readingPatch).Error; err != nil {
				return err
			}
		}
		for ft, closing := range edit.ClosingReadings {
			if err := tx.Model(&model.Reading{}).
				Where("shift_id = ? AND fuel_type = ?", id, ft).
				Update("closing_reading", closing).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *shiftRepo) Delete(ctx context.Context, fuelPumpID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s model.Shift
		if err := tx.Where("id = ? AND fuel_pump_id = ?", id, fuelPumpID).First(&s).Error; err != nil {
			return err
		}
		if err := tx.Where("shift_id = ?", id).Delete(&model.ShiftConsumable{}).Error; err != nil {
			return err
		}
		if err := tx.Where("shift_id = ?", id).Delete(&model.Reading{}).Error; err != nil {
			return err
		}
		return tx.Delete(&s).Error
	})
}
