package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	IndentAuto   = "auto"
	IndentManual = "manual"
)

// Reading holds one fuel type's meter pair for a shift. The sales channel
// columns are repeated on every row of the shift; TestingFuel is the row's
// own fuel type share.
type Reading struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ShiftID            uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_reading_shift_fuel"`
	FuelPumpID         uuid.UUID        `gorm:"type:uuid;not null;index"`
	StaffID            uuid.UUID        `gorm:"type:uuid;not null"`
	PumpID             string           `gorm:"type:varchar(50);not null"`
	FuelType           FuelType         `gorm:"type:varchar(50);not null;uniqueIndex:idx_reading_shift_fuel"`
	OpeningReading     decimal.Decimal  `gorm:"type:decimal(14,3);not null;default:0"`
	ClosingReading     *decimal.Decimal `gorm:"type:decimal(14,3)"`
	CardSales          decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	UpiSales           decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	CashSales          decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	IndentSales        decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	IndentSource       string           `gorm:"type:varchar(10);not null;default:'auto'"`
	TestingFuel        decimal.Decimal  `gorm:"type:decimal(12,3);not null;default:0"`
	Expenses           decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	ConsumableExpenses decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	CashRemaining      decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	CashGiven          decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	Date               time.Time        `gorm:"not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (r *Reading) BeforeCreate(_ *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
