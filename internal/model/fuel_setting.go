package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FuelSetting is the per-tenant price and baseline meter value of a fuel type.
type FuelSetting struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FuelPumpID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_fuel_setting_type"`
	FuelType        FuelType        `gorm:"type:varchar(50);not null;uniqueIndex:idx_fuel_setting_type"`
	CurrentPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	BaselineReading decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	TankCapacity    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CurrentLevel    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	UpdatedAt       time.Time
}

func (f *FuelSetting) BeforeCreate(_ *gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
