package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ConsumableAllocated = "allocated"
	ConsumableReturned  = "returned"
)

// Consumable is a non-fuel stock item (engine oil, coolant, wipers).
type Consumable struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FuelPumpID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name         string          `gorm:"not null"`
	PricePerUnit decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Unit         string          `gorm:"type:varchar(20);not null;default:'unit'"`
	Quantity     decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c *Consumable) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ShiftConsumable is stock issued to a shift for sale.
// Status: "allocated" | "returned". 0 <= QuantityReturned <= QuantityAllocated.
type ShiftConsumable struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ShiftID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	ConsumableID      uuid.UUID       `gorm:"type:uuid;not null"`
	QuantityAllocated decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	QuantityReturned  decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	Status            string          `gorm:"type:varchar(20);not null;default:'allocated'"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Consumable *Consumable `gorm:"foreignKey:ConsumableID"`
}

func (c *ShiftConsumable) BeforeCreate(_ *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
