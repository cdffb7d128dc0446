package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction settles fuel issued against an indent. Shift attribution uses
// CreatedAt; Date is the nominal business date entered by the operator.
type Transaction struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FuelPumpID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	StaffID       *uuid.UUID      `gorm:"type:uuid;index"`
	CustomerID    *uuid.UUID      `gorm:"type:uuid"`
	IndentID      *string         `gorm:"type:varchar(50)"`
	FuelType      FuelType        `gorm:"type:varchar(50)"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Quantity      decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;default:'indent'"`
	Date          time.Time
	CreatedAt     time.Time `gorm:"index"`
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
