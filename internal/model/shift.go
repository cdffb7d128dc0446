package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ShiftActive    = "active"
	ShiftCompleted = "completed"
)

const (
	ShiftMorning = "morning"
	ShiftEvening = "evening"
	ShiftNight   = "night"
	ShiftDay     = "day"
)

// Shift is one staff member's tenure at one pump.
// Status: "active" | "completed". A completed shift is only changed by admin edit.
type Shift struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	FuelPumpID          uuid.UUID `gorm:"type:uuid;not null;index"`
	StaffID             uuid.UUID `gorm:"type:uuid;not null;index"`
	PumpID              string    `gorm:"type:varchar(50);not null"`
	ShiftType           string    `gorm:"type:varchar(20);not null;default:'day'"`
	Status              string    `gorm:"type:varchar(20);not null;default:'active';index"`
	StartTime           time.Time `gorm:"not null"`
	EndTime             *time.Time
	StartingCashBalance decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	CashRemaining       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Notes               *string
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Staff       *Staff            `gorm:"foreignKey:StaffID"`
	Readings    []Reading         `gorm:"foreignKey:ShiftID;constraint:OnDelete:CASCADE"`
	Consumables []ShiftConsumable `gorm:"foreignKey:ShiftID;constraint:OnDelete:CASCADE"`
}

func (s *Shift) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// IsActive reports whether the shift can still be closed.
func (s *Shift) IsActive() bool { return s.Status == ShiftActive }

// NextShiftType returns the rotation slot that follows t.
func NextShiftType(t string) string {
	switch t {
	case ShiftMorning:
		return ShiftEvening
	case ShiftEvening:
		return ShiftNight
	case ShiftNight:
		return ShiftMorning
	case ShiftDay:
		return ShiftNight
	default:
		return ShiftDay
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
