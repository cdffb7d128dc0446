package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PushSubscription is a browser Web Push endpoint registered by a manager.
type PushSubscription struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	FuelPumpID uuid.UUID `gorm:"type:uuid;not null;index"`
	StaffID    uuid.UUID `gorm:"type:uuid;not null"`
	Endpoint   string    `gorm:"uniqueIndex;not null"`
	P256dh     string    `gorm:"not null"`
	Auth       string    `gorm:"not null"`
	CreatedAt  time.Time
}

func (p *PushSubscription) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// All lists every table owned by the service, in migration order.
func All() []any {
	return []any{
		&Staff{},
		&FuelSetting{},
		&Consumable{},
		&Shift{},
		&Reading{},
		&ShiftConsumable{},
		&Transaction{},
		&PushSubscription{},
	}
}
