package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// Staff stores pump attendants and managers.
// Role: "admin" | "manager" | "staff"
type Staff struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	FuelPumpID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"not null"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Email        *string
	Phone        *string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(20);not null;default:'staff'"`
	Active       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s *Staff) BeforeCreate(_ *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func (Staff) TableName() string { return "staff" }
