package service

import (
	"fuelpump/internal/model"

	"github.com/google/uuid"
)

// Session is the caller's tenant and identity. Handlers build it from the JWT
// and pass it to every service call; nothing reads the tenant from globals.
type Session struct {
	FuelPumpID uuid.UUID
	StaffID    uuid.UUID
	Role       string
}

func (s Session) IsStaff() bool { return s.Role == model.RoleStaff }

// canActOn reports whether the caller may read or close the shift.
// Attendants only see their own shifts.
func (s Session) canActOn(shift *model.Shift) bool {
	if shift.FuelPumpID != s.FuelPumpID {
		return false
	}
	return !s.IsStaff() || shift.StaffID == s.StaffID
}
