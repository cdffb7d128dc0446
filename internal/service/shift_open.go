package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"fuelpump/internal/model"
	"fuelpump/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type openShiftParams struct {
	StaffID      uuid.UUID
	PumpID       string
	ShiftType    string
	StartingCash decimal.Decimal
	Openings     map[model.FuelType]decimal.Decimal
	StartTime    time.Time
}

// openShift creates an active shift with one reading row per fuel type.
// A staff member or pump with an active shift yields ErrActiveShiftExists.
func openShift(ctx context.Context, shifts repository.ShiftRepository, staffRepo repository.StaffRepository, sess Session, p openShiftParams) (*model.Shift, error) {
	staff, err := staffRepo.FindByID(ctx, sess.FuelPumpID, p.StaffID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewValidationError("staff_id", "staff member not found")
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find_staff", Err: err}
	}
	if !staff.Active {
		return nil, NewValidationError("staff_id", "staff member is inactive")
	}
	if len(p.Openings) == 0 {
		return nil, NewValidationError("opening_readings", "no fuel types configured for this pump")
	}

	if err := ensureNoActive(func() error {
		_, err := shifts.FindActiveByStaff(ctx, sess.FuelPumpID, p.StaffID)
		return err
	}); err != nil {
		return nil, err
	}
	if err := ensureNoActive(func() error {
		_, err := shifts.FindActiveByPump(ctx, sess.FuelPumpID, p.PumpID)
		return err
	}); err != nil {
		return nil, err
	}

	fuelTypes := make([]model.FuelType, 0, len(p.Openings))
	for ft := range p.Openings {
		fuelTypes = append(fuelTypes, ft)
	}
	sort.Slice(fuelTypes, func(i, j int) bool { return fuelTypes[i] < fuelTypes[j] })

	shift := &model.Shift{
		FuelPumpID:          sess.FuelPumpID,
		StaffID:             p.StaffID,
		PumpID:              p.PumpID,
		ShiftType:           p.ShiftType,
		Status:              model.ShiftActive,
		StartTime:           p.StartTime,
		StartingCashBalance: p.StartingCash,
	}
	readings := make([]model.Reading, 0, len(fuelTypes))
	for _, ft := range fuelTypes {
		readings = append(readings, model.Reading{
			FuelPumpID:     sess.FuelPumpID,
			StaffID:        p.StaffID,
			PumpID:         p.PumpID,
			FuelType:       ft,
			OpeningReading: p.Openings[ft],
			IndentSource:   model.IndentAuto,
			CashGiven:      p.StartingCash,
			Date:           p.StartTime,
		})
	}

	if err := shifts.Create(ctx, shift, readings); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrActiveShiftExists
		}
		return nil, &PersistenceError{Op: "create_shift", Err: err}
	}
	shift.Staff = staff
	shift.Readings = readings
	return shift, nil
}

// ensureNoActive turns a "find active shift" lookup into ErrActiveShiftExists
// when it found one.
func ensureNoActive(find func() error) error {
	err := find()
	switch {
	case err == nil:
		return ErrActiveShiftExists
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return &PersistenceError{Op: "find_active_shift", Err: err}
	}
}
