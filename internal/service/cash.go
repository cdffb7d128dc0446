package service

import (
	"context"
	"errors"
	"time"

	"fuelpump/internal/config"
	"fuelpump/internal/model"
	"fuelpump/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Reconciliation compares counted cash against recorded cash sales.
// It is derived on demand and never stored.
type Reconciliation struct {
	CashSales         decimal.Decimal
	CashRemaining     decimal.Decimal
	Expenses          decimal.Decimal
	Expected          decimal.Decimal
	Difference        decimal.Decimal
	Flagged           bool
	Threshold         decimal.Decimal
	ConsumableRevenue decimal.Decimal
	Attribution       string
}

// CashReconciler validates close input, computes the variance and finalizes
// shifts, optionally chaining a successor.
type CashReconciler struct {
	shifts      repository.ShiftRepository
	staff       repository.StaffRepository
	threshold   decimal.Decimal
	attribution string
	now         func() time.Time
}

func NewCashReconciler(shifts repository.ShiftRepository, staff repository.StaffRepository, threshold float64, attribution string) *CashReconciler {
	if attribution == "" {
		attribution = config.AttributionUnattributed
	}
	return &CashReconciler{
		shifts:      shifts,
		staff:       staff,
		threshold:   decimal.NewFromFloat(threshold),
		attribution: attribution,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ── ComputeReconciliation ─────────────────────────────────────────────────────
// expected = cashSales; difference = cashRemaining - expected + expenses.
// A difference beyond the threshold is flagged but never blocks closing.

func (c *CashReconciler) ComputeReconciliation(cashSales, cashRemaining, expenses decimal.Decimal) Reconciliation {
	diff := cashRemaining.Sub(cashSales).Add(expenses)
	return Reconciliation{
		CashSales:     cashSales,
		CashRemaining: cashRemaining,
		Expenses:      expenses,
		Expected:      cashSales,
		Difference:    diff,
		Flagged:       diff.Abs().GreaterThan(c.threshold),
		Threshold:     c.threshold,
		Attribution:   config.AttributionUnattributed,
	}
}

// Reconcile applies the configured consumable payment attribution on top of
// ComputeReconciliation. With "cash" the consumable revenue is expected in the drawer.
func (c *CashReconciler) Reconcile(cashSales, cashRemaining, expenses, consumableRevenue decimal.Decimal) Reconciliation {
	expected := cashSales
	if c.attribution == config.AttributionCash {
		expected = expected.Add(consumableRevenue)
	}
	rec := c.ComputeReconciliation(expected, cashRemaining, expenses)
	rec.CashSales = cashSales
	rec.ConsumableRevenue = consumableRevenue
	rec.Attribution = c.attribution
	return rec
}

// ── Validate ──────────────────────────────────────────────────────────────────

// Validate rejects a close when any fuel type has no closing reading or one
// that is not strictly greater than its opening reading.
func (c *CashReconciler) Validate(readings ReadingsState) error {
	verr := &ValidationError{}
	if len(readings.Entries) == 0 {
		verr.Add("readings", "shift has no fuel readings")
	}
	for _, e := range readings.Entries {
		field := "closing_reading." + string(e.FuelType)
		switch {
		case !e.Entered:
			verr.Add(field, "closing reading is required")
		case !e.ClosingReading.GreaterThan(e.OpeningReading):
			verr.Add(field, "closing reading must be greater than opening reading "+e.OpeningReading.String())
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ── CloseShift ────────────────────────────────────────────────────────────────

// CloseShift validates the draft and finalizes the shift in one atomic
// repository call: shift row, then reading rows, then consumable returns.
func (c *CashReconciler) CloseShift(ctx context.Context, sess Session, shift *model.Shift, draft *CloseDraft) (Reconciliation, error) {
	if err := c.Validate(draft.Readings); err != nil {
		return Reconciliation{}, err
	}
	if !shift.IsActive() {
		return Reconciliation{}, ErrShiftNotActive
	}

	revenue := draft.Consumables.Revenue()
	rec := c.Reconcile(draft.Sales.CashSales, draft.CashRemaining, draft.Expenses, revenue)

	fin := repository.Finalization{
		FuelPumpID:    sess.FuelPumpID,
		ShiftID:       shift.ID,
		EndTime:       c.now(),
		CashRemaining: draft.CashRemaining,
		Consumables:   draft.Consumables.Returns(),
	}
	for _, e := range draft.Readings.Entries {
		fin.Readings = append(fin.Readings, repository.ReadingClose{
			FuelType:           e.FuelType,
			ClosingReading:     e.ClosingReading,
			CardSales:          draft.Sales.CardSales,
			UpiSales:           draft.Sales.UpiSales,
			CashSales:          draft.Sales.CashSales,
			IndentSales:        draft.Sales.IndentSales,
			IndentSource:       draft.Sales.IndentSource,
			TestingFuel:        draft.Sales.TestingByType[model.NormalizeFuelType(e.FuelType)],
			Expenses:           draft.Expenses,
			ConsumableExpenses: revenue,
			CashRemaining:      draft.CashRemaining,
		})
	}

	if err := c.shifts.FinalizeShift(ctx, fin); err != nil {
		if errors.Is(err, repository.ErrShiftNotActive) {
			return Reconciliation{}, ErrShiftNotActive
		}
		log.Error().Err(err).Str("shift_id", shift.ID.String()).Msg("cash: finalize shift failed")
		return Reconciliation{}, &PersistenceError{Op: "finalize_shift", Err: err}
	}

	shift.Status = model.ShiftCompleted
	shift.EndTime = &fin.EndTime
	shift.CashRemaining = &fin.CashRemaining

	log.Info().
		Str("shift_id", shift.ID.String()).
		Str("difference", rec.Difference.String()).
		Bool("flagged", rec.Flagged).
		Msg("shift closed")
	return rec, nil
}

// ── StartSuccessorShift ───────────────────────────────────────────────────────

// StartSuccessorShift opens the next shift on prev's pump with prev's closing
// readings as openings. Without a staff member and nobody available the step
// is skipped and WarnNoStaffAvailable returned.
func (c *CashReconciler) StartSuccessorShift(ctx context.Context, sess Session, prev *model.Shift, staffID *uuid.UUID, openings map[model.FuelType]decimal.Decimal, cashGiven decimal.Decimal) (*model.Shift, string, error) {
	if staffID == nil {
		available, err := c.staff.ListAvailable(ctx, sess.FuelPumpID)
		if err != nil {
			return nil, "", &PersistenceError{Op: "list_available_staff", Err: err}
		}
		if len(available) == 0 {
			log.Info().Str("shift_id", prev.ID.String()).Msg("cash: no staff available for successor shift")
			return nil, WarnNoStaffAvailable, nil
		}
		return nil, "", NewValidationError("staff_id", "select the staff member for the next shift")
	}

	next, err := openShift(ctx, c.shifts, c.staff, sess, openShiftParams{
		StaffID:      *staffID,
		PumpID:       prev.PumpID,
		ShiftType:    model.NextShiftType(prev.ShiftType),
		StartingCash: cashGiven,
		Openings:     openings,
		StartTime:    c.now(),
	})
	if err != nil {
		return nil, "", err
	}
	log.Info().
		Str("previous_shift_id", prev.ID.String()).
		Str("shift_id", next.ID.String()).
		Msg("successor shift started")
	return next, "", nil
}
