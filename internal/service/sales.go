package service

import (
	"context"
	"time"

	"fuelpump/internal/model"
	"fuelpump/internal/numeric"
	"fuelpump/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Sales channel names accepted by SetChannel.
const (
	ChannelCard   = "card_sales"
	ChannelUPI    = "upi_sales"
	ChannelCash   = "cash_sales"
	ChannelIndent = "indent_sales"
)

// SalesState is the uncommitted sales snapshot of a shift.
// IndentSource is "auto" while IndentSales tracks the transaction total and
// "manual" once an operator has typed a value.
type SalesState struct {
	CardSales     decimal.Decimal                    `json:"card_sales"`
	UpiSales      decimal.Decimal                    `json:"upi_sales"`
	CashSales     decimal.Decimal                    `json:"cash_sales"`
	IndentSales   decimal.Decimal                    `json:"indent_sales"`
	IndentSource  string                             `json:"indent_source"`
	TestingFuel   decimal.Decimal                    `json:"testing_fuel"`
	TestingByType map[model.FuelType]decimal.Decimal `json:"testing_by_type"`
}

func NewSalesState() SalesState {
	return SalesState{IndentSource: model.IndentAuto, TestingByType: map[model.FuelType]decimal.Decimal{}}
}

// TotalSales is card + UPI + cash + indent.
func (s *SalesState) TotalSales() decimal.Decimal {
	return s.CardSales.Add(s.UpiSales).Add(s.CashSales).Add(s.IndentSales)
}

// SetChannel updates one sales channel. Invalid or negative input becomes 0.
// Writing the indent channel marks it as manually overridden.
func (s *SalesState) SetChannel(field string, value any) error {
	v := numeric.NonNegative(value)
	switch field {
	case ChannelCard:
		s.CardSales = v
	case ChannelUPI:
		s.UpiSales = v
	case ChannelCash:
		s.CashSales = v
	case ChannelIndent:
		s.IndentSales = v
		s.IndentSource = model.IndentManual
	default:
		return NewValidationError("field", "unknown sales channel "+field)
	}
	return nil
}

// SetTestingByType records one fuel type's testing volume; the aggregate is
// recomputed as the sum of the breakdown.
func (s *SalesState) SetTestingByType(fuelType any, value any) {
	if s.TestingByType == nil {
		s.TestingByType = map[model.FuelType]decimal.Decimal{}
	}
	s.TestingByType[model.NormalizeFuelType(fuelType)] = numeric.NonNegative(value)

	total := decimal.Zero
	for _, v := range s.TestingByType {
		total = total.Add(v)
	}
	s.TestingFuel = total
}

// ApplyIndent overwrites the indent channel with a computed total unless an
// operator has already entered one.
func (s *SalesState) ApplyIndent(amount decimal.Decimal) bool {
	if s.IndentSource == model.IndentManual {
		return false
	}
	s.IndentSales = amount
	s.IndentSource = model.IndentAuto
	return true
}

// ── SalesAggregator ───────────────────────────────────────────────────────────

type SalesAggregator struct {
	shifts       repository.ShiftRepository
	transactions repository.TransactionRepository
	now          func() time.Time
}

func NewSalesAggregator(shifts repository.ShiftRepository, transactions repository.TransactionRepository) *SalesAggregator {
	return &SalesAggregator{shifts: shifts, transactions: transactions, now: time.Now}
}

// LoadInitial seeds the sales state from the newest reading row of the shift.
// When staffID is set the indent channel is pre-filled from transactions.
// Read failures never fail the load; they are logged and returned as LoadErrors.
func (a *SalesAggregator) LoadInitial(ctx context.Context, sess Session, shiftID uuid.UUID, staffID *uuid.UUID) (SalesState, []error) {
	state := NewSalesState()
	var loadErrs []error

	rows, err := a.shifts.ListReadings(ctx, shiftID)
	if err != nil {
		log.Warn().Err(err).Str("shift_id", shiftID.String()).Msg("sales: load readings failed")
		loadErrs = append(loadErrs, &LoadError{Source: "sales", Err: err})
	} else if len(rows) > 0 {
		latest := rows[0]
		for _, r := range rows[1:] {
			if r.CreatedAt.After(latest.CreatedAt) {
				latest = r
			}
		}
		state.CardSales = latest.CardSales
		state.UpiSales = latest.UpiSales
		state.CashSales = latest.CashSales
		state.IndentSales = latest.IndentSales
		if latest.IndentSource == model.IndentManual {
			state.IndentSource = model.IndentManual
		}
		for _, r := range rows {
			if r.TestingFuel.IsPositive() {
				state.SetTestingByType(r.FuelType, r.TestingFuel)
			}
		}
	}

	if staffID == nil {
		return state, loadErrs
	}

	shift, err := a.shifts.FindByID(ctx, sess.FuelPumpID, shiftID)
	if err != nil {
		// indent stays at its seeded value
		log.Warn().Err(err).Str("shift_id", shiftID.String()).Msg("sales: shift bounds unavailable, indent skipped")
		return state, loadErrs
	}
	amount, err := a.ComputeIndentSales(ctx, sess, *staffID, shift.StartTime, shift.EndTime)
	if err != nil {
		loadErrs = append(loadErrs, &LoadError{Source: "indent", Err: err})
		return state, loadErrs
	}
	state.ApplyIndent(amount)
	return state, loadErrs
}

// ComputeIndentSales sums the amount of every transaction staffID created in
// [start, end]. A nil end means now, so an active shift gets a running total.
// Amounts that are not numbers count as 0.
func (a *SalesAggregator) ComputeIndentSales(ctx context.Context, sess Session, staffID uuid.UUID, start time.Time, end *time.Time) (decimal.Decimal, error) {
	until := a.now()
	if end != nil {
		until = *end
	}
	amounts, err := a.transactions.ListIndentAmounts(ctx, sess.FuelPumpID, staffID, start, until)
	if err != nil {
		log.Warn().Err(err).Str("staff_id", staffID.String()).Msg("sales: indent lookup failed")
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, raw := range amounts {
		total = total.Add(numeric.Coerce(raw))
	}
	return total, nil
}
