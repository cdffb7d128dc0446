package dto

import (
	"fuelpump/internal/model"
	"fuelpump/internal/numeric"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpeningReadingInput struct {
	FuelType model.FuelType  `json:"fuel_type" validate:"required"`
	Reading  decimal.Decimal `json:"reading"   validate:"min=0"`
}

type StartShiftRequest struct {
	StaffID         string                `json:"staff_id"         validate:"required,uuid"`
	PumpID          string                `json:"pump_id"          validate:"required,max=50"`
	ShiftType       string                `json:"shift_type"       validate:"omitempty,oneof=morning evening night day"`
	StartingCash    decimal.Decimal       `json:"starting_cash"    validate:"min=0"`
	OpeningReadings []OpeningReadingInput `json:"opening_readings" validate:"dive"`
}

type UpdateClosingReadingRequest struct {
	FuelType model.FuelType  `json:"fuel_type" validate:"required"`
	Value    numeric.Lenient `json:"value"`
}

type SetChannelRequest struct {
	Field string          `json:"field" validate:"required,oneof=card_sales upi_sales cash_sales indent_sales"`
	Value numeric.Lenient `json:"value"`
}

type SetTestingRequest struct {
	FuelType model.FuelType  `json:"fuel_type" validate:"required"`
	Value    numeric.Lenient `json:"value"`
}

type UpdateReturnedRequest struct {
	AllocationID string          `json:"allocation_id" validate:"required,uuid"`
	Quantity     numeric.Lenient `json:"quantity"`
}

type UpdateCashRequest struct {
	CashRemaining *numeric.Lenient `json:"cash_remaining"`
	Expenses      *numeric.Lenient `json:"expenses"`
}

type CloseShiftRequest struct {
	StartSuccessor   bool            `json:"start_successor"`
	SuccessorStaffID string          `json:"successor_staff_id" validate:"omitempty,uuid"`
	CashGiven        decimal.Decimal `json:"cash_given"         validate:"min=0"`
}

type SuccessorRequest struct {
	StaffID   string          `json:"staff_id"   validate:"omitempty,uuid"`
	CashGiven decimal.Decimal `json:"cash_given" validate:"min=0"`
}

type EditShiftRequest struct {
	CashRemaining   *decimal.Decimal           `json:"cash_remaining"`
	Notes           *string                    `json:"notes"            validate:"omitempty,max=500"`
	CardSales       *decimal.Decimal           `json:"card_sales"`
	UpiSales        *decimal.Decimal           `json:"upi_sales"`
	CashSales       *decimal.Decimal           `json:"cash_sales"`
	IndentSales     *decimal.Decimal           `json:"indent_sales"`
	Expenses        *decimal.Decimal           `json:"expenses"`
	ClosingReadings map[string]decimal.Decimal `json:"closing_readings"`
}

type AllocateConsumableRequest struct {
	ConsumableID string          `json:"consumable_id" validate:"required,uuid"`
	Quantity     decimal.Decimal `json:"quantity"      validate:"gt=0"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ShiftFilter struct {
	Status  string `form:"status"   validate:"omitempty,oneof=active completed"`
	StaffID string `form:"staff_id" validate:"omitempty,uuid"`
	PumpID  string `form:"pump_id"`
	Page    int    `form:"page,default=1"   validate:"min=1"`
	Limit   int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ReadingResponse struct {
	FuelType       model.FuelType   `json:"fuel_type"`
	OpeningReading decimal.Decimal  `json:"opening_reading"`
	ClosingReading *decimal.Decimal `json:"closing_reading"`
	Dispensed      decimal.Decimal  `json:"dispensed"`
	TestingFuel    decimal.Decimal  `json:"testing_fuel"`
}

type ShiftResponse struct {
	ID            string            `json:"id"`
	StaffID       string            `json:"staff_id"`
	StaffName     string            `json:"staff_name"`
	PumpID        string            `json:"pump_id"`
	ShiftType     string            `json:"shift_type"`
	Status        string            `json:"status"`
	StartTime     string            `json:"start_time"`
	EndTime       *string           `json:"end_time"`
	StartingCash  decimal.Decimal   `json:"starting_cash"`
	CashRemaining *decimal.Decimal  `json:"cash_remaining"`
	Notes         *string           `json:"notes"`
	Sales         *SalesResponse    `json:"sales,omitempty"`
	Readings      []ReadingResponse `json:"readings"`
}

type ShiftListResponse struct {
	Data       []ShiftResponse `json:"data"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

type UsageResponse struct {
	PerFuelType map[model.FuelType]decimal.Decimal `json:"per_fuel_type"`
	TotalLiters decimal.Decimal                    `json:"total_liters"`
}

type SalesResponse struct {
	CardSales     decimal.Decimal                    `json:"card_sales"`
	UpiSales      decimal.Decimal                    `json:"upi_sales"`
	CashSales     decimal.Decimal                    `json:"cash_sales"`
	IndentSales   decimal.Decimal                    `json:"indent_sales"`
	IndentSource  string                             `json:"indent_source"`
	TestingFuel   decimal.Decimal                    `json:"testing_fuel"`
	TestingByType map[model.FuelType]decimal.Decimal `json:"testing_by_type"`
	TotalSales    decimal.Decimal                    `json:"total_sales"`
}

type ConsumableResponse struct {
	AllocationID      string          `json:"allocation_id"`
	ConsumableID      string          `json:"consumable_id"`
	Name              string          `json:"name"`
	Unit              string          `json:"unit"`
	PricePerUnit      decimal.Decimal `json:"price_per_unit"`
	QuantityAllocated decimal.Decimal `json:"quantity_allocated"`
	QuantityReturned  decimal.Decimal `json:"quantity_returned"`
	QuantitySold      decimal.Decimal `json:"quantity_sold"`
	Revenue           decimal.Decimal `json:"revenue"`
	Status            string          `json:"status"`
}

type ReconciliationResponse struct {
	CashSales         decimal.Decimal `json:"cash_sales"`
	CashRemaining     decimal.Decimal `json:"cash_remaining"`
	Expenses          decimal.Decimal `json:"expenses"`
	ExpectedCash      decimal.Decimal `json:"expected_cash"`
	Difference        decimal.Decimal `json:"difference"`
	Flagged           bool            `json:"flagged"`
	Threshold         decimal.Decimal `json:"threshold"`
	ConsumableRevenue decimal.Decimal `json:"consumable_revenue"`
	Attribution       string          `json:"attribution"` // unattributed | cash
}

type CloseDraftResponse struct {
	ShiftID             string                             `json:"shift_id"`
	Status              string                             `json:"status"`
	Readings            []ReadingResponse                  `json:"readings"`
	Usage               UsageResponse                      `json:"usage"`
	Sales               SalesResponse                      `json:"sales"`
	Consumables         []ConsumableResponse               `json:"consumables"`
	ConsumableRevenue   decimal.Decimal                    `json:"consumable_revenue"`
	Reconciliation      ReconciliationResponse             `json:"reconciliation"`
	FuelPrices          map[model.FuelType]decimal.Decimal `json:"fuel_prices"`
	ExpectedSalesAmount map[model.FuelType]decimal.Decimal `json:"expected_sales_amount"`
	LoadErrors          []string                           `json:"load_errors"`
	Warnings            []string                           `json:"warnings"`
}

type CloseShiftResponse struct {
	Shift          ShiftResponse          `json:"shift"`
	Reconciliation ReconciliationResponse `json:"reconciliation"`
	Successor      *ShiftResponse         `json:"successor,omitempty"`
	Warnings       []string               `json:"warnings"`
}

type StaffResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type FuelPricesResponse struct {
	Prices map[model.FuelType]decimal.Decimal `json:"prices"`
}

type SuccessorResponse struct {
	Successor *ShiftResponse `json:"successor"`
	Warnings  []string       `json:"warnings"`
}
