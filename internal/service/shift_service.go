package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"fuelpump/internal/dto"
	"fuelpump/internal/model"
	"fuelpump/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportEnqueuer hands a closed shift to the background report pipeline.
type ReportEnqueuer interface {
	EnqueueShiftReport(ctx context.Context, payload dto.ShiftReportPayload) error
}

type ShiftService interface {
	StartShift(ctx context.Context, sess Session, req dto.StartShiftRequest) (*dto.ShiftResponse, error)
	List(ctx context.Context, sess Session, filter dto.ShiftFilter) (*dto.ShiftListResponse, error)
	Mine(ctx context.Context, sess Session) (*dto.ShiftResponse, error)
	Get(ctx context.Context, sess Session, id uuid.UUID) (*dto.ShiftResponse, error)

	// Close draft
	GetDraft(ctx context.Context, sess Session, id uuid.UUID) (*dto.CloseDraftResponse, error)
	UpdateClosingReading(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateClosingReadingRequest) (*dto.CloseDraftResponse, error)
	SetChannel(ctx context.Context, sess Session, id uuid.UUID, req dto.SetChannelRequest) (*dto.CloseDraftResponse, error)
	SetTesting(ctx context.Context, sess Session, id uuid.UUID, req dto.SetTestingRequest) (*dto.CloseDraftResponse, error)
	UpdateReturned(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateReturnedRequest) (*dto.CloseDraftResponse, error)
	UpdateCash(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateCashRequest) (*dto.CloseDraftResponse, error)
	AllocateConsumable(ctx context.Context, sess Session, id uuid.UUID, req dto.AllocateConsumableRequest) (*dto.CloseDraftResponse, error)

	Close(ctx context.Context, sess Session, id uuid.UUID, req dto.CloseShiftRequest) (*dto.CloseShiftResponse, error)
	StartSuccessor(ctx context.Context, sess Session, id uuid.UUID, req dto.SuccessorRequest) (*dto.SuccessorResponse, error)

	// Admin
	Edit(ctx context.Context, sess Session, id uuid.UUID, req dto.EditShiftRequest) (*dto.ShiftResponse, error)
	Delete(ctx context.Context, sess Session, id uuid.UUID) error

	AvailableStaff(ctx context.Context, sess Session) ([]dto.StaffResponse, error)
	FuelPrices(ctx context.Context, sess Session) dto.FuelPricesResponse
}

// ShiftServiceDeps wires the shift service. Reports may be nil.
type ShiftServiceDeps struct {
	Shifts      repository.ShiftRepository
	Staff       repository.StaffRepository
	Settings    repository.FuelSettingRepository
	Consumables repository.ConsumableRepository
	Readings    *ReadingsTracker
	Sales       *SalesAggregator
	Reconciler  *ConsumablesReconciler
	Cash        *CashReconciler
	Drafts      *DraftStore
	Reports     ReportEnqueuer
}

type shiftService struct {
	ShiftServiceDeps
	now func() time.Time
}

func NewShiftService(deps ShiftServiceDeps) ShiftService {
	return &shiftService{ShiftServiceDeps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// ── StartShift ────────────────────────────────────────────────────────────────
// Openings: request value, else the pump's last closing reading, else the
// fuel type's baseline, else 0.

func (s *shiftService) StartShift(ctx context.Context, sess Session, req dto.StartShiftRequest) (*dto.ShiftResponse, error) {
	staffID, err := uuid.Parse(req.StaffID)
	if err != nil {
		return nil, NewValidationError("staff_id", "invalid id")
	}

	openings := map[model.FuelType]decimal.Decimal{}
	settings, err := s.Settings.List(ctx, sess.FuelPumpID)
	if err != nil {
		return nil, &PersistenceError{Op: "list_fuel_settings", Err: err}
	}
	for _, st := range settings {
		openings[model.NormalizeFuelType(st.FuelType)] = st.BaselineReading
	}
	last, err := s.Shifts.LastClosingReadings(ctx, sess.FuelPumpID, req.PumpID)
	if err != nil {
		return nil, &PersistenceError{Op: "last_closing_readings", Err: err}
	}
	for ft, v := range last {
		openings[model.NormalizeFuelType(ft)] = v
	}
	for _, in := range req.OpeningReadings {
		openings[model.NormalizeFuelType(in.FuelType)] = in.Reading
	}

	shiftType := req.ShiftType
	if shiftType == "" {
		shiftType = model.ShiftDay
	}
	shift, err := openShift(ctx, s.Shifts, s.Staff, sess, openShiftParams{
		StaffID:      staffID,
		PumpID:       req.PumpID,
		ShiftType:    shiftType,
		StartingCash: req.StartingCash,
		Openings:     openings,
		StartTime:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("shift_id", shift.ID.String()).Str("pump_id", shift.PumpID).Msg("shift started")
	resp := toShiftResponse(shift)
	return &resp, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *shiftService) List(ctx context.Context, sess Session, filter dto.ShiftFilter) (*dto.ShiftListResponse, error) {
	if sess.IsStaff() {
		filter.StaffID = sess.StaffID.String()
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	shifts, total, err := s.Shifts.List(ctx, sess.FuelPumpID, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ShiftResponse, len(shifts))
	for i := range shifts {
		data[i] = toShiftResponse(&shifts[i])
	}
	return &dto.ShiftListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *shiftService) Mine(ctx context.Context, sess Session) (*dto.ShiftResponse, error) {
	shift, err := s.Shifts.FindActiveByStaff(ctx, sess.FuelPumpID, sess.StaffID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShiftNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, sess, shift.ID)
}

func (s *shiftService) Get(ctx context.Context, sess Session, id uuid.UUID) (*dto.ShiftResponse, error) {
	shift, err := s.findShift(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	resp := toShiftResponse(shift)
	return &resp, nil
}

// ── Close draft ───────────────────────────────────────────────────────────────

func (s *shiftService) GetDraft(ctx context.Context, sess Session, id uuid.UUID) (*dto.CloseDraftResponse, error) {
	shift, err := s.activeShift(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	draft := s.loadDraft(ctx, sess, shift)
	return s.draftView(ctx, sess, shift, draft), nil
}

func (s *shiftService) UpdateClosingReading(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateClosingReadingRequest) (*dto.CloseDraftResponse, error) {
	return s.mutateDraft(ctx, sess, id, func(d *CloseDraft) error {
		return d.Readings.UpdateClosingReading(req.FuelType, req.Value.Raw)
	})
}

func (s *shiftService) SetChannel(ctx context.Context, sess Session, id uuid.UUID, req dto.SetChannelRequest) (*dto.CloseDraftResponse, error) {
	return s.mutateDraft(ctx, sess, id, func(d *CloseDraft) error {
		return d.Sales.SetChannel(req.Field, req.Value.Raw)
	})
}

func (s *shiftService) SetTesting(ctx context.Context, sess Session, id uuid.UUID, req dto.SetTestingRequest) (*dto.CloseDraftResponse, error) {
	return s.mutateDraft(ctx, sess, id, func(d *CloseDraft) error {
		d.Sales.SetTestingByType(req.FuelType, req.Value.Raw)
		return nil
	})
}

func (s *shiftService) UpdateReturned(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateReturnedRequest) (*dto.CloseDraftResponse, error) {
	allocationID, err := uuid.Parse(req.AllocationID)
	if err != nil {
		return nil, NewValidationError("allocation_id", "invalid id")
	}
	return s.mutateDraft(ctx, sess, id, func(d *CloseDraft) error {
		return d.Consumables.UpdateReturned(allocationID, req.Quantity.Raw)
	})
}

func (s *shiftService) UpdateCash(ctx context.Context, sess Session, id uuid.UUID, req dto.UpdateCashRequest) (*dto.CloseDraftResponse, error) {
	return s.mutateDraft(ctx, sess, id, func(d *CloseDraft) error {
		if req.CashRemaining != nil {
			d.CashRemaining = req.CashRemaining.Or(decimal.Zero)
			if d.CashRemaining.IsNegative() {
				d.CashRemaining = decimal.Zero
			}
		}
		if req.Expenses != nil {
			d.Expenses = req.Expenses.Or(decimal.Zero)
			if d.Expenses.IsNegative() {
				d.Expenses = decimal.Zero
			}
		}
		return nil
	})
}

func (s *shiftService) AllocateConsumable(ctx context.Context, sess Session, id uuid.UUID, req dto.AllocateConsumableRequest) (*dto.CloseDraftResponse, error) {
	consumableID, err := uuid.Parse(req.ConsumableID)
	if err != nil {
		return nil, NewValidationError("consumable_id", "invalid id")
	}
	shift, err := s.activeShift(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	alloc := &model.ShiftConsumable{
		ShiftID:           shift.ID,
		ConsumableID:      consumableID,
		QuantityAllocated: req.Quantity,
	}
	if err := s.Consumables.Allocate(ctx, sess.FuelPumpID, alloc); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, NewValidationError("quantity", "unknown consumable or not enough stock")
		}
		return nil, &PersistenceError{Op: "allocate_consumable", Err: err}
	}

	draft := s.loadDraft(ctx, sess, shift)
	items, loadErr := s.Reconciler.LoadAllocated(ctx, shift.ID)
	if loadErr == nil {
		returned := map[uuid.UUID]decimal.Decimal{}
		for _, it := range draft.Consumables.Items {
			returned[it.AllocationID] = it.QuantityReturned
		}
		for i := range items {
			if q, ok := returned[items[i].AllocationID]; ok {
				items[i].QuantityReturned = q
			}
		}
		draft.Consumables = InitializeReturned(items)
		s.saveDraft(ctx, draft)
	}
	return s.draftView(ctx, sess, shift, draft), nil
}

// ── Close ─────────────────────────────────────────────────────────────────────

func (s *shiftService) Close(ctx context.Context, sess Session, id uuid.UUID, req dto.CloseShiftRequest) (*dto.CloseShiftResponse, error) {
	shift, err := s.activeShift(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	var successorStaff *uuid.UUID
	noStaff := false
	if req.StartSuccessor {
		if req.SuccessorStaffID != "" {
			sid, err := uuid.Parse(req.SuccessorStaffID)
			if err != nil {
				return nil, NewValidationError("successor_staff_id", "invalid id")
			}
			successorStaff = &sid
		} else {
			available, err := s.Staff.ListAvailable(ctx, sess.FuelPumpID)
			if err != nil {
				return nil, &PersistenceError{Op: "list_available_staff", Err: err}
			}
			if len(available) > 0 {
				return nil, NewValidationError("successor_staff_id", "select the staff member for the next shift")
			}
			noStaff = true
		}
	}

	draft := s.loadDraft(ctx, sess, shift)
	if len(draft.LoadErrors) > 0 {
		return nil, ErrDraftIncomplete
	}
	rec, err := s.Cash.CloseShift(ctx, sess, shift, draft)
	if err != nil {
		return nil, err
	}
	if err := s.Drafts.Delete(ctx, shift.ID); err != nil {
		log.Warn().Err(err).Str("shift_id", shift.ID.String()).Msg("shift: draft cleanup failed")
	}

	resp := &dto.CloseShiftResponse{Reconciliation: toReconciliationResponse(rec), Warnings: []string{}}
	if rec.Flagged {
		resp.Warnings = append(resp.Warnings, WarnVarianceExceedsThreshold)
	}

	switch {
	case noStaff:
		resp.Warnings = append(resp.Warnings, WarnNoStaffAvailable)
	case req.StartSuccessor:
		next, warn, err := s.Cash.StartSuccessorShift(ctx, sess, shift, successorStaff, draft.Readings.Closing(), req.CashGiven)
		switch {
		case err != nil:
			log.Error().Err(err).Str("shift_id", shift.ID.String()).Msg("shift: successor not started")
			resp.Warnings = append(resp.Warnings, WarnSuccessorFailed)
		case warn != "":
			resp.Warnings = append(resp.Warnings, warn)
		default:
			succ := toShiftResponse(next)
			resp.Successor = &succ
		}
	}

	closed, err := s.Shifts.FindByID(ctx, sess.FuelPumpID, shift.ID)
	if err != nil {
		closed = shift
	}
	resp.Shift = toShiftResponse(closed)

	s.enqueueReport(ctx, sess, closed, draft, rec, resp.Warnings)
	return resp, nil
}

func (s *shiftService) StartSuccessor(ctx context.Context, sess Session, id uuid.UUID, req dto.SuccessorRequest) (*dto.SuccessorResponse, error) {
	prev, err := s.findShift(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if prev.IsActive() {
		return nil, NewValidationError("shift", "close the shift before starting its successor")
	}

	var staffID *uuid.UUID
	if req.StaffID != "" {
		sid, err := uuid.Parse(req.StaffID)
		if err != nil {
			return nil, NewValidationError("staff_id", "invalid id")
		}
		staffID = &sid
	}

	openings := make(map[model.FuelType]decimal.Decimal, len(prev.Readings))
	for _, r := range prev.Readings {
		if r.ClosingReading != nil {
			openings[model.NormalizeFuelType(r.FuelType)] = *r.ClosingReading
		} else {
			openings[model.NormalizeFuelType(r.FuelType)] = r.OpeningReading
		}
	}

	next, warn, err := s.Cash.StartSuccessorShift(ctx, sess, prev, staffID, openings, req.CashGiven)
	if err != nil {
		return nil, err
	}
	resp := &dto.SuccessorResponse{Warnings: []string{}}
	if warn != "" {
		resp.Warnings = append(resp.Warnings, warn)
	}
	if next != nil {
		succ := toShiftResponse(next)
		resp.Successor = &succ
	}
	return resp, nil
}

// ── Admin ─────────────────────────────────────────────────────────────────────

func (s *shiftService) Edit(ctx context.Context, sess Session, id uuid.UUID, req dto.EditShiftRequest) (*dto.ShiftResponse, error) {
	if sess.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	shift, err := s.findShift(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if shift.IsActive() {
		return nil, NewValidationError("status", "only completed shifts can be edited")
	}

	edit := repository.ShiftEdit{
		CashRemaining: req.CashRemaining,
		Notes:         req.Notes,
		CardSales:     req.CardSales,
		UpiSales:      req.UpiSales,
		CashSales:     req.CashSales,
		IndentSales:   req.IndentSales,
		Expenses:      req.Expenses,
	}
	verr := &ValidationError{}
	for name, v := range map[string]*decimal.Decimal{
		"cash_remaining": req.CashRemaining, "card_sales": req.CardSales, "upi_sales": req.UpiSales,
		"cash_sales": req.CashSales, "indent_sales": req.IndentSales, "expenses": req.Expenses,
	} {
		if v != nil && v.IsNegative() {
			verr.Add(name, "must not be negative")
		}
	}
	if len(req.ClosingReadings) > 0 {
		opening := map[model.FuelType]decimal.Decimal{}
		for _, r := range shift.Readings {
			opening[model.NormalizeFuelType(r.FuelType)] = r.OpeningReading
		}
		edit.ClosingReadings = map[model.FuelType]decimal.Decimal{}
		for raw, v := range req.ClosingReadings {
			ft := model.NormalizeFuelType(raw)
			open, ok := opening[ft]
			field := "closing_readings." + string(ft)
			switch {
			case !ok:
				verr.Add(field, "no reading for fuel type")
			case !v.GreaterThan(open):
				verr.Add(field, "closing reading must be greater than opening reading "+open.String())
			default:
				edit.ClosingReadings[ft] = v
			}
		}
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	if err := s.Shifts.UpdateCompleted(ctx, sess.FuelPumpID, id, edit); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, &PersistenceError{Op: "edit_shift", Err: err}
	}
	log.Info().Str("shift_id", id.String()).Str("admin_id", sess.StaffID.String()).Msg("completed shift edited")
	return s.Get(ctx, sess, id)
}

func (s *shiftService) Delete(ctx context.Context, sess Session, id uuid.UUID) error {
	if sess.Role != model.RoleAdmin {
		return ErrForbidden
	}
	if err := s.Shifts.Delete(ctx, sess.FuelPumpID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShiftNotFound
		}
		return &PersistenceError{Op: "delete_shift", Err: err}
	}
	if err := s.Drafts.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("shift_id", id.String()).Msg("shift: draft cleanup failed")
	}
	log.Info().Str("shift_id", id.String()).Str("admin_id", sess.StaffID.String()).Msg("shift deleted")
	return nil
}

func (s *shiftService) AvailableStaff(ctx context.Context, sess Session) ([]dto.StaffResponse, error) {
	staff, err := s.Staff.ListAvailable(ctx, sess.FuelPumpID)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.StaffResponse, len(staff))
	for i, st := range staff {
		resp[i] = toStaffResponse(&st)
	}
	return resp, nil
}

func (s *shiftService) FuelPrices(ctx context.Context, sess Session) dto.FuelPricesResponse {
	return dto.FuelPricesResponse{Prices: s.Readings.FetchCurrentFuelPrices(ctx, sess)}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *shiftService) findShift(ctx context.Context, sess Session, id uuid.UUID) (*model.Shift, error) {
	shift, err := s.Shifts.FindByID(ctx, sess.FuelPumpID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShiftNotFound
	}
	if err != nil {
		return nil, err
	}
	if !sess.canActOn(shift) {
		return nil, ErrForbidden
	}
	return shift, nil
}

func (s *shiftService) activeShift(ctx context.Context, sess Session, id uuid.UUID) (*model.Shift, error) {
	shift, err := s.findShift(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if !shift.IsActive() {
		return nil, ErrShiftNotActive
	}
	return shift, nil
}

func (s *shiftService) mutateDraft(ctx context.Context, sess Session, id uuid.UUID, fn func(*CloseDraft) error) (*dto.CloseDraftResponse, error) {
	shift, err := s.activeShift(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	draft := s.loadDraft(ctx, sess, shift)
	if len(draft.LoadErrors) > 0 {
		return nil, ErrDraftIncomplete
	}
	if err := fn(draft); err != nil {
		return nil, err
	}
	if err := s.Drafts.Save(ctx, draft); err != nil {
		return nil, &PersistenceError{Op: "save_draft", Err: err}
	}
	return s.draftView(ctx, sess, shift, draft), nil
}

// loadDraft returns the cached draft or builds a fresh one from storage.
// A cached draft of an active shift gets its indent running total refreshed.
func (s *shiftService) loadDraft(ctx context.Context, sess Session, shift *model.Shift) *CloseDraft {
	if d, ok, err := s.Drafts.Get(ctx, shift.ID); err != nil {
		log.Warn().Err(err).Str("shift_id", shift.ID.String()).Msg("shift: draft read failed, rebuilding")
	} else if ok {
		if shift.IsActive() {
			s.refreshIndent(ctx, sess, shift, d)
		}
		return d
	}

	d := &CloseDraft{ShiftID: shift.ID, StaffID: shift.StaffID, CreatedAt: s.now(), LoadErrors: []string{}}

	readings, err := s.Readings.LoadReadings(ctx, shift.ID)
	if err != nil {
		d.LoadErrors = append(d.LoadErrors, err.Error())
	}
	d.Readings = readings

	staffID := shift.StaffID
	sales, errs := s.Sales.LoadInitial(ctx, sess, shift.ID, &staffID)
	for _, e := range errs {
		d.LoadErrors = append(d.LoadErrors, e.Error())
	}
	d.Sales = sales

	items, err := s.Reconciler.LoadAllocated(ctx, shift.ID)
	if err != nil {
		d.LoadErrors = append(d.LoadErrors, err.Error())
	}
	d.Consumables = InitializeReturned(items)

	if shift.CashRemaining != nil {
		d.CashRemaining = *shift.CashRemaining
	}

	// drafts built from partial data are not cached so the next request retries
	if len(d.LoadErrors) == 0 {
		s.saveDraft(ctx, d)
	}
	return d
}

// refreshIndent recomputes the indent total up to now. Manual values are kept
// and a failed lookup leaves the cached total in place.
func (s *shiftService) refreshIndent(ctx context.Context, sess Session, shift *model.Shift, d *CloseDraft) {
	if d.Sales.IndentSource == model.IndentManual {
		return
	}
	amount, err := s.Sales.ComputeIndentSales(ctx, sess, shift.StaffID, shift.StartTime, nil)
	if err != nil {
		return
	}
	if !amount.Equal(d.Sales.IndentSales) && d.Sales.ApplyIndent(amount) {
		s.saveDraft(ctx, d)
	}
}

func (s *shiftService) saveDraft(ctx context.Context, d *CloseDraft) {
	if err := s.Drafts.Save(ctx, d); err != nil {
		log.Warn().Err(err).Str("shift_id", d.ShiftID.String()).Msg("shift: draft save failed")
	}
}

func (s *shiftService) draftView(ctx context.Context, sess Session, shift *model.Shift, d *CloseDraft) *dto.CloseDraftResponse {
	usage := d.Readings.Usage()
	prices := s.Readings.FetchCurrentFuelPrices(ctx, sess)
	revenue := d.Consumables.Revenue()
	rec := s.Cash.Reconcile(d.Sales.CashSales, d.CashRemaining, d.Expenses, revenue)

	resp := &dto.CloseDraftResponse{
		ShiftID:             shift.ID.String(),
		Status:              shift.Status,
		Readings:            toDraftReadings(d),
		Usage:               toUsageResponse(usage),
		Sales:               toSalesResponse(&d.Sales),
		Consumables:         toConsumableResponses(d.Consumables.Items),
		ConsumableRevenue:   revenue,
		Reconciliation:      toReconciliationResponse(rec),
		FuelPrices:          prices,
		ExpectedSalesAmount: ExpectedSalesAmount(usage, d.Sales.TestingByType, prices),
		LoadErrors:          d.LoadErrors,
		Warnings:            []string{},
	}
	if resp.LoadErrors == nil {
		resp.LoadErrors = []string{}
	}
	if rec.Flagged {
		resp.Warnings = append(resp.Warnings, WarnVarianceExceedsThreshold)
	}
	return resp
}

func (s *shiftService) enqueueReport(ctx context.Context, sess Session, shift *model.Shift, d *CloseDraft, rec Reconciliation, warnings []string) {
	if s.Reports == nil {
		return
	}
	payload := dto.ShiftReportPayload{
		ShiftID:        shift.ID.String(),
		FuelPumpID:     sess.FuelPumpID.String(),
		PumpID:         shift.PumpID,
		ShiftType:      shift.ShiftType,
		StartTime:      shift.StartTime.Format(time.RFC3339),
		Readings:       toDraftReadings(d),
		Usage:          toUsageResponse(d.Readings.Usage()),
		Sales:          toSalesResponse(&d.Sales),
		Consumables:    toConsumableResponses(d.Consumables.Items),
		Reconciliation: toReconciliationResponse(rec),
		Warnings:       warnings,
	}
	if shift.EndTime != nil {
		payload.EndTime = shift.EndTime.Format(time.RFC3339)
	}
	if shift.Staff != nil {
		payload.StaffName = shift.Staff.Name
	}
	if err := s.Reports.EnqueueShiftReport(ctx, payload); err != nil {
		log.Error().Err(err).Str("shift_id", shift.ID.String()).Msg("shift: report enqueue failed")
	}
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func toShiftResponse(shift *model.Shift) dto.ShiftResponse {
	resp := dto.ShiftResponse{
		ID:            shift.ID.String(),
		StaffID:       shift.StaffID.String(),
		PumpID:        shift.PumpID,
		ShiftType:     shift.ShiftType,
		Status:        shift.Status,
		StartTime:     shift.StartTime.Format(time.RFC3339),
		StartingCash:  shift.StartingCashBalance,
		CashRemaining: shift.CashRemaining,
		Notes:         shift.Notes,
		Readings:      make([]dto.ReadingResponse, 0, len(shift.Readings)),
	}
	if shift.Staff != nil {
		resp.StaffName = shift.Staff.Name
	}
	if shift.EndTime != nil {
		t := shift.EndTime.Format(time.RFC3339)
		resp.EndTime = &t
	}

	readings := append([]model.Reading(nil), shift.Readings...)
	sort.Slice(readings, func(i, j int) bool { return readings[i].FuelType < readings[j].FuelType })
	for _, r := range readings {
		rr := dto.ReadingResponse{
			FuelType:       model.NormalizeFuelType(r.FuelType),
			OpeningReading: r.OpeningReading,
			ClosingReading: r.ClosingReading,
			TestingFuel:    r.TestingFuel,
		}
		if r.ClosingReading != nil {
			rr.Dispensed = ReadingEntry{OpeningReading: r.OpeningReading, ClosingReading: *r.ClosingReading}.Dispensed()
		}
		resp.Readings = append(resp.Readings, rr)
	}

	if shift.Status == model.ShiftCompleted && len(readings) > 0 {
		sales := NewSalesState()
		first := readings[0]
		sales.CardSales, sales.UpiSales, sales.CashSales = first.CardSales, first.UpiSales, first.CashSales
		sales.IndentSales, sales.IndentSource = first.IndentSales, first.IndentSource
		for _, r := range readings {
			sales.SetTestingByType(r.FuelType, r.TestingFuel)
		}
		sr := toSalesResponse(&sales)
		resp.Sales = &sr
	}
	return resp
}

func toDraftReadings(d *CloseDraft) []dto.ReadingResponse {
	out := make([]dto.ReadingResponse, 0, len(d.Readings.Entries))
	for _, e := range d.Readings.Entries {
		rr := dto.ReadingResponse{
			FuelType:       e.FuelType,
			OpeningReading: e.OpeningReading,
			Dispensed:      e.Dispensed(),
			TestingFuel:    d.Sales.TestingByType[e.FuelType],
		}
		if e.Entered {
			closing := e.ClosingReading
			rr.ClosingReading = &closing
		}
		out = append(out, rr)
	}
	return out
}

func toUsageResponse(u Usage) dto.UsageResponse {
	return dto.UsageResponse{PerFuelType: u.PerFuelType, TotalLiters: u.TotalLiters}
}

func toSalesResponse(s *SalesState) dto.SalesResponse {
	byType := s.TestingByType
	if byType == nil {
		byType = map[model.FuelType]decimal.Decimal{}
	}
	return dto.SalesResponse{
		CardSales:     s.CardSales,
		UpiSales:      s.UpiSales,
		CashSales:     s.CashSales,
		IndentSales:   s.IndentSales,
		IndentSource:  s.IndentSource,
		TestingFuel:   s.TestingFuel,
		TestingByType: byType,
		TotalSales:    s.TotalSales(),
	}
}

func toConsumableResponses(items []ConsumableItem) []dto.ConsumableResponse {
	out := make([]dto.ConsumableResponse, len(items))
	for i, it := range items {
		out[i] = dto.ConsumableResponse{
			AllocationID:      it.AllocationID.String(),
			ConsumableID:      it.ConsumableID.String(),
			Name:              it.Name,
			Unit:              it.Unit,
			PricePerUnit:      it.PricePerUnit,
			QuantityAllocated: it.QuantityAllocated,
			QuantityReturned:  it.QuantityReturned,
			QuantitySold:      it.Sold(),
			Revenue:           it.Revenue(),
			Status:            it.Status,
		}
	}
	return out
}

func toReconciliationResponse(r Reconciliation) dto.ReconciliationResponse {
	return dto.ReconciliationResponse{
		CashSales:         r.CashSales,
		CashRemaining:     r.CashRemaining,
		Expenses:          r.Expenses,
		ExpectedCash:      r.Expected,
		Difference:        r.Difference,
		Flagged:           r.Flagged,
		Threshold:         r.Threshold,
		ConsumableRevenue: r.ConsumableRevenue,
		Attribution:       r.Attribution,
	}
}

func toStaffResponse(st *model.Staff) dto.StaffResponse {
	return dto.StaffResponse{ID: st.ID.String(), Name: st.Name, Username: st.Username, Role: st.Role}
}
