package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"fuelpump/internal/dto"
	"fuelpump/internal/model"
	"fuelpump/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory ShiftRepository ─────────────────────────────────────────────────

type fakeShiftRepo struct {
	mu       sync.Mutex
	shifts   map[uuid.UUID]*model.Shift
	readings map[uuid.UUID][]model.Reading
	staff    *fakeStaffRepo

	listReadingsErr error
	finalizeErr     error
	finalizeCalls   int
	finalized       []repository.Finalization
}

var _ repository.ShiftRepository = (*fakeShiftRepo)(nil)

func newFakeShiftRepo() *fakeShiftRepo {
	return &fakeShiftRepo{
		shifts:   make(map[uuid.UUID]*model.Shift),
		readings: make(map[uuid.UUID][]model.Reading),
	}
}

func (r *fakeShiftRepo) Create(_ context.Context, s *model.Shift, readings []model.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	for i := range readings {
		readings[i].ID = uuid.New()
		readings[i].ShiftID = s.ID
		readings[i].CreatedAt = now
	}
	cp := *s
	cp.Readings = nil
	r.shifts[s.ID] = &cp
	r.readings[s.ID] = append([]model.Reading(nil), readings...)
	return nil
}

// seed stores a shift and its readings as-is.
func (r *fakeShiftRepo) seed(s model.Shift, readings ...model.Reading) *model.Shift {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for i := range readings {
		if readings[i].ID == uuid.Nil {
			readings[i].ID = uuid.New()
		}
		readings[i].ShiftID = s.ID
	}
	_ = r.Create(context.Background(), &s, readings)
	return r.shifts[s.ID]
}

func (r *fakeShiftRepo) FindByID(_ context.Context, fuelPumpID, id uuid.UUID) (*model.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shifts[id]
	if !ok || s.FuelPumpID != fuelPumpID {
		return nil, gorm.ErrRecordNotFound
	}
	return r.hydrate(s), nil
}

func (r *fakeShiftRepo) hydrate(s *model.Shift) *model.Shift {
	cp := *s
	cp.Readings = append([]model.Reading(nil), r.readings[s.ID]...)
	if r.staff != nil {
		if st, ok := r.staff.staff[s.StaffID]; ok {
			stCopy := *st
			cp.Staff = &stCopy
		}
	}
	return &cp
}

func (r *fakeShiftRepo) findActive(match func(*model.Shift) bool) (*model.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.shifts {
		if s.Status == model.ShiftActive && match(s) {
			return r.hydrate(s), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeShiftRepo) FindActiveByStaff(_ context.Context, fuelPumpID, staffID uuid.UUID) (*model.Shift, error) {
	return r.findActive(func(s *model.Shift) bool { return s.FuelPumpID == fuelPumpID && s.StaffID == staffID })
}

func (r *fakeShiftRepo) FindActiveByPump(_ context.Context, fuelPumpID uuid.UUID, pumpID string) (*model.Shift, error) {
	return r.findActive(func(s *model.Shift) bool { return s.FuelPumpID == fuelPumpID && s.PumpID == pumpID })
}

func (r *fakeShiftRepo) List(_ context.Context, fuelPumpID uuid.UUID, f dto.ShiftFilter) ([]model.Shift, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Shift
	for _, s := range r.shifts {
		if s.FuelPumpID != fuelPumpID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.StaffID != "" && s.StaffID.String() != f.StaffID {
			continue
		}
		out = append(out, *r.hydrate(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, int64(len(out)), nil
}

func (r *fakeShiftRepo) ListReadings(_ context.Context, shiftID uuid.UUID) ([]model.Reading, error) {
	if r.listReadingsErr != nil {
		return nil, r.listReadingsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Reading(nil), r.readings[shiftID]...), nil
}

func (r *fakeShiftRepo) LastClosingReadings(_ context.Context, fuelPumpID uuid.UUID, pumpID string) (map[model.FuelType]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *model.Shift
	for _, s := range r.shifts {
		if s.FuelPumpID != fuelPumpID || s.PumpID != pumpID || s.Status != model.ShiftCompleted || s.EndTime == nil {
			continue
		}
		if last == nil || s.EndTime.After(*last.EndTime) {
			last = s
		}
	}
	out := map[model.FuelType]decimal.Decimal{}
	if last == nil {
		return out, nil
	}
	for _, rd := range r.readings[last.ID] {
		if rd.ClosingReading != nil {
			out[rd.FuelType] = *rd.ClosingReading
		}
	}
	return out, nil
}

func (r *fakeShiftRepo) FinalizeShift(_ context.Context, f repository.Finalization) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalizeCalls++
	if r.finalizeErr != nil {
		return r.finalizeErr
	}
	s, ok := r.shifts[f.ShiftID]
	if !ok || s.FuelPumpID != f.FuelPumpID || s.Status != model.ShiftActive {
		return repository.ErrShiftNotActive
	}
	s.Status = model.ShiftCompleted
	end := f.EndTime
	s.EndTime = &end
	cash := f.CashRemaining
	s.CashRemaining = &cash

	rows := r.readings[f.ShiftID]
	for _, rc := range f.Readings {
		for i := range rows {
			if rows[i].FuelType != rc.FuelType {
				continue
			}
			closing := rc.ClosingReading
			rows[i].ClosingReading = &closing
			rows[i].CardSales = rc.CardSales
			rows[i].UpiSales = rc.UpiSales
			rows[i].CashSales = rc.CashSales
			rows[i].IndentSales = rc.IndentSales
			rows[i].IndentSource = rc.IndentSource
			rows[i].TestingFuel = rc.TestingFuel
			rows[i].Expenses = rc.Expenses
			rows[i].ConsumableExpenses = rc.ConsumableExpenses
			rows[i].CashRemaining = rc.CashRemaining
		}
	}
	r.finalized = append(r.finalized, f)
	return nil
}

func (r *fakeShiftRepo) UpdateCompleted(_ context.Context, fuelPumpID, id uuid.UUID, edit repository.ShiftEdit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shifts[id]
	if !ok || s.FuelPumpID != fuelPumpID {
		return gorm.ErrRecordNotFound
	}
	if edit.CashRemaining != nil {
		s.CashRemaining = edit.CashRemaining
	}
	if edit.Notes != nil {
		s.Notes = edit.Notes
	}
	rows := r.readings[id]
	for i := range rows {
		if v, ok := edit.ClosingReadings[rows[i].FuelType]; ok {
			closing := v
			rows[i].ClosingReading = &closing
		}
		if edit.IndentSales != nil {
			rows[i].IndentSales = *edit.IndentSales
			rows[i].IndentSource = model.IndentManual
		}
	}
	return nil
}

func (r *fakeShiftRepo) Delete(_ context.Context, fuelPumpID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shifts[id]
	if !ok || s.FuelPumpID != fuelPumpID {
		return gorm.ErrRecordNotFound
	}
	delete(r.shifts, id)
	delete(r.readings, id)
	return nil
}

// ── In-memory StaffRepository ─────────────────────────────────────────────────

type fakeStaffRepo struct {
	staff  map[uuid.UUID]*model.Staff
	shifts *fakeShiftRepo
}

var _ repository.StaffRepository = (*fakeStaffRepo)(nil)

func (r *fakeStaffRepo) Create(_ context.Context, s *model.Staff) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.staff[s.ID] = s
	return nil
}

func (r *fakeStaffRepo) FindByUsername(_ context.Context, username string) (*model.Staff, error) {
	for _, s := range r.staff {
		if s.Username == username && s.Active {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeStaffRepo) FindByID(_ context.Context, fuelPumpID, id uuid.UUID) (*model.Staff, error) {
	s, ok := r.staff[id]
	if !ok || s.FuelPumpID != fuelPumpID {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *fakeStaffRepo) ListAvailable(ctx context.Context, fuelPumpID uuid.UUID) ([]model.Staff, error) {
	var out []model.Staff
	for _, s := range r.staff {
		if s.FuelPumpID != fuelPumpID || !s.Active {
			continue
		}
		if _, err := r.shifts.FindActiveByStaff(ctx, fuelPumpID, s.ID); err == nil {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ── Settings / consumables / transactions ─────────────────────────────────────

type fakeSettingsRepo struct {
	settings []model.FuelSetting
	err      error
	calls    int
}

var _ repository.FuelSettingRepository = (*fakeSettingsRepo)(nil)

func (r *fakeSettingsRepo) List(_ context.Context, fuelPumpID uuid.UUID) ([]model.FuelSetting, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	var out []model.FuelSetting
	for _, s := range r.settings {
		if s.FuelPumpID == fuelPumpID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeConsumableRepo struct {
	items  map[uuid.UUID]*model.Consumable
	allocs []model.ShiftConsumable
	err    error
}

var _ repository.ConsumableRepository = (*fakeConsumableRepo)(nil)

func (r *fakeConsumableRepo) ListByShift(_ context.Context, shiftID uuid.UUID) ([]model.ShiftConsumable, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []model.ShiftConsumable
	for _, a := range r.allocs {
		if a.ShiftID == shiftID {
			if c, ok := r.items[a.ConsumableID]; ok {
				cp := *c
				a.Consumable = &cp
			}
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeConsumableRepo) Allocate(_ context.Context, fuelPumpID uuid.UUID, sc *model.ShiftConsumable) error {
	c, ok := r.items[sc.ConsumableID]
	if !ok || c.FuelPumpID != fuelPumpID || c.Quantity.LessThan(sc.QuantityAllocated) {
		return repository.ErrInsufficientStock
	}
	c.Quantity = c.Quantity.Sub(sc.QuantityAllocated)
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	sc.Status = model.ConsumableAllocated
	r.allocs = append(r.allocs, *sc)
	return nil
}

func (r *fakeConsumableRepo) List(_ context.Context, fuelPumpID uuid.UUID) ([]model.Consumable, error) {
	var out []model.Consumable
	for _, c := range r.items {
		if c.FuelPumpID == fuelPumpID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeTxn struct {
	staffID   uuid.UUID
	amount    string
	createdAt time.Time
}

type fakeTransactionRepo struct {
	txns []fakeTxn
	err  error
}

var _ repository.TransactionRepository = (*fakeTransactionRepo)(nil)

func (r *fakeTransactionRepo) ListIndentAmounts(_ context.Context, _, staffID uuid.UUID, start, end time.Time) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []string
	for _, t := range r.txns {
		if t.staffID == staffID && !t.createdAt.Before(start) && !t.createdAt.After(end) {
			out = append(out, t.amount)
		}
	}
	return out, nil
}

func (r *fakeTransactionRepo) Create(_ context.Context, t *model.Transaction) error {
	var staff uuid.UUID
	if t.StaffID != nil {
		staff = *t.StaffID
	}
	r.txns = append(r.txns, fakeTxn{staffID: staff, amount: t.Amount.String(), createdAt: t.CreatedAt})
	return nil
}

// ── Fixture ───────────────────────────────────────────────────────────────────

var errStorage = errors.New("storage unavailable")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type fixture struct {
	tenant       uuid.UUID
	shifts       *fakeShiftRepo
	staff        *fakeStaffRepo
	settings     *fakeSettingsRepo
	consumables  *fakeConsumableRepo
	transactions *fakeTransactionRepo
}

func newFixture() *fixture {
	f := &fixture{
		tenant:       uuid.New(),
		shifts:       newFakeShiftRepo(),
		settings:     &fakeSettingsRepo{},
		consumables:  &fakeConsumableRepo{items: map[uuid.UUID]*model.Consumable{}},
		transactions: &fakeTransactionRepo{},
	}
	f.staff = &fakeStaffRepo{staff: map[uuid.UUID]*model.Staff{}, shifts: f.shifts}
	f.shifts.staff = f.staff
	return f
}

func (f *fixture) addStaff(name, role string) *model.Staff {
	s := &model.Staff{ID: uuid.New(), FuelPumpID: f.tenant, Name: name, Username: name, Role: role, Active: true}
	f.staff.staff[s.ID] = s
	return s
}

func (f *fixture) session(s *model.Staff) Session {
	return Session{FuelPumpID: f.tenant, StaffID: s.ID, Role: s.Role}
}

// activeShift seeds an active shift with one reading per opening value.
func (f *fixture) activeShift(staff *model.Staff, openings map[string]string) *model.Shift {
	start := time.Now().UTC().Add(-8 * time.Hour).Truncate(time.Second)
	var readings []model.Reading
	for ft, v := range openings {
		readings = append(readings, model.Reading{
			FuelPumpID:     f.tenant,
			StaffID:        staff.ID,
			PumpID:         "P1",
			FuelType:       model.NormalizeFuelType(ft),
			OpeningReading: dec(v),
			IndentSource:   model.IndentAuto,
			Date:           start,
		})
	}
	return f.shifts.seed(model.Shift{
		FuelPumpID: f.tenant,
		StaffID:    staff.ID,
		PumpID:     "P1",
		ShiftType:  model.ShiftMorning,
		Status:     model.ShiftActive,
		StartTime:  start,
	}, readings...)
}
