package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"fuelpump/internal/infra"
	"fuelpump/internal/model"
	"fuelpump/internal/numeric"
	"fuelpump/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ReadingEntry is one fuel type's meter pair inside a close draft.
// Entered is false while ClosingReading is still the opening fallback.
type ReadingEntry struct {
	FuelType       model.FuelType  `json:"fuel_type"`
	OpeningReading decimal.Decimal `json:"opening_reading"`
	ClosingReading decimal.Decimal `json:"closing_reading"`
	Entered        bool            `json:"entered"`
}

// Dispensed is max(0, closing - opening).
func (e ReadingEntry) Dispensed() decimal.Decimal {
	d := e.ClosingReading.Sub(e.OpeningReading)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ReadingsState is the uncommitted set of readings of one shift.
type ReadingsState struct {
	Entries []ReadingEntry `json:"entries"`
}

// Usage is the dispensed volume per fuel type and in total.
type Usage struct {
	PerFuelType map[model.FuelType]decimal.Decimal
	TotalLiters decimal.Decimal
}

// ComputeUsage derives dispensed volumes. Entries whose fuel types normalize
// to the same key are summed into one.
func ComputeUsage(entries []ReadingEntry) Usage {
	u := Usage{PerFuelType: make(map[model.FuelType]decimal.Decimal, len(entries))}
	for _, e := range entries {
		key := model.NormalizeFuelType(e.FuelType)
		v := e.Dispensed()
		u.PerFuelType[key] = u.PerFuelType[key].Add(v)
		u.TotalLiters = u.TotalLiters.Add(v)
	}
	return u
}

func (s *ReadingsState) Usage() Usage { return ComputeUsage(s.Entries) }

// UpdateClosingReading sets the closing value of one fuel type. A value that
// is not a number falls back to the opening reading.
func (s *ReadingsState) UpdateClosingReading(fuelType any, value any) error {
	key := model.NormalizeFuelType(fuelType)
	for i := range s.Entries {
		if s.Entries[i].FuelType != key {
			continue
		}
		if v, ok := numeric.Parse(value); ok {
			s.Entries[i].ClosingReading = v
			s.Entries[i].Entered = true
		} else {
			s.Entries[i].ClosingReading = s.Entries[i].OpeningReading
			s.Entries[i].Entered = false
		}
		return nil
	}
	return NewValidationError("fuel_type", "no reading for fuel type "+string(key))
}

// Closing returns the closing value of every fuel type.
func (s *ReadingsState) Closing() map[model.FuelType]decimal.Decimal {
	out := make(map[model.FuelType]decimal.Decimal, len(s.Entries))
	for _, e := range s.Entries {
		out[e.FuelType] = e.ClosingReading
	}
	return out
}

// ── ReadingsTracker ───────────────────────────────────────────────────────────

type ReadingsTracker struct {
	shifts   repository.ShiftRepository
	settings repository.FuelSettingRepository
	cache    infra.Cache
	priceTTL time.Duration
}

// NewReadingsTracker builds the tracker. cache may be nil, in which case
// fuel prices are always read from the repository.
func NewReadingsTracker(shifts repository.ShiftRepository, settings repository.FuelSettingRepository, cache infra.Cache, priceTTL time.Duration) *ReadingsTracker {
	return &ReadingsTracker{shifts: shifts, settings: settings, cache: cache, priceTTL: priceTTL}
}

// LoadReadings returns the shift's readings ordered by fuel type. Closing
// defaults to opening until one is recorded. On a read failure the state is
// empty and the error is a *LoadError.
func (t *ReadingsTracker) LoadReadings(ctx context.Context, shiftID uuid.UUID) (ReadingsState, error) {
	rows, err := t.shifts.ListReadings(ctx, shiftID)
	if err != nil {
		log.Warn().Err(err).Str("shift_id", shiftID.String()).Msg("readings: load failed")
		return ReadingsState{Entries: []ReadingEntry{}}, &LoadError{Source: "readings", Err: err}
	}

	state := ReadingsState{Entries: make([]ReadingEntry, 0, len(rows))}
	for _, r := range rows {
		e := ReadingEntry{
			FuelType:       model.NormalizeFuelType(r.FuelType),
			OpeningReading: r.OpeningReading,
			ClosingReading: r.OpeningReading,
		}
		if r.ClosingReading != nil {
			e.ClosingReading = *r.ClosingReading
			e.Entered = true
		}
		state.Entries = append(state.Entries, e)
	}
	sort.SliceStable(state.Entries, func(i, j int) bool {
		return state.Entries[i].FuelType < state.Entries[j].FuelType
	})
	return state, nil
}

// FetchCurrentFuelPrices returns fuel type → current price for the tenant.
// Failures are logged and yield an empty map.
func (t *ReadingsTracker) FetchCurrentFuelPrices(ctx context.Context, sess Session) map[model.FuelType]decimal.Decimal {
	key := "fuel_prices:" + sess.FuelPumpID.String()
	if t.cache != nil {
		if raw, ok, err := t.cache.Get(ctx, key); err == nil && ok {
			var cached map[model.FuelType]decimal.Decimal
			if json.Unmarshal(raw, &cached) == nil {
				return cached
			}
		}
	}

	settings, err := t.settings.List(ctx, sess.FuelPumpID)
	if err != nil {
		log.Warn().Err(err).Str("fuel_pump_id", sess.FuelPumpID.String()).Msg("readings: fuel prices unavailable")
		return map[model.FuelType]decimal.Decimal{}
	}
	prices := make(map[model.FuelType]decimal.Decimal, len(settings))
	for _, s := range settings {
		prices[model.NormalizeFuelType(s.FuelType)] = s.CurrentPrice
	}

	if t.cache != nil && t.priceTTL > 0 {
		if raw, err := json.Marshal(prices); err == nil {
			if err := t.cache.Set(ctx, key, raw, t.priceTTL); err != nil {
				log.Debug().Err(err).Msg("readings: price cache write failed")
			}
		}
	}
	return prices
}

// ExpectedSalesAmount is (dispensed - testing) * price per fuel type, never
// negative. Fuel types without a price yield zero.
func ExpectedSalesAmount(usage Usage, testing map[model.FuelType]decimal.Decimal, prices map[model.FuelType]decimal.Decimal) map[model.FuelType]decimal.Decimal {
	out := make(map[model.FuelType]decimal.Decimal, len(usage.PerFuelType))
	for ft, liters := range usage.PerFuelType {
		sold := liters.Sub(testing[ft])
		if sold.IsNegative() {
			sold = decimal.Zero
		}
		out[ft] = sold.Mul(prices[ft]).Round(2)
	}
	return out
}
