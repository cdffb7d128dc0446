package service

import (
	"context"
	"testing"
	"time"

	"fuelpump/internal/infra"
	"fuelpump/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingEntryDispensed(t *testing.T) {
	e := ReadingEntry{OpeningReading: dec("1000"), ClosingReading: dec("1200")}
	assert.True(t, e.Dispensed().Equal(dec("200")))

	e.ClosingReading = dec("900")
	assert.True(t, e.Dispensed().IsZero(), "negative movement is never reported")
}

func TestComputeUsage_TwoFuelTypes(t *testing.T) {
	u := ComputeUsage([]ReadingEntry{
		{FuelType: "Petrol", OpeningReading: dec("1000"), ClosingReading: dec("1150")},
		{FuelType: "Diesel", OpeningReading: dec("2000"), ClosingReading: dec("2400")},
	})
	assert.True(t, u.PerFuelType["Petrol"].Equal(dec("150")))
	assert.True(t, u.PerFuelType["Diesel"].Equal(dec("400")))
	assert.True(t, u.TotalLiters.Equal(dec("550")))
}

func TestComputeUsage_CollidingKeysAreSummed(t *testing.T) {
	u := ComputeUsage([]ReadingEntry{
		{FuelType: "petrol", OpeningReading: dec("0"), ClosingReading: dec("10")},
		{FuelType: " Petrol ", OpeningReading: dec("0"), ClosingReading: dec("5")},
	})
	require.Len(t, u.PerFuelType, 1)
	assert.True(t, u.PerFuelType["Petrol"].Equal(dec("15")))
}

func TestUpdateClosingReading(t *testing.T) {
	state := ReadingsState{Entries: []ReadingEntry{
		{FuelType: "Petrol", OpeningReading: dec("1000"), ClosingReading: dec("1000")},
	}}

	require.NoError(t, state.UpdateClosingReading("petrol", "1200.5"))
	assert.True(t, state.Entries[0].ClosingReading.Equal(dec("1200.5")))
	assert.True(t, state.Entries[0].Entered)

	t.Run("non-numeric falls back to opening", func(t *testing.T) {
		require.NoError(t, state.UpdateClosingReading("Petrol", "abc"))
		assert.True(t, state.Entries[0].ClosingReading.Equal(dec("1000")))
		assert.False(t, state.Entries[0].Entered)
	})

	t.Run("unknown fuel type", func(t *testing.T) {
		err := state.UpdateClosingReading("Diesel", 10)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "fuel_type")
	})
}

func TestLoadReadings(t *testing.T) {
	f := newFixture()
	staff := f.addStaff("ana", model.RoleStaff)
	shift := f.activeShift(staff, map[string]string{"diesel": "2000", "Petrol": "1000"})
	tracker := NewReadingsTracker(f.shifts, f.settings, nil, 0)

	state, err := tracker.LoadReadings(context.Background(), shift.ID)
	require.NoError(t, err)
	require.Len(t, state.Entries, 2)
	assert.Equal(t, model.FuelType("Diesel"), state.Entries[0].FuelType)
	assert.Equal(t, model.FuelType("Petrol"), state.Entries[1].FuelType)
	assert.True(t, state.Entries[1].ClosingReading.Equal(dec("1000")), "closing defaults to opening")
	assert.False(t, state.Entries[1].Entered)
}

func TestLoadReadings_FailureYieldsEmptyState(t *testing.T) {
	f := newFixture()
	f.shifts.listReadingsErr = errStorage
	tracker := NewReadingsTracker(f.shifts, f.settings, nil, 0)

	state, err := tracker.LoadReadings(context.Background(), f.tenant)
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "readings", lerr.Source)
	assert.NotNil(t, state.Entries)
	assert.Empty(t, state.Entries)
}

func TestFetchCurrentFuelPrices_Cached(t *testing.T) {
	f := newFixture()
	f.settings.settings = []model.FuelSetting{
		{FuelPumpID: f.tenant, FuelType: "petrol", CurrentPrice: dec("102.5")},
		{FuelPumpID: f.tenant, FuelType: "Diesel", CurrentPrice: dec("90")},
	}
	tracker := NewReadingsTracker(f.shifts, f.settings, infra.NewMemoryCache(0), time.Minute)
	sess := Session{FuelPumpID: f.tenant}

	prices := tracker.FetchCurrentFuelPrices(context.Background(), sess)
	assert.True(t, prices["Petrol"].Equal(dec("102.5")))
	assert.True(t, prices["Diesel"].Equal(dec("90")))

	again := tracker.FetchCurrentFuelPrices(context.Background(), sess)
	assert.True(t, again["Petrol"].Equal(dec("102.5")))
	assert.Equal(t, 1, f.settings.calls)
}

func TestFetchCurrentFuelPrices_FailureIsEmpty(t *testing.T) {
	f := newFixture()
	f.settings.err = errStorage
	tracker := NewReadingsTracker(f.shifts, f.settings, nil, 0)

	prices := tracker.FetchCurrentFuelPrices(context.Background(), Session{FuelPumpID: f.tenant})
	assert.NotNil(t, prices)
	assert.Empty(t, prices)
}

func TestExpectedSalesAmount(t *testing.T) {
	usage := ComputeUsage([]ReadingEntry{
		{FuelType: "Petrol", OpeningReading: dec("0"), ClosingReading: dec("100")},
		{FuelType: "Diesel", OpeningReading: dec("0"), ClosingReading: dec("5")},
		{FuelType: "CNG", OpeningReading: dec("0"), ClosingReading: dec("50")},
	})
	testingFuel := map[model.FuelType]decimal.Decimal{"Petrol": dec("2"), "Diesel": dec("8")}
	prices := map[model.FuelType]decimal.Decimal{"Petrol": dec("100.333"), "Diesel": dec("90")}

	got := ExpectedSalesAmount(usage, testingFuel, prices)
	assert.True(t, got["Petrol"].Equal(dec("9832.63")), got["Petrol"].String())
	assert.True(t, got["Diesel"].IsZero(), "testing above dispensed clamps to zero")
	assert.True(t, got["CNG"].IsZero(), "no price, no amount")
}
