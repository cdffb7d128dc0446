package service

import (
	"context"
	"testing"
	"time"

	"fuelpump/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalSales(t *testing.T) {
	s := NewSalesState()
	require.NoError(t, s.SetChannel(ChannelCard, 500))
	require.NoError(t, s.SetChannel(ChannelUPI, "300"))
	require.NoError(t, s.SetChannel(ChannelCash, 400.0))
	assert.True(t, s.TotalSales().Equal(dec("1200")))
}

func TestSetChannel(t *testing.T) {
	s := NewSalesState()

	require.NoError(t, s.SetChannel(ChannelCash, "-20"))
	assert.True(t, s.CashSales.IsZero(), "negative input is stored as 0")

	require.NoError(t, s.SetChannel(ChannelCard, "n/a"))
	assert.True(t, s.CardSales.IsZero())

	require.NoError(t, s.SetChannel(ChannelIndent, "150"))
	assert.Equal(t, model.IndentManual, s.IndentSource)

	var verr *ValidationError
	require.ErrorAs(t, s.SetChannel("cheque_sales", 1), &verr)
}

func TestSetTestingByType_NumericKeyCollides(t *testing.T) {
	s := NewSalesState()
	s.SetTestingByType(1, 5)
	s.SetTestingByType("1", 7)

	require.Len(t, s.TestingByType, 1)
	assert.True(t, s.TestingByType["1"].Equal(dec("7")))
	assert.True(t, s.TestingFuel.Equal(dec("7")))
}

func TestSetTestingByType_AggregateIsSum(t *testing.T) {
	s := NewSalesState()
	s.SetTestingByType("Petrol", "2.5")
	s.SetTestingByType("diesel", 3)
	assert.True(t, s.TestingFuel.Equal(dec("5.5")))

	s.SetTestingByType("Diesel", "junk")
	assert.True(t, s.TestingByType["Diesel"].IsZero())
	assert.True(t, s.TestingFuel.Equal(dec("2.5")))
}

func TestApplyIndent_RespectsManualOverride(t *testing.T) {
	s := NewSalesState()
	assert.True(t, s.ApplyIndent(dec("500")))
	assert.True(t, s.IndentSales.Equal(dec("500")))

	require.NoError(t, s.SetChannel(ChannelIndent, 80))
	assert.False(t, s.ApplyIndent(dec("900")))
	assert.True(t, s.IndentSales.Equal(dec("80")))
}

func TestComputeIndentSales_CoercesAmounts(t *testing.T) {
	f := newFixture()
	staff := f.addStaff("s1", model.RoleStaff)
	other := f.addStaff("s2", model.RoleStaff)
	start := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	f.transactions.txns = []fakeTxn{
		{staffID: staff.ID, amount: "200", createdAt: start.Add(time.Hour)},
		{staffID: staff.ID, amount: "300", createdAt: start.Add(2 * time.Hour)},
		{staffID: staff.ID, amount: "bogus", createdAt: start.Add(3 * time.Hour)},
		{staffID: staff.ID, amount: "999", createdAt: end.Add(time.Minute)},
		{staffID: other.ID, amount: "50", createdAt: start.Add(time.Hour)},
	}
	agg := NewSalesAggregator(f.shifts, f.transactions)

	total, err := agg.ComputeIndentSales(context.Background(), f.session(staff), staff.ID, start, &end)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("500")), total.String())
}

func TestComputeIndentSales_OpenEndedUsesNow(t *testing.T) {
	f := newFixture()
	staff := f.addStaff("s1", model.RoleStaff)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.transactions.txns = []fakeTxn{
		{staffID: staff.ID, amount: "40", createdAt: now.Add(-time.Hour)},
		{staffID: staff.ID, amount: "60", createdAt: now.Add(time.Hour)},
	}
	agg := NewSalesAggregator(f.shifts, f.transactions)
	agg.now = func() time.Time { return now }

	total, err := agg.ComputeIndentSales(context.Background(), f.session(staff), staff.ID, now.Add(-4*time.Hour), nil)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("40")))
}

func TestLoadInitial_SeedsFromLatestRowAndIndent(t *testing.T) {
	f := newFixture()
	staff := f.addStaff("s1", model.RoleStaff)
	shift := f.activeShift(staff, map[string]string{"Petrol": "1000", "Diesel": "2000"})

	rows := f.shifts.readings[shift.ID]
	rows[0].CreatedAt = shift.StartTime
	rows[0].CardSales = dec("10")
	rows[1].CreatedAt = shift.StartTime.Add(time.Minute)
	rows[1].CardSales = dec("25")
	rows[1].TestingFuel = dec("3")

	f.transactions.txns = []fakeTxn{{staffID: staff.ID, amount: "120", createdAt: shift.StartTime.Add(time.Hour)}}
	agg := NewSalesAggregator(f.shifts, f.transactions)

	state, errs := agg.LoadInitial(context.Background(), f.session(staff), shift.ID, &staff.ID)
	assert.Empty(t, errs)
	assert.True(t, state.CardSales.Equal(dec("25")))
	assert.True(t, state.IndentSales.Equal(dec("120")))
	assert.Equal(t, model.IndentAuto, state.IndentSource)
	assert.True(t, state.TestingFuel.Equal(dec("3")))
	assert.True(t, state.TestingByType[rows[1].FuelType].Equal(dec("3")))
}

func TestLoadInitial_ReadFailuresAreAbsorbed(t *testing.T) {
	f := newFixture()
	staff := f.addStaff("s1", model.RoleStaff)
	shift := f.activeShift(staff, map[string]string{"Petrol": "1000"})
	f.shifts.listReadingsErr = errStorage
	f.transactions.err = errStorage
	agg := NewSalesAggregator(f.shifts, f.transactions)

	state, errs := agg.LoadInitial(context.Background(), f.session(staff), shift.ID, &staff.ID)
	assert.Len(t, errs, 2)
	assert.True(t, state.TotalSales().IsZero())
	assert.Equal(t, model.IndentAuto, state.IndentSource)
}
