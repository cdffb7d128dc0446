package service

import (
	"context"
	"testing"

	"fuelpump/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumableRevenue(t *testing.T) {
	id := uuid.New()
	state := InitializeReturned([]ConsumableItem{
		{AllocationID: id, Name: "Engine Oil", PricePerUnit: dec("50"), QuantityAllocated: dec("10")},
	})

	require.NoError(t, state.UpdateReturned(id, 3))
	assert.True(t, state.Items[0].Sold().Equal(dec("7")))
	assert.True(t, state.Revenue().Equal(dec("350")))
}

func TestUpdateReturned_Clamps(t *testing.T) {
	id := uuid.New()
	state := InitializeReturned([]ConsumableItem{{AllocationID: id, PricePerUnit: dec("5"), QuantityAllocated: dec("4")}})

	cases := []struct {
		in   any
		want string
	}{
		{in: 9, want: "4"},
		{in: "-2", want: "0"},
		{in: "abc", want: "0"},
		{in: "2.5", want: "2.5"},
	}
	for _, tc := range cases {
		require.NoError(t, state.UpdateReturned(id, tc.in))
		assert.True(t, state.Items[0].QuantityReturned.Equal(dec(tc.want)), "input %v", tc.in)
	}

	var verr *ValidationError
	require.ErrorAs(t, state.UpdateReturned(uuid.New(), 1), &verr)
}

func TestInitializeReturned_ClampsPersistedValues(t *testing.T) {
	state := InitializeReturned([]ConsumableItem{{QuantityAllocated: dec("3"), QuantityReturned: dec("8")}})
	assert.True(t, state.Items[0].QuantityReturned.Equal(dec("3")))
	assert.True(t, state.Revenue().IsZero())
}

func TestLoadAllocated(t *testing.T) {
	f := newFixture()
	shiftID := uuid.New()
	oil := &model.Consumable{ID: uuid.New(), FuelPumpID: f.tenant, Name: "Engine Oil", Unit: "bottle", PricePerUnit: dec("250")}
	f.consumables.items[oil.ID] = oil
	f.consumables.allocs = []model.ShiftConsumable{
		{ID: uuid.New(), ShiftID: shiftID, ConsumableID: oil.ID, QuantityAllocated: dec("4"), Status: model.ConsumableAllocated},
		{ID: uuid.New(), ShiftID: shiftID, ConsumableID: uuid.New(), QuantityAllocated: dec("2"), Status: model.ConsumableAllocated},
	}
	rec := NewConsumablesReconciler(f.consumables)

	items, err := rec.LoadAllocated(context.Background(), shiftID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Engine Oil", items[0].Name)
	assert.Equal(t, "bottle", items[0].Unit)
	assert.Equal(t, "Unknown Item", items[1].Name)
	assert.Equal(t, "unit", items[1].Unit)
	assert.True(t, items[1].PricePerUnit.IsZero())
}

func TestLoadAllocated_EmptyAndFailure(t *testing.T) {
	f := newFixture()
	rec := NewConsumablesReconciler(f.consumables)

	items, err := rec.LoadAllocated(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	f.consumables.err = errStorage
	items, err = rec.LoadAllocated(context.Background(), uuid.New())
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Empty(t, items)
}
