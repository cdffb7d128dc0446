package service

import (
	"context"

	"fuelpump/internal/numeric"
	"fuelpump/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	unknownConsumableName = "Unknown Item"
	defaultConsumableUnit = "unit"
)

// ConsumableItem is one allocation with its item metadata.
// 0 <= QuantityReturned <= QuantityAllocated.
type ConsumableItem struct {
	AllocationID      uuid.UUID       `json:"allocation_id"`
	ConsumableID      uuid.UUID       `json:"consumable_id"`
	Name              string          `json:"name"`
	Unit              string          `json:"unit"`
	PricePerUnit      decimal.Decimal `json:"price_per_unit"`
	QuantityAllocated decimal.Decimal `json:"quantity_allocated"`
	QuantityReturned  decimal.Decimal `json:"quantity_returned"`
	Status            string          `json:"status"`
}

func (i ConsumableItem) Sold() decimal.Decimal {
	return i.QuantityAllocated.Sub(i.QuantityReturned)
}

func (i ConsumableItem) Revenue() decimal.Decimal {
	return i.Sold().Mul(i.PricePerUnit)
}

// ConsumablesState holds the returned quantities being entered at shift end.
type ConsumablesState struct {
	Items []ConsumableItem `json:"items"`
}

// InitializeReturned seeds the state from the persisted returned quantities.
func InitializeReturned(allocated []ConsumableItem) ConsumablesState {
	items := make([]ConsumableItem, len(allocated))
	for i, it := range allocated {
		it.QuantityReturned = clampReturned(it.QuantityReturned, it.QuantityAllocated)
		items[i] = it
	}
	return ConsumablesState{Items: items}
}

// UpdateReturned sets the returned quantity of one allocation, clamped to
// [0, allocated]. Non-numeric input counts as 0.
func (s *ConsumablesState) UpdateReturned(allocationID uuid.UUID, quantity any) error {
	for i := range s.Items {
		if s.Items[i].AllocationID == allocationID {
			s.Items[i].QuantityReturned = clampReturned(numeric.Coerce(quantity), s.Items[i].QuantityAllocated)
			return nil
		}
	}
	return NewValidationError("allocation_id", "consumable not allocated to this shift")
}

// Revenue is the sum of (allocated - returned) * price over all items.
func (s *ConsumablesState) Revenue() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Revenue())
	}
	return total
}

// Returns lists the dispositions written when the shift is finalized.
func (s *ConsumablesState) Returns() []repository.ConsumableReturn {
	out := make([]repository.ConsumableReturn, len(s.Items))
	for i, it := range s.Items {
		out[i] = repository.ConsumableReturn{
			AllocationID:     it.AllocationID,
			ConsumableID:     it.ConsumableID,
			QuantityReturned: it.QuantityReturned,
		}
	}
	return out
}

func clampReturned(q, allocated decimal.Decimal) decimal.Decimal {
	if q.IsNegative() {
		return decimal.Zero
	}
	if q.GreaterThan(allocated) {
		return allocated
	}
	return q
}

// ── ConsumablesReconciler ─────────────────────────────────────────────────────

type ConsumablesReconciler struct {
	repo repository.ConsumableRepository
}

func NewConsumablesReconciler(repo repository.ConsumableRepository) *ConsumablesReconciler {
	return &ConsumablesReconciler{repo: repo}
}

// LoadAllocated returns the shift's allocations. Missing item metadata falls
// back to "Unknown Item", price 0 and unit "unit". No allocations is an empty
// slice, not an error.
func (r *ConsumablesReconciler) LoadAllocated(ctx context.Context, shiftID uuid.UUID) ([]ConsumableItem, error) {
	rows, err := r.repo.ListByShift(ctx, shiftID)
	if err != nil {
		log.Warn().Err(err).Str("shift_id", shiftID.String()).Msg("consumables: load failed")
		return []ConsumableItem{}, &LoadError{Source: "consumables", Err: err}
	}

	items := make([]ConsumableItem, 0, len(rows))
	for _, row := range rows {
		it := ConsumableItem{
			AllocationID:      row.ID,
			ConsumableID:      row.ConsumableID,
			Name:              unknownConsumableName,
			Unit:              defaultConsumableUnit,
			PricePerUnit:      decimal.Zero,
			QuantityAllocated: row.QuantityAllocated,
			QuantityReturned:  row.QuantityReturned,
			Status:            row.Status,
		}
		if c := row.Consumable; c != nil {
			if c.Name != "" {
				it.Name = c.Name
			}
			if c.Unit != "" {
				it.Unit = c.Unit
			}
			it.PricePerUnit = c.PricePerUnit
		}
		items = append(items, it)
	}
	return items, nil
}
