package service

import (
	"context"
	"encoding/json"
	"time"

	"fuelpump/internal/infra"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CloseDraft is the uncommitted shift-end form: readings, sales, consumable
// returns and counted cash. It lives in the cache until the shift is closed.
type CloseDraft struct {
	ShiftID       uuid.UUID        `json:"shift_id"`
	StaffID       uuid.UUID        `json:"staff_id"`
	Readings      ReadingsState    `json:"readings"`
	Sales         SalesState       `json:"sales"`
	Consumables   ConsumablesState `json:"consumables"`
	CashRemaining decimal.Decimal  `json:"cash_remaining"`
	Expenses      decimal.Decimal  `json:"expenses"`
	LoadErrors    []string         `json:"load_errors"`
	CreatedAt     time.Time        `json:"created_at"`
}

// DraftStore keeps close drafts in a Cache as JSON.
type DraftStore struct {
	cache infra.Cache
	ttl   time.Duration
}

func NewDraftStore(cache infra.Cache, ttl time.Duration) *DraftStore {
	return &DraftStore{cache: cache, ttl: ttl}
}

func draftKey(shiftID uuid.UUID) string { return "shift_draft:" + shiftID.String() }

// Get returns the stored draft, or false when none exists or it expired.
func (s *DraftStore) Get(ctx context.Context, shiftID uuid.UUID) (*CloseDraft, bool, error) {
	raw, ok, err := s.cache.Get(ctx, draftKey(shiftID))
	if err != nil || !ok {
		return nil, false, err
	}
	var d CloseDraft
	if err := json.Unmarshal(raw, &d); err != nil {
		// unreadable drafts are rebuilt from storage
		return nil, false, nil
	}
	return &d, true, nil
}

func (s *DraftStore) Save(ctx context.Context, d *CloseDraft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, draftKey(d.ShiftID), raw, s.ttl)
}

func (s *DraftStore) Delete(ctx context.Context, shiftID uuid.UUID) error {
	return s.cache.Delete(ctx, draftKey(shiftID))
}
