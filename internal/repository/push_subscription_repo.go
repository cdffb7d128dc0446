package repository

import (
	"context"

	"fuelpump/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PushSubscriptionRepository interface {
	// Upsert registers the endpoint, replacing the keys when it already exists.
	Upsert(ctx context.Context, p *model.PushSubscription) error
	ListByFuelPump(ctx context.Context, fuelPumpID uuid.UUID) ([]model.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type pushSubscriptionRepo struct{ db *gorm.DB }

func NewPushSubscriptionRepository(db *gorm.DB) PushSubscriptionRepository {
	return &pushSubscriptionRepo{db: db}
}

func (r *pushSubscriptionRepo) Upsert(ctx context.Context, p *model.PushSubscription) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"fuel_pump_id", "staff_id", "p256dh", "auth"}),
	}).Create(p).Error
}

func (r *pushSubscriptionRepo) ListByFuelPump(ctx context.Context, fuelPumpID uuid.UUID) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := r.db.WithContext(ctx).Where("fuel_pump_id = ?", fuelPumpID).Find(&subs).Error
	return subs, err
}

func (r *pushSubscriptionRepo) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	return r.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error
}
