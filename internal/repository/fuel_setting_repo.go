package repository

import (
	"context"

	"fuelpump/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FuelSettingRepository interface {
	List(ctx context.Context, fuelPumpID uuid.UUID) ([]model.FuelSetting, error)
}

type fuelSettingRepo struct{ db *gorm.DB }

func NewFuelSettingRepository(db *gorm.DB) FuelSettingRepository { return &fuelSettingRepo{db: db} }

func (r *fuelSettingRepo) List(ctx context.Context, fuelPumpID uuid.UUID) ([]model.FuelSetting, error) {
	var settings []model.FuelSetting
	err := r.db.WithContext(ctx).Where("fuel_pump_id = ?", fuelPumpID).Order("fuel_type ASC").Find(&settings).Error
	return settings, err
}
