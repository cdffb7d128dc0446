package repository

import (
	"context"

	"fuelpump/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StaffRepository interface {
	Create(ctx context.Context, s *model.Staff) error
	FindByUsername(ctx context.Context, username string) (*model.Staff, error)
	FindByID(ctx context.Context, fuelPumpID, id uuid.UUID) (*model.Staff, error)
	// ListAvailable returns active staff of the tenant with no active shift.
	ListAvailable(ctx context.Context, fuelPumpID uuid.UUID) ([]model.Staff, error)
}

type staffRepo struct{ db *gorm.DB }

func NewStaffRepository(db *gorm.DB) StaffRepository { return &staffRepo{db: db} }

func (r *staffRepo) Create(ctx context.Context, s *model.Staff) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *staffRepo) FindByUsername(ctx context.Context, username string) (*model.Staff, error) {
	var s model.Staff
	err := r.db.WithContext(ctx).
		Where("(username = ? OR LOWER(email) = LOWER(?)) AND active = ?", username, username, true).
		First(&s).Error
	return &s, err
}

func (r *staffRepo) FindByID(ctx context.Context, fuelPumpID, id uuid.UUID) (*model.Staff, error) {
	var s model.Staff
	err := r.db.WithContext(ctx).Where("id = ? AND fuel_pump_id = ?", id, fuelPumpID).First(&s).Error
	return &s, err
}

func (r *staffRepo) ListAvailable(ctx context.Context, fuelPumpID uuid.UUID) ([]model.Staff, error) {
	var staff []model.Staff
	err := r.db.WithContext(ctx).
		Where("fuel_pump_id = ? AND active = ?", fuelPumpID, true).
		Where("NOT EXISTS (SELECT 1 FROM shifts WHERE shifts.staff_id = staff.id AND shifts.status = ?)", model.ShiftActive).
		Order("name ASC").
		Find(&staff).Error
	return staff, err
}
