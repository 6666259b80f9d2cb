package repository

import (
	"context"

	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorProfileRepository interface {
	Create(ctx context.Context, db *gorm.DB, profile *entity.DoctorProfile) error
	FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error)
	FindByLicenseNumber(ctx context.Context, db *gorm.DB, licenseNumber string) (*entity.DoctorProfile, error)
	FindAll(ctx context.Context, db *gorm.DB, filter entity.DoctorFilter) ([]entity.DoctorProfile, int64, error)
	Update(ctx context.Context, db *gorm.DB, profile *entity.DoctorProfile) error
	Delete(ctx context.Context, db *gorm.DB, userID uuid.UUID) error
}
