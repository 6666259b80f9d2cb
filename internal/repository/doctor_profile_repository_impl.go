package repository

import (
	"context"
	"errors"

	"clinic-scheduling/internal/domain/entity"
	domainRepo "clinic-scheduling/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type doctorProfileRepository struct{}

func NewDoctorProfileRepository() domainRepo.DoctorProfileRepository {
	return &doctorProfileRepository{}
}

func (r *doctorProfileRepository) Create(ctx context.Context, db *gorm.DB, profile *entity.DoctorProfile) error {
	return db.WithContext(ctx).Omit("User").Create(profile).Error
}

func (r *doctorProfileRepository) FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error) {
	var profile entity.DoctorProfile
	err := db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *doctorProfileRepository) FindByLicenseNumber(ctx context.Context, db *gorm.DB, licenseNumber string) (*entity.DoctorProfile, error) {
	var profile entity.DoctorProfile
	err := db.WithContext(ctx).Where("license_number = ?", licenseNumber).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *doctorProfileRepository) FindAll(ctx context.Context, db *gorm.DB, filter entity.DoctorFilter) ([]entity.DoctorProfile, int64, error) {
	query := db.WithContext(ctx).Model(&entity.DoctorProfile{}).
		Joins("JOIN users ON users.id = doctor_profiles.user_id")

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(
			"users.external_id ILIKE ? OR users.first_name ILIKE ? OR users.last_name ILIKE ? OR "+
				"doctor_profiles.specialty ILIKE ? OR doctor_profiles.license_number ILIKE ?",
			pattern, pattern, pattern, pattern, pattern,
		)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []entity.DoctorProfile
	err := paginate(query, filter.Limit, filter.Offset).
		Preload("User").
		Order("users.last_name ASC, users.first_name ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *doctorProfileRepository) Update(ctx context.Context, db *gorm.DB, profile *entity.DoctorProfile) error {
	return db.WithContext(ctx).Omit("User").Save(profile).Error
}

func (r *doctorProfileRepository) Delete(ctx context.Context, db *gorm.DB, userID uuid.UUID) error {
	return db.WithContext(ctx).Where("user_id = ?", userID).Delete(&entity.DoctorProfile{}).Error
}
