package repository

import (
	"context"
	"time"

	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	FindAll(ctx context.Context, db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, int64, error)
	// FindActiveByDoctorAndDate returns pending and confirmed appointments of
	// the doctor on date, locking the rows when db is inside a transaction.
	FindActiveByDoctorAndDate(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.Appointment, error)
	// Update writes the editable columns only while the stored status is still
	// from. Returns affected rows: 0 means the row changed or is gone.
	Update(ctx context.Context, db *gorm.DB, appointment *entity.Appointment, from entity.AppointmentStatus) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error)
	DeleteByParticipant(ctx context.Context, db *gorm.DB, userID uuid.UUID) (int64, error)
}
