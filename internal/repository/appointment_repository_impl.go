package repository

import (
	"context"
	"errors"
	"time"

	"clinic-scheduling/internal/domain/entity"
	domainRepo "clinic-scheduling/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	return db.WithContext(ctx).Omit("Patient", "Doctor").Create(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.WithContext(ctx).
		Preload("Patient").Preload("Doctor.User").
		Where("id = ?", id).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

// FindAll returns one page of appointments ordered by date and time.
// Search matches patient and doctor names, cedula, specialty, reason and status.
func (r *appointmentRepository) FindAll(ctx context.Context, db *gorm.DB, filter entity.AppointmentFilter) ([]entity.Appointment, int64, error) {
	query := db.WithContext(ctx).Model(&entity.Appointment{}).
		Joins("JOIN users AS patients ON patients.id = appointments.patient_id").
		Joins("JOIN doctor_profiles ON doctor_profiles.user_id = appointments.doctor_id").
		Joins("JOIN users AS doctors ON doctors.id = doctor_profiles.user_id")

	if filter.PatientID != nil {
		query = query.Where("appointments.patient_id = ?", *filter.PatientID)
	}
	if filter.DoctorID != nil {
		query = query.Where("appointments.doctor_id = ?", *filter.DoctorID)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(
			"patients.first_name ILIKE ? OR patients.last_name ILIKE ? OR patients.external_id ILIKE ? OR "+
				"doctors.first_name ILIKE ? OR doctors.last_name ILIKE ? OR doctor_profiles.specialty ILIKE ? OR "+
				"appointments.reason ILIKE ? OR appointments.status ILIKE ?",
			pattern, pattern, pattern, pattern, pattern, pattern, pattern, pattern,
		)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var appointments []entity.Appointment
	err := paginate(query, filter.Limit, filter.Offset).
		Preload("Patient").Preload("Doctor.User").
		Order("appointments.date ASC, appointments.time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, 0, err
	}
	return appointments, total, nil
}

func (r *appointmentRepository) FindActiveByDoctorAndDate(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, date time.Time) ([]entity.Appointment, error) {
	query := db.WithContext(ctx)
	// Lock the rows only inside a transaction; a plain lookup stays lock free.
	if _, inTx := db.Statement.ConnPool.(gorm.TxCommitter); inTx {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var appointments []entity.Appointment
	err := query.
		Where("doctor_id = ? AND date = ? AND status IN ?", doctorID, date.Format("2006-01-02"), entity.ActiveAppointmentStatuses).
		Order("time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) Update(ctx context.Context, db *gorm.DB, appointment *entity.Appointment, from entity.AppointmentStatus) (int64, error) {
	result := db.WithContext(ctx).Model(appointment).
		Where("status = ?", from).
		Select("patient_id", "doctor_id", "date", "time", "reason", "status", "updated_at").
		Updates(appointment)
	return result.RowsAffected, result.Error
}

// UpdateStatus moves an appointment to a new status only if it is still in
// the expected one. Returns affected rows: 0 means someone changed it first.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, db *gorm.DB, id uuid.UUID, from, to entity.AppointmentStatus) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) Delete(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Appointment{})
	return result.RowsAffected, result.Error
}

// DeleteByParticipant removes every appointment where the user is the patient
// or the doctor.
func (r *appointmentRepository) DeleteByParticipant(ctx context.Context, db *gorm.DB, userID uuid.UUID) (int64, error) {
	result := db.WithContext(ctx).Where("patient_id = ? OR doctor_id = ?", userID, userID).Delete(&entity.Appointment{})
	return result.RowsAffected, result.Error
}
