package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinic-scheduling/internal/converter"
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/access"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/domain/repository"
	"clinic-scheduling/internal/domain/slot"
	"clinic-scheduling/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAppointmentChanged  = errors.New("the appointment was modified by another request, reload and try again")
	ErrInvalidTransition   = errors.New("invalid appointment status transition")
	ErrPatientOnlyCancel   = errors.New("patients can only cancel their own appointments")
	ErrFieldNotEditable    = errors.New("your role cannot change this field")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrPatientRequired     = errors.New("patient_id is required when booking for someone else")
	ErrInvalidDateFormat   = errors.New("invalid date format, use YYYY-MM-DD")
	ErrInvalidID           = errors.New("invalid id, use a UUID")
)

const dateLayout = "2006-01-02"

type AppointmentUsecase interface {
	RequestAppointment(ctx context.Context, actor access.Principal, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	ListAppointments(ctx context.Context, actor access.Principal, query dto.ListQuery) (*dto.AppointmentListResponse, error)
	GetAppointment(ctx context.Context, actor access.Principal, id uuid.UUID) (*dto.AppointmentResponse, error)
	UpdateAppointment(ctx context.Context, actor access.Principal, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, actor access.Principal, id uuid.UUID) (*dto.AppointmentResponse, error)
	// DeleteAppointment hard deletes for admin and secretary. Patients and
	// doctors cancel instead; the returned response is nil after a hard delete.
	DeleteAppointment(ctx context.Context, actor access.Principal, id uuid.UUID) (*dto.AppointmentResponse, error)
	AvailableSlots(ctx context.Context, actor access.Principal, doctorID uuid.UUID, date string) (*dto.AvailableSlotsResponse, error)
}

type appointmentUsecase struct {
	txm               repository.TxManager
	log               *logrus.Logger
	appointmentRepo   repository.AppointmentRepository
	userRepo          repository.UserRepository
	doctorProfileRepo repository.DoctorProfileRepository
	auditService      service.AuditService
	slotLocker        service.SlotLocker
	location          *time.Location
	now               func() time.Time
}

func NewAppointmentUsecase(
	txm repository.TxManager,
	log *logrus.Logger,
	appointmentRepo repository.AppointmentRepository,
	userRepo repository.UserRepository,
	doctorProfileRepo repository.DoctorProfileRepository,
	auditService service.AuditService,
	slotLocker service.SlotLocker,
	location *time.Location,
) AppointmentUsecase {
	if location == nil {
		location = time.UTC
	}
	return &appointmentUsecase{
		txm:               txm,
		log:               log,
		appointmentRepo:   appointmentRepo,
		userRepo:          userRepo,
		doctorProfileRepo: doctorProfileRepo,
		auditService:      auditService,
		slotLocker:        slotLocker,
		location:          location,
		now:               time.Now,
	}
}

// clock returns the current instant in the clinic location.
func (u *appointmentUsecase) clock() time.Time {
	return u.now().In(u.location)
}

// RequestAppointment books a pending appointment.
//
// Flow:
// 1. Resolve patient, doctor and slot
// 2. Take the Redis slot lock
// 3. In one transaction: read active bookings, validate, insert
// 4. A unique violation on the active-slot index means someone else won
func (u *appointmentUsecase) RequestAppointment(ctx context.Context, actor access.Principal, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	if err := access.Check(actor, access.OpAppointmentRequest, false).Err(); err != nil {
		return nil, err
	}

	patientID := actor.UserID
	if req.PatientID != "" && req.PatientID != actor.UserID.String() {
		if !actor.Role.IsAdmin() {
			return nil, access.ErrDenied
		}
		id, err := uuid.Parse(req.PatientID)
		if err != nil {
			return nil, ErrInvalidID
		}
		patientID = id
	} else if actor.Role != access.RolePatient {
		return nil, ErrPatientRequired
	}
	if err := u.ensurePatient(ctx, u.txm.DB(ctx), patientID); err != nil {
		return nil, err
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, ErrInvalidID
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	at, err := entity.ParseTimeOfDay(req.Time)
	if err != nil {
		return nil, err
	}
	if err := u.ensureDoctor(ctx, u.txm.DB(ctx), doctorID); err != nil {
		return nil, err
	}

	appointment := &entity.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		Time:      at,
		Reason:    strings.TrimSpace(req.Reason),
		Status:    entity.AppointmentStatusPending,
	}

	err = u.withSlotLock(ctx, service.SlotKey{DoctorID: doctorID, Date: date, Time: at}, func() error {
		return u.txm.WithTx(ctx, func(tx *gorm.DB) error {
			if err := u.validateSlot(ctx, tx, appointment); err != nil {
				return err
			}

			if err := u.appointmentRepo.Create(ctx, tx, appointment); err != nil {
				if mapped := mapAppointmentConstraintError(err); mapped != nil {
					return mapped
				}
				u.log.Warnf("Failed to create appointment: %+v", err)
				return err
			}

			return u.auditService.LogCreate(ctx, tx, &actor.UserID, entity.AuditActionAppointmentCreate, "appointment", appointment.ID.String(), converter.AppointmentToResponse(appointment))
		})
	})
	if err != nil {
		return nil, err
	}

	u.log.Infof("Appointment created: id=%s, doctor=%s, at=%s %s", appointment.ID, doctorID, date.Format(dateLayout), at)
	return u.reload(ctx, appointment), nil
}

// ListAppointments is scoped by role: patients see their own, doctors see
// the ones assigned to them, admin and secretary see all.
func (u *appointmentUsecase) ListAppointments(ctx context.Context, actor access.Principal, query dto.ListQuery) (*dto.AppointmentListResponse, error) {
	if err := access.Check(actor, access.OpAppointmentList, false).Err(); err != nil {
		return nil, err
	}

	filter := entity.AppointmentFilter{
		Search: query.Search,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	switch actor.Role {
	case access.RolePatient:
		filter.PatientID = &actor.UserID
	case access.RoleDoctor:
		filter.DoctorID = &actor.UserID
	}

	appointments, total, err := u.appointmentRepo.FindAll(ctx, u.txm.DB(ctx), filter)
	if err != nil {
		u.log.Warnf("Failed to find appointments: %+v", err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        total,
	}, nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, actor access.Principal, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.findAppointment(ctx, u.txm.DB(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.OpAppointmentView, ownsAppointment(actor, appointment)).Err(); err != nil {
		return nil, err
	}

	return converter.AppointmentToResponse(appointment), nil
}

// UpdateAppointment applies the present fields the actor's role may edit.
// Admin and secretary may change anything, doctors only status and reason,
// patients may only cancel.
func (u *appointmentUsecase) UpdateAppointment(ctx context.Context, actor access.Principal, id uuid.UUID, req *dto.UpdateAppointmentRequest) (*dto.AppointmentResponse, error) {
	current, err := u.findAppointment(ctx, u.txm.DB(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.OpAppointmentUpdate, ownsAppointment(actor, current)).Err(); err != nil {
		return nil, err
	}
	if err := checkEditableFields(actor.Role, req); err != nil {
		return nil, err
	}

	updated := *current
	if req.PatientID != nil {
		if updated.PatientID, err = uuid.Parse(*req.PatientID); err != nil {
			return nil, ErrInvalidID
		}
	}
	if req.DoctorID != nil {
		if updated.DoctorID, err = uuid.Parse(*req.DoctorID); err != nil {
			return nil, ErrInvalidID
		}
	}
	if req.Date != nil {
		if updated.Date, err = parseDate(*req.Date); err != nil {
			return nil, err
		}
	}
	if req.Time != nil {
		if updated.Time, err = entity.ParseTimeOfDay(*req.Time); err != nil {
			return nil, err
		}
	}
	if req.Reason != nil {
		updated.Reason = strings.TrimSpace(*req.Reason)
	}
	if req.Status != nil {
		to := entity.AppointmentStatus(*req.Status)
		if err := checkTransition(actor.Role, current.Status, to); err != nil {
			return nil, err
		}
		updated.Status = to
	}

	if updated.PatientID != current.PatientID {
		if err := u.ensurePatient(ctx, u.txm.DB(ctx), updated.PatientID); err != nil {
			return nil, err
		}
		updated.Patient = nil
	}
	if updated.DoctorID != current.DoctorID {
		if err := u.ensureDoctor(ctx, u.txm.DB(ctx), updated.DoctorID); err != nil {
			return nil, err
		}
		updated.Doctor = nil
	}

	slotChanged := updated.DoctorID != current.DoctorID || !sameDate(updated.Date, current.Date) || updated.Time != current.Time
	needsValidation := slotChanged && updated.IsActive()

	write := func() error {
		return u.txm.WithTx(ctx, func(tx *gorm.DB) error {
			if needsValidation {
				if err := u.validateSlot(ctx, tx, &updated); err != nil {
					return err
				}
			}

			affectedRows, err := u.appointmentRepo.Update(ctx, tx, &updated, current.Status)
			if err != nil {
				if mapped := mapAppointmentConstraintError(err); mapped != nil {
					return mapped
				}
				u.log.Warnf("Failed to update appointment: %+v", err)
				return err
			}
			if affectedRows == 0 {
				return ErrAppointmentChanged
			}

			return u.auditService.LogUpdate(ctx, tx, &actor.UserID, entity.AuditActionAppointmentUpdate, "appointment", id.String(),
				converter.AppointmentToResponse(current), converter.AppointmentToResponse(&updated))
		})
	}

	if needsValidation {
		err = u.withSlotLock(ctx, service.SlotKey{DoctorID: updated.DoctorID, Date: updated.Date, Time: updated.Time}, write)
	} else {
		err = write()
	}
	if err != nil {
		return nil, err
	}

	return u.reload(ctx, &updated), nil
}

func (u *appointmentUsecase) CancelAppointment(ctx context.Context, actor access.Principal, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.findAppointment(ctx, u.txm.DB(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.OpAppointmentCancel, ownsAppointment(actor, appointment)).Err(); err != nil {
		return nil, err
	}

	return u.cancel(ctx, actor, appointment)
}

func (u *appointmentUsecase) DeleteAppointment(ctx context.Context, actor access.Principal, id uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.findAppointment(ctx, u.txm.DB(ctx), id)
	if err != nil {
		return nil, err
	}
	isOwner := ownsAppointment(actor, appointment)

	if actor.Role == access.RolePatient || actor.Role == access.RoleDoctor {
		if err := access.Check(actor, access.OpAppointmentCancel, isOwner).Err(); err != nil {
			return nil, err
		}
		return u.cancel(ctx, actor, appointment)
	}

	if err := access.Check(actor, access.OpAppointmentDelete, isOwner).Err(); err != nil {
		return nil, err
	}

	err = u.txm.WithTx(ctx, func(tx *gorm.DB) error {
		affectedRows, err := u.appointmentRepo.Delete(ctx, tx, id)
		if err != nil {
			u.log.Warnf("Failed delete appointment: %+v", err)
			return err
		}
		if affectedRows == 0 {
			return ErrAppointmentNotFound
		}

		return u.auditService.LogDelete(ctx, tx, &actor.UserID, entity.AuditActionAppointmentDelete, "appointment", id.String(), converter.AppointmentToResponse(appointment))
	})
	if err != nil {
		return nil, err
	}

	return nil, nil
}

// AvailableSlots lists the free slots of a doctor on a date that are still
// in the future.
func (u *appointmentUsecase) AvailableSlots(ctx context.Context, actor access.Principal, doctorID uuid.UUID, date string) (*dto.AvailableSlotsResponse, error) {
	if err := access.Check(actor, access.OpSlotLookup, false).Err(); err != nil {
		return nil, err
	}

	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	if err := u.ensureDoctor(ctx, u.txm.DB(ctx), doctorID); err != nil {
		return nil, err
	}

	existing, err := u.appointmentRepo.FindActiveByDoctorAndDate(ctx, u.txm.DB(ctx), doctorID, day)
	if err != nil {
		u.log.Warnf("Failed to find doctor appointments: %+v", err)
		return nil, err
	}

	free := slot.AvailableSlots(doctorID, day, existing, u.clock())
	times := make([]string, len(free))
	for i, t := range free {
		times[i] = t.String()
	}

	return &dto.AvailableSlotsResponse{
		DoctorID:       doctorID,
		Date:           day.Format(dateLayout),
		AvailableTimes: times,
	}, nil
}

// cancel moves the appointment to cancelled with a conditional update, so a
// concurrent status change is detected instead of overwritten.
func (u *appointmentUsecase) cancel(ctx context.Context, actor access.Principal, appointment *entity.Appointment) (*dto.AppointmentResponse, error) {
	if err := checkTransition(actor.Role, appointment.Status, entity.AppointmentStatusCancelled); err != nil {
		return nil, err
	}
	if appointment.Status == entity.AppointmentStatusCancelled {
		return converter.AppointmentToResponse(appointment), nil
	}

	oldValue := converter.AppointmentToResponse(appointment)
	from := appointment.Status

	err := u.txm.WithTx(ctx, func(tx *gorm.DB) error {
		affectedRows, err := u.appointmentRepo.UpdateStatus(ctx, tx, appointment.ID, from, entity.AppointmentStatusCancelled)
		if err != nil {
			u.log.Warnf("Failed to cancel appointment: %+v", err)
			return err
		}
		if affectedRows == 0 {
			return ErrAppointmentChanged
		}

		appointment.Cancel()
		return u.auditService.LogUpdate(ctx, tx, &actor.UserID, entity.AuditActionAppointmentCancel, "appointment", appointment.ID.String(), oldValue, converter.AppointmentToResponse(appointment))
	})
	if err != nil {
		return nil, err
	}

	return converter.AppointmentToResponse(appointment), nil
}

// validateSlot runs the slot rules against the doctor's active bookings of
// that day, read inside tx.
func (u *appointmentUsecase) validateSlot(ctx context.Context, tx *gorm.DB, appointment *entity.Appointment) error {
	existing, err := u.appointmentRepo.FindActiveByDoctorAndDate(ctx, tx, appointment.DoctorID, appointment.Date)
	if err != nil {
		u.log.Warnf("Failed to find doctor appointments: %+v", err)
		return err
	}

	return slot.ValidateBooking(slot.BookingRequest{
		DoctorID:  appointment.DoctorID,
		Date:      appointment.Date,
		Time:      appointment.Time,
		ExcludeID: appointment.ID,
	}, existing, u.clock())
}

func (u *appointmentUsecase) withSlotLock(ctx context.Context, key service.SlotKey, fn func() error) error {
	release, err := u.slotLocker.Acquire(ctx, key)
	if errors.Is(err, service.ErrSlotLocked) {
		// A stuck lock only costs the serialization; the unique index still
		// decides between competing writers.
		u.log.Warnf("Slot lock %s still held after waiting, writing without it", key)
		return fn()
	}
	if err != nil {
		return err
	}
	defer release()

	return fn()
}

func (u *appointmentUsecase) findAppointment(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(ctx, db, id)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", id, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	return appointment, nil
}

// reload fetches the appointment with participants for the response and
// falls back to what we have when that fails.
func (u *appointmentUsecase) reload(ctx context.Context, appointment *entity.Appointment) *dto.AppointmentResponse {
	full, err := u.appointmentRepo.FindByID(ctx, u.txm.DB(ctx), appointment.ID)
	if err != nil || full == nil {
		u.log.Warnf("Failed to reload appointment %s: %+v", appointment.ID, err)
		return converter.AppointmentToResponse(appointment)
	}
	return converter.AppointmentToResponse(full)
}

func (u *appointmentUsecase) ensurePatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) error {
	patient, err := u.userRepo.FindByID(ctx, db, patientID)
	if err != nil {
		u.log.Warnf("Failed to find patient: %+v", err)
		return err
	}
	if patient == nil || patient.RoleID != entity.RoleIDPatient {
		return ErrPatientNotFound
	}
	return nil
}

func (u *appointmentUsecase) ensureDoctor(ctx context.Context, db *gorm.DB, doctorID uuid.UUID) error {
	doctor, err := u.doctorProfileRepo.FindByUserID(ctx, db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor: %+v", err)
		return err
	}
	if doctor == nil {
		return ErrDoctorNotFound
	}
	return nil
}

// ownsAppointment reports whether the actor is the appointment's patient or,
// for doctors, its assigned doctor.
func ownsAppointment(actor access.Principal, appointment *entity.Appointment) bool {
	switch actor.Role {
	case access.RolePatient:
		return actor.Owns(appointment.PatientID)
	case access.RoleDoctor:
		return actor.Owns(appointment.DoctorID)
	}
	return false
}

func checkEditableFields(role access.Role, req *dto.UpdateAppointmentRequest) error {
	switch role {
	case access.RolePatient:
		if req.PatientID != nil || req.DoctorID != nil || req.Date != nil || req.Time != nil || req.Reason != nil ||
			req.Status == nil || entity.AppointmentStatus(*req.Status) != entity.AppointmentStatusCancelled {
			return ErrPatientOnlyCancel
		}
	case access.RoleDoctor:
		if req.PatientID != nil || req.DoctorID != nil || req.Date != nil || req.Time != nil {
			return ErrFieldNotEditable
		}
	}
	return nil
}

// checkTransition separates moves that never make sense from moves this
// role is not allowed to make.
func checkTransition(role access.Role, from, to entity.AppointmentStatus) error {
	if !access.IsLegalTransition(from, to) {
		return ErrInvalidTransition
	}
	if !access.CanTransition(role, from, to) {
		return access.ErrDenied
	}
	return nil
}

func mapAppointmentConstraintError(err error) error {
	switch {
	case isDuplicateKeyError(err, constraintAppointmentActive):
		return slot.ErrSlotTaken
	case isForeignKeyError(err, "doctor_id"):
		return ErrDoctorNotFound
	case isForeignKeyError(err, "patient_id"):
		return ErrPatientNotFound
	}
	return nil
}

// parseDate reads a calendar date as midnight UTC, the form a DATE column
// round-trips as.
func parseDate(s string) (time.Time, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return date, nil
}

func sameDate(a, b time.Time) bool {
	return a.Format(dateLayout) == b.Format(dateLayout)
}
