package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// ActiveAppointmentStatuses occupy a doctor's slot.
var ActiveAppointmentStatuses = []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed}

// Valid checks the status is one of the four known values
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the status blocks the slot.
func (s AppointmentStatus) IsActive() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// IsTerminal reports whether no further transition is possible.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// Appointment represents a patient booking with a doctor at a date and time
type Appointment struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID  uuid.UUID         `gorm:"type:uuid;not null;index" json:"doctor_id"`
	Date      time.Time         `gorm:"type:date;not null;index" json:"date"`
	Time      TimeOfDay         `gorm:"type:time;not null" json:"time"`
	Reason    string            `gorm:"type:text;not null" json:"reason"`
	Status    AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships, filled only by explicit Preload in the repository
	Patient *User          `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *DoctorProfile `gorm:"foreignKey:DoctorID;references:UserID" json:"doctor,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// StartsAt combines the calendar date and the time of day in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	return a.Time.On(a.Date, loc)
}

// IsActive checks if the appointment currently occupies its slot
func (a *Appointment) IsActive() bool {
	return a.Status.IsActive()
}

// Cancel changes appointment status to cancelled
func (a *Appointment) Cancel() {
	a.Status = AppointmentStatusCancelled
}

// AppointmentFilter is a domain-level filter for listing appointments.
// PatientID and DoctorID restrict the result to one owner when set.
type AppointmentFilter struct {
	Search    string
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Limit     int
	Offset    int
}
