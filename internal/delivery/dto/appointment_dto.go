package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// CreateAppointmentRequest requests a slot. PatientID is only honoured for
// administrators; patients always book for themselves.
type CreateAppointmentRequest struct {
	PatientID string `json:"patient_id" validate:"omitempty,uuid"`
	DoctorID  string `json:"doctor_id" validate:"required,uuid"`
	Date      string `json:"date" validate:"required,date"`
	Time      string `json:"time" validate:"required,clock"`
	Reason    string `json:"reason" validate:"required,min=3,max=1000"`
}

// UpdateAppointmentRequest only changes the fields that are present.
type UpdateAppointmentRequest struct {
	PatientID *string `json:"patient_id" validate:"omitempty,uuid"`
	DoctorID  *string `json:"doctor_id" validate:"omitempty,uuid"`
	Date      *string `json:"date" validate:"omitempty,date"`
	Time      *string `json:"time" validate:"omitempty,clock"`
	Reason    *string `json:"reason" validate:"omitempty,min=3,max=1000"`
	Status    *string `json:"status" validate:"omitempty,oneof=pending confirmed completed cancelled"`
}

// Response DTOs

type AppointmentResponse struct {
	ID                uuid.UUID `json:"id"`
	PatientID         uuid.UUID `json:"patient_id"`
	PatientName       string    `json:"patient_name,omitempty"`
	PatientExternalID string    `json:"patient_external_id,omitempty"`
	DoctorID          uuid.UUID `json:"doctor_id"`
	DoctorName        string    `json:"doctor_name,omitempty"`
	Specialty         string    `json:"specialty,omitempty"`
	Date              string    `json:"date"`
	Time              string    `json:"time"`
	Reason            string    `json:"reason"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int64                 `json:"total"`
}

type AvailableSlotsResponse struct {
	DoctorID       uuid.UUID `json:"doctor_id"`
	Date           string    `json:"date"`
	AvailableTimes []string  `json:"available_times"`
}
