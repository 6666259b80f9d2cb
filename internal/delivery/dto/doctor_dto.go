package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Response DTOs

type DoctorProfileResponse struct {
	Specialty       string          `json:"specialty"`
	LicenseNumber   string          `json:"license_number"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
}

type DoctorResponse struct {
	ID              uuid.UUID       `json:"id"`
	ExternalID      string          `json:"external_id"`
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	FullName        string          `json:"full_name"`
	Phone           string          `json:"phone,omitempty"`
	Specialty       string          `json:"specialty"`
	LicenseNumber   string          `json:"license_number"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
}

type DoctorListResponse struct {
	Doctors []DoctorResponse `json:"doctors"`
	Total   int64            `json:"total"`
}

// DoctorOptionResponse is one entry of the doctor dropdown.
type DoctorOptionResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Specialty string    `json:"specialty"`
}
