package dto

import "github.com/shopspring/decimal"

// Request DTOs

// CreateUserRequest is used by administrators. Specialty and LicenseNumber
// are required when Role is doctor.
type CreateUserRequest struct {
	ExternalID      string           `json:"external_id" validate:"required,numeric,min=10,max=20"`
	Email           string           `json:"email" validate:"required,email,max=120"`
	Password        string           `json:"password" validate:"required,min=6"`
	FirstName       string           `json:"first_name" validate:"required,min=2,max=100"`
	LastName        string           `json:"last_name" validate:"required,min=2,max=100"`
	Phone           string           `json:"phone" validate:"omitempty,max=20"`
	City            string           `json:"city" validate:"omitempty,max=100"`
	Parish          string           `json:"parish" validate:"omitempty,max=100"`
	Address         string           `json:"address" validate:"omitempty,max=255"`
	Role            string           `json:"role" validate:"required,oneof=admin patient doctor secretary"`
	Specialty       string           `json:"specialty" validate:"omitempty,max=100"`
	LicenseNumber   string           `json:"license_number" validate:"omitempty,max=50"`
	ConsultationFee *decimal.Decimal `json:"consultation_fee"`
}

// UpdateUserRequest only changes the fields that are present.
type UpdateUserRequest struct {
	ExternalID      *string          `json:"external_id" validate:"omitempty,numeric,min=10,max=20"`
	Email           *string          `json:"email" validate:"omitempty,email,max=120"`
	Password        *string          `json:"password" validate:"omitempty,min=6"`
	FirstName       *string          `json:"first_name" validate:"omitempty,min=2,max=100"`
	LastName        *string          `json:"last_name" validate:"omitempty,min=2,max=100"`
	Phone           *string          `json:"phone" validate:"omitempty,max=20"`
	City            *string          `json:"city" validate:"omitempty,max=100"`
	Parish          *string          `json:"parish" validate:"omitempty,max=100"`
	Address         *string          `json:"address" validate:"omitempty,max=255"`
	Role            *string          `json:"role" validate:"omitempty,oneof=admin patient doctor secretary"`
	Specialty       *string          `json:"specialty" validate:"omitempty,max=100"`
	LicenseNumber   *string          `json:"license_number" validate:"omitempty,max=50"`
	ConsultationFee *decimal.Decimal `json:"consultation_fee"`
}

// ListQuery carries search and paging for list endpoints.
type ListQuery struct {
	Search string
	Page   int
	Limit  int
	Offset int
}

// Response DTOs

type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int64          `json:"total"`
}
