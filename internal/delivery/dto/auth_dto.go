package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// LoginRequest authenticates with the national identity number (cedula).
type LoginRequest struct {
	ExternalID string `json:"external_id" validate:"required,max=20"`
	Password   string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RegisterPatientRequest is the public self-registration form. The role is
// always patient.
type RegisterPatientRequest struct {
	ExternalID string `json:"external_id" validate:"required,numeric,min=10,max=20"`
	Email      string `json:"email" validate:"required,email,max=120"`
	Password   string `json:"password" validate:"required,min=6"`
	FirstName  string `json:"first_name" validate:"required,min=2,max=100"`
	LastName   string `json:"last_name" validate:"required,min=2,max=100"`
	Phone      string `json:"phone" validate:"omitempty,max=20"`
	City       string `json:"city" validate:"omitempty,max=100"`
	Parish     string `json:"parish" validate:"omitempty,max=100"`
	Address    string `json:"address" validate:"omitempty,max=255"`
}

// Response DTOs

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Role         string `json:"role"`
}

type UserResponse struct {
	ID            uuid.UUID              `json:"id"`
	ExternalID    string                 `json:"external_id"`
	Email         string                 `json:"email"`
	FirstName     string                 `json:"first_name"`
	LastName      string                 `json:"last_name"`
	FullName      string                 `json:"full_name"`
	Phone         string                 `json:"phone,omitempty"`
	City          string                 `json:"city,omitempty"`
	Parish        string                 `json:"parish,omitempty"`
	Address       string                 `json:"address,omitempty"`
	Role          string                 `json:"role"`
	DoctorProfile *DoctorProfileResponse `json:"doctor_profile,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}
