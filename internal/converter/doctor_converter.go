package converter

import (
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/entity"
)

// DoctorProfileToResponse converts a DoctorProfile entity to DoctorResponse DTO
func DoctorProfileToResponse(profile *entity.DoctorProfile) *dto.DoctorResponse {
	if profile == nil {
		return nil
	}

	return &dto.DoctorResponse{
		ID:              profile.UserID,
		ExternalID:      profile.User.ExternalID,
		Email:           profile.User.Email,
		FirstName:       profile.User.FirstName,
		LastName:        profile.User.LastName,
		FullName:        profile.User.FullName(),
		Phone:           profile.User.Phone,
		Specialty:       profile.Specialty,
		LicenseNumber:   profile.LicenseNumber,
		ConsultationFee: profile.ConsultationFee,
	}
}

// DoctorProfilesToResponses converts a slice of DoctorProfile entities to slice of DoctorResponse DTOs
func DoctorProfilesToResponses(profiles []entity.DoctorProfile) []dto.DoctorResponse {
	responses := make([]dto.DoctorResponse, len(profiles))
	for i := range profiles {
		responses[i] = *DoctorProfileToResponse(&profiles[i])
	}
	return responses
}

// DoctorProfilesToOptions builds the doctor dropdown entries.
func DoctorProfilesToOptions(profiles []entity.DoctorProfile) []dto.DoctorOptionResponse {
	options := make([]dto.DoctorOptionResponse, len(profiles))
	for i, profile := range profiles {
		options[i] = dto.DoctorOptionResponse{
			ID:        profile.UserID,
			FullName:  profile.User.FullName(),
			Specialty: profile.Specialty,
		}
	}
	return options
}
