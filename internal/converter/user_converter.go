package converter

import (
	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/access"
	"clinic-scheduling/internal/domain/entity"
)

// UserToResponse converts a User entity to UserResponse DTO
// Includes DoctorProfile when it is loaded
func UserToResponse(user *entity.User) *dto.UserResponse {
	if user == nil {
		return nil
	}

	response := &dto.UserResponse{
		ID:         user.ID,
		ExternalID: user.ExternalID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		FullName:   user.FullName(),
		Phone:      user.Phone,
		City:       user.City,
		Parish:     user.Parish,
		Address:    user.Address,
		Role:       RoleName(user),
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}

	if user.DoctorProfile != nil {
		response.DoctorProfile = &dto.DoctorProfileResponse{
			Specialty:       user.DoctorProfile.Specialty,
			LicenseNumber:   user.DoctorProfile.LicenseNumber,
			ConsultationFee: user.DoctorProfile.ConsultationFee,
		}
	}

	return response
}

// UsersToResponses converts a slice of User entities to slice of UserResponse DTOs
func UsersToResponses(users []entity.User) []dto.UserResponse {
	responses := make([]dto.UserResponse, len(users))
	for i := range users {
		responses[i] = *UserToResponse(&users[i])
	}
	return responses
}

// RoleName prefers the preloaded role row and falls back to the role id.
func RoleName(user *entity.User) string {
	if user.Role.RoleName != "" {
		return user.Role.RoleName
	}
	role, err := access.RoleFromID(user.RoleID)
	if err != nil {
		return ""
	}
	return role.String()
}
