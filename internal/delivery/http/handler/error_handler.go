package handler

import (
	"errors"
	"net/http"

	"clinic-scheduling/internal/delivery/http/middleware"
	"clinic-scheduling/internal/domain/access"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/domain/slot"
	"clinic-scheduling/internal/usecase"
	"clinic-scheduling/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var notFoundErrors = []error{
	usecase.ErrUserNotFound,
	usecase.ErrDoctorNotFound,
	usecase.ErrPatientNotFound,
	usecase.ErrAppointmentNotFound,
	usecase.ErrAuditLogNotFound,
}

var conflictErrors = []error{
	slot.ErrSlotTaken,
	usecase.ErrAppointmentChanged,
	usecase.ErrEmailAlreadyExists,
	usecase.ErrExternalIDAlreadyExists,
	usecase.ErrLicenseAlreadyExists,
	usecase.ErrDoctorHasAppointments,
}

var badRequestErrors = []error{
	slot.ErrPastDateTime,
	usecase.ErrInvalidTransition,
	usecase.ErrPatientOnlyCancel,
	usecase.ErrFieldNotEditable,
	usecase.ErrPatientRequired,
	usecase.ErrInvalidDateFormat,
	usecase.ErrInvalidID,
	usecase.ErrInvalidRoleData,
	usecase.ErrNegativeFee,
	usecase.ErrCannotDeleteCurrentUser,
	entity.ErrInvalidTimeOfDay,
	access.ErrUnknownRole,
}

var unauthorizedErrors = []error{
	usecase.ErrInvalidCredentials,
	usecase.ErrInvalidToken,
	usecase.ErrTokenRevoked,
}

// respondError writes the status for a known domain error and a generic
// message with 500 for anything else.
func respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, access.ErrDenied):
		response.Forbidden(w, "You don't have permission to perform this action")
	case isAny(err, notFoundErrors):
		response.NotFound(w, err.Error())
	case isAny(err, conflictErrors):
		response.Conflict(w, err.Error())
	case isAny(err, badRequestErrors):
		response.BadRequest(w, err.Error())
	case isAny(err, unauthorizedErrors):
		response.Unauthorized(w, err.Error())
	default:
		response.InternalServerError(w, fallback)
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// currentPrincipal writes 401 and returns false when the request was not
// authenticated.
func currentPrincipal(w http.ResponseWriter, r *http.Request) (access.Principal, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
	}
	return principal, ok
}

func pathUUID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}
