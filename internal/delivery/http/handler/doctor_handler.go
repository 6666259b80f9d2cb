package handler

import (
	"net/http"

	"clinic-scheduling/internal/usecase"
	"clinic-scheduling/pkg/pagination"
	"clinic-scheduling/pkg/response"
)

type DoctorHandler struct {
	doctorUsecase      usecase.DoctorUsecase
	appointmentUsecase usecase.AppointmentUsecase
}

func NewDoctorHandler(doctorUsecase usecase.DoctorUsecase, appointmentUsecase usecase.AppointmentUsecase) *DoctorHandler {
	return &DoctorHandler{
		doctorUsecase:      doctorUsecase,
		appointmentUsecase: appointmentUsecase,
	}
}

func (h *DoctorHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(w, r)
	if !ok {
		return
	}

	page := pagination.FromRequest(r)
	doctors, err := h.doctorUsecase.ListDoctors(r.Context(), principal, listQuery(page))
	if err != nil {
		respondError(w, err, "Failed to get doctors")
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Doctors retrieved successfully", doctors.Doctors, response.NewMeta(page.Page, page.Limit, doctors.Total))
}

// ListDoctorOptions feeds the doctor picker of the appointment form.
func (h *DoctorHandler) ListDoctorOptions(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(w, r)
	if !ok {
		return
	}

	options, err := h.doctorUsecase.ListDoctorOptions(r.Context(), principal)
	if err != nil {
		respondError(w, err, "Failed to get doctors")
		return
	}

	response.Success(w, http.StatusOK, "Doctors retrieved successfully", options)
}

// AvailableSlots handles GET /doctors/{id}/slots?date=YYYY-MM-DD
func (h *DoctorHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(w, r)
	if !ok {
		return
	}
	doctorID, ok := pathUUID(w, r, "id", "doctor")
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		response.ValidationError(w, map[string]string{"date": "date is required"})
		return
	}

	slots, err := h.appointmentUsecase.AvailableSlots(r.Context(), principal, doctorID, date)
	if err != nil {
		respondError(w, err, "Failed to get available slots")
		return
	}

	response.Success(w, http.StatusOK, "Available slots retrieved successfully", slots)
}
