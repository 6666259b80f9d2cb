package access

import "clinic-scheduling/internal/domain/entity"

// transitions maps each legal status move to the roles that may perform it.
// Admin is handled by the caller through Role.IsAdmin.
var transitions = map[entity.AppointmentStatus]map[entity.AppointmentStatus][]Role{
	entity.AppointmentStatusPending: {
		entity.AppointmentStatusConfirmed: {RoleSecretary, RoleDoctor},
		entity.AppointmentStatusCancelled: {RoleSecretary, RoleDoctor, RolePatient},
	},
	entity.AppointmentStatusConfirmed: {
		entity.AppointmentStatusCompleted: {RoleSecretary, RoleDoctor},
		entity.AppointmentStatusCancelled: {RoleSecretary, RoleDoctor, RolePatient},
	},
}

// IsLegalTransition reports whether from -> to is an edge of the status
// machine, regardless of who performs it. Keeping the same status is legal.
func IsLegalTransition(from, to entity.AppointmentStatus) bool {
	if from == to {
		return from.Valid()
	}
	_, ok := transitions[from][to]
	return ok
}

// CanTransition reports whether role may move an appointment from one status
// to another. Ownership is not checked here.
func CanTransition(role Role, from, to entity.AppointmentStatus) bool {
	if !IsLegalTransition(from, to) {
		return false
	}
	if from == to || role.IsAdmin() {
		return true
	}
	for _, allowed := range transitions[from][to] {
		if allowed == role {
			return true
		}
	}
	return false
}
