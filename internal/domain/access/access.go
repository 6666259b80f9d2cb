// Package access decides whether a principal may perform an operation on a
// clinic resource. Every decision is a pure function of its inputs.
package access

import "errors"

// ErrDenied is returned when an operation is not permitted for the principal.
var ErrDenied = errors.New("permission denied")

// Decision is the outcome of an authorization check.
type Decision bool

const (
	Denied  Decision = false
	Allowed Decision = true
)

// Err returns ErrDenied for a denied decision and nil otherwise.
func (d Decision) Err() error {
	if d == Denied {
		return ErrDenied
	}
	return nil
}

// Scope says whether a role may act on any resource or only on its own.
type Scope uint8

const (
	ScopeAny Scope = iota + 1
	ScopeOwn
)

// Rule lists the non-admin roles permitted for an operation and their scope.
// Admin is never listed; it is allowed by Authorize itself.
type Rule map[Role]Scope

// Operation names an action gated by a Rule.
type Operation string

const (
	OpUserList   Operation = "user.list"
	OpUserCreate Operation = "user.create"
	OpUserUpdate Operation = "user.update"
	OpUserDelete Operation = "user.delete"

	OpDoctorList    Operation = "doctor.list"
	OpDoctorOptions Operation = "doctor.options"

	OpAppointmentRequest Operation = "appointment.request"
	OpAppointmentList    Operation = "appointment.list"
	OpAppointmentView    Operation = "appointment.view"
	OpAppointmentUpdate  Operation = "appointment.update"
	OpAppointmentCancel  Operation = "appointment.cancel"
	OpAppointmentDelete  Operation = "appointment.delete"

	OpSlotLookup Operation = "slot.lookup"

	OpAuditLogList Operation = "audit_log.list"
)

var everyone = Rule{RolePatient: ScopeAny, RoleDoctor: ScopeAny, RoleSecretary: ScopeAny}

// Rules is the permission table for every gated operation.
var Rules = map[Operation]Rule{
	OpUserList:   {},
	OpUserCreate: {},
	OpUserUpdate: {},
	OpUserDelete: {},

	OpDoctorList:    {},
	OpDoctorOptions: everyone,

	OpAppointmentRequest: {RolePatient: ScopeAny},
	OpAppointmentList:    everyone,
	OpAppointmentView:    {RoleSecretary: ScopeAny, RoleDoctor: ScopeOwn, RolePatient: ScopeOwn},
	OpAppointmentUpdate:  {RoleSecretary: ScopeAny, RoleDoctor: ScopeOwn, RolePatient: ScopeOwn},
	OpAppointmentCancel:  {RoleSecretary: ScopeAny, RoleDoctor: ScopeOwn, RolePatient: ScopeOwn},
	OpAppointmentDelete:  {RoleSecretary: ScopeAny},

	OpSlotLookup: everyone,

	OpAuditLogList: {},
}

// Authorize decides whether role may perform an operation governed by rule.
// isOwner only matters for roles whose scope in the rule is ScopeOwn.
func Authorize(role Role, rule Rule, isOwner bool) Decision {
	if role.IsAdmin() {
		return Allowed
	}
	scope, ok := rule[role]
	if !ok {
		return Denied
	}
	if scope == ScopeOwn && !isOwner {
		return Denied
	}
	return Allowed
}

// Check looks up the rule for op and authorizes the principal against it.
// Unknown operations are denied for everyone but admin.
func Check(p Principal, op Operation, isOwner bool) Decision {
	return Authorize(p.Role, Rules[op], isOwner)
}

// RequiresOwnership reports whether role needs to own the resource for op.
func RequiresOwnership(role Role, op Operation) bool {
	if role.IsAdmin() {
		return false
	}
	return Rules[op][role] == ScopeOwn
}
