package access

import (
	"errors"
	"strings"

	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrUnknownRole is returned when a role name is not one of the four clinic roles.
var ErrUnknownRole = errors.New("unknown role")

// Role is the closed set of clinic roles. The zero value is not a valid role.
type Role uint8

const (
	RoleAdmin Role = iota + 1
	RolePatient
	RoleDoctor
	RoleSecretary
)

var roleNames = map[Role]string{
	RoleAdmin:     "admin",
	RolePatient:   "patient",
	RoleDoctor:    "doctor",
	RoleSecretary: "secretary",
}

// AllRoles lists every role in seeding order.
var AllRoles = []Role{RoleAdmin, RolePatient, RoleDoctor, RoleSecretary}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether r is one of the four clinic roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// IsAdmin is the single place where the administrator bypass is decided.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

var roleIDs = map[Role]int{
	RoleAdmin:     entity.RoleIDAdmin,
	RolePatient:   entity.RoleIDPatient,
	RoleDoctor:    entity.RoleIDDoctor,
	RoleSecretary: entity.RoleIDSecretary,
}

// ID returns the primary key of the role row in the roles table.
func (r Role) ID() int {
	return roleIDs[r]
}

// RoleFromID maps a roles.id value to its Role.
func RoleFromID(id int) (Role, error) {
	for role, roleID := range roleIDs {
		if roleID == id {
			return role, nil
		}
	}
	return 0, ErrUnknownRole
}

// ParseRole maps a stored role name to its Role.
func ParseRole(name string) (Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for role, roleName := range roleNames {
		if roleName == name {
			return role, nil
		}
	}
	return 0, ErrUnknownRole
}

// Principal is the authenticated actor of a request.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// Owns reports whether the principal is the given owner id.
func (p Principal) Owns(ownerID uuid.UUID) bool {
	return p.UserID != uuid.Nil && p.UserID == ownerID
}
