package entity

// Role represents a user role in the system
type Role struct {
	ID          int    `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleName    string `gorm:"type:varchar(50);uniqueIndex;not null" json:"role_name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

// Role ID constants, matching the seed migration
const (
	RoleIDAdmin     = 1
	RoleIDPatient   = 2
	RoleIDDoctor    = 3
	RoleIDSecretary = 4
)
