package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is a clinic principal: the authentication record plus contact data.
// ExternalID is the national identity number (cedula) used to log in.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ExternalID string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"external_id"`
	RoleID     int       `gorm:"not null;index" json:"role_id"`
	Email      string    `gorm:"type:varchar(120);uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"type:text;not null" json:"-"`
	FirstName  string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName   string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Phone      string    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	City       string    `gorm:"type:varchar(100)" json:"city,omitempty"`
	Parish     string    `gorm:"type:varchar(100)" json:"parish,omitempty"`
	Address    string    `gorm:"type:varchar(255)" json:"address,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Role          Role           `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	DoctorProfile *DoctorProfile `gorm:"foreignKey:UserID" json:"doctor_profile,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserFilter is a domain-level filter for listing users
type UserFilter struct {
	Search string // ILIKE over identity, names, contact fields and role name
	RoleID int    // optional exact role filter
	Limit  int
	Offset int
}
