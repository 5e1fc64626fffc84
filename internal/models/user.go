package models

import (
	"fmt"
	"time"
)

// Role is one of the closed set of user roles.
type Role string

const (
	// RoleEmployee may request access and see only their own requests.
	RoleEmployee Role = "Employee"
	// RoleManager may additionally review requests and see every request.
	RoleManager Role = "Manager"
	// RoleAdmin may additionally manage the software catalog and the user roster.
	RoleAdmin Role = "Admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// HasManagerialRights is true for Manager and Admin.
func (r Role) HasManagerialRights() bool {
	return r == RoleManager || r == RoleAdmin
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// ParseRole converts a wire value into a Role. Matching is case-sensitive.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", NewValidationError(fmt.Sprintf("invalid role %q: must be one of Employee, Manager, Admin", s))
	}
	return r, nil
}

// User is an account holder. Role is fixed at creation.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      Role      `gorm:"type:varchar(20);not null;default:'Employee'" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserSummary is the read-only projection of a user embedded in other responses.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Role: u.Role}
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uint
	Role Role
}

// Owns reports whether the actor is the given user.
func (a Actor) Owns(userID uint) bool {
	return a.ID == userID
}
