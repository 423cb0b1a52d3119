package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleCitizen    Role = "CITIZEN"
	RoleDepartment Role = "DEPARTMENT"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPERADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleDepartment, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may triage any issue.
func (r Role) IsStaff() bool {
	return r == RoleDepartment || r == RoleAdmin || r == RoleSuperAdmin
}

// IsAdmin reports whether the role may manage users.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

type User struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Password  string    `bson:"password,omitempty" json:"-"`
	Role      Role      `bson:"role" json:"role"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeEmail lower-cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserProfile is a user with activity counters.
type UserProfile struct {
	User
	ReportedIssues int64 `json:"reportedIssues"`
	AssignedIssues int64 `json:"assignedIssues"`
}
