package domain

import (
	"fmt"
	"time"
)

// Role enumerates the two kinds of portal accounts.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

// UserStatus represents the approval lifecycle of an account.
type UserStatus string

const (
	UserStatusPending  UserStatus = "PENDING"
	UserStatusApproved UserStatus = "APPROVED"
	UserStatusRejected UserStatus = "REJECTED"
)

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusPending, UserStatusApproved, UserStatusRejected:
		return true
	}
	return false
}

// Identity is the profile of the authenticated user held by a session.
type Identity struct {
	ID     string     `json:"id"`
	Email  string     `json:"email"`
	Name   string     `json:"name"`
	Role   Role       `json:"role"`
	Status UserStatus `json:"status"`
}

// Normalize fills the status of accounts created before approval tracking existed.
func (i Identity) Normalize() Identity {
	if i.Status == "" {
		i.Status = UserStatusApproved
	}
	return i
}

// Validate checks the fields a session depends on.
func (i Identity) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("identity without id")
	}
	if !i.Role.Valid() {
		return fmt.Errorf("identity %s: unknown role %q", i.ID, i.Role)
	}
	if !i.Status.Valid() {
		return fmt.Errorf("identity %s: unknown status %q", i.ID, i.Status)
	}
	return nil
}

// Credential is the opaque bearer token paired with an Identity.
type Credential string

// Member is an account as listed in the admin console.
type Member struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}
