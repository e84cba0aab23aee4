// Package users manages the account records behind every caller
// identity: creation, profile updates, role assignment and
// deactivation.
package users

import "time"

// User is an account record. PasswordHash never leaves the package.
type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	FirstName      *string    `json:"firstName"`
	LastName       *string    `json:"lastName"`
	DisplayName    *string    `json:"displayName"`
	Role           string     `json:"role"`
	OrganizationID *int64     `json:"organizationId"`
	TeamID         *int64     `json:"teamId"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastLoginAt    *time.Time `json:"lastLoginAt"`
}

// CreateInput carries the fields needed to create an account.
type CreateInput struct {
	Email          string  `json:"email" validate:"required,email"`
	Password       string  `json:"password" validate:"required,min=8"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	DisplayName    *string `json:"displayName"`
	Role           string  `json:"role" validate:"required"`
	OrganizationID *int64  `json:"organizationId"`
	TeamID         *int64  `json:"teamId"`
}

// UpdateInput carries profile fields. Role changes go through
// ChangeRole, not here.
type UpdateInput struct {
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	DisplayName    *string `json:"displayName"`
	OrganizationID *int64  `json:"organizationId"`
	TeamID         *int64  `json:"teamId"`
}

// Filters narrows account listings.
type Filters struct {
	OrganizationID *int64
	TeamID         *int64
	Role           string
	ActiveOnly     bool
	Limit          int
	Offset         int
}
