// Package salespeople manages the records evaluations are written
// about. A salesperson belongs to a team and optionally links to a
// platform user account.
package salespeople

import "time"

// Salesperson is one record under evaluation.
type Salesperson struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organizationId"`
	TeamID         int64     `json:"teamId"`
	UserID         *int64    `json:"userId"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	EmployeeCode   *string   `json:"employeeCode"`
	HiredAt        *time.Time `json:"hiredAt"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Input carries create/update fields.
type Input struct {
	OrganizationID int64      `json:"organizationId" validate:"required,gt=0"`
	TeamID         int64      `json:"teamId" validate:"required,gt=0"`
	UserID         *int64     `json:"userId"`
	FirstName      string     `json:"firstName" validate:"required"`
	LastName       string     `json:"lastName" validate:"required"`
	EmployeeCode   *string    `json:"employeeCode"`
	HiredAt        *time.Time `json:"hiredAt"`
}

// Filters narrows listings.
type Filters struct {
	OrganizationID *int64
	TeamID         *int64
	ActiveOnly     bool
	Limit          int
	Offset         int
}
