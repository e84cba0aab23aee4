// Package orgs manages sales organizations (regions) and the teams
// inside them.
package orgs

import "time"

// Organization is a sales region.
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Region    *string   `json:"region"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Team belongs to exactly one organization.
type Team struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organizationId"`
	Name           string    `json:"name"`
	SupervisorID   *int64    `json:"supervisorId"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// OrganizationInput carries create/update fields for an organization.
type OrganizationInput struct {
	Name   string  `json:"name" validate:"required"`
	Region *string `json:"region"`
}

// TeamInput carries create/update fields for a team.
type TeamInput struct {
	OrganizationID int64  `json:"organizationId" validate:"required,gt=0"`
	Name           string `json:"name" validate:"required"`
	SupervisorID   *int64 `json:"supervisorId"`
}
