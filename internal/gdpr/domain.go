// Package gdpr implements data-subject request workflows: access,
// portability, erasure, rectification and restriction. Every workflow
// runs synchronously end to end and records an audit entry.
package gdpr

import "time"

// RequestType identifies a data-subject request kind.
type RequestType string

const (
	RequestAccess        RequestType = "access"
	RequestPortability   RequestType = "portability"
	RequestErasure       RequestType = "erasure"
	RequestRectification RequestType = "rectification"
	RequestRestriction   RequestType = "restriction"
)

// Valid reports whether t is a known request type.
func (t RequestType) Valid() bool {
	switch t {
	case RequestAccess, RequestPortability, RequestErasure, RequestRectification, RequestRestriction:
		return true
	}
	return false
}

// RestrictionType identifies what processing the subject asks to restrict.
type RestrictionType string

const (
	RestrictProcessing RestrictionType = "processing"
	RestrictStorage    RestrictionType = "storage"
	RestrictDisclosure RestrictionType = "disclosure"
)

// Valid reports whether t is a known restriction type.
func (t RestrictionType) Valid() bool {
	switch t {
	case RestrictProcessing, RestrictStorage, RestrictDisclosure:
		return true
	}
	return false
}

// DataSubjectRequest is the persisted record of one workflow run.
type DataSubjectRequest struct {
	ID          string      `json:"id"`
	UserID      int64       `json:"userId"`
	RequestedBy int64       `json:"requestedBy"`
	Type        RequestType `json:"type"`
	Status      string      `json:"status"`
	Details     string      `json:"details,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

// Request statuses. Workflows are synchronous, so a persisted request
// is either completed or refused; there is no pending state.
const (
	StatusCompleted = "completed"
	StatusRefused   = "refused"
)

// Subject is the user row the workflows read and rewrite.
type Subject struct {
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

// EvaluationSummary is the slice of an evaluation relevant to a
// subject's data bundle.
type EvaluationSummary struct {
	ID            int64     `json:"id"`
	SalespersonID int64     `json:"salespersonId"`
	TotalScore    float64   `json:"totalScore"`
	Status        string    `json:"status"`
	EvaluatedAt   time.Time `json:"evaluatedAt"`
}

// AuditTrailEntry is the subject-facing projection of an audit entry.
type AuditTrailEntry struct {
	Action     string    `json:"action"`
	Resource   *string   `json:"resource,omitempty"`
	Success    bool      `json:"success"`
	OccurredAt time.Time `json:"occurredAt"`
}

// AccessBundle is the full data bundle returned by an access request.
type AccessBundle struct {
	Subject     Subject             `json:"subject"`
	Evaluations []EvaluationSummary `json:"evaluations"`
	AuditTrail  []AuditTrailEntry   `json:"auditTrail"`
	GeneratedAt time.Time           `json:"generatedAt"`
}

// PortabilityExport wraps an access bundle in an export envelope.
type PortabilityExport struct {
	ExportID    string       `json:"exportId"`
	Format      string       `json:"format"`
	Bundle      AccessBundle `json:"data"`
	RecordCount int          `json:"recordCount"`
	ExportedAt  time.Time    `json:"exportedAt"`
}

// RetainedData describes what erasure kept and why.
type RetainedData struct {
	Reason          string    `json:"reason"`
	EvaluationCount int       `json:"evaluationCount"`
	OldestRetained  time.Time `json:"oldestRetained"`
	RetainedUntil   time.Time `json:"retainedUntil"`
}

// ErasureResult is the outcome of an erasure request. A refusal due to
// the legal retention hold is a normal outcome, not an error.
type ErasureResult struct {
	UserID       int64         `json:"userId"`
	Erased       bool          `json:"erased"`
	Anonymized   bool          `json:"anonymized"`
	Email        string        `json:"email,omitempty"`
	RetainedData *RetainedData `json:"retainedData,omitempty"`
}

// Restriction is a recorded processing restriction. It expires after a
// fixed 30 days and is not consulted by other components.
type Restriction struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"userId"`
	Type      RestrictionType `json:"type"`
	Reason    string          `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}
