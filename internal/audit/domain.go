package audit

import "time"

// Action identifies what operation occurred. The taxonomy is closed:
// writers pick from this list so that queries and the compliance report
// can slice on well-known values.
type Action string

const (
	ActionUserLogin       Action = "user.login"
	ActionUserLoginFailed Action = "user.login_failed"
	ActionUserLogout      Action = "user.logout"
	ActionTokenRevoked    Action = "auth.token_revoked"
	ActionAuthDenied      Action = "auth.denied"
	ActionRateLimited     Action = "ratelimit.blocked"

	ActionUserCreate     Action = "user.create"
	ActionUserRead       Action = "user.read"
	ActionUserUpdate     Action = "user.update"
	ActionUserDelete     Action = "user.delete"
	ActionUserDeactivate Action = "user.deactivate"
	ActionUserRoleChange Action = "user.role_change"

	ActionOrgCreate Action = "org.create"
	ActionOrgUpdate Action = "org.update"
	ActionOrgDelete Action = "org.delete"

	ActionTeamCreate Action = "team.create"
	ActionTeamUpdate Action = "team.update"
	ActionTeamDelete Action = "team.delete"

	ActionSalespersonCreate Action = "salesperson.create"
	ActionSalespersonUpdate Action = "salesperson.update"
	ActionSalespersonDelete Action = "salesperson.delete"

	ActionScorecardCreate   Action = "scorecard.create"
	ActionScorecardUpdate   Action = "scorecard.update"
	ActionScorecardDelete   Action = "scorecard.delete"
	ActionScorecardActivate Action = "scorecard.activate"

	ActionEvaluationCreate  Action = "evaluation.create"
	ActionEvaluationSubmit  Action = "evaluation.submit"
	ActionEvaluationApprove Action = "evaluation.approve"
	ActionEvaluationReject  Action = "evaluation.reject"
	ActionEvaluationUpdate  Action = "evaluation.update"
	ActionEvaluationDelete  Action = "evaluation.delete"

	ActionDataAccess         Action = "data.access"
	ActionDataExport         Action = "data.export"
	ActionDataErasureRefused Action = "data.erasure_refused"
	ActionGDPRRequest        Action = "gdpr.request"

	ActionAuditRead     Action = "audit.read"
	ActionAuditExport   Action = "audit.export"
	ActionSystemCleanup Action = "system.cleanup"
	ActionSystemError   Action = "system.error"
	ActionConfigChange  Action = "system.config_change"
)

// SecurityActions are the actions the security-event slice and the
// compliance report's security count select on.
var SecurityActions = []Action{
	ActionUserLoginFailed,
	ActionAuthDenied,
	ActionRateLimited,
	ActionTokenRevoked,
	ActionUserRoleChange,
	ActionUserDelete,
	ActionSystemError,
}

// DataAccessActions are the actions the data-access slice selects on.
var DataAccessActions = []Action{
	ActionDataAccess,
	ActionDataExport,
	ActionDataErasureRefused,
	ActionGDPRRequest,
	ActionUserRead,
	ActionAuditRead,
	ActionAuditExport,
}

// SystemActions count toward the compliance report's system-event total.
var SystemActions = []Action{
	ActionSystemCleanup,
	ActionSystemError,
	ActionConfigChange,
}

// Entry is an immutable record of an action, its actor, outcome, and
// context. Entries are never mutated; retention cleanup is the only
// delete path.
type Entry struct {
	ID             int64          `json:"id"`
	UserID         *int64         `json:"user_id,omitempty"`
	OrganizationID *int64         `json:"organization_id,omitempty"`
	Action         Action         `json:"action"`
	Resource       *string        `json:"resource,omitempty"`
	ResourceID     *string        `json:"resource_id,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	IPAddress      *string        `json:"ip_address,omitempty"`
	UserAgent      *string        `json:"user_agent,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
	Success        bool           `json:"success"`
	ErrorMessage   *string        `json:"error_message,omitempty"`
}

// Filters narrow audit queries. Zero values mean "no filter".
type Filters struct {
	UserID         *int64
	OrganizationID *int64
	Action         Action
	Actions        []Action
	Resource       string
	From           time.Time
	To             time.Time
	Limit          int
	Offset         int
}

// Result wraps a page of entries with totals.
type Result struct {
	Entries []Entry `json:"logs"`
	Total   int     `json:"total"`
	HasMore bool    `json:"has_more"`
}

// ComplianceReport aggregates audit activity over a window. SecurityScore
// is a coarse ratio, not a calibrated risk model.
type ComplianceReport struct {
	OrganizationID  int64     `json:"organization_id"`
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	TotalLogs       int       `json:"total_logs"`
	SecurityEvents  int       `json:"security_events"`
	DataAccessCount int       `json:"data_access_count"`
	ActiveUsers     int       `json:"active_users"`
	SystemEvents    int       `json:"system_events"`
	SecurityScore   int       `json:"security_score"`
}
