// Package evaluations handles scorecard-based evaluation submission,
// the approval workflow and analytics aggregation over the results.
package evaluations

import "time"

// Evaluation statuses. Submitted evaluations wait for a
// supervisor-tier decision.
const (
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Evaluation is one scored review of a salesperson against a
// scorecard. TotalScore is the weighted sum over the criterion scores,
// computed server-side on submission.
type Evaluation struct {
	ID            int64            `json:"id"`
	SalespersonID int64            `json:"salespersonId"`
	ScorecardID   int64            `json:"scorecardId"`
	EvaluatorID   int64            `json:"evaluatorId"`
	Status        string           `json:"status"`
	TotalScore    float64          `json:"totalScore"`
	Comment       *string          `json:"comment"`
	Scores        []CriterionScore `json:"scores"`
	EvaluatedAt   time.Time        `json:"evaluatedAt"`
	DecidedBy     *int64           `json:"decidedBy"`
	DecidedAt     *time.Time       `json:"decidedAt"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// CriterionScore is one 0-5 score against a scorecard criterion.
type CriterionScore struct {
	CriterionID int64   `json:"criterionId"`
	Score       float64 `json:"score"`
	Weight      int     `json:"weight"`
}

// SubmitInput carries a new evaluation.
type SubmitInput struct {
	SalespersonID int64        `json:"salespersonId" validate:"required,gt=0"`
	ScorecardID   int64        `json:"scorecardId" validate:"required,gt=0"`
	Comment       *string      `json:"comment"`
	Scores        []ScoreInput `json:"scores" validate:"required,min=1,dive"`
	EvaluatedAt   *time.Time   `json:"evaluatedAt"`
}

// ScoreInput is one submitted criterion score.
type ScoreInput struct {
	CriterionID int64   `json:"criterionId" validate:"required,gt=0"`
	Score       float64 `json:"score" validate:"gte=0,lte=5"`
}

// Filters narrows evaluation listings.
type Filters struct {
	SalespersonID *int64
	TeamID        *int64
	ScorecardID   *int64
	EvaluatorID   *int64
	Status        string
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}

// TeamAverage is one row of the per-team analytics aggregation.
type TeamAverage struct {
	TeamID       int64   `json:"teamId"`
	TeamName     string  `json:"teamName"`
	Evaluations  int     `json:"evaluations"`
	AverageScore float64 `json:"averageScore"`
}

// SalespersonAverage is one row of the per-salesperson aggregation.
type SalespersonAverage struct {
	SalespersonID int64   `json:"salespersonId"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	TeamID        int64   `json:"teamId"`
	Evaluations   int     `json:"evaluations"`
	AverageScore  float64 `json:"averageScore"`
	BestScore     float64 `json:"bestScore"`
	WorstScore    float64 `json:"worstScore"`
}

// Window bounds an analytics aggregation.
type Window struct {
	From time.Time
	To   time.Time
}
