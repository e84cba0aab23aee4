// Package scorecards manages weighted behavioral scorecard templates.
// A scorecard's criterion weights always sum to exactly 100.
package scorecards

import "time"

// Scorecard is an evaluation template.
type Scorecard struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	IsActive    bool        `json:"isActive"`
	Criteria    []Criterion `json:"criteria"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Criterion is one weighted behavior on a scorecard.
type Criterion struct {
	ID          int64   `json:"id"`
	ScorecardID int64   `json:"scorecardId"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Weight      int     `json:"weight"`
	Position    int     `json:"position"`
}

// Input carries create/update fields for a scorecard with its criteria.
type Input struct {
	Name        string           `json:"name" validate:"required"`
	Description *string          `json:"description"`
	Criteria    []CriterionInput `json:"criteria" validate:"required,min=1,dive"`
}

// CriterionInput carries one criterion's fields.
type CriterionInput struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	Weight      int     `json:"weight" validate:"required,gt=0,lte=100"`
}

// WeightSum returns the total weight across the criteria.
func (in Input) WeightSum() int {
	sum := 0
	for _, c := range in.Criteria {
		sum += c.Weight
	}
	return sum
}
