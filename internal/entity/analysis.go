package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/structural-analysis/constants"
)

type Inconsistency struct {
	Type        constants.InconsistencyType `json:"type"`
	Severity    constants.Severity          `json:"severity"`
	Description string                      `json:"description"`
	ElementID   uuid.UUID                   `json:"elementId"`
	Rule        string                      `json:"rule"`
	Value       float64                     `json:"value"`
	Limit       float64                     `json:"limit"`
}

type Savings struct {
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Cost     float64 `json:"cost"`
}

type Optimization struct {
	Type             constants.OptimizationType `json:"type"`
	Description      string                     `json:"description"`
	CurrentValue     float64                    `json:"currentValue"`
	TargetValue      float64                    `json:"targetValue"`
	PotentialSavings Savings                    `json:"potentialSavings"`
	ElementID        uuid.UUID                  `json:"elementId"`
}

// StructuralAnalysis is one analysis run (a row of project_reports).
type StructuralAnalysis struct {
	ID              uuid.UUID           `json:"id"`
	ProjectID       uuid.UUID           `json:"projectId"`
	Status          constants.Status    `json:"status"`
	ErrorMessage    *string             `json:"errorMessage,omitempty"`
	Progress        int                 `json:"progress"`
	Elements        []StructuralElement `json:"elements"`
	TotalArea       float64             `json:"totalArea"`
	TotalConcrete   float64             `json:"totalConcrete"`
	TotalSteel      float64             `json:"totalSteel"`
	Inconsistencies []Inconsistency     `json:"inconsistencies"`
	Optimizations   []Optimization      `json:"optimizations"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}
