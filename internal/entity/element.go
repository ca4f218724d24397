package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/structural-analysis/constants"
)

// Dimensions are expressed in the drawing unit (cm). Height is set for
// pillars and beams, Thickness only for slabs.
type Dimensions struct {
	Width     float64  `json:"width"`
	Height    *float64 `json:"height,omitempty"`
	Length    float64  `json:"length"`
	Thickness *float64 `json:"thickness,omitempty"`
}

type Concrete struct {
	Fck float64 `json:"fck"` // MPa
}

type Steel struct {
	Weight float64 `json:"weight"` // kg
}

type Materials struct {
	Concrete Concrete `json:"concrete"`
	Steel    Steel    `json:"steel"`
}

// Location is a best-effort position on the source document.
type Location struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// StructuralElement is one physical member extracted from a drawing.
type StructuralElement struct {
	ID         uuid.UUID             `json:"id"`
	ProjectID  uuid.UUID             `json:"projectId"`
	FileID     *uuid.UUID            `json:"fileId,omitempty"`
	Type       constants.ElementType `json:"type"`
	Number     string                `json:"number"`
	Dimensions Dimensions            `json:"dimensions"`
	Materials  Materials             `json:"materials"`
	Location   Location              `json:"location"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// HeightOrZero returns the member height, or 0 when absent.
func (d Dimensions) HeightOrZero() float64 {
	if d.Height == nil {
		return 0
	}
	return *d.Height
}

// ThicknessOrZero returns the slab thickness, or 0 when absent.
func (d Dimensions) ThicknessOrZero() float64 {
	if d.Thickness == nil {
		return 0
	}
	return *d.Thickness
}

// TechnicalNote is a scalar annotation such as fck=30.
type TechnicalNote struct {
	ID        uuid.UUID          `json:"id"`
	ProjectID uuid.UUID          `json:"projectId"`
	FileID    *uuid.UUID         `json:"fileId,omitempty"`
	Type      constants.NoteType `json:"type"`
	Content   string             `json:"content"`
	Value     float64            `json:"value"`
	Location  Location           `json:"location"`
	CreatedAt time.Time          `json:"createdAt"`
}

// TableData holds the header row and the rows keyed by header.
type TableData struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

type Table struct {
	ID        uuid.UUID  `json:"id"`
	ProjectID uuid.UUID  `json:"projectId"`
	FileID    *uuid.UUID `json:"fileId,omitempty"`
	Type      string     `json:"type"`
	Data      TableData  `json:"data"`
	Location  Location   `json:"location"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ExtractedData is everything pulled out of one document.
type ExtractedData struct {
	Elements []StructuralElement `json:"elements"`
	Tables   []Table             `json:"tables"`
	Notes    []TechnicalNote     `json:"notes"`
}
