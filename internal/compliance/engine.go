package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

// Summary is the computed part of a StructuralAnalysis.
type Summary struct {
	TotalArea       float64
	TotalConcrete   float64
	TotalSteel      float64
	Inconsistencies []entity.Inconsistency
	Optimizations   []entity.Optimization
}

// Compute is a pure function of the element set: the same elements always
// give the same totals and findings, in element order.
func Compute(elements []entity.StructuralElement, r Rules) Summary {
	s := Summary{
		Inconsistencies: []entity.Inconsistency{},
		Optimizations:   []entity.Optimization{},
	}
	for _, e := range elements {
		q := r.Measure(e)
		s.TotalArea += q.Area
		s.TotalConcrete += q.ConcreteWeight
		s.TotalSteel += q.SteelWeight
		s.Inconsistencies = append(s.Inconsistencies, r.Inconsistencies(e)...)
		s.Optimizations = append(s.Optimizations, r.Optimizations(e)...)
	}
	return s
}

// ElementSource loads the persisted elements of a project.
type ElementSource interface {
	ListElementsByProject(ctx context.Context, projectID uuid.UUID) ([]entity.StructuralElement, error)
}

// Engine applies Compute to a project's persisted elements. It never writes.
type Engine struct {
	elements ElementSource
	rules    Rules
	logger   *slog.Logger
	now      func() time.Time
}

func NewEngine(elements ElementSource, rules Rules, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{elements: elements, rules: rules, logger: logger, now: time.Now}
}

func (e *Engine) Rules() Rules { return e.rules }

// Analyze returns a fresh analysis snapshot for projectID.
func (e *Engine) Analyze(ctx context.Context, projectID uuid.UUID) (entity.StructuralAnalysis, error) {
	elements, err := e.elements.ListElementsByProject(ctx, projectID)
	if err != nil {
		return entity.StructuralAnalysis{}, fmt.Errorf("load elements: %w", err)
	}
	if elements == nil {
		elements = []entity.StructuralElement{}
	}

	s := Compute(elements, e.rules)
	now := e.now().UTC()
	common.LoggerFromContext(ctx, e.logger).Info("analysis computed",
		"project_id", projectID,
		"elements", len(elements),
		"inconsistencies", len(s.Inconsistencies),
		"optimizations", len(s.Optimizations),
	)
	return entity.StructuralAnalysis{
		ProjectID:       projectID,
		Elements:        elements,
		TotalArea:       s.TotalArea,
		TotalConcrete:   s.TotalConcrete,
		TotalSteel:      s.TotalSteel,
		Inconsistencies: s.Inconsistencies,
		Optimizations:   s.Optimizations,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
