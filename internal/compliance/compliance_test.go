package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

func f(v float64) *float64 { return &v }

func pillar(fck, steel float64) entity.StructuralElement {
	return entity.StructuralElement{
		ID:         uuid.New(),
		Type:       constants.Pillar,
		Number:     "P1",
		Dimensions: entity.Dimensions{Width: 20, Height: f(40), Length: 300},
		Materials:  entity.Materials{Concrete: entity.Concrete{Fck: fck}, Steel: entity.Steel{Weight: steel}},
	}
}

func slab(thickness, steel float64) entity.StructuralElement {
	return entity.StructuralElement{
		ID:         uuid.New(),
		Type:       constants.Slab,
		Number:     "L1",
		Dimensions: entity.Dimensions{Width: 300, Length: 500, Thickness: f(thickness)},
		Materials:  entity.Materials{Concrete: entity.Concrete{Fck: 25}, Steel: entity.Steel{Weight: steel}},
	}
}

func ofType[T any](items []T, keep func(T) bool) []T {
	var out []T
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func TestSlabVolumeAndWeight(t *testing.T) {
	r := DefaultRules()
	q := r.Measure(slab(15, 0))
	assert.InDelta(t, 22500, q.Volume, 1e-6)
	assert.InDelta(t, 22500*2400, q.ConcreteWeight, 1e-3)
	assert.InDelta(t, 300*500, q.Area, 1e-9)
}

func TestMemberQuantities(t *testing.T) {
	r := DefaultRules()
	q := r.Measure(pillar(25, 40))
	assert.InDelta(t, 20*40*300, q.Volume, 1e-9)
	assert.InDelta(t, 0.05, q.SteelRatio, 1e-12)
	assert.InDelta(t, 0.05*800*300*7850*1.4, q.SteelWeight, 1e-3)
	assert.InDelta(t, 20*300, q.Area, 1e-9)
}

func TestSteelRatioIgnoresLength(t *testing.T) {
	short := pillar(25, 8)
	long := pillar(25, 8)
	long.Dimensions.Length = 900
	assert.Equal(t, SteelRatio(short), SteelRatio(long))

	noHeight := pillar(25, 8)
	noHeight.Dimensions.Height = nil
	assert.Zero(t, SteelRatio(noHeight))
}

func concreteIssues(in []entity.Inconsistency) []entity.Inconsistency {
	return ofType(in, func(i entity.Inconsistency) bool { return i.Type == constants.InconsistencyConcreteStrength })
}

func steelIssues(in []entity.Inconsistency) []entity.Inconsistency {
	return ofType(in, func(i entity.Inconsistency) bool { return i.Type == constants.InconsistencySteelRatio })
}

func TestLowFckIsHighSeverity(t *testing.T) {
	r := DefaultRules()

	issues := concreteIssues(r.Inconsistencies(pillar(18, 8)))
	require.Len(t, issues, 1)
	assert.Equal(t, constants.SeverityHigh, issues[0].Severity)
	assert.Equal(t, 20.0, issues[0].Limit)
	assert.Equal(t, 18.0, issues[0].Value)
	assert.Contains(t, issues[0].Description, "18.0")
	assert.Contains(t, issues[0].Description, "20.0")
	assert.Contains(t, issues[0].Rule, "NBR 6118")

	assert.Empty(t, concreteIssues(r.Inconsistencies(pillar(25, 8))))
}

func TestHighFckIsMediumSeverity(t *testing.T) {
	issues := concreteIssues(DefaultRules().Inconsistencies(pillar(95, 8)))
	require.Len(t, issues, 1)
	assert.Equal(t, constants.SeverityMedium, issues[0].Severity)
	assert.Equal(t, 90.0, issues[0].Limit)
}

func TestPillarSteelAboveMaximum(t *testing.T) {
	r := DefaultRules()
	e := pillar(25, 40) // 40 / (20*40) = 5%

	issues := steelIssues(r.Inconsistencies(e))
	require.Len(t, issues, 1)
	assert.Equal(t, constants.SeverityMedium, issues[0].Severity)
	assert.Equal(t, "NBR 6118 - Taxa máxima de armadura em pilares", issues[0].Rule)
	assert.Contains(t, issues[0].Description, "5.00%")
	assert.Contains(t, issues[0].Description, "4.00%")
	assert.Equal(t, e.ID, issues[0].ElementID)

	opts := ofType(r.Optimizations(e), func(o entity.Optimization) bool { return o.Type == constants.OptimizationSteel })
	require.Len(t, opts, 1)
	assert.Equal(t, 0.04, opts[0].TargetValue)
	assert.InDelta(t, 0.01*240000*7850, opts[0].PotentialSavings.Quantity, 1e-3)
	assert.InDelta(t, 0.01*240000*7850*8, opts[0].PotentialSavings.Cost, 1e-2)
}

func TestSteelBelowMinimumIsHighSeverity(t *testing.T) {
	issues := steelIssues(DefaultRules().Inconsistencies(pillar(25, 0)))
	require.Len(t, issues, 1)
	assert.Equal(t, constants.SeverityHigh, issues[0].Severity)
	assert.Equal(t, "NBR 6118 - Taxa mínima de armadura em pilares", issues[0].Rule)
}

func TestSteelRangesPerType(t *testing.T) {
	r := DefaultRules()
	beam := pillar(25, 0)
	beam.Type = constants.Beam
	beam.Materials.Steel.Weight = 800 * 0.03 // 3% > 2.5%
	issues := steelIssues(r.Inconsistencies(beam))
	require.Len(t, issues, 1)
	assert.Equal(t, 0.025, issues[0].Limit)

	s := slab(15, 300*15*0.015) // 1.5% within slab range
	assert.Empty(t, steelIssues(r.Inconsistencies(s)))
}

func TestConcreteOptimization(t *testing.T) {
	r := DefaultRules()
	opts := ofType(r.Optimizations(pillar(30, 8)), func(o entity.Optimization) bool { return o.Type == constants.OptimizationConcrete })
	require.Len(t, opts, 1)
	assert.Equal(t, 25.0, opts[0].TargetValue)
	assert.InDelta(t, 240000*5.0/30.0, opts[0].PotentialSavings.Quantity, 1e-6)
	assert.InDelta(t, 240000*5.0/30.0*300, opts[0].PotentialSavings.Cost, 1e-3)

	assert.Empty(t, ofType(r.Optimizations(pillar(25, 8)), func(o entity.Optimization) bool { return o.Type == constants.OptimizationConcrete }))
}

func TestSlabDimensionOptimization(t *testing.T) {
	r := DefaultRules()
	opts := ofType(r.Optimizations(slab(15, 0)), func(o entity.Optimization) bool { return o.Type == constants.OptimizationDimensions })
	require.Len(t, opts, 1)
	assert.Equal(t, 10.0, opts[0].TargetValue)
	assert.InDelta(t, 5*300*500, opts[0].PotentialSavings.Quantity, 1e-9)
	assert.InDelta(t, 5*300*500*300, opts[0].PotentialSavings.Cost, 1e-6)

	assert.Empty(t, ofType(r.Optimizations(slab(12, 0)), func(o entity.Optimization) bool { return o.Type == constants.OptimizationDimensions }))

	// members never get a dimension suggestion
	assert.Empty(t, ofType(r.Optimizations(pillar(25, 8)), func(o entity.Optimization) bool { return o.Type == constants.OptimizationDimensions }))
}

func TestElementCanYieldThreeOptimizations(t *testing.T) {
	s := slab(15, 300*15*0.03) // 3% > 2%
	s.Materials.Concrete.Fck = 40
	assert.Len(t, DefaultRules().Optimizations(s), 3)
}

func TestComputeTotals(t *testing.T) {
	r := DefaultRules()
	p := pillar(25, 8)
	s := slab(15, 0)
	sum := Compute([]entity.StructuralElement{p, s}, r)

	assert.InDelta(t, 20*300+300*500, sum.TotalArea, 1e-9)
	assert.InDelta(t, (240000+22500)*2400, sum.TotalConcrete, 1e-3)
	assert.InDelta(t, 8*300*7850*1.4, sum.TotalSteel, 1e-3)
	// slab with no steel is below the slab minimum
	assert.Len(t, steelIssues(sum.Inconsistencies), 1)
}

func TestComputeEmpty(t *testing.T) {
	sum := Compute(nil, DefaultRules())
	assert.Zero(t, sum.TotalArea)
	assert.NotNil(t, sum.Inconsistencies)
	assert.NotNil(t, sum.Optimizations)
}

func TestRulesFromConfig(t *testing.T) {
	t.Setenv("RULES_MIN_FCK", "30")
	r := RulesFromConfig(common.LoadConfig().Rules)
	assert.Equal(t, 30.0, r.MinFck)
	assert.Equal(t, 0.04, r.PillarSteel.Max)
	assert.Equal(t, "NBR 6118 - Taxa máxima de armadura em pilares", r.PillarSteel.MaxRule)

	issues := concreteIssues(r.Inconsistencies(pillar(25, 8)))
	require.Len(t, issues, 1)
}

type memSource struct {
	elements []entity.StructuralElement
	err      error
}

func (m memSource) ListElementsByProject(context.Context, uuid.UUID) ([]entity.StructuralElement, error) {
	return m.elements, m.err
}

func TestEngineAnalyzeIsIdempotent(t *testing.T) {
	src := memSource{elements: []entity.StructuralElement{pillar(18, 40), slab(15, 0), pillar(30, 8)}}
	eng := NewEngine(src, DefaultRules(), nil)
	projectID := uuid.New()

	first, err := eng.Analyze(context.Background(), projectID)
	require.NoError(t, err)
	second, err := eng.Analyze(context.Background(), projectID)
	require.NoError(t, err)

	assert.Equal(t, projectID, first.ProjectID)
	assert.Equal(t, first.TotalArea, second.TotalArea)
	assert.Equal(t, first.TotalConcrete, second.TotalConcrete)
	assert.Equal(t, first.TotalSteel, second.TotalSteel)
	assert.Equal(t, first.Inconsistencies, second.Inconsistencies)
	assert.Equal(t, first.Optimizations, second.Optimizations)
	assert.Len(t, first.Elements, 3)
	assert.False(t, first.CreatedAt.IsZero())
}

func TestEngineAnalyzeLoadError(t *testing.T) {
	eng := NewEngine(memSource{err: errors.New("db down")}, DefaultRules(), nil)
	_, err := eng.Analyze(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "db down")
}
