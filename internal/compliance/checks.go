package compliance

import (
	"fmt"

	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

var typeNames = map[constants.ElementType]string{
	constants.Pillar: "pilar",
	constants.Beam:   "viga",
	constants.Slab:   "laje",
}

func label(e entity.StructuralElement) string {
	return fmt.Sprintf("%s %s", typeNames[e.Type], e.Number)
}

// Inconsistencies runs the four independent checks on one element.
func (r Rules) Inconsistencies(e entity.StructuralElement) []entity.Inconsistency {
	var out []entity.Inconsistency
	fck := e.Materials.Concrete.Fck

	if fck < r.MinFck {
		out = append(out, entity.Inconsistency{
			Type:        constants.InconsistencyConcreteStrength,
			Severity:    constants.SeverityHigh,
			Description: fmt.Sprintf("fck de %.1f MPa em %s abaixo do mínimo de %.1f MPa", fck, label(e), r.MinFck),
			ElementID:   e.ID,
			Rule:        ruleMinFck,
			Value:       fck,
			Limit:       r.MinFck,
		})
	}
	if fck > r.MaxFck {
		out = append(out, entity.Inconsistency{
			Type:        constants.InconsistencyConcreteStrength,
			Severity:    constants.SeverityMedium,
			Description: fmt.Sprintf("fck de %.1f MPa em %s acima do máximo de %.1f MPa", fck, label(e), r.MaxFck),
			ElementID:   e.ID,
			Rule:        ruleMaxFck,
			Value:       fck,
			Limit:       r.MaxFck,
		})
	}

	ratio := SteelRatio(e)
	rng := r.SteelRangeFor(e.Type)
	if ratio < rng.Min {
		out = append(out, entity.Inconsistency{
			Type:        constants.InconsistencySteelRatio,
			Severity:    constants.SeverityHigh,
			Description: fmt.Sprintf("Taxa de armadura de %.2f%% em %s abaixo do mínimo de %.2f%%", ratio*100, label(e), rng.Min*100),
			ElementID:   e.ID,
			Rule:        rng.MinRule,
			Value:       ratio,
			Limit:       rng.Min,
		})
	}
	if ratio > rng.Max {
		out = append(out, entity.Inconsistency{
			Type:        constants.InconsistencySteelRatio,
			Severity:    constants.SeverityMedium,
			Description: fmt.Sprintf("Taxa de armadura de %.2f%% em %s acima do máximo de %.2f%%", ratio*100, label(e), rng.Max*100),
			ElementID:   e.ID,
			Rule:        rng.MaxRule,
			Value:       ratio,
			Limit:       rng.Max,
		})
	}
	return out
}

// Optimizations proposes up to three independent savings for one element.
func (r Rules) Optimizations(e entity.StructuralElement) []entity.Optimization {
	var out []entity.Optimization
	vol := Volume(e)
	fck := e.Materials.Concrete.Fck

	target := r.MinFck + 5
	if fck > target {
		saved := vol * (fck - target) / fck
		out = append(out, entity.Optimization{
			Type:         constants.OptimizationConcrete,
			Description:  fmt.Sprintf("Reduzir fck de %s de %.1f para %.1f MPa", label(e), fck, target),
			CurrentValue: fck,
			TargetValue:  target,
			PotentialSavings: entity.Savings{
				Quantity: saved,
				Unit:     "m3",
				Cost:     saved * r.ConcreteCost,
			},
			ElementID: e.ID,
		})
	}

	ratio := SteelRatio(e)
	rng := r.SteelRangeFor(e.Type)
	if ratio > rng.Max {
		saved := (ratio - rng.Max) * vol * r.SteelDensity
		out = append(out, entity.Optimization{
			Type:         constants.OptimizationSteel,
			Description:  fmt.Sprintf("Reduzir taxa de armadura de %s de %.2f%% para %.2f%%", label(e), ratio*100, rng.Max*100),
			CurrentValue: ratio,
			TargetValue:  rng.Max,
			PotentialSavings: entity.Savings{
				Quantity: saved,
				Unit:     "kg",
				Cost:     saved * r.SteelCost,
			},
			ElementID: e.ID,
		})
	}

	if e.Type == constants.Slab {
		t := e.Dimensions.ThicknessOrZero()
		if t > r.SlabMaxThickness {
			// area x thickness delta, no density applied
			saved := (t - r.SlabTargetThickness) * e.Dimensions.Width * e.Dimensions.Length
			out = append(out, entity.Optimization{
				Type:         constants.OptimizationDimensions,
				Description:  fmt.Sprintf("Reduzir espessura de %s de %.0f para %.0f cm", label(e), t, r.SlabTargetThickness),
				CurrentValue: t,
				TargetValue:  r.SlabTargetThickness,
				PotentialSavings: entity.Savings{
					Quantity: saved,
					Unit:     "m3",
					Cost:     saved * r.ConcreteCost,
				},
				ElementID: e.ID,
			})
		}
	}
	return out
}
