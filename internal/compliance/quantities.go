package compliance

import (
	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/entity"
)

// Quantities are the derived amounts of one element.
type Quantities struct {
	Volume         float64
	ConcreteWeight float64
	SteelRatio     float64
	SteelWeight    float64
	Area           float64
}

// CrossSection is width x height for pillars and beams. Slabs have no height,
// their thickness takes its place.
func CrossSection(e entity.StructuralElement) float64 {
	if e.Type == constants.Slab {
		return e.Dimensions.Width * e.Dimensions.ThicknessOrZero()
	}
	return e.Dimensions.Width * e.Dimensions.HeightOrZero()
}

// Volume is w*h*l for pillars and beams and w*l*(t/100) for slabs.
func Volume(e entity.StructuralElement) float64 {
	d := e.Dimensions
	if e.Type == constants.Slab {
		return d.Width * d.Length * (d.ThicknessOrZero() / 100)
	}
	return d.Width * d.HeightOrZero() * d.Length
}

// SteelRatio is steel weight over the cross-section. Member length is not
// part of the ratio.
func SteelRatio(e entity.StructuralElement) float64 {
	cs := CrossSection(e)
	if cs <= 0 {
		return 0
	}
	return e.Materials.Steel.Weight / cs
}

// Measure computes the quantities of one element under r.
func (r Rules) Measure(e entity.StructuralElement) Quantities {
	vol := Volume(e)
	ratio := SteelRatio(e)
	return Quantities{
		Volume:         vol,
		ConcreteWeight: vol * r.ConcreteDensity,
		SteelRatio:     ratio,
		SteelWeight:    ratio * CrossSection(e) * e.Dimensions.Length * r.SteelDensity * r.SafetyFactor,
		Area:           e.Dimensions.Width * e.Dimensions.Length,
	}
}
