package compliance

import (
	"github.com/joseph-ayodele/structural-analysis/constants"
	"github.com/joseph-ayodele/structural-analysis/internal/common"
)

// Rules are the NBR 6118 thresholds and cost factors used by Compute.
// Steel ratios are fractions (0.04 == 4%).
type Rules struct {
	MinFck float64
	MaxFck float64

	PillarSteel SteelRange
	BeamSteel   SteelRange
	SlabSteel   SteelRange

	ConcreteDensity float64 // kg/m³
	SteelDensity    float64 // kg/m³
	SafetyFactor    float64

	ConcreteCost float64 // per m³
	SteelCost    float64 // per kg

	// dimension suggestion for slabs
	SlabMaxThickness    float64
	SlabTargetThickness float64
}

type SteelRange struct {
	Min, Max float64
	MinRule  string
	MaxRule  string
}

const (
	ruleMinFck = "NBR 6118 - Resistência mínima do concreto"
	ruleMaxFck = "NBR 6118 - Resistência máxima do concreto"
)

// DefaultRules returns the NBR 6118 defaults.
func DefaultRules() Rules {
	return Rules{
		MinFck: 20,
		MaxFck: 90,
		PillarSteel: SteelRange{
			Min: 0.004, Max: 0.04,
			MinRule: "NBR 6118 - Taxa mínima de armadura em pilares",
			MaxRule: "NBR 6118 - Taxa máxima de armadura em pilares",
		},
		BeamSteel: SteelRange{
			Min: 0.0015, Max: 0.025,
			MinRule: "NBR 6118 - Taxa mínima de armadura em vigas",
			MaxRule: "NBR 6118 - Taxa máxima de armadura em vigas",
		},
		SlabSteel: SteelRange{
			Min: 0.001, Max: 0.02,
			MinRule: "NBR 6118 - Taxa mínima de armadura em lajes",
			MaxRule: "NBR 6118 - Taxa máxima de armadura em lajes",
		},
		ConcreteDensity:     2400,
		SteelDensity:        7850,
		SafetyFactor:        1.4,
		ConcreteCost:        300,
		SteelCost:           8,
		SlabMaxThickness:    12,
		SlabTargetThickness: 10,
	}
}

// RulesFromConfig overlays configured values on the defaults.
func RulesFromConfig(c common.RulesConfig) Rules {
	r := DefaultRules()
	r.MinFck = c.MinFck
	r.MaxFck = c.MaxFck
	r.PillarSteel.Min, r.PillarSteel.Max = c.PillarMinSteel, c.PillarMaxSteel
	r.BeamSteel.Min, r.BeamSteel.Max = c.BeamMinSteel, c.BeamMaxSteel
	r.SlabSteel.Min, r.SlabSteel.Max = c.SlabMinSteel, c.SlabMaxSteel
	r.ConcreteDensity = c.ConcreteDensity
	r.SteelDensity = c.SteelDensity
	r.SafetyFactor = c.SafetyFactor
	r.ConcreteCost = c.ConcreteCost
	r.SteelCost = c.SteelCost
	return r
}

// SteelRangeFor returns the allowed steel ratio range of an element type.
func (r Rules) SteelRangeFor(t constants.ElementType) SteelRange {
	switch t {
	case constants.Pillar:
		return r.PillarSteel
	case constants.Beam:
		return r.BeamSteel
	default:
		return r.SlabSteel
	}
}
