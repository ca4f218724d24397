package constants

// ElementType is the kind of structural member.
type ElementType string

const (
	Pillar ElementType = "pillar"
	Beam   ElementType = "beam"
	Slab   ElementType = "slab"
)

var ElementTypes = []string{string(Pillar), string(Beam), string(Slab)}

// NoteType is the kind of scalar annotation found on a drawing.
type NoteType string

const (
	NoteFck   NoteType = "fck"
	NoteSteel NoteType = "steel"
	NoteLoad  NoteType = "load"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type InconsistencyType string

const (
	InconsistencyConcreteStrength InconsistencyType = "concrete_strength"
	InconsistencySteelRatio       InconsistencyType = "steel_ratio"
)

type OptimizationType string

const (
	OptimizationConcrete   OptimizationType = "concrete"
	OptimizationSteel      OptimizationType = "steel"
	OptimizationDimensions OptimizationType = "dimensions"
)

// DefaultTableType labels tables found by the pipe-line heuristic.
const DefaultTableType = "generic"
