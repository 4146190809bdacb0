package core

// SpeciesID is a stable integer identifier for a Species.
type SpeciesID uint32

// PlannerKind records which external motion-planner variant a species is
// planned with. The core never calls the planner directly for this value;
// it is round-tripped through the wire format's motion_planners/mp_index
// fields. Nothing in this module picks an oracle.Planner from it: cmd/stas
// always uses oracle.EuclideanPlanner.
type PlannerKind int

const (
	PlannerUnknown PlannerKind = iota
	PlannerOMPL
	PlannerGraph
	PlannerGrid
)

func (k PlannerKind) String() string {
	switch k {
	case PlannerOMPL:
		return "ompl"
	case PlannerGraph:
		return "graph"
	case PlannerGrid:
		return "grid"
	default:
		return "unknown"
	}
}

// Species is an immutable record shared by every Robot of that kind.
type Species struct {
	ID              SpeciesID
	Name            string
	Traits          []float32 // length T
	BoundingRadius  float64
	Speed           float64
	Planner         PlannerKind
	TraitNames      []string // optional, diagnostics only; internal/wire does not carry it
}
