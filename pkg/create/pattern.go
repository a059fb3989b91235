package create

import (
	"fmt"

	"github.com/orneryd/bifrost/pkg/storage"
)

// SpecKind distinguishes vertex specs from edge specs within a path.
type SpecKind uint8

const (
	SpecVertex SpecKind = iota + 1
	SpecEdge
)

func (k SpecKind) String() string {
	switch k {
	case SpecVertex:
		return "vertex"
	case SpecEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// Mode selects the entity resolution policy for one pattern element.
type Mode uint8

const (
	// ModeInsert creates a new entity for the element.
	ModeInsert Mode = iota + 1

	// ModeReference resolves the element to a value bound earlier in the
	// statement, validating that the entity is still live.
	ModeReference
)

// Direction is the declared orientation of an edge spec. Edges carry no
// default: an unset direction is a modeling error surfaced at execution.
type Direction uint8

const (
	DirectionNone Direction = iota
	DirectionRight
	DirectionLeft
)

// NoSlot marks an element with no output slot (anonymous, or path-less).
const NoSlot = -1

// Spec is one pattern element, produced by the planning stage and immutable
// during execution. Specs are shared across all rows of a statement.
type Spec struct {
	Kind     SpecKind
	Label    string
	Variable string // empty for anonymous elements
	Slot     int    // output slot index, NoSlot when anonymous

	Mode      Mode
	Direction Direction // edges only

	// Props yields the property map attached at creation time. Nil means no
	// properties.
	Props PropertySource

	// EmitsOutput marks elements whose value must be bound for downstream
	// stages. InPath marks elements contributing to an enclosing path value.
	EmitsOutput bool
	InPath      bool

	// SkipExistenceCheck is set exactly when the element was created earlier
	// in the same statement, making re-validation redundant: the enclosing
	// transaction guarantees nothing else touched the entity yet. The
	// guarantee does not cover a same-row deletion through an alias
	// variable; that gap is accepted semantics.
	SkipExistenceCheck bool
}

// name returns the variable for error messages, falling back to the label.
func (s *Spec) name() string {
	if s.Variable != "" {
		return s.Variable
	}
	return s.Label
}

// PathPattern is one ordered path of a pattern: vertex specs and edge specs
// strictly alternating, vertex first and vertex last. PathSlot is the output
// slot of the enclosing path variable, or NoSlot.
type PathPattern struct {
	Specs    []*Spec
	PathSlot int
}

// Validate enforces the structural invariant: the first element is a vertex,
// vertices and edges alternate, and an edge always has a vertex on both
// sides.
func (p *PathPattern) Validate() error {
	if len(p.Specs) == 0 {
		return fmt.Errorf("empty path pattern")
	}
	if len(p.Specs)%2 == 0 {
		return fmt.Errorf("path pattern has even length %d: an edge is missing an endpoint", len(p.Specs))
	}
	for i, s := range p.Specs {
		if s == nil {
			return fmt.Errorf("path element %d is nil", i)
		}
		want := SpecVertex
		if i%2 == 1 {
			want = SpecEdge
		}
		if s.Kind != want {
			return fmt.Errorf("path element %d is a %s spec, want %s", i, s.Kind, want)
		}
		if s.Label == "" {
			return fmt.Errorf("path element %d has no label", i)
		}
		if s.Kind == SpecEdge && s.Mode != ModeInsert {
			return fmt.Errorf("path element %d: edges are always insert mode", i)
		}
		if s.Mode == ModeReference && s.Slot == NoSlot {
			return fmt.Errorf("path element %d: reference element %q has no slot to read", i, s.name())
		}
	}
	return nil
}

// Pattern is the full set of paths one CREATE clause materializes per row.
type Pattern struct {
	Paths []*PathPattern
}

// Validate checks every path.
func (p *Pattern) Validate() error {
	if len(p.Paths) == 0 {
		return fmt.Errorf("pattern has no paths")
	}
	for i, path := range p.Paths {
		if err := path.Validate(); err != nil {
			return fmt.Errorf("path %d: %w", i, err)
		}
	}
	return nil
}

// insertLabels collects every label that appears on an insert-mode element,
// with its entity kind. Write handles are opened once per label per
// statement.
func (p *Pattern) insertLabels() map[string]storage.EntityKind {
	labels := make(map[string]storage.EntityKind)
	for _, path := range p.Paths {
		for _, s := range path.Specs {
			if s.Mode != ModeInsert {
				continue
			}
			if s.Kind == SpecVertex {
				labels[s.Label] = storage.EntityVertex
			} else {
				labels[s.Label] = storage.EntityEdge
			}
		}
	}
	return labels
}

// maxSlot returns the highest output slot referenced anywhere in the
// pattern, or NoSlot when the pattern binds nothing.
func (p *Pattern) maxSlot() int {
	max := NoSlot
	for _, path := range p.Paths {
		if path.PathSlot > max {
			max = path.PathSlot
		}
		for _, s := range path.Specs {
			if s.Slot > max {
				max = s.Slot
			}
		}
	}
	return max
}
