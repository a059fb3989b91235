package create

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/bifrost/pkg/storage"
)

// Pattern file layout:
//
//	paths:
//	  - bind: p
//	    elements:
//	      - vertex: {label: Person, variable: a, properties: {name: "Ada"}}
//	      - edge:   {label: KNOWS, direction: right}
//	      - vertex: {label: Person, variable: b, properties: {name: "Lin"}}
//
// Variables name slots in the binding. A vertex variable that already
// appeared earlier in the pattern makes the later element a reference to
// the same entity instead of a second creation.
type patternFile struct {
	Paths []pathFile `yaml:"paths"`
}

type pathFile struct {
	Bind     string        `yaml:"bind"`
	Elements []elementFile `yaml:"elements"`
}

type elementFile struct {
	Vertex *vertexFile `yaml:"vertex"`
	Edge   *edgeFile   `yaml:"edge"`
}

type vertexFile struct {
	Label      string         `yaml:"label"`
	Variable   string         `yaml:"variable"`
	Properties map[string]any `yaml:"properties"`
}

type edgeFile struct {
	Label      string         `yaml:"label"`
	Variable   string         `yaml:"variable"`
	Direction  string         `yaml:"direction"`
	Properties map[string]any `yaml:"properties"`
}

// LoadPatternFile reads and parses a pattern file from disk.
func LoadPatternFile(path string) (*Pattern, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read pattern file: %w", err)
	}
	return ParsePattern(data)
}

// ParsePattern decodes a YAML pattern document into a validated Pattern.
// It also returns the number of binding slots the pattern uses, so the
// caller can size the binding with NewBinding.
func ParsePattern(data []byte) (*Pattern, int, error) {
	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, 0, fmt.Errorf("failed to parse pattern file: %w", err)
	}
	if len(file.Paths) == 0 {
		return nil, 0, fmt.Errorf("pattern file declares no paths")
	}

	slots := map[string]int{}
	nextSlot := 0
	allocSlot := func(variable string) int {
		if s, ok := slots[variable]; ok {
			return s
		}
		s := nextSlot
		slots[variable] = s
		nextSlot++
		return s
	}

	pattern := &Pattern{}
	for pi, pf := range file.Paths {
		pp := &PathPattern{PathSlot: NoSlot}
		inPath := pf.Bind != ""
		if inPath {
			if _, dup := slots[pf.Bind]; dup {
				return nil, 0, fmt.Errorf("path %d: variable %q already in use", pi, pf.Bind)
			}
			pp.PathSlot = allocSlot(pf.Bind)
		}

		for ei, ef := range pf.Elements {
			switch {
			case ef.Vertex != nil && ef.Edge == nil:
				spec, err := vertexSpec(ef.Vertex, slots, allocSlot)
				if err != nil {
					return nil, 0, fmt.Errorf("path %d element %d: %w", pi, ei, err)
				}
				spec.InPath = inPath
				pp.Specs = append(pp.Specs, spec)

			case ef.Edge != nil && ef.Vertex == nil:
				spec, err := edgeSpec(ef.Edge, slots, allocSlot)
				if err != nil {
					return nil, 0, fmt.Errorf("path %d element %d: %w", pi, ei, err)
				}
				spec.InPath = inPath
				pp.Specs = append(pp.Specs, spec)

			default:
				return nil, 0, fmt.Errorf("path %d element %d: exactly one of vertex or edge must be set", pi, ei)
			}
		}

		pattern.Paths = append(pattern.Paths, pp)
	}

	if err := pattern.Validate(); err != nil {
		return nil, 0, err
	}
	return pattern, nextSlot, nil
}

func vertexSpec(vf *vertexFile, slots map[string]int, allocSlot func(string) int) (*Spec, error) {
	spec := &Spec{
		Kind:     SpecVertex,
		Label:    vf.Label,
		Variable: vf.Variable,
		Slot:     NoSlot,
		Mode:     ModeInsert,
	}

	if vf.Variable != "" {
		if _, seen := slots[vf.Variable]; seen {
			// Later mention of the same variable refers back to the
			// entity created at its first mention. The entity cannot
			// have been deleted in between, so skip the liveness check.
			spec.Mode = ModeReference
			spec.Slot = slots[vf.Variable]
			spec.SkipExistenceCheck = true
			if len(vf.Properties) > 0 {
				return nil, fmt.Errorf("vertex %q: properties not allowed on a repeated variable", vf.Variable)
			}
			return spec, nil
		}
		spec.Slot = allocSlot(vf.Variable)
		spec.EmitsOutput = true
	}

	if len(vf.Properties) > 0 {
		spec.Props = ConstProps(storage.Properties(vf.Properties))
	}
	return spec, nil
}

func edgeSpec(ef *edgeFile, slots map[string]int, allocSlot func(string) int) (*Spec, error) {
	spec := &Spec{
		Kind:     SpecEdge,
		Label:    ef.Label,
		Variable: ef.Variable,
		Slot:     NoSlot,
		Mode:     ModeInsert,
	}

	switch ef.Direction {
	case "right", "->":
		spec.Direction = DirectionRight
	case "left", "<-":
		spec.Direction = DirectionLeft
	case "":
		spec.Direction = DirectionNone
	default:
		return nil, fmt.Errorf("edge %q: invalid direction %q", ef.Label, ef.Direction)
	}

	if ef.Variable != "" {
		if _, seen := slots[ef.Variable]; seen {
			return nil, fmt.Errorf("edge %q: variable %q already in use", ef.Label, ef.Variable)
		}
		spec.Slot = allocSlot(ef.Variable)
		spec.EmitsOutput = true
	}

	if len(ef.Properties) > 0 {
		spec.Props = ConstProps(storage.Properties(ef.Properties))
	}
	return spec, nil
}
