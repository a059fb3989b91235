// Package create executes the CREATE portion of a graph query pipeline: it
// materializes a declarative pattern of vertices and edges against a
// storage.Store, binds every named pattern element into the shared row
// binding table, and assembles path values for path-bound patterns.
//
// The package is the execution engine only. Parsing and planning the pattern,
// expression evaluation, and the relational machinery that feeds rows into
// the executor are external collaborators, reached through the Pattern,
// PropertySource, and RowSource contracts.
package create

import (
	"fmt"

	"github.com/orneryd/bifrost/pkg/storage"
)

// ValueKind tags the content of a binding slot.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindVertex
	KindEdge
	KindPath
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindVertex:
		return "vertex"
	case KindEdge:
		return "edge"
	case KindPath:
		return "path"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is one tagged binding-slot value. Exactly the field matching Kind is
// set; the rest are nil.
type Value struct {
	Kind   ValueKind
	Vertex *storage.Vertex
	Edge   *storage.Edge
	Path   *Path
	Map    storage.Properties
}

// Null returns the empty value.
func Null() Value {
	return Value{Kind: KindNull}
}

// VertexValue wraps a vertex record.
func VertexValue(v *storage.Vertex) Value {
	return Value{Kind: KindVertex, Vertex: v}
}

// EdgeValue wraps an edge record.
func EdgeValue(e *storage.Edge) Value {
	return Value{Kind: KindEdge, Edge: e}
}

// PathValue wraps an assembled path.
func PathValue(p *Path) Value {
	return Value{Kind: KindPath, Path: p}
}

// MapValue wraps a property document, typically bound by an upstream stage
// as the evaluated property source for a pattern element.
func MapValue(m storage.Properties) Value {
	return Value{Kind: KindMap, Map: m}
}

// IsNull reports whether the value is unset.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// GraphID returns the identifier of a vertex or edge value.
func (v Value) GraphID() (storage.GraphID, error) {
	switch v.Kind {
	case KindVertex:
		return v.Vertex.ID, nil
	case KindEdge:
		return v.Edge.ID, nil
	default:
		return 0, fmt.Errorf("value of kind %s has no graph id", v.Kind)
	}
}
