package create

import (
	"fmt"

	"github.com/orneryd/bifrost/pkg/storage"
)

// resolveVertex resolves the vertex at the head of specs and returns its
// identifier so the caller can use it as an edge endpoint. If an edge spec
// follows, it recurses into resolveEdge before returning, so the whole
// remainder of the path is materialized by the time the first call unwinds.
//
// The remaining-elements slice is passed explicitly; there is no shared
// cursor between the mutually recursive resolvers.
func (e *Executor) resolveVertex(specs []*Spec) (storage.GraphID, error) {
	spec := specs[0]
	if spec.Kind != SpecVertex {
		return 0, fmt.Errorf("pattern element %s: expected a vertex spec", spec.name())
	}

	var id storage.GraphID

	switch spec.Mode {
	case ModeInsert:
		props, err := evalProps(spec.Props, e.binding)
		if err != nil {
			return 0, fmt.Errorf("evaluating properties for %s: %w", spec.name(), err)
		}

		h := e.handles[spec.Label]
		id, err = h.NextID()
		if err != nil {
			return 0, err
		}

		tuple, err := h.InsertVertex(id, props, e.writeCmd)
		if err != nil {
			return 0, err
		}
		e.stats.VerticesCreated++

		// Remember the physical write so later clauses referencing this
		// variable can recheck liveness without a storage scan.
		if spec.Variable != "" {
			e.binding.RecordWrite(spec.Variable, tuple)
		}

		if spec.EmitsOutput || spec.InPath {
			val := VertexValue(&storage.Vertex{
				ID:         id,
				Label:      spec.Label,
				Properties: props,
			})
			if spec.InPath {
				e.paths.append(val)
			}
			if spec.EmitsOutput && spec.Slot != NoSlot {
				e.binding.Bind(spec.Slot, val)
			}
		}

	case ModeReference:
		v := e.binding.Value(spec.Slot)
		if v.Kind != KindVertex {
			return 0, &TypeMismatchError{Variable: spec.name(), Expected: KindVertex, Got: v.Kind}
		}
		id = v.Vertex.ID

		// The entity may have been deleted since it was bound: explicitly
		// through this variable, or through another variable aliasing the
		// same entity. The recorded write catches the first, the storage
		// lookup the second. Elements created in this statement skip both;
		// nothing else can have touched the entity yet.
		if !spec.SkipExistenceCheck {
			if t, ok := e.binding.LastWrite(spec.Variable); ok && t.Deleted {
				return 0, &StaleReferenceError{Variable: spec.name()}
			}
			live, err := e.store.Exists(id, e.writeCmd)
			if err != nil {
				return 0, err
			}
			if !live {
				return 0, &StaleReferenceError{Variable: spec.name()}
			}
		}

		if spec.InPath {
			e.paths.append(v)
		}

	default:
		return 0, fmt.Errorf("pattern element %s: unknown mode %d", spec.name(), spec.Mode)
	}

	if len(specs) > 1 {
		if err := e.resolveEdge(specs[1:], id); err != nil {
			return 0, err
		}
	}

	return id, nil
}

// resolveEdge materializes the edge at the head of specs. The far endpoint
// is resolved first: an edge record needs both endpoint identifiers at
// insert time, and the far vertex may not exist yet.
func (e *Executor) resolveEdge(specs []*Spec, nearID storage.GraphID) error {
	spec := specs[0]
	if spec.Kind != SpecEdge {
		return fmt.Errorf("pattern element %s: expected an edge spec", spec.name())
	}
	if spec.Direction != DirectionRight && spec.Direction != DirectionLeft {
		return &MissingDirectionError{Element: spec.name()}
	}

	// Values accumulated before this edge belong ahead of it in the path;
	// set them aside while the far side of the path accumulates.
	prefix := e.paths.detach()

	farID, err := e.resolveVertex(specs[1:])
	if err != nil {
		return err
	}

	// direction right: (near)-[edge]->(far)
	// direction left:  (near)<-[edge]-(far)
	startID, endID := nearID, farID
	if spec.Direction == DirectionLeft {
		startID, endID = farID, nearID
	}

	props, err := evalProps(spec.Props, e.binding)
	if err != nil {
		return fmt.Errorf("evaluating properties for %s: %w", spec.name(), err)
	}

	h := e.handles[spec.Label]
	id, err := h.NextID()
	if err != nil {
		return err
	}

	tuple, err := h.InsertEdge(id, startID, endID, props, e.writeCmd)
	if err != nil {
		return err
	}
	e.stats.EdgesCreated++

	if spec.Variable != "" {
		e.binding.RecordWrite(spec.Variable, tuple)
	}

	var inPath *Value
	if spec.EmitsOutput || spec.InPath {
		val := EdgeValue(&storage.Edge{
			ID:         id,
			StartID:    startID,
			EndID:      endID,
			Label:      spec.Label,
			Properties: props,
		})
		if spec.EmitsOutput && spec.Slot != NoSlot {
			e.binding.Bind(spec.Slot, val)
		}
		if spec.InPath {
			inPath = &val
		}
	}

	e.paths.splice(prefix, inPath)
	return nil
}
