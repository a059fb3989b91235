// Package storage provides the entity store interface and implementations for Bifrost.
//
// The store is the persistence boundary consumed by the pattern execution
// engine in pkg/create: it issues graph identifiers, persists vertices and
// edges under label-level write handles, and answers point existence checks
// under an intra-statement visibility snapshot.
//
// Design Principles:
//   - Labeled property graph model
//   - Statement-scoped write handles (one acquisition per label per statement)
//   - Command-id visibility so a statement's earlier writes are seen by its
//     own later reads but never by the stage that feeds it rows
//   - Testability through dependency injection
//
// Example Usage:
//
//	store := storage.NewMemoryStore()
//	defer store.Close()
//
//	counter := storage.NewCommandCounter()
//	cmd := counter.Advance()
//
//	h, _ := store.OpenWrite("Person", storage.EntityVertex)
//	defer h.Close()
//
//	id, _ := h.NextID()
//	h.InsertVertex(id, storage.Properties{"name": "Alice"}, cmd)
//
//	ok, _ := store.Exists(id, cmd) // true: own write is visible
package storage

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidEdge       = errors.New("invalid edge: start or end vertex not found")
	ErrStoreClosed       = errors.New("store closed")
	ErrHandleClosed      = errors.New("write handle closed")
	ErrUnknownLabel      = errors.New("unknown label")
	ErrLabelKindMismatch = errors.New("label registered with a different entity kind")
	ErrLabelsExhausted   = errors.New("label id space exhausted")
	ErrSequenceExhausted = errors.New("label sequence exhausted")
)

// EntityKind distinguishes vertex labels from edge labels. A label belongs to
// exactly one kind for the lifetime of the store.
type EntityKind uint8

const (
	EntityVertex EntityKind = iota + 1
	EntityEdge
)

func (k EntityKind) String() string {
	switch k {
	case EntityVertex:
		return "vertex"
	case EntityEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// LabelID is the catalog-assigned numeric id of a label. It occupies the high
// 16 bits of every GraphID issued for that label.
type LabelID uint16

// GraphID globally and uniquely identifies one vertex or edge. The encoding
// packs the label id into the high 16 bits and a per-label sequence number
// into the low 48 bits, so an id alone is enough to locate the label
// partition the entity lives in. Immutable once assigned.
type GraphID int64

const (
	// sequenceBits is the width of the per-label sequence portion of a GraphID.
	sequenceBits = 48

	// MaxSequence is the largest sequence number a single label can issue.
	MaxSequence = int64(1)<<sequenceBits - 1
)

// NewGraphID packs a label id and sequence number into a GraphID.
func NewGraphID(label LabelID, seq int64) GraphID {
	return GraphID(int64(label)<<sequenceBits | (seq & MaxSequence))
}

// Label extracts the label id portion of the GraphID.
func (id GraphID) Label() LabelID {
	return LabelID(uint64(id) >> sequenceBits)
}

// Sequence extracts the per-label sequence portion of the GraphID.
func (id GraphID) Sequence() int64 {
	return int64(id) & MaxSequence
}

func (id GraphID) String() string {
	return fmt.Sprintf("%d.%d", id.Label(), id.Sequence())
}

// Properties is the opaque key-value document attached to a vertex or edge.
// The engine never interprets property values; it only moves them between the
// row being processed and storage.
type Properties map[string]any

// Copy returns a shallow copy. Nil maps copy to an empty map so stored
// records never alias caller memory.
func (p Properties) Copy() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Vertex is a stored vertex record: identifier, label, property map.
type Vertex struct {
	ID         GraphID    `json:"id"`
	Label      string     `json:"label"`
	Properties Properties `json:"properties"`
}

// Edge is a stored edge record. StartID and EndID are the endpoint vertex
// identifiers; both must exist at insert time.
type Edge struct {
	ID         GraphID    `json:"id"`
	StartID    GraphID    `json:"startId"`
	EndID      GraphID    `json:"endId"`
	Label      string     `json:"label"`
	Properties Properties `json:"properties"`
}

// StoredTuple is a handle to the most recent physical write the engine
// produced for a pattern variable. Sibling clauses that delete the entity
// through the same statement flip Deleted, which the existence-recheck path
// consults before touching storage.
type StoredTuple struct {
	ID      GraphID
	Label   string
	Deleted bool
}

// WriteHandle is a statement-scoped, write-intent acquisition of one label's
// partition. Holding the handle serializes concurrent writer statements on
// that label; readers are unaffected. Handles must be released on every exit
// path, including error paths.
type WriteHandle interface {
	// Label reports the catalog entry the handle was opened for.
	Label() LabelRef

	// NextID issues the next identifier for this label. Issued ids never
	// collide, including across handles and store reopens.
	NextID() (GraphID, error)

	// InsertVertex durably persists a vertex stamped with the writing
	// command id. Label constraints are checked first; a rejection surfaces
	// as *ConstraintViolationError.
	InsertVertex(id GraphID, props Properties, cmd CommandID) (*StoredTuple, error)

	// InsertEdge persists an edge. Both endpoints must be visible at cmd or
	// the insert fails with ErrInvalidEdge.
	InsertEdge(id, startID, endID GraphID, props Properties, cmd CommandID) (*StoredTuple, error)

	// Close releases the write intent. Safe to call once; further use of the
	// handle fails with ErrHandleClosed.
	Close() error
}

// Store is the entity store contract consumed by the pattern execution
// engine. Implementations must be safe for concurrent use.
type Store interface {
	// Catalog exposes the label catalog backing this store.
	Catalog() *Catalog

	// OpenWrite acquires a write handle for a label, registering the label
	// on first use. Registering an existing label under a different kind
	// fails with ErrLabelKindMismatch.
	OpenWrite(label string, kind EntityKind) (WriteHandle, error)

	// Exists reports whether the entity is live under the given snapshot:
	// inserted at or before snap and not deleted at or before snap. Writes
	// of other, uncommitted statements are never visible.
	Exists(id GraphID, snap CommandID) (bool, error)

	// GetVertex returns the vertex record if live under the snapshot.
	GetVertex(id GraphID, snap CommandID) (*Vertex, error)

	// GetEdge returns the edge record if live under the snapshot.
	GetEdge(id GraphID, snap CommandID) (*Edge, error)

	// DeleteVertex tombstones a vertex with the deleting command id. The
	// entity stays visible to snapshots taken before cmd.
	DeleteVertex(id GraphID, cmd CommandID) error

	// DeleteEdge tombstones an edge with the deleting command id.
	DeleteEdge(id GraphID, cmd CommandID) error

	// AddConstraint attaches a label-level integrity constraint checked on
	// every subsequent insert for that label.
	AddConstraint(c Constraint) error

	// VertexCount and EdgeCount report totals including tombstoned entities.
	VertexCount() (int64, error)
	EdgeCount() (int64, error)

	// Close releases the store. Further operations fail with ErrStoreClosed.
	Close() error
}
