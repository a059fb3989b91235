// Package storage provides storage implementations.
// MemoryStore is a thread-safe in-memory store for testing and small datasets.
package storage

import (
	"fmt"
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
// It's useful for:
// - Unit testing (no disk I/O)
// - Small datasets that fit in RAM
//
// Visibility bookkeeping matches the persistent engine: every record keeps
// the command id that created it and, once tombstoned, the command id that
// deleted it.
type MemoryStore struct {
	mu       sync.RWMutex
	catalog  *Catalog
	vertices map[GraphID]*vertexRecord
	edges    map[GraphID]*edgeRecord

	constraints map[string][]Constraint

	// labelLocks serialize concurrent writer statements per label. A lock is
	// held for the lifetime of a WriteHandle, not per insert.
	labelMu    sync.Mutex
	labelLocks map[LabelID]*sync.Mutex

	closed bool
}

type vertexRecord struct {
	vertex    Vertex
	createdAt CommandID
	deletedAt CommandID // 0 while live
	tuple     *StoredTuple
}

type edgeRecord struct {
	edge      Edge
	createdAt CommandID
	deletedAt CommandID
	tuple     *StoredTuple
}

// NewMemoryStore creates a new in-memory store with an empty catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		catalog:     NewCatalog(),
		vertices:    make(map[GraphID]*vertexRecord),
		edges:       make(map[GraphID]*edgeRecord),
		constraints: make(map[string][]Constraint),
		labelLocks:  make(map[LabelID]*sync.Mutex),
	}
}

// Catalog returns the label catalog.
func (m *MemoryStore) Catalog() *Catalog {
	return m.catalog
}

// OpenWrite acquires the label's writer lock for the duration of the
// returned handle. The label is registered on first use.
func (m *MemoryStore) OpenWrite(label string, kind EntityKind) (WriteHandle, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}

	ref, err := m.catalog.Resolve(label, kind)
	if err != nil {
		return nil, err
	}

	m.labelMu.Lock()
	lock := m.labelLocks[ref.ID]
	if lock == nil {
		lock = &sync.Mutex{}
		m.labelLocks[ref.ID] = lock
	}
	m.labelMu.Unlock()

	lock.Lock()
	return &memoryWriteHandle{store: m, ref: ref, lock: lock}, nil
}

// Exists reports whether the entity is live under the snapshot.
func (m *MemoryStore) Exists(id GraphID, snap CommandID) (bool, error) {
	if id == 0 {
		return false, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrStoreClosed
	}

	if rec, ok := m.vertices[id]; ok {
		return rec.visibleAt(snap), nil
	}
	if rec, ok := m.edges[id]; ok {
		return rec.visibleAt(snap), nil
	}
	return false, nil
}

// GetVertex retrieves a vertex visible under the snapshot.
func (m *MemoryStore) GetVertex(id GraphID, snap CommandID) (*Vertex, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	rec, ok := m.vertices[id]
	if !ok || !rec.visibleAt(snap) {
		return nil, ErrNotFound
	}

	v := rec.vertex
	v.Properties = rec.vertex.Properties.Copy()
	return &v, nil
}

// GetEdge retrieves an edge visible under the snapshot.
func (m *MemoryStore) GetEdge(id GraphID, snap CommandID) (*Edge, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	rec, ok := m.edges[id]
	if !ok || !rec.visibleAt(snap) {
		return nil, ErrNotFound
	}

	e := rec.edge
	e.Properties = rec.edge.Properties.Copy()
	return &e, nil
}

// DeleteVertex tombstones a vertex with the deleting command id.
func (m *MemoryStore) DeleteVertex(id GraphID, cmd CommandID) error {
	if id == 0 {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	rec, ok := m.vertices[id]
	if !ok || rec.deletedAt != 0 {
		return ErrNotFound
	}

	rec.deletedAt = cmd
	rec.tuple.Deleted = true
	return nil
}

// DeleteEdge tombstones an edge with the deleting command id.
func (m *MemoryStore) DeleteEdge(id GraphID, cmd CommandID) error {
	if id == 0 {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	rec, ok := m.edges[id]
	if !ok || rec.deletedAt != 0 {
		return ErrNotFound
	}

	rec.deletedAt = cmd
	rec.tuple.Deleted = true
	return nil
}

// AddConstraint attaches a label-level constraint.
func (m *MemoryStore) AddConstraint(c Constraint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.constraints[c.Label] = append(m.constraints[c.Label], c)
	return nil
}

// VertexCount returns the total number of vertex records, tombstones included.
func (m *MemoryStore) VertexCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrStoreClosed
	}
	return int64(len(m.vertices)), nil
}

// EdgeCount returns the total number of edge records, tombstones included.
func (m *MemoryStore) EdgeCount() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrStoreClosed
	}
	return int64(len(m.edges)), nil
}

// Close marks the store closed. Outstanding write handles become unusable.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (r *vertexRecord) visibleAt(snap CommandID) bool {
	return r.createdAt <= snap && (r.deletedAt == 0 || r.deletedAt > snap)
}

func (r *edgeRecord) visibleAt(snap CommandID) bool {
	return r.createdAt <= snap && (r.deletedAt == 0 || r.deletedAt > snap)
}

// memoryWriteHandle holds one label's writer lock for a statement.
type memoryWriteHandle struct {
	store  *MemoryStore
	ref    LabelRef
	lock   *sync.Mutex
	closed bool
}

func (h *memoryWriteHandle) Label() LabelRef {
	return h.ref
}

func (h *memoryWriteHandle) NextID() (GraphID, error) {
	if h.closed {
		return 0, ErrHandleClosed
	}
	return h.store.catalog.NextSequence(h.ref.Name)
}

func (h *memoryWriteHandle) InsertVertex(id GraphID, props Properties, cmd CommandID) (*StoredTuple, error) {
	if h.closed {
		return nil, ErrHandleClosed
	}
	if h.ref.Kind != EntityVertex {
		return nil, fmt.Errorf("%w: %q is an edge label", ErrLabelKindMismatch, h.ref.Name)
	}
	if id == 0 {
		return nil, ErrInvalidID
	}

	m := h.store
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	if _, exists := m.vertices[id]; exists {
		return nil, ErrAlreadyExists
	}
	if err := checkConstraints(m.constraints[h.ref.Name], h.ref.Name, props); err != nil {
		return nil, err
	}

	tuple := &StoredTuple{ID: id, Label: h.ref.Name}
	m.vertices[id] = &vertexRecord{
		vertex: Vertex{
			ID:         id,
			Label:      h.ref.Name,
			Properties: props.Copy(),
		},
		createdAt: cmd,
		tuple:     tuple,
	}
	return tuple, nil
}

func (h *memoryWriteHandle) InsertEdge(id, startID, endID GraphID, props Properties, cmd CommandID) (*StoredTuple, error) {
	if h.closed {
		return nil, ErrHandleClosed
	}
	if h.ref.Kind != EntityEdge {
		return nil, fmt.Errorf("%w: %q is a vertex label", ErrLabelKindMismatch, h.ref.Name)
	}
	if id == 0 || startID == 0 || endID == 0 {
		return nil, ErrInvalidID
	}

	m := h.store
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	if _, exists := m.edges[id]; exists {
		return nil, ErrAlreadyExists
	}

	// Both endpoints must be live under the writing command id.
	start, ok := m.vertices[startID]
	if !ok || !start.visibleAt(cmd) {
		return nil, ErrInvalidEdge
	}
	end, ok := m.vertices[endID]
	if !ok || !end.visibleAt(cmd) {
		return nil, ErrInvalidEdge
	}

	if err := checkConstraints(m.constraints[h.ref.Name], h.ref.Name, props); err != nil {
		return nil, err
	}

	tuple := &StoredTuple{ID: id, Label: h.ref.Name}
	m.edges[id] = &edgeRecord{
		edge: Edge{
			ID:         id,
			StartID:    startID,
			EndID:      endID,
			Label:      h.ref.Name,
			Properties: props.Copy(),
		},
		createdAt: cmd,
		tuple:     tuple,
	}
	return tuple, nil
}

func (h *memoryWriteHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.lock.Unlock()
	return nil
}
