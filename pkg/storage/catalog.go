package storage

import (
	"fmt"
	"sync"
)

// LabelRef is one catalog entry: the physical identity of a label.
type LabelRef struct {
	ID   LabelID    `json:"id"`
	Name string     `json:"name"`
	Kind EntityKind `json:"kind"`
}

// Catalog maps label names to label ids and issues per-label sequence
// numbers for graph identifiers. It is the authority for the label portion
// of every GraphID the store hands out.
//
// Catalog is safe for concurrent use. Persistent engines snapshot and
// restore it around restarts so issued identifiers never repeat.
type Catalog struct {
	mu       sync.Mutex
	byName   map[string]*catalogEntry
	byID     map[LabelID]*catalogEntry
	nextID   LabelID

	// modified receives the post-mutation state after every change, still
	// under mu. Persistent stores use it to write the catalog through; nil
	// for volatile stores.
	modified func(catalogState)
}

type catalogEntry struct {
	ref     LabelRef
	nextSeq int64
}

// NewCatalog returns an empty catalog. Label ids start at 1; id 0 is
// reserved so the zero GraphID is never a valid identifier.
func NewCatalog() *Catalog {
	return &Catalog{
		byName: make(map[string]*catalogEntry),
		byID:   make(map[LabelID]*catalogEntry),
		nextID: 1,
	}
}

// Resolve returns the catalog entry for a label, registering it on first
// use. A label name is bound to one entity kind forever; resolving it under
// the other kind fails with ErrLabelKindMismatch.
func (c *Catalog) Resolve(name string, kind EntityKind) (LabelRef, error) {
	if name == "" {
		return LabelRef{}, fmt.Errorf("%w: empty label name", ErrUnknownLabel)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.byName[name]; ok {
		if e.ref.Kind != kind {
			return LabelRef{}, fmt.Errorf("%w: %q is a %s label", ErrLabelKindMismatch, name, e.ref.Kind)
		}
		return e.ref, nil
	}

	if c.nextID == 0 { // wrapped past the uint16 space
		return LabelRef{}, ErrLabelsExhausted
	}

	e := &catalogEntry{
		ref:     LabelRef{ID: c.nextID, Name: name, Kind: kind},
		nextSeq: 1,
	}
	c.byName[name] = e
	c.byID[e.ref.ID] = e
	c.nextID++

	if c.modified != nil {
		c.modified(c.snapshotLocked())
	}
	return e.ref, nil
}

// Lookup returns the entry for a label name without registering it.
func (c *Catalog) Lookup(name string) (LabelRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byName[name]
	if !ok {
		return LabelRef{}, false
	}
	return e.ref, true
}

// LookupID returns the entry for a label id. Used to locate the partition an
// existing GraphID belongs to.
func (c *Catalog) LookupID(id LabelID) (LabelRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byID[id]
	if !ok {
		return LabelRef{}, false
	}
	return e.ref, true
}

// NextSequence issues the next sequence number for a label and returns the
// packed GraphID. Sequence numbers are never reused.
func (c *Catalog) NextSequence(name string) (GraphID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, name)
	}
	if e.nextSeq > MaxSequence {
		return 0, fmt.Errorf("%w: %q", ErrSequenceExhausted, name)
	}

	id := NewGraphID(e.ref.ID, e.nextSeq)
	e.nextSeq++

	if c.modified != nil {
		c.modified(c.snapshotLocked())
	}
	return id, nil
}

// Labels returns all registered labels in unspecified order.
func (c *Catalog) Labels() []LabelRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LabelRef, 0, len(c.byName))
	for _, e := range c.byName {
		out = append(out, e.ref)
	}
	return out
}

// catalogState is the serializable form used by persistent engines.
type catalogState struct {
	NextID  LabelID            `json:"nextId"`
	Entries []catalogStateItem `json:"entries"`
}

type catalogStateItem struct {
	Ref     LabelRef `json:"ref"`
	NextSeq int64    `json:"nextSeq"`
}

func (c *Catalog) snapshot() catalogState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Catalog) snapshotLocked() catalogState {
	st := catalogState{NextID: c.nextID}
	for _, e := range c.byName {
		st.Entries = append(st.Entries, catalogStateItem{Ref: e.ref, NextSeq: e.nextSeq})
	}
	return st
}

func (c *Catalog) restore(st catalogState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName = make(map[string]*catalogEntry, len(st.Entries))
	c.byID = make(map[LabelID]*catalogEntry, len(st.Entries))
	c.nextID = st.NextID
	for _, item := range st.Entries {
		e := &catalogEntry{ref: item.Ref, nextSeq: item.NextSeq}
		c.byName[item.Ref.Name] = e
		c.byID[item.Ref.ID] = e
	}
}
