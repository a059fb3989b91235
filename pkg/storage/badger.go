// Package storage provides storage engine implementations for Bifrost.
//
// BadgerStore provides persistent disk-based storage using BadgerDB.
// It implements the Store interface with crash-safe persistence of both the
// entity records and the label catalog (so identifier issuance survives a
// restart without reuse).
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage organization.
// Using single-byte prefixes for efficiency.
const (
	prefixVertex  = byte(0x01) // vertex: graphid -> JSON(storedVertex)
	prefixEdge    = byte(0x02) // edge: graphid -> JSON(storedEdge)
	prefixMeta    = byte(0x0F) // meta records (catalog)
	metaCatalogID = byte(0x01)
)

// storedVertex is the on-disk vertex record with visibility stamps.
type storedVertex struct {
	Vertex    Vertex    `json:"vertex"`
	CreatedAt CommandID `json:"createdAt"`
	DeletedAt CommandID `json:"deletedAt,omitempty"`
}

// storedEdge is the on-disk edge record with visibility stamps.
type storedEdge struct {
	Edge      Edge      `json:"edge"`
	CreatedAt CommandID `json:"createdAt"`
	DeletedAt CommandID `json:"deletedAt,omitempty"`
}

// BadgerStore provides persistent storage using BadgerDB.
//
// Key Structure:
//   - Vertices: 0x01 + big-endian graphid -> JSON(storedVertex)
//   - Edges:    0x02 + big-endian graphid -> JSON(storedEdge)
//   - Catalog:  0x0F 0x01 -> JSON(catalogState)
//
// The catalog is written through on every label registration and identifier
// issuance, so a reopened store never reissues an identifier.
type BadgerStore struct {
	db      *badger.DB
	catalog *Catalog

	mu          sync.RWMutex
	constraints map[string][]Constraint
	closed      bool

	// labelLocks serialize concurrent writer statements per label, held for
	// the lifetime of a WriteHandle.
	labelMu    sync.Mutex
	labelLocks map[LabelID]*sync.Mutex

	// tuples tracks handles for writes made through this store instance so
	// deletions observed later in a statement can flip Deleted.
	tupleMu sync.Mutex
	tuples  map[GraphID]*StoredTuple

	inMemory bool
}

// NewBadgerStore opens (or creates) a persistent store at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(badgerLogAdapter{logger: defaultStoreLogger{}}).
		WithLoggingLevel(badger.WARNING)
	return openBadgerStore(opts, false)
}

// NewInMemoryBadgerStore creates a store with no disk footprint, for tests.
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return openBadgerStore(opts, true)
}

func openBadgerStore(opts badger.Options, inMemory bool) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}

	b := &BadgerStore{
		db:          db,
		catalog:     NewCatalog(),
		constraints: make(map[string][]Constraint),
		labelLocks:  make(map[LabelID]*sync.Mutex),
		tuples:      make(map[GraphID]*StoredTuple),
		inMemory:    inMemory,
	}

	if err := b.loadCatalog(); err != nil {
		db.Close()
		return nil, err
	}
	b.catalog.modified = b.persistCatalog

	return b, nil
}

func catalogKey() []byte {
	return []byte{prefixMeta, metaCatalogID}
}

func vertexKey(id GraphID) []byte {
	return entityKey(prefixVertex, id)
}

func edgeKey(id GraphID) []byte {
	return entityKey(prefixEdge, id)
}

func entityKey(prefix byte, id GraphID) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], uint64(id))
	return key
}

func (b *BadgerStore) loadCatalog() error {
	return b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(catalogKey())
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // fresh store
		}
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		return item.Value(func(val []byte) error {
			var st catalogState
			if err := json.Unmarshal(val, &st); err != nil {
				return fmt.Errorf("decoding catalog: %w", err)
			}
			b.catalog.restore(st)
			return nil
		})
	})
}

// persistCatalog writes the catalog through after every mutation. A write
// failure here is unrecoverable for identifier safety, so it panics rather
// than silently risking id reuse after a crash.
func (b *BadgerStore) persistCatalog(st catalogState) {
	data, err := json.Marshal(st)
	if err != nil {
		panic(fmt.Sprintf("storage: encoding catalog: %v", err))
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(catalogKey(), data)
	})
	if err != nil {
		panic(fmt.Sprintf("storage: persisting catalog: %v", err))
	}
}

// Catalog returns the label catalog.
func (b *BadgerStore) Catalog() *Catalog {
	return b.catalog
}

// OpenWrite acquires the label's writer lock for the duration of the
// returned handle. The label is registered (and persisted) on first use.
func (b *BadgerStore) OpenWrite(label string, kind EntityKind) (WriteHandle, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, ErrStoreClosed
	}

	ref, err := b.catalog.Resolve(label, kind)
	if err != nil {
		return nil, err
	}

	b.labelMu.Lock()
	lock := b.labelLocks[ref.ID]
	if lock == nil {
		lock = &sync.Mutex{}
		b.labelLocks[ref.ID] = lock
	}
	b.labelMu.Unlock()

	lock.Lock()
	return &badgerWriteHandle{store: b, ref: ref, lock: lock}, nil
}

// Exists reports whether the entity is live under the snapshot.
func (b *BadgerStore) Exists(id GraphID, snap CommandID) (bool, error) {
	if id == 0 {
		return false, ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return false, err
	}

	var found bool
	err := b.db.View(func(txn *badger.Txn) error {
		if v, err := getVertexRecord(txn, id); err == nil {
			found = visibleAt(v.CreatedAt, v.DeletedAt, snap)
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if e, err := getEdgeRecord(txn, id); err == nil {
			found = visibleAt(e.CreatedAt, e.DeletedAt, snap)
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	return found, err
}

// GetVertex retrieves a vertex visible under the snapshot.
func (b *BadgerStore) GetVertex(id GraphID, snap CommandID) (*Vertex, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var out *Vertex
	err := b.db.View(func(txn *badger.Txn) error {
		rec, err := getVertexRecord(txn, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !visibleAt(rec.CreatedAt, rec.DeletedAt, snap) {
			return ErrNotFound
		}
		out = &rec.Vertex
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetEdge retrieves an edge visible under the snapshot.
func (b *BadgerStore) GetEdge(id GraphID, snap CommandID) (*Edge, error) {
	if id == 0 {
		return nil, ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var out *Edge
	err := b.db.View(func(txn *badger.Txn) error {
		rec, err := getEdgeRecord(txn, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !visibleAt(rec.CreatedAt, rec.DeletedAt, snap) {
			return ErrNotFound
		}
		out = &rec.Edge
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteVertex tombstones a vertex with the deleting command id.
func (b *BadgerStore) DeleteVertex(id GraphID, cmd CommandID) error {
	if id == 0 {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getVertexRecord(txn, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if rec.DeletedAt != 0 {
			return ErrNotFound
		}
		rec.DeletedAt = cmd
		return putVertexRecord(txn, rec)
	})
	if err != nil {
		return err
	}

	b.markTupleDeleted(id)
	return nil
}

// DeleteEdge tombstones an edge with the deleting command id.
func (b *BadgerStore) DeleteEdge(id GraphID, cmd CommandID) error {
	if id == 0 {
		return ErrInvalidID
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getEdgeRecord(txn, id)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if rec.DeletedAt != 0 {
			return ErrNotFound
		}
		rec.DeletedAt = cmd
		return putEdgeRecord(txn, rec)
	})
	if err != nil {
		return err
	}

	b.markTupleDeleted(id)
	return nil
}

// AddConstraint attaches a label-level constraint. Constraints live in
// memory; callers register them at startup.
func (b *BadgerStore) AddConstraint(c Constraint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrStoreClosed
	}
	b.constraints[c.Label] = append(b.constraints[c.Label], c)
	return nil
}

// VertexCount returns the total number of vertex records, tombstones included.
func (b *BadgerStore) VertexCount() (int64, error) {
	return b.countPrefix(prefixVertex)
}

// EdgeCount returns the total number of edge records, tombstones included.
func (b *BadgerStore) EdgeCount() (int64, error) {
	return b.countPrefix(prefixEdge)
}

func (b *BadgerStore) countPrefix(prefix byte) (int64, error) {
	if err := b.checkOpen(); err != nil {
		return 0, err
	}

	var count int64
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte{prefix}
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close releases the underlying database.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	return b.db.Close()
}

func (b *BadgerStore) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrStoreClosed
	}
	return nil
}

func (b *BadgerStore) trackTuple(t *StoredTuple) {
	b.tupleMu.Lock()
	b.tuples[t.ID] = t
	b.tupleMu.Unlock()
}

// releaseTuples drops the tuple entries for ids once the owning handle
// closes. The tuples map only has to cover the statement still holding the
// handle; after that the binding's own reference keeps the tuple alive.
func (b *BadgerStore) releaseTuples(ids []GraphID) {
	b.tupleMu.Lock()
	for _, id := range ids {
		delete(b.tuples, id)
	}
	b.tupleMu.Unlock()
}

func (b *BadgerStore) markTupleDeleted(id GraphID) {
	b.tupleMu.Lock()
	if t, ok := b.tuples[id]; ok {
		t.Deleted = true
	}
	b.tupleMu.Unlock()
}

func visibleAt(created, deleted, snap CommandID) bool {
	return created <= snap && (deleted == 0 || deleted > snap)
}

func getVertexRecord(txn *badger.Txn, id GraphID) (*storedVertex, error) {
	item, err := txn.Get(vertexKey(id))
	if err != nil {
		return nil, err
	}
	var rec storedVertex
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decoding vertex %s: %w", id, err)
	}
	return &rec, nil
}

func getEdgeRecord(txn *badger.Txn, id GraphID) (*storedEdge, error) {
	item, err := txn.Get(edgeKey(id))
	if err != nil {
		return nil, err
	}
	var rec storedEdge
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decoding edge %s: %w", id, err)
	}
	return &rec, nil
}

func putVertexRecord(txn *badger.Txn, rec *storedVertex) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding vertex %s: %w", rec.Vertex.ID, err)
	}
	return txn.Set(vertexKey(rec.Vertex.ID), data)
}

func putEdgeRecord(txn *badger.Txn, rec *storedEdge) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding edge %s: %w", rec.Edge.ID, err)
	}
	return txn.Set(edgeKey(rec.Edge.ID), data)
}

// badgerWriteHandle holds one label's writer lock for a statement.
type badgerWriteHandle struct {
	store  *BadgerStore
	ref    LabelRef
	lock   *sync.Mutex
	closed bool

	// inserted collects the ids written through this handle, so the
	// statement-scoped tuple bookkeeping can be dropped on Close.
	inserted []GraphID
}

func (h *badgerWriteHandle) Label() LabelRef {
	return h.ref
}

func (h *badgerWriteHandle) NextID() (GraphID, error) {
	if h.closed {
		return 0, ErrHandleClosed
	}
	return h.store.catalog.NextSequence(h.ref.Name)
}

func (h *badgerWriteHandle) InsertVertex(id GraphID, props Properties, cmd CommandID) (*StoredTuple, error) {
	if h.closed {
		return nil, ErrHandleClosed
	}
	if h.ref.Kind != EntityVertex {
		return nil, fmt.Errorf("%w: %q is an edge label", ErrLabelKindMismatch, h.ref.Name)
	}
	if id == 0 {
		return nil, ErrInvalidID
	}
	if err := h.store.checkOpen(); err != nil {
		return nil, err
	}

	h.store.mu.RLock()
	cs := h.store.constraints[h.ref.Name]
	h.store.mu.RUnlock()
	if err := checkConstraints(cs, h.ref.Name, props); err != nil {
		return nil, err
	}

	rec := &storedVertex{
		Vertex: Vertex{
			ID:         id,
			Label:      h.ref.Name,
			Properties: props.Copy(),
		},
		CreatedAt: cmd,
	}

	err := h.store.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(vertexKey(id)); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return putVertexRecord(txn, rec)
	})
	if err != nil {
		return nil, err
	}

	tuple := &StoredTuple{ID: id, Label: h.ref.Name}
	h.store.trackTuple(tuple)
	h.inserted = append(h.inserted, id)
	return tuple, nil
}

func (h *badgerWriteHandle) InsertEdge(id, startID, endID GraphID, props Properties, cmd CommandID) (*StoredTuple, error) {
	if h.closed {
		return nil, ErrHandleClosed
	}
	if h.ref.Kind != EntityEdge {
		return nil, fmt.Errorf("%w: %q is a vertex label", ErrLabelKindMismatch, h.ref.Name)
	}
	if id == 0 || startID == 0 || endID == 0 {
		return nil, ErrInvalidID
	}
	if err := h.store.checkOpen(); err != nil {
		return nil, err
	}

	h.store.mu.RLock()
	cs := h.store.constraints[h.ref.Name]
	h.store.mu.RUnlock()
	if err := checkConstraints(cs, h.ref.Name, props); err != nil {
		return nil, err
	}

	rec := &storedEdge{
		Edge: Edge{
			ID:         id,
			StartID:    startID,
			EndID:      endID,
			Label:      h.ref.Name,
			Properties: props.Copy(),
		},
		CreatedAt: cmd,
	}

	err := h.store.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(edgeKey(id)); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		// Both endpoints must be live under the writing command id.
		for _, endpoint := range []GraphID{startID, endID} {
			v, err := getVertexRecord(txn, endpoint)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrInvalidEdge
			}
			if err != nil {
				return err
			}
			if !visibleAt(v.CreatedAt, v.DeletedAt, cmd) {
				return ErrInvalidEdge
			}
		}

		return putEdgeRecord(txn, rec)
	})
	if err != nil {
		return nil, err
	}

	tuple := &StoredTuple{ID: id, Label: h.ref.Name}
	h.store.trackTuple(tuple)
	h.inserted = append(h.inserted, id)
	return tuple, nil
}

func (h *badgerWriteHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.store.releaseTuples(h.inserted)
	h.inserted = nil
	h.lock.Unlock()
	return nil
}
