package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertVertex(t *testing.T, s Store, label string, props Properties, cmd CommandID) GraphID {
	t.Helper()
	h, err := s.OpenWrite(label, EntityVertex)
	require.NoError(t, err)
	defer h.Close()

	id, err := h.NextID()
	require.NoError(t, err)
	_, err = h.InsertVertex(id, props, cmd)
	require.NoError(t, err)
	return id
}

func insertEdge(t *testing.T, s Store, label string, start, end GraphID, cmd CommandID) GraphID {
	t.Helper()
	h, err := s.OpenWrite(label, EntityEdge)
	require.NoError(t, err)
	defer h.Close()

	id, err := h.NextID()
	require.NoError(t, err)
	_, err = h.InsertEdge(id, start, end, nil, cmd)
	require.NoError(t, err)
	return id
}

func TestMemoryStoreInsertAndGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	id := insertVertex(t, s, "Person", Properties{"name": "Ada"}, 1)

	v, err := s.GetVertex(id, 1)
	require.NoError(t, err)
	assert.Equal(t, "Person", v.Label)
	assert.Equal(t, "Ada", v.Properties["name"])

	ok, err := s.Exists(id, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreVisibilitySnapshots(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	id := insertVertex(t, s, "Person", nil, 2)

	// Not visible to a snapshot taken before the write.
	ok, err := s.Exists(id, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// Visible at and after the writing command.
	ok, err = s.Exists(id, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Exists(id, 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStoreTombstoneVisibility(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	id := insertVertex(t, s, "Person", nil, 1)
	require.NoError(t, s.DeleteVertex(id, 3))

	// Still visible to snapshots before the delete.
	ok, err := s.Exists(id, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// Gone at and after the deleting command.
	ok, err = s.Exists(id, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.GetVertex(id, 3)
	assert.ErrorIs(t, err, ErrNotFound)

	// A second delete is an error: the record is already tombstoned.
	assert.ErrorIs(t, s.DeleteVertex(id, 4), ErrNotFound)
}

func TestMemoryStoreDeleteFlipsTuple(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	h, err := s.OpenWrite("Person", EntityVertex)
	require.NoError(t, err)
	defer h.Close()

	id, err := h.NextID()
	require.NoError(t, err)
	tuple, err := h.InsertVertex(id, nil, 1)
	require.NoError(t, err)
	assert.False(t, tuple.Deleted)

	require.NoError(t, s.DeleteVertex(id, 2))
	assert.True(t, tuple.Deleted)
}

func TestMemoryStoreEdgeEndpoints(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	a := insertVertex(t, s, "Person", nil, 1)
	b := insertVertex(t, s, "Person", nil, 1)

	id := insertEdge(t, s, "KNOWS", a, b, 1)

	e, err := s.GetEdge(id, 1)
	require.NoError(t, err)
	assert.Equal(t, a, e.StartID)
	assert.Equal(t, b, e.EndID)
}

func TestMemoryStoreEdgeRequiresLiveEndpoints(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	a := insertVertex(t, s, "Person", nil, 1)

	h, err := s.OpenWrite("KNOWS", EntityEdge)
	require.NoError(t, err)
	defer h.Close()

	id, err := h.NextID()
	require.NoError(t, err)

	// Missing far endpoint.
	_, err = h.InsertEdge(id, a, NewGraphID(9, 9), nil, 1)
	assert.ErrorIs(t, err, ErrInvalidEdge)

	// Endpoint exists but is not yet visible at the writing command.
	late := insertVertex(t, s, "Person", nil, 5)
	_, err = h.InsertEdge(id, a, late, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidEdge)

	// Visible endpoint works.
	_, err = h.InsertEdge(id, a, late, nil, 5)
	assert.NoError(t, err)
}

func TestMemoryStoreDuplicateInsert(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	h, err := s.OpenWrite("Person", EntityVertex)
	require.NoError(t, err)
	defer h.Close()

	id, err := h.NextID()
	require.NoError(t, err)
	_, err = h.InsertVertex(id, nil, 1)
	require.NoError(t, err)
	_, err = h.InsertVertex(id, nil, 1)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemoryStoreConstraints(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.AddConstraint(Constraint{
		Type: ConstraintExists, Label: "Person", Property: "name",
	}))
	require.NoError(t, s.AddConstraint(Constraint{
		Type: ConstraintPropertyType, Label: "Person", Property: "age", PropertyKind: "int",
	}))

	h, err := s.OpenWrite("Person", EntityVertex)
	require.NoError(t, err)
	defer h.Close()

	id, err := h.NextID()
	require.NoError(t, err)

	_, err = h.InsertVertex(id, Properties{"age": 30}, 1)
	var cv *ConstraintViolationError
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, ConstraintExists, cv.Type)
	assert.Contains(t, cv.Error(), "requires property name")

	_, err = h.InsertVertex(id, Properties{"name": "Ada", "age": "old"}, 1)
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, ConstraintPropertyType, cv.Type)

	_, err = h.InsertVertex(id, Properties{"name": "Ada", "age": 36}, 1)
	assert.NoError(t, err)
}

func TestMemoryStoreWriteHandleSerializesLabel(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	h1, err := s.OpenWrite("Person", EntityVertex)
	require.NoError(t, err)

	acquired := make(chan WriteHandle)
	go func() {
		h2, err := s.OpenWrite("Person", EntityVertex)
		if err == nil {
			acquired <- h2
		}
	}()

	// The second acquisition blocks while the first handle is held.
	select {
	case <-acquired:
		t.Fatal("second handle acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	// A different label is unaffected.
	h3, err := s.OpenWrite("City", EntityVertex)
	require.NoError(t, err)
	require.NoError(t, h3.Close())

	require.NoError(t, h1.Close())
	h2 := <-acquired
	require.NoError(t, h2.Close())
}

func TestMemoryStoreHandleClosed(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	h, err := s.OpenWrite("Person", EntityVertex)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	_, err = h.NextID()
	assert.ErrorIs(t, err, ErrHandleClosed)
	_, err = h.InsertVertex(NewGraphID(1, 1), nil, 1)
	assert.ErrorIs(t, err, ErrHandleClosed)

	// Close is idempotent.
	assert.NoError(t, h.Close())
}

func TestMemoryStoreKindEnforcement(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	_, err := s.OpenWrite("Person", EntityVertex)
	require.NoError(t, err)

	_, err = s.OpenWrite("Person", EntityEdge)
	assert.ErrorIs(t, err, ErrLabelKindMismatch)
}

func TestMemoryStoreCounts(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	a := insertVertex(t, s, "Person", nil, 1)
	b := insertVertex(t, s, "Person", nil, 1)
	insertEdge(t, s, "KNOWS", a, b, 1)

	vc, err := s.VertexCount()
	require.NoError(t, err)
	ec, err := s.EdgeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), vc)
	assert.Equal(t, int64(1), ec)

	// Tombstoned entities stay in the physical count.
	require.NoError(t, s.DeleteVertex(a, 2))
	vc, err = s.VertexCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), vc)
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.OpenWrite("Person", EntityVertex)
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = s.Exists(NewGraphID(1, 1), 1)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestMemoryStoreUniqueIDsAcrossHandles(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	seen := make(map[GraphID]bool)
	for i := 0; i < 3; i++ {
		h, err := s.OpenWrite("Person", EntityVertex)
		require.NoError(t, err)
		for j := 0; j < 4; j++ {
			id, err := h.NextID()
			require.NoError(t, err)
			assert.False(t, seen[id], "id %s issued twice", id)
			seen[id] = true
		}
		require.NoError(t, h.Close())
	}
}
