package create

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleRow(t *testing.T) {
	s := NewSingleRow()
	ctx := context.Background()

	ok, err := s.Next(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Exhaustion is sticky.
	ok, err = s.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Close())
}

func TestSliceSourceBindsRows(t *testing.T) {
	b := NewBinding(1)
	s := NewSliceSource(b, []map[int]Value{
		{0: testVertex(1)},
		{0: testVertex(2)},
	})
	ctx := context.Background()

	ok, err := s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), b.Value(0).Vertex.ID.Sequence())

	ok, err = s.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), b.Value(0).Vertex.ID.Sequence())

	ok, err = s.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSourcesHonorContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSingleRow().Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewSliceSource(NewBinding(0), nil).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
