package create

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/bifrost/pkg/storage"
)

func TestValueKinds(t *testing.T) {
	assert.True(t, Null().IsNull())
	assert.False(t, testVertex(1).IsNull())

	assert.Equal(t, "vertex", KindVertex.String())
	assert.Equal(t, "edge", KindEdge.String())
	assert.Equal(t, "path", KindPath.String())
	assert.Equal(t, "map", KindMap.String())
	assert.Equal(t, "null", KindNull.String())
}

func TestValueGraphID(t *testing.T) {
	v := testVertex(7)
	id, err := v.GraphID()
	require.NoError(t, err)
	assert.Equal(t, storage.NewGraphID(1, 7), id)

	e := testEdge(3)
	id, err = e.GraphID()
	require.NoError(t, err)
	assert.Equal(t, storage.NewGraphID(2, 3), id)

	_, err = Null().GraphID()
	assert.ErrorContains(t, err, "has no graph id")

	_, err = MapValue(nil).GraphID()
	assert.Error(t, err)
}
