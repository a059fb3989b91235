package create

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/bifrost/pkg/storage"
)

func TestConstPropsCopies(t *testing.T) {
	src := ConstProps{"name": "Ada"}

	got, err := src.Props(nil)
	require.NoError(t, err)
	got["name"] = "Lin"

	// Each row gets its own map; the literal stays untouched.
	again, err := src.Props(nil)
	require.NoError(t, err)
	assert.Equal(t, "Ada", again["name"])
}

func TestSlotProps(t *testing.T) {
	b := NewBinding(2)
	b.Bind(0, MapValue(storage.Properties{"since": 2019}))

	got, err := SlotProps(0).Props(b)
	require.NoError(t, err)
	assert.Equal(t, 2019, got["since"])

	// A null slot reads as an empty map.
	got, err = SlotProps(1).Props(b)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Anything else is an error.
	b.Bind(1, testVertex(1))
	_, err = SlotProps(1).Props(b)
	assert.ErrorContains(t, err, "want a property map")
}

func TestEvalPropsNilSource(t *testing.T) {
	got, err := evalProps(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
