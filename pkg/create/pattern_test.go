package create

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/bifrost/pkg/storage"
)

func vSpec(label string) *Spec {
	return &Spec{Kind: SpecVertex, Label: label, Slot: NoSlot, Mode: ModeInsert}
}

func eSpec(label string, dir Direction) *Spec {
	return &Spec{Kind: SpecEdge, Label: label, Slot: NoSlot, Mode: ModeInsert, Direction: dir}
}

func TestPathPatternValidate(t *testing.T) {
	tests := []struct {
		name    string
		specs   []*Spec
		wantErr string
	}{
		{
			name:  "single vertex",
			specs: []*Spec{vSpec("Person")},
		},
		{
			name:  "vertex edge vertex",
			specs: []*Spec{vSpec("Person"), eSpec("KNOWS", DirectionRight), vSpec("Person")},
		},
		{
			name:    "empty",
			specs:   nil,
			wantErr: "empty path pattern",
		},
		{
			name:    "even length",
			specs:   []*Spec{vSpec("Person"), eSpec("KNOWS", DirectionRight)},
			wantErr: "even length",
		},
		{
			name:    "edge first",
			specs:   []*Spec{eSpec("KNOWS", DirectionRight), vSpec("Person"), vSpec("Person")},
			wantErr: "want vertex",
		},
		{
			name:    "two vertices in a row",
			specs:   []*Spec{vSpec("Person"), vSpec("Person"), vSpec("Person")},
			wantErr: "want edge",
		},
		{
			name:    "missing label",
			specs:   []*Spec{vSpec("")},
			wantErr: "no label",
		},
		{
			name: "reference edge",
			specs: []*Spec{
				vSpec("Person"),
				{Kind: SpecEdge, Label: "KNOWS", Slot: 0, Mode: ModeReference, Direction: DirectionRight},
				vSpec("Person"),
			},
			wantErr: "always insert mode",
		},
		{
			name: "reference vertex without slot",
			specs: []*Spec{
				{Kind: SpecVertex, Label: "Person", Slot: NoSlot, Mode: ModeReference},
			},
			wantErr: "no slot to read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &PathPattern{Specs: tt.specs, PathSlot: NoSlot}
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPatternValidateRequiresPaths(t *testing.T) {
	p := &Pattern{}
	assert.ErrorContains(t, p.Validate(), "no paths")
}

func TestPatternInsertLabels(t *testing.T) {
	ref := &Spec{Kind: SpecVertex, Label: "Person", Slot: 0, Mode: ModeReference}
	p := &Pattern{Paths: []*PathPattern{
		{
			Specs:    []*Spec{ref, eSpec("KNOWS", DirectionRight), vSpec("Person")},
			PathSlot: NoSlot,
		},
		{
			Specs:    []*Spec{vSpec("City")},
			PathSlot: NoSlot,
		},
	}}

	labels := p.insertLabels()
	assert.Equal(t, map[string]storage.EntityKind{
		"Person": storage.EntityVertex,
		"KNOWS":  storage.EntityEdge,
		"City":   storage.EntityVertex,
	}, labels)
}

func TestPatternMaxSlot(t *testing.T) {
	p := &Pattern{Paths: []*PathPattern{
		{
			Specs: []*Spec{
				{Kind: SpecVertex, Label: "Person", Slot: 2, Mode: ModeInsert},
				eSpec("KNOWS", DirectionRight),
				vSpec("Person"),
			},
			PathSlot: 5,
		},
	}}
	assert.Equal(t, 5, p.maxSlot())

	empty := &Pattern{Paths: []*PathPattern{{Specs: []*Spec{vSpec("Person")}, PathSlot: NoSlot}}}
	assert.Equal(t, NoSlot, empty.maxSlot())
}
