package create

import (
	"fmt"

	"github.com/orneryd/bifrost/pkg/storage"
)

// PropertySource yields the property map to attach to an entity at creation
// time, evaluated against the row being processed. General expression
// evaluation lives outside this engine; sources either carry a literal map
// or read a map an upstream stage already bound into a slot.
type PropertySource interface {
	Props(b *Binding) (storage.Properties, error)
}

// ConstProps is a literal property map, the common case for patterns with
// inline property syntax.
type ConstProps storage.Properties

func (p ConstProps) Props(*Binding) (storage.Properties, error) {
	return storage.Properties(p).Copy(), nil
}

// SlotProps reads a property map bound at a slot by an upstream stage.
type SlotProps int

func (s SlotProps) Props(b *Binding) (storage.Properties, error) {
	v := b.Value(int(s))
	if v.IsNull() {
		return storage.Properties{}, nil
	}
	if v.Kind != KindMap {
		return nil, fmt.Errorf("slot %d holds %s, want a property map", int(s), v.Kind)
	}
	return v.Map.Copy(), nil
}

// evalProps evaluates a possibly-nil source.
func evalProps(src PropertySource, b *Binding) (storage.Properties, error) {
	if src == nil {
		return storage.Properties{}, nil
	}
	return src.Props(b)
}
