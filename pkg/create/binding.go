package create

import "github.com/orneryd/bifrost/pkg/storage"

// Binding is the per-statement slot table mapping variable slots to their
// currently bound values. One Binding is shared by reference across every
// stage of a statement: the upstream source writes the row's incoming
// values, this engine overwrites and extends them, and downstream stages
// read the result. It is never copied.
//
// Slots persist across rows; each row overwrites the slots it produces.
// Binding is not safe for concurrent use; statement execution is
// single-threaded.
type Binding struct {
	slots []Value

	// writes tracks the most recent physical write per variable name,
	// consulted by the existence-recheck path before touching storage.
	writes map[string]*storage.StoredTuple
}

// NewBinding creates a binding table with n slots, all null.
func NewBinding(n int) *Binding {
	return &Binding{
		slots:  make([]Value, n),
		writes: make(map[string]*storage.StoredTuple),
	}
}

// Len returns the current slot count.
func (b *Binding) Len() int {
	return len(b.slots)
}

// Grow extends the table to hold at least n slots.
func (b *Binding) Grow(n int) {
	for len(b.slots) < n {
		b.slots = append(b.slots, Null())
	}
}

// Bind overwrites the value at a slot, growing the table if needed.
func (b *Binding) Bind(slot int, v Value) {
	b.Grow(slot + 1)
	b.slots[slot] = v
}

// Value reads the value at a slot. Out-of-range slots read as null.
func (b *Binding) Value(slot int) Value {
	if slot < 0 || slot >= len(b.slots) {
		return Null()
	}
	return b.slots[slot]
}

// RecordWrite remembers the physical write produced for a variable.
func (b *Binding) RecordWrite(variable string, t *storage.StoredTuple) {
	b.writes[variable] = t
}

// LastWrite returns the most recent physical write recorded for a variable.
func (b *Binding) LastWrite(variable string) (*storage.StoredTuple, bool) {
	t, ok := b.writes[variable]
	return t, ok
}
