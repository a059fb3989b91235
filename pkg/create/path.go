package create

import "fmt"

// Path is an ordered, alternating sequence of vertex and edge values
// representing one created path. A valid path has odd length, begins and
// ends with a vertex, and alternates strictly.
type Path struct {
	Elements []Value
}

// Len returns the number of elements in the path.
func (p *Path) Len() int {
	return len(p.Elements)
}

// Validate enforces the path shape invariant.
func (p *Path) Validate() error {
	if len(p.Elements)%2 == 0 {
		return fmt.Errorf("path has even length %d", len(p.Elements))
	}
	for i, v := range p.Elements {
		want := KindVertex
		if i%2 == 1 {
			want = KindEdge
		}
		if v.Kind != want {
			return fmt.Errorf("path element %d is %s, want %s", i, v.Kind, want)
		}
	}
	return nil
}

// pathBuilder accumulates the values visited while one path pattern is
// walked. It is reset before every path of every row.
//
// Because the walk recurses to the end of the path before an edge is
// inserted, edge values arrive after the values of everything beyond them.
// The builder therefore supports detaching the prefix accumulated before the
// recursion and splicing the edge back between prefix and suffix, keeping
// the assembled path in walk order.
type pathBuilder struct {
	values []Value
}

func (b *pathBuilder) reset() {
	b.values = nil
}

func (b *pathBuilder) append(v Value) {
	b.values = append(b.values, v)
}

// detach removes and returns everything accumulated so far.
func (b *pathBuilder) detach() []Value {
	v := b.values
	b.values = nil
	return v
}

// splice reassembles prefix + edge + suffix, where the suffix is whatever
// accumulated during the far-side recursion. A nil edge restores the prefix
// without contributing an element.
func (b *pathBuilder) splice(prefix []Value, edge *Value) {
	suffix := b.values
	merged := make([]Value, 0, len(prefix)+1+len(suffix))
	merged = append(merged, prefix...)
	if edge != nil {
		merged = append(merged, *edge)
	}
	merged = append(merged, suffix...)
	b.values = merged
}

// build consumes the accumulated values into a Path value.
func (b *pathBuilder) build() (*Path, error) {
	p := &Path{Elements: b.values}
	b.values = nil
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("assembled path is malformed: %w", err)
	}
	return p, nil
}
