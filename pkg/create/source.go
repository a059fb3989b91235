package create

import "context"

// RowSource is the upstream collaborator feeding rows to the executor. A
// source writes each row's incoming values directly into the shared Binding
// before Next returns; the executor reads and extends the same table.
//
// Sources must honor the visibility protocol: the executor rewinds the
// command counter before every Next call, so a source that reads storage
// does it under the pre-statement snapshot.
type RowSource interface {
	// Next advances to the next row. It returns false once the input is
	// exhausted; further calls keep returning false.
	Next(ctx context.Context) (bool, error)

	// Close releases any resource the source holds.
	Close() error
}

// SingleRow is a source producing exactly one row with no incoming
// bindings. It feeds patterns with no upstream clause, e.g. a bare CREATE.
type SingleRow struct {
	done bool
}

// NewSingleRow returns a one-empty-row source.
func NewSingleRow() *SingleRow {
	return &SingleRow{}
}

func (s *SingleRow) Next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.done {
		return false, nil
	}
	s.done = true
	return true, nil
}

func (s *SingleRow) Close() error {
	return nil
}

// SliceSource replays a fixed set of rows, binding each row's values into
// the shared table on Next. Used by tests and by callers that stage rows up
// front.
type SliceSource struct {
	binding *Binding
	rows    []map[int]Value
	pos     int
}

// NewSliceSource creates a source over rows, where each row maps slot index
// to the value bound for that row.
func NewSliceSource(binding *Binding, rows []map[int]Value) *SliceSource {
	return &SliceSource{binding: binding, rows: rows}
}

func (s *SliceSource) Next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.pos >= len(s.rows) {
		return false, nil
	}
	for slot, v := range s.rows[s.pos] {
		s.binding.Bind(slot, v)
	}
	s.pos++
	return true, nil
}

func (s *SliceSource) Close() error {
	return nil
}
