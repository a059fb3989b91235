package create

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orneryd/bifrost/pkg/storage"
)

type executorState uint8

const (
	stateNew executorState = iota
	stateOpen
	stateExhausted
	stateClosed
)

// Stats counts the entities an Executor has written.
type Stats struct {
	VerticesCreated int64
	EdgesCreated    int64
	RowsProcessed   int64
}

// Executor applies a creation Pattern once per upstream row.
//
// Writes made by the executor are stamped with a command identifier one
// past the upstream plan's, so the upstream never observes its own
// downstream's output. The counter is flipped back to the upstream value
// around every source pull and restored afterwards; see RowSource.
//
// An Executor is single-use. After the source is exhausted, or after
// Close, any further production attempt fails with ErrReiteration.
type Executor struct {
	store   storage.Store
	pattern *Pattern
	source  RowSource
	binding *Binding
	counter *storage.CommandCounter

	statementID string
	handles     map[string]storage.WriteHandle
	upstreamCmd storage.CommandID
	writeCmd    storage.CommandID
	state       executorState
	paths       pathBuilder
	stats       Stats
}

// NewExecutor validates pattern and prepares an executor over source.
// The counter's current value is captured as the upstream visibility
// boundary, so construct the executor before advancing the counter for
// any sibling writers.
func NewExecutor(store storage.Store, pattern *Pattern, source RowSource, binding *Binding, counter *storage.CommandCounter) (*Executor, error) {
	if store == nil {
		return nil, fmt.Errorf("create: store is required")
	}
	if source == nil {
		return nil, fmt.Errorf("create: row source is required")
	}
	if pattern == nil {
		return nil, fmt.Errorf("create: pattern is required")
	}
	if binding == nil {
		binding = NewBinding(0)
	}
	if counter == nil {
		counter = storage.NewCommandCounter()
	}
	if err := pattern.Validate(); err != nil {
		return nil, err
	}

	return &Executor{
		store:       store,
		pattern:     pattern,
		source:      source,
		binding:     binding,
		counter:     counter,
		statementID: uuid.NewString(),
		upstreamCmd: counter.Current(),
		state:       stateNew,
	}, nil
}

// StatementID identifies this execution for logging.
func (e *Executor) StatementID() string { return e.statementID }

// Stats reports totals for the rows processed so far.
func (e *Executor) Stats() Stats { return e.stats }

// Open acquires a write handle for every label the pattern inserts into
// and advances the command counter so this statement's writes are stamped
// past the upstream's. Handles stay held until Close.
func (e *Executor) Open(ctx context.Context) error {
	if e.state != stateNew {
		if e.state == stateClosed {
			return ErrReiteration
		}
		return ErrAlreadyOpened
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if n := e.pattern.maxSlot() + 1; n > e.binding.Len() {
		e.binding.Grow(n)
	}

	e.handles = make(map[string]storage.WriteHandle)
	for label, kind := range e.pattern.insertLabels() {
		h, err := e.store.OpenWrite(label, kind)
		if err != nil {
			for _, held := range e.handles {
				held.Close()
			}
			e.handles = nil
			return fmt.Errorf("opening write handle for label %q: %w", label, err)
		}
		e.handles[label] = h
	}

	e.writeCmd = e.counter.Advance()
	e.state = stateOpen
	return nil
}

// ProduceOne pulls one upstream row, applies the pattern to it, and
// reports whether a row was produced. Passthrough position: the caller
// consumes the bindings between calls.
func (e *Executor) ProduceOne(ctx context.Context) (bool, error) {
	switch e.state {
	case stateNew:
		return false, ErrNotOpened
	case stateExhausted, stateClosed:
		return false, ErrReiteration
	}
	return e.produce(ctx)
}

// DrainAll pulls and processes every remaining upstream row. Terminal
// position: the bindings of intermediate rows are not surfaced.
func (e *Executor) DrainAll(ctx context.Context) error {
	switch e.state {
	case stateNew:
		return ErrNotOpened
	case stateExhausted, stateClosed:
		return ErrReiteration
	}
	for {
		ok, err := e.produce(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

func (e *Executor) produce(ctx context.Context) (bool, error) {
	// The upstream must not see this statement's writes while it computes
	// the next row.
	e.counter.Restore(e.upstreamCmd)
	ok, err := e.source.Next(ctx)
	e.counter.Restore(e.writeCmd)
	if err != nil {
		return false, err
	}
	if !ok {
		e.state = stateExhausted
		return false, nil
	}

	if err := e.processRow(); err != nil {
		return false, err
	}
	e.stats.RowsProcessed++
	return true, nil
}

func (e *Executor) processRow() error {
	for _, path := range e.pattern.Paths {
		e.paths.reset()
		if _, err := e.resolveVertex(path.Specs); err != nil {
			return err
		}
		if path.PathSlot != NoSlot {
			p, err := e.paths.build()
			if err != nil {
				return err
			}
			e.binding.Bind(path.PathSlot, PathValue(p))
		}
	}
	return nil
}

// Close releases all write handles and the row source. Safe to call more
// than once; later calls are no-ops.
func (e *Executor) Close() error {
	if e.state == stateClosed {
		return nil
	}
	e.state = stateClosed

	var firstErr error
	for _, h := range e.handles {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.handles = nil

	if err := e.source.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
