package storage

// CommandID is the intra-statement write-visibility counter value. Every
// write is stamped with the command id in effect when it happened; a read
// taken at snapshot S sees exactly the writes stamped with id <= S.
//
// The counter advances monotonically over the life of a statement. Stages
// that both read and write rewind the counter to the value in effect when
// their upstream was constructed before pulling a row, and restore their own
// value afterwards, so the upstream never observes the stage's writes while
// the stage's own reads do.
type CommandID uint32

// FirstCommandID is the id in effect before any stage has written.
const FirstCommandID CommandID = 1

// CommandCounter is the per-statement visibility counter. It is an explicit
// object threaded through the stages of one statement, never shared across
// statements. Not safe for concurrent use; statement execution is
// single-threaded.
type CommandCounter struct {
	current CommandID
}

// NewCommandCounter returns a counter positioned at FirstCommandID.
func NewCommandCounter() *CommandCounter {
	return &CommandCounter{current: FirstCommandID}
}

// Current returns the command id in effect.
func (c *CommandCounter) Current() CommandID {
	return c.current
}

// Advance increments the counter and returns the new value. Called once by a
// writing stage when it opens; the returned id stamps all of that stage's
// writes.
func (c *CommandCounter) Advance() CommandID {
	c.current++
	return c.current
}

// Restore repositions the counter to a previously observed value. Used to
// rewind visibility around an upstream pull and to reinstate it afterwards.
func (c *CommandCounter) Restore(id CommandID) {
	c.current = id
}
