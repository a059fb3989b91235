package create

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrReiteration rejects any attempt to restart row production after the
	// executor is exhausted or closed. Creation is not idempotent; walking
	// the input again would duplicate entities.
	ErrReiteration = errors.New("create pattern cannot be re-iterated")

	// ErrNotOpened rejects row production before Open.
	ErrNotOpened = errors.New("executor not opened")

	// ErrAlreadyOpened rejects a second Open.
	ErrAlreadyOpened = errors.New("executor already opened")
)

// MissingDirectionError reports an edge spec with no resolved direction.
// Direction is a property of the pattern as written; there is no default.
type MissingDirectionError struct {
	Element string
}

func (e *MissingDirectionError) Error() string {
	return fmt.Sprintf("edge direction must be specified for %s in a create pattern", e.Element)
}

// TypeMismatchError reports a reference-mode slot holding something other
// than the expected value kind.
type TypeMismatchError struct {
	Variable string
	Expected ValueKind
	Got      ValueKind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("value bound to %s must resolve to a %s, got %s", e.Variable, e.Expected, e.Got)
}

// StaleReferenceError reports a reference-mode element whose entity was
// deleted after it was bound, whether through this variable or an alias.
type StaleReferenceError struct {
	Variable string
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("vertex assigned to variable %s was deleted", e.Variable)
}
