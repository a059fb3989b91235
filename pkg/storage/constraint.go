// Package storage - label-level integrity constraints checked at insert time.
package storage

import "fmt"

// ConstraintType identifies a constraint flavor.
type ConstraintType string

const (
	// ConstraintExists requires a property to be present and non-nil.
	ConstraintExists ConstraintType = "EXISTS"

	// ConstraintPropertyType requires a property, when present, to hold a
	// value of a given kind ("string", "int", "float", "bool").
	ConstraintPropertyType ConstraintType = "TYPE"
)

// Constraint is one label-level integrity rule.
type Constraint struct {
	Type     ConstraintType
	Label    string
	Property string

	// PropertyKind applies to ConstraintPropertyType only.
	PropertyKind string
}

// ConstraintViolationError reports an insert rejected by a label constraint.
// It is surfaced verbatim to the statement that attempted the write.
type ConstraintViolationError struct {
	Type     ConstraintType
	Label    string
	Property string
	Message  string
}

func (e *ConstraintViolationError) Error() string {
	return e.Message
}

// checkConstraints validates a property map against every constraint
// registered for the label.
func checkConstraints(cs []Constraint, label string, props Properties) error {
	for _, c := range cs {
		switch c.Type {
		case ConstraintExists:
			if v, ok := props[c.Property]; !ok || v == nil {
				return &ConstraintViolationError{
					Type:     c.Type,
					Label:    label,
					Property: c.Property,
					Message: fmt.Sprintf("constraint violation: label %s requires property %s",
						label, c.Property),
				}
			}
		case ConstraintPropertyType:
			v, ok := props[c.Property]
			if !ok || v == nil {
				continue // absence is the EXISTS constraint's business
			}
			if !propertyKindMatches(v, c.PropertyKind) {
				return &ConstraintViolationError{
					Type:     c.Type,
					Label:    label,
					Property: c.Property,
					Message: fmt.Sprintf("constraint violation: label %s property %s must be %s, got %T",
						label, c.Property, c.PropertyKind, v),
				}
			}
		default:
			return fmt.Errorf("unknown constraint type: %s", c.Type)
		}
	}
	return nil
}

func propertyKindMatches(v any, kind string) bool {
	switch kind {
	case "string":
		_, ok := v.(string)
		return ok
	case "int":
		switch v.(type) {
		case int, int32, int64:
			return true
		}
		return false
	case "float":
		switch v.(type) {
		case float32, float64:
			return true
		}
		return false
	case "bool":
		_, ok := v.(bool)
		return ok
	default:
		return false
	}
}
