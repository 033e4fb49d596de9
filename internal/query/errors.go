package query

import "fmt"

// UnknownFieldError rejects a query that references a field absent from the
// dataset's schema.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

// UnsupportedOperatorError rejects an operator outside the allowlist.
type UnsupportedOperatorError struct {
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator %q", e.Operator)
}

// MalformedQueryError rejects a query whose shape is structurally invalid,
// such as an empty $and/$or combinator.
type MalformedQueryError struct {
	Reason string
}

func (e *MalformedQueryError) Error() string {
	return fmt.Sprintf("malformed query: %s", e.Reason)
}

// TypeMismatchError rejects a comparison whose value cannot be coerced to the
// field's inferred type.
type TypeMismatchError struct {
	Field    string
	WantType string
	Value    any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %q expects a %s value, got %v", e.Field, e.WantType, e.Value)
}
