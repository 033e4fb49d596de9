package query

import (
	"github.com/askmongo/askmongo/internal/schema"
)

// Validate checks a candidate query against the dataset's schema and the
// operator allowlist. It is the last gate before an AI-authored query reaches
// the store, so it trusts nothing about its input.
//
// On success the query is returned unchanged. On failure the error is one of
// UnknownFieldError, UnsupportedOperatorError, MalformedQueryError or
// TypeMismatchError, naming the offending field, operator or value.
//
// Validation is purely syntactic and schema-based. Whether the query matches
// the user's intent is not (and cannot be) checked here.
func Validate(q StructuredQuery, fields schema.FieldSchema) (StructuredQuery, error) {
	if err := validateFilter(q.Filter, fields); err != nil {
		return StructuredQuery{}, err
	}
	for _, s := range q.Sort {
		if !fields.Has(s.Field) {
			return StructuredQuery{}, &UnknownFieldError{Field: s.Field}
		}
	}
	return q, nil
}

func validateFilter(f *Filter, fields schema.FieldSchema) error {
	if f == nil {
		return nil
	}
	if f.Leaf() {
		return validateLeaf(f.Cond, fields)
	}

	switch f.Logic {
	case LogicAnd, LogicOr:
	default:
		return &UnsupportedOperatorError{Operator: string(f.Logic)}
	}
	if len(f.Children) == 0 {
		return &MalformedQueryError{Reason: "empty " + string(f.Logic) + " combinator"}
	}
	for _, child := range f.Children {
		if child == nil {
			return &MalformedQueryError{Reason: "nil child under " + string(f.Logic)}
		}
		if err := validateFilter(child, fields); err != nil {
			return err
		}
	}
	return nil
}

func validateLeaf(c *Condition, fields schema.FieldSchema) error {
	fieldType, ok := fields[c.Field]
	if !ok {
		return &UnknownFieldError{Field: c.Field}
	}
	if !SupportedOperator(c.Op) {
		return &UnsupportedOperatorError{Operator: string(c.Op)}
	}

	if c.Op == OpIn {
		items, ok := c.Value.([]any)
		if !ok {
			return &MalformedQueryError{Reason: "$in on field " + c.Field + " expects an array"}
		}
		if len(items) == 0 {
			return &MalformedQueryError{Reason: "$in on field " + c.Field + " is empty"}
		}
		for _, item := range items {
			if !schema.Compatible(fieldType, item) {
				return &TypeMismatchError{Field: c.Field, WantType: string(fieldType), Value: item}
			}
		}
		return nil
	}

	if !schema.Compatible(fieldType, c.Value) {
		return &TypeMismatchError{Field: c.Field, WantType: string(fieldType), Value: c.Value}
	}
	return nil
}
