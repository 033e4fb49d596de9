package schema

import (
	"sort"
	"time"

	"github.com/spf13/cast"
)

// Type is the inferred value type of a document field.
type Type string

const (
	TypeString Type = "string"
	TypeNumber Type = "number"
	TypeBool   Type = "boolean"
	TypeDate   Type = "date"
)

// FieldSchema maps each known field name to its inferred type.
//
// It is built once per dataset load and treated as read-only afterwards.
type FieldSchema map[string]Type

// Fields returns the schema's field names in sorted order.
func (s FieldSchema) Fields() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the field is known to the schema.
func (s FieldSchema) Has(field string) bool {
	_, ok := s[field]
	return ok
}

// Infer derives a FieldSchema from sampled documents.
//
// Every distinct field name observed across the sample is included. The type
// is the majority type among the field's non-nil values; ties resolve to
// string. An empty sample yields an empty schema.
func Infer(samples []map[string]any) FieldSchema {
	counts := make(map[string]map[Type]int)
	for _, doc := range samples {
		for field, value := range doc {
			if value == nil {
				if _, ok := counts[field]; !ok {
					counts[field] = make(map[Type]int)
				}
				continue
			}
			if _, ok := counts[field]; !ok {
				counts[field] = make(map[Type]int)
			}
			counts[field][TypeOf(value)]++
		}
	}

	out := make(FieldSchema, len(counts))
	for field, byType := range counts {
		out[field] = majority(byType)
	}
	return out
}

// TypeOf classifies a single document value.
func TypeOf(value any) Type {
	switch value.(type) {
	case bool:
		return TypeBool
	case time.Time:
		return TypeDate
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return TypeNumber
	case string:
		return TypeString
	default:
		return TypeString
	}
}

// Compatible reports whether a query value can be compared against a field of
// the given type. Strings are checked for coercibility so the translator may
// emit "4.5" for a number field or an RFC 3339 string for a date field.
func Compatible(t Type, value any) bool {
	if value == nil {
		return false
	}
	switch t {
	case TypeNumber:
		_, err := cast.ToFloat64E(value)
		return err == nil
	case TypeBool:
		_, err := cast.ToBoolE(value)
		return err == nil
	case TypeDate:
		if _, ok := value.(time.Time); ok {
			return true
		}
		s, err := cast.ToStringE(value)
		if err != nil {
			return false
		}
		return parseDate(s) != nil
	case TypeString:
		_, err := cast.ToStringE(value)
		return err == nil
	default:
		return false
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
}

func parseDate(s string) *time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ParseDate converts a string to a time.Time using the accepted layouts.
// The second return is false when no layout matches.
func ParseDate(s string) (time.Time, bool) {
	t := parseDate(s)
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

func majority(byType map[Type]int) Type {
	best := TypeString
	bestCount := -1
	// Deterministic order so ties always prefer string.
	for _, t := range []Type{TypeString, TypeNumber, TypeBool, TypeDate} {
		if c := byType[t]; c > bestCount {
			best = t
			bestCount = c
		}
	}
	return best
}
