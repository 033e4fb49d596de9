package schema_test

import (
	"testing"
	"time"

	"github.com/askmongo/askmongo/internal/schema"
)

func TestInfer(t *testing.T) {
	t.Parallel()

	t.Run("empty sample yields empty schema", func(t *testing.T) {
		got := schema.Infer(nil)
		if len(got) != 0 {
			t.Fatalf("expected empty schema, got %#v", got)
		}
	})

	t.Run("covers every observed field", func(t *testing.T) {
		got := schema.Infer([]map[string]any{
			{"Brand": "Nike", "Price": 10.5},
			{"Brand": "Sony", "InStock": true},
		})
		want := schema.FieldSchema{
			"Brand":   schema.TypeString,
			"Price":   schema.TypeNumber,
			"InStock": schema.TypeBool,
		}
		if len(got) != len(want) {
			t.Fatalf("schema=%#v want=%#v", got, want)
		}
		for k, v := range want {
			if got[k] != v {
				t.Fatalf("field %s: got %q want %q", k, got[k], v)
			}
		}
	})

	t.Run("majority wins", func(t *testing.T) {
		got := schema.Infer([]map[string]any{
			{"Code": "A1"},
			{"Code": 2.0},
			{"Code": 3.0},
		})
		if got["Code"] != schema.TypeNumber {
			t.Fatalf("Code=%q want number", got["Code"])
		}
	})

	t.Run("ties prefer string", func(t *testing.T) {
		got := schema.Infer([]map[string]any{
			{"Code": "A1"},
			{"Code": 2.0},
		})
		if got["Code"] != schema.TypeString {
			t.Fatalf("Code=%q want string", got["Code"])
		}
	})

	t.Run("nil values do not vote", func(t *testing.T) {
		got := schema.Infer([]map[string]any{
			{"Date": nil},
			{"Date": time.Now()},
		})
		if got["Date"] != schema.TypeDate {
			t.Fatalf("Date=%q want date", got["Date"])
		}
	})

	t.Run("integers count as numbers", func(t *testing.T) {
		got := schema.Infer([]map[string]any{{"Reviews": int64(200)}})
		if got["Reviews"] != schema.TypeNumber {
			t.Fatalf("Reviews=%q want number", got["Reviews"])
		}
	})
}

func TestCompatible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		typ   schema.Type
		value any
		want  bool
	}{
		{name: "number accepts float", typ: schema.TypeNumber, value: 4.5, want: true},
		{name: "number accepts numeric string", typ: schema.TypeNumber, value: "4.5", want: true},
		{name: "number rejects word", typ: schema.TypeNumber, value: "cheap", want: false},
		{name: "bool accepts true", typ: schema.TypeBool, value: true, want: true},
		{name: "bool accepts string true", typ: schema.TypeBool, value: "true", want: true},
		{name: "bool rejects word", typ: schema.TypeBool, value: "maybe", want: false},
		{name: "date accepts rfc3339", typ: schema.TypeDate, value: "2024-01-31T00:00:00Z", want: true},
		{name: "date accepts day only", typ: schema.TypeDate, value: "2024-01-31", want: true},
		{name: "date rejects prose", typ: schema.TypeDate, value: "yesterday", want: false},
		{name: "string accepts number", typ: schema.TypeString, value: 42.0, want: true},
		{name: "nil never compatible", typ: schema.TypeString, value: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := schema.Compatible(tt.typ, tt.value); got != tt.want {
				t.Fatalf("Compatible(%q, %v)=%t want=%t", tt.typ, tt.value, got, tt.want)
			}
		})
	}
}

func TestFields_Sorted(t *testing.T) {
	t.Parallel()

	s := schema.FieldSchema{"b": schema.TypeString, "a": schema.TypeNumber, "c": schema.TypeBool}
	got := s.Fields()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	if _, ok := schema.ParseDate("2024-06-01T12:00:00Z"); !ok {
		t.Fatalf("rfc3339 should parse")
	}
	if ts, ok := schema.ParseDate("2024-06-01"); !ok || ts.Year() != 2024 {
		t.Fatalf("day-only should parse, got ok=%t ts=%v", ok, ts)
	}
	if _, ok := schema.ParseDate("not a date"); ok {
		t.Fatalf("prose should not parse")
	}
}
