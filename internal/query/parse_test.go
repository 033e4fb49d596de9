package query_test

import (
	"errors"
	"testing"

	"github.com/askmongo/askmongo/internal/query"
)

func TestParseDocument(t *testing.T) {
	t.Parallel()

	t.Run("empty document is match-all", func(t *testing.T) {
		f, err := query.ParseDocument(map[string]any{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f != nil {
			t.Fatalf("expected nil filter, got %#v", f)
		}
	})

	t.Run("bare value is equality", func(t *testing.T) {
		f, err := query.ParseDocument(map[string]any{"Brand": "Nike"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !f.Leaf() || f.Cond.Field != "Brand" || f.Cond.Op != query.OpEq || f.Cond.Value != "Nike" {
			t.Fatalf("unexpected leaf: %#v", f.Cond)
		}
	})

	t.Run("operator object", func(t *testing.T) {
		f, err := query.ParseDocument(map[string]any{"Rating": map[string]any{"$lt": 4.5}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !f.Leaf() || f.Cond.Op != query.OpLt || f.Cond.Value != 4.5 {
			t.Fatalf("unexpected leaf: %#v", f.Cond)
		}
	})

	t.Run("multiple operators on one field conjoin", func(t *testing.T) {
		f, err := query.ParseDocument(map[string]any{
			"Rating": map[string]any{"$gte": 4.0, "$lt": 5.0},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Leaf() || f.Logic != query.LogicAnd || len(f.Children) != 2 {
			t.Fatalf("unexpected node: %#v", f)
		}
		// Operator keys are visited sorted, so $gte comes first.
		if f.Children[0].Cond.Op != query.OpGte || f.Children[1].Cond.Op != query.OpLt {
			t.Fatalf("unexpected order: %#v %#v", f.Children[0].Cond, f.Children[1].Cond)
		}
	})

	t.Run("multiple top-level keys are implicit and", func(t *testing.T) {
		f, err := query.ParseDocument(map[string]any{
			"Brand":    "Samsung",
			"Category": "Phone",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Logic != query.LogicAnd || len(f.Children) != 2 {
			t.Fatalf("unexpected node: %#v", f)
		}
		if f.Children[0].Cond.Field != "Brand" || f.Children[1].Cond.Field != "Category" {
			t.Fatalf("keys not visited in sorted order: %#v", f)
		}
	})

	t.Run("or combinator", func(t *testing.T) {
		f, err := query.ParseDocument(map[string]any{
			"$or": []any{
				map[string]any{"Brand": "Nike"},
				map[string]any{"Brand": "Sony"},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Logic != query.LogicOr || len(f.Children) != 2 {
			t.Fatalf("unexpected node: %#v", f)
		}
	})

	t.Run("unknown logical operator is rejected", func(t *testing.T) {
		_, err := query.ParseDocument(map[string]any{"$nor": []any{map[string]any{"A": 1}}})
		var opErr *query.UnsupportedOperatorError
		if !errors.As(err, &opErr) || opErr.Operator != "$nor" {
			t.Fatalf("expected UnsupportedOperatorError($nor), got %v", err)
		}
	})

	t.Run("combinator with non-array value is malformed", func(t *testing.T) {
		_, err := query.ParseDocument(map[string]any{"$and": map[string]any{"A": 1}})
		var malformed *query.MalformedQueryError
		if !errors.As(err, &malformed) {
			t.Fatalf("expected MalformedQueryError, got %v", err)
		}
	})

	t.Run("combinator with non-document entry is malformed", func(t *testing.T) {
		_, err := query.ParseDocument(map[string]any{"$or": []any{"Brand"}})
		var malformed *query.MalformedQueryError
		if !errors.As(err, &malformed) {
			t.Fatalf("expected MalformedQueryError, got %v", err)
		}
	})

	t.Run("mixing operators with plain keys is malformed", func(t *testing.T) {
		_, err := query.ParseDocument(map[string]any{
			"Meta": map[string]any{"$gt": 1, "nested": 2},
		})
		var malformed *query.MalformedQueryError
		if !errors.As(err, &malformed) {
			t.Fatalf("expected MalformedQueryError, got %v", err)
		}
	})

	t.Run("out-of-allowlist comparison survives to the tree", func(t *testing.T) {
		// The validator, not the parser, names bad comparison operators.
		f, err := query.ParseDocument(map[string]any{"Name": map[string]any{"$regex": "nike.*"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !f.Leaf() || f.Cond.Op != query.Operator("$regex") {
			t.Fatalf("unexpected node: %#v", f)
		}
	})

	t.Run("empty combinator survives to the tree", func(t *testing.T) {
		f, err := query.ParseDocument(map[string]any{"$and": []any{}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Leaf() || len(f.Children) != 0 {
			t.Fatalf("unexpected node: %#v", f)
		}
	})
}

func TestDocument_RoundTrip(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"$or": []any{
			map[string]any{"Brand": "Nike"},
			map[string]any{"Rating": map[string]any{"$gte": 4.5}},
		},
	}
	f, err := query.ParseDocument(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := query.Document(f)
	children, ok := out["$or"].([]any)
	if !ok || len(children) != 2 {
		t.Fatalf("unexpected document: %#v", out)
	}

	if got := query.Document(nil); len(got) != 0 {
		t.Fatalf("nil filter should render as {}, got %#v", got)
	}
}
