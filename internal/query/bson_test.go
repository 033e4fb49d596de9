package query_test

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/askmongo/askmongo/internal/query"
)

func TestBSONFilter(t *testing.T) {
	t.Parallel()

	fields := productSchema()

	t.Run("nil filter renders match-all", func(t *testing.T) {
		got := query.BSONFilter(nil, fields)
		if len(got) != 0 {
			t.Fatalf("expected empty document, got %#v", got)
		}
	})

	t.Run("leaf with numeric string coerces", func(t *testing.T) {
		f := mustParse(t, map[string]any{"Rating": map[string]any{"$lt": "4.5"}})
		got := query.BSONFilter(f, fields)

		want := bson.D{{Key: "Rating", Value: bson.D{{Key: "$lt", Value: 4.5}}}}
		if len(got) != 1 || got[0].Key != "Rating" {
			t.Fatalf("got %#v want %#v", got, want)
		}
		inner := got[0].Value.(bson.D)
		if inner[0].Key != "$lt" || inner[0].Value != 4.5 {
			t.Fatalf("got %#v want %#v", got, want)
		}
	})

	t.Run("date string becomes time.Time", func(t *testing.T) {
		f := mustParse(t, map[string]any{"Released": map[string]any{"$gte": "2024-01-31T00:00:00Z"}})
		got := query.BSONFilter(f, fields)

		inner := got[0].Value.(bson.D)
		ts, ok := inner[0].Value.(time.Time)
		if !ok || ts.Year() != 2024 || ts.Month() != time.January {
			t.Fatalf("expected coerced time, got %#v", inner[0].Value)
		}
	})

	t.Run("in coerces element-wise", func(t *testing.T) {
		f := mustParse(t, map[string]any{"Reviews": map[string]any{"$in": []any{"100", 200.0}}})
		got := query.BSONFilter(f, fields)

		inner := got[0].Value.(bson.D)
		items, ok := inner[0].Value.(bson.A)
		if !ok || len(items) != 2 || items[0] != 100.0 || items[1] != 200.0 {
			t.Fatalf("unexpected $in payload: %#v", inner[0].Value)
		}
	})

	t.Run("combinators nest", func(t *testing.T) {
		f := mustParse(t, map[string]any{
			"$or": []any{
				map[string]any{"Brand": "Nike"},
				map[string]any{"Brand": "Sony"},
			},
		})
		got := query.BSONFilter(f, fields)

		if got[0].Key != "$or" {
			t.Fatalf("expected $or, got %#v", got)
		}
		children, ok := got[0].Value.(bson.A)
		if !ok || len(children) != 2 {
			t.Fatalf("unexpected children: %#v", got[0].Value)
		}
	})
}

func TestBSONSort(t *testing.T) {
	t.Parallel()

	got := query.BSONSort([]query.SortField{
		{Field: "Rating", Desc: true},
		{Field: "Brand"},
	})
	if len(got) != 2 {
		t.Fatalf("unexpected sort: %#v", got)
	}
	if got[0].Key != "Rating" || got[0].Value != -1 {
		t.Fatalf("descending should map to -1: %#v", got[0])
	}
	if got[1].Key != "Brand" || got[1].Value != 1 {
		t.Fatalf("ascending should map to 1: %#v", got[1])
	}
}
