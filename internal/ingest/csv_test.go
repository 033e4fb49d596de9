package ingest_test

import (
	"strings"
	"testing"
	"time"

	"github.com/askmongo/askmongo/internal/ingest"
)

func TestReadDocumentsCSV(t *testing.T) {
	t.Parallel()

	t.Run("coerces cell types", func(t *testing.T) {
		in := "Brand,Price,InStock,Released\nNike,49.99,true,2024-01-31\n"
		docs, err := ingest.ReadDocumentsCSV(strings.NewReader(in))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 1 {
			t.Fatalf("expected 1 document, got %d", len(docs))
		}
		doc := docs[0]
		if doc["Brand"] != "Nike" {
			t.Fatalf("Brand=%#v", doc["Brand"])
		}
		if doc["Price"] != 49.99 {
			t.Fatalf("Price=%#v", doc["Price"])
		}
		if doc["InStock"] != true {
			t.Fatalf("InStock=%#v", doc["InStock"])
		}
		if ts, ok := doc["Released"].(time.Time); !ok || ts.Year() != 2024 {
			t.Fatalf("Released=%#v", doc["Released"])
		}
	})

	t.Run("empty cells are omitted", func(t *testing.T) {
		in := "Brand,Price\nNike,\n,12.5\n"
		docs, err := ingest.ReadDocumentsCSV(strings.NewReader(in))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("expected 2 documents, got %d", len(docs))
		}
		if _, ok := docs[0]["Price"]; ok {
			t.Fatalf("empty Price should be omitted: %#v", docs[0])
		}
		if _, ok := docs[1]["Brand"]; ok {
			t.Fatalf("empty Brand should be omitted: %#v", docs[1])
		}
	})

	t.Run("header whitespace is trimmed", func(t *testing.T) {
		in := " Brand , Price \nNike,10\n"
		docs, err := ingest.ReadDocumentsCSV(strings.NewReader(in))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := docs[0]["Brand"]; !ok {
			t.Fatalf("expected trimmed header, got %#v", docs[0])
		}
	})

	t.Run("duplicate column errors", func(t *testing.T) {
		in := "Brand,Brand\nNike,Sony\n"
		if _, err := ingest.ReadDocumentsCSV(strings.NewReader(in)); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("dollar-prefixed column errors", func(t *testing.T) {
		in := "$where,Price\nx,1\n"
		if _, err := ingest.ReadDocumentsCSV(strings.NewReader(in)); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("empty column name errors", func(t *testing.T) {
		in := "Brand,\nNike,1\n"
		if _, err := ingest.ReadDocumentsCSV(strings.NewReader(in)); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestCoerceCell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want any
	}{
		{in: "true", want: true},
		{in: "False", want: false},
		{in: "42", want: 42.0},
		{in: "4.5", want: 4.5},
		{in: "Nike", want: "Nike"},
		{in: "2024-01-31", want: "date"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ingest.CoerceCell(tt.in)
			if tt.want == "date" {
				if _, ok := got.(time.Time); !ok {
					t.Fatalf("CoerceCell(%q)=%#v want time.Time", tt.in, got)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("CoerceCell(%q)=%#v want %#v", tt.in, got, tt.want)
			}
		})
	}
}
