// Package ingest turns uploaded CSV files into documents ready for insertion.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"

	"github.com/askmongo/askmongo/internal/schema"
)

// ReadDocumentsCSV parses a CSV stream into documents keyed by the header
// row. Cell values are coerced: numbers become float64, true/false become
// bool, recognized date layouts become time.Time, everything else stays a
// string. Empty cells are omitted from the document.
func ReadDocumentsCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make([]string, len(header))
	for i, name := range header {
		cols[i] = strings.TrimSpace(name)
	}
	if err := checkHeader(cols); err != nil {
		return nil, err
	}

	var docs []map[string]any
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(docs)+2, err)
		}

		doc := make(map[string]any, len(cols))
		for i, col := range cols {
			if i >= len(rec) {
				break
			}
			cell := strings.TrimSpace(rec[i])
			if cell == "" {
				continue
			}
			doc[col] = CoerceCell(cell)
		}
		if len(doc) > 0 {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func checkHeader(cols []string) error {
	seen := make(map[string]struct{}, len(cols))
	for i, col := range cols {
		if col == "" {
			return fmt.Errorf("empty column name at position %d", i+1)
		}
		if strings.HasPrefix(col, "$") {
			return fmt.Errorf("column name %q may not start with '$'", col)
		}
		if _, ok := seen[col]; ok {
			return fmt.Errorf("duplicate column name %q", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}

// CoerceCell converts one CSV cell to its most specific Go type.
func CoerceCell(cell string) any {
	switch strings.ToLower(cell) {
	case "true", "false":
		v, _ := cast.ToBoolE(cell)
		return v
	}
	if t, ok := schema.ParseDate(cell); ok {
		return t
	}
	if v, err := cast.ToFloat64E(cell); err == nil {
		return v
	}
	return cell
}
