// Package export renders query results as CSV for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/spf13/cast"
)

// Header returns the sorted union of field names observed across docs.
func Header(docs []map[string]any) []string {
	seen := make(map[string]struct{})
	for _, doc := range docs {
		for k := range doc {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// WriteDocumentsCSV writes docs with a header row equal to the sorted union
// of observed field names. Missing fields render as empty cells.
func WriteDocumentsCSV(w io.Writer, docs []map[string]any) error {
	header := Header(docs)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, doc := range docs {
		rec := make([]string, len(header))
		for i, col := range header {
			v, ok := doc[col]
			if !ok || v == nil {
				continue
			}
			rec[i] = Cell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Cell renders one document value as CSV text.
func Cell(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			b, jerr := json.Marshal(v)
			if jerr != nil {
				return ""
			}
			return string(b)
		}
		return s
	}
}
