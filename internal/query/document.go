package query

// Document renders a filter tree back into a MongoDB-style document for
// display. A nil filter renders as the match-all document {}.
func Document(f *Filter) map[string]any {
	if f == nil {
		return map[string]any{}
	}
	if f.Leaf() {
		return map[string]any{
			f.Cond.Field: map[string]any{string(f.Cond.Op): f.Cond.Value},
		}
	}

	children := make([]any, 0, len(f.Children))
	for _, child := range f.Children {
		children = append(children, Document(child))
	}
	return map[string]any{string(f.Logic): children}
}

// SortDocument renders the sort spec as an ordered list of field/direction
// pairs for display.
func SortDocument(sorts []SortField) []map[string]any {
	if len(sorts) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(sorts))
	for _, s := range sorts {
		dir := "asc"
		if s.Desc {
			dir = "desc"
		}
		out = append(out, map[string]any{"field": s.Field, "direction": dir})
	}
	return out
}
