package query

import (
	"sort"
	"strings"
)

// ParseDocument lifts a MongoDB-style filter document, as decoded from the
// translator's JSON, into a Filter tree.
//
// Shapes handled:
//
//	{"Brand": "Nike"}                  -> leaf Brand $eq Nike
//	{"Rating": {"$lt": 4.5}}           -> leaf Rating $lt 4.5
//	{"Rating": {"$gte": 4, "$lt": 5}}  -> $and of two leaves
//	{"$or": [ ... ]}                   -> combinator over sub-documents
//
// A document with multiple top-level keys is an implicit $and, matching how
// MongoDB itself interprets it. Keys are visited in sorted order so parsing
// is deterministic. An empty document yields a nil filter (match-all).
//
// Parsing does not consult the schema; unknown fields and out-of-allowlist
// operators survive to the tree so the validator can name them in its
// rejection.
func ParseDocument(doc map[string]any) (*Filter, error) {
	if len(doc) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	children := make([]*Filter, 0, len(keys))
	for _, key := range keys {
		node, err := parseEntry(key, doc[key])
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &Filter{Logic: LogicAnd, Children: children}, nil
}

func parseEntry(key string, value any) (*Filter, error) {
	if strings.HasPrefix(key, "$") {
		return parseCombinator(key, value)
	}
	return parseFieldEntry(key, value)
}

func parseCombinator(key string, value any) (*Filter, error) {
	var logic Logic
	switch Logic(key) {
	case LogicAnd:
		logic = LogicAnd
	case LogicOr:
		logic = LogicOr
	default:
		return nil, &UnsupportedOperatorError{Operator: key}
	}

	items, ok := value.([]any)
	if !ok {
		return nil, &MalformedQueryError{Reason: key + " expects an array of filter documents"}
	}
	children := make([]*Filter, 0, len(items))
	for _, item := range items {
		sub, ok := item.(map[string]any)
		if !ok {
			return nil, &MalformedQueryError{Reason: key + " contains a non-document entry"}
		}
		node, err := ParseDocument(sub)
		if err != nil {
			return nil, err
		}
		if node != nil {
			children = append(children, node)
		}
	}
	// Empty combinators pass through so the validator rejects them with the
	// offending operator named.
	return &Filter{Logic: logic, Children: children}, nil
}

func parseFieldEntry(field string, value any) (*Filter, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		// Bare value is shorthand for equality.
		return &Filter{Cond: &Condition{Field: field, Op: OpEq, Value: value}}, nil
	}

	ops, plains := splitKeys(obj)
	if len(ops) > 0 && len(plains) > 0 {
		return nil, &MalformedQueryError{Reason: "field " + field + " mixes operators with plain keys"}
	}
	if len(ops) == 0 {
		// An object value with no operators is an exact-match document.
		return &Filter{Cond: &Condition{Field: field, Op: OpEq, Value: value}}, nil
	}

	leaves := make([]*Filter, 0, len(ops))
	for _, op := range ops {
		leaves = append(leaves, &Filter{Cond: &Condition{
			Field: field,
			Op:    Operator(op),
			Value: obj[op],
		}})
	}
	if len(leaves) == 1 {
		return leaves[0], nil
	}
	// {"Rating": {"$gte": 4, "$lt": 5}} is a conjunction on one field.
	return &Filter{Logic: LogicAnd, Children: leaves}, nil
}

func splitKeys(obj map[string]any) (ops, plains []string) {
	for k := range obj {
		if strings.HasPrefix(k, "$") {
			ops = append(ops, k)
		} else {
			plains = append(plains, k)
		}
	}
	sort.Strings(ops)
	sort.Strings(plains)
	return ops, plains
}
