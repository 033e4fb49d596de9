// Package query holds the structured representation of an AI-generated
// MongoDB query, the parser that lifts a raw filter document into it, and the
// validator that stands between the translator and the data store.
package query

// Operator is a comparison operator permitted in filter leaves.
type Operator string

const (
	OpEq  Operator = "$eq"
	OpNe  Operator = "$ne"
	OpGt  Operator = "$gt"
	OpGte Operator = "$gte"
	OpLt  Operator = "$lt"
	OpLte Operator = "$lte"
	OpIn  Operator = "$in"
)

// Logic combines child filters.
type Logic string

const (
	LogicAnd Logic = "$and"
	LogicOr  Logic = "$or"
)

// SupportedOperator reports whether op is in the comparison allowlist.
func SupportedOperator(op Operator) bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn:
		return true
	default:
		return false
	}
}

// Condition is a single field comparison.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// Filter is a node in the filter tree: either a leaf condition or a logical
// combinator over child filters. Exactly one of Cond and Children is set.
type Filter struct {
	Cond     *Condition
	Logic    Logic
	Children []*Filter
}

// Leaf reports whether the node is a condition leaf.
func (f *Filter) Leaf() bool {
	return f != nil && f.Cond != nil
}

// SortField orders results by one field.
type SortField struct {
	Field string
	Desc  bool
}

// StructuredQuery is one validated-or-not filter/sort request. It is built
// per question, used once, and never persisted.
type StructuredQuery struct {
	Filter *Filter
	Sort   []SortField
}

// Empty reports whether the query has neither filter nor sort, which matches
// everything in collection order.
func (q StructuredQuery) Empty() bool {
	return q.Filter == nil && len(q.Sort) == 0
}
