package query

import (
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/askmongo/askmongo/internal/schema"
)

// BSONFilter renders a validated filter tree as a driver filter document.
// Values are coerced to the schema's inferred types first, so "4.5" against a
// number field compares numerically and date strings become time.Time.
//
// Call only with a query that passed Validate; coercion assumes the types
// already checked out.
func BSONFilter(f *Filter, fields schema.FieldSchema) bson.D {
	if f == nil {
		return bson.D{}
	}
	if f.Leaf() {
		return leafBSON(f.Cond, fields)
	}

	children := make(bson.A, 0, len(f.Children))
	for _, child := range f.Children {
		children = append(children, BSONFilter(child, fields))
	}
	return bson.D{{Key: string(f.Logic), Value: children}}
}

// BSONSort renders the sort spec in driver form, preserving field order.
func BSONSort(sorts []SortField) bson.D {
	out := make(bson.D, 0, len(sorts))
	for _, s := range sorts {
		dir := 1
		if s.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: s.Field, Value: dir})
	}
	return out
}

func leafBSON(c *Condition, fields schema.FieldSchema) bson.D {
	fieldType := fields[c.Field]

	if c.Op == OpIn {
		items, _ := c.Value.([]any)
		coerced := make(bson.A, 0, len(items))
		for _, item := range items {
			coerced = append(coerced, coerceValue(fieldType, item))
		}
		return bson.D{{Key: c.Field, Value: bson.D{{Key: string(OpIn), Value: coerced}}}}
	}

	return bson.D{{Key: c.Field, Value: bson.D{{
		Key:   string(c.Op),
		Value: coerceValue(fieldType, c.Value),
	}}}}
}

func coerceValue(t schema.Type, value any) any {
	switch t {
	case schema.TypeNumber:
		if v, err := cast.ToFloat64E(value); err == nil {
			return v
		}
	case schema.TypeBool:
		if v, err := cast.ToBoolE(value); err == nil {
			return v
		}
	case schema.TypeDate:
		if s, err := cast.ToStringE(value); err == nil {
			if ts, ok := schema.ParseDate(s); ok {
				return ts
			}
		}
	case schema.TypeString:
		if v, err := cast.ToStringE(value); err == nil {
			return v
		}
	}
	return value
}
