// Package filter implements the boolean metadata filter expression tree:
// comparison leaves and and/or/not combinators, evaluable directly against
// a payload or (see internal/bitmap) against the bitmap inverted index.
package filter

import (
	"strings"

	"github.com/polarisdb/polarisdb/internal/payload"
)

// Op identifies a filter node's kind.
type Op uint8

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLte
	OpGt
	OpGte
	OpIn
	OpContains
	OpExists
	OpAnd
	OpOr
	OpNot
)

// Filter is a node in the expression tree. Leaves set Field/Value(s);
// internal nodes set Children ([1]Filter for Not, [2]Filter for And/Or).
type Filter struct {
	Op       Op
	Field    string
	Value    any
	Values   []any
	Children []*Filter
}

// Eq builds an equality leaf.
func Eq(field string, value any) *Filter { return &Filter{Op: OpEq, Field: field, Value: value} }

// Ne builds an inequality leaf.
func Ne(field string, value any) *Filter { return &Filter{Op: OpNe, Field: field, Value: value} }

// Lt builds a less-than numeric leaf.
func Lt(field string, value any) *Filter { return &Filter{Op: OpLt, Field: field, Value: value} }

// Lte builds a less-than-or-equal numeric leaf.
func Lte(field string, value any) *Filter { return &Filter{Op: OpLte, Field: field, Value: value} }

// Gt builds a greater-than numeric leaf.
func Gt(field string, value any) *Filter { return &Filter{Op: OpGt, Field: field, Value: value} }

// Gte builds a greater-than-or-equal numeric leaf.
func Gte(field string, value any) *Filter { return &Filter{Op: OpGte, Field: field, Value: value} }

// In builds a membership leaf.
func In(field string, values ...any) *Filter { return &Filter{Op: OpIn, Field: field, Values: values} }

// Contains builds a substring leaf; the field must be a string at eval time.
func Contains(field, substr string) *Filter {
	return &Filter{Op: OpContains, Field: field, Value: substr}
}

// Exists builds a key-presence leaf.
func Exists(field string) *Filter { return &Filter{Op: OpExists, Field: field} }

// And combines two filters conjunctively.
func And(a, b *Filter) *Filter { return &Filter{Op: OpAnd, Children: []*Filter{a, b}} }

// Or combines two filters disjunctively.
func Or(a, b *Filter) *Filter { return &Filter{Op: OpOr, Children: []*Filter{a, b}} }

// Not negates a filter.
func Not(a *Filter) *Filter { return &Filter{Op: OpNot, Children: []*Filter{a}} }

// And chains f AND other, consuming both.
func (f *Filter) And(other *Filter) *Filter { return And(f, other) }

// Or chains f OR other, consuming both.
func (f *Filter) Or(other *Filter) *Filter { return Or(f, other) }

// FieldFilter is the builder-style entry point: Field("year").Gte(2024).
type FieldFilter struct{ name string }

// Field starts a builder-style filter on the named field.
func Field(name string) *FieldFilter { return &FieldFilter{name: name} }

func (f *FieldFilter) Eq(v any) *Filter         { return Eq(f.name, v) }
func (f *FieldFilter) Ne(v any) *Filter         { return Ne(f.name, v) }
func (f *FieldFilter) Lt(v any) *Filter         { return Lt(f.name, v) }
func (f *FieldFilter) Lte(v any) *Filter        { return Lte(f.name, v) }
func (f *FieldFilter) Gt(v any) *Filter         { return Gt(f.name, v) }
func (f *FieldFilter) Gte(v any) *Filter        { return Gte(f.name, v) }
func (f *FieldFilter) In(vs ...any) *Filter     { return In(f.name, vs...) }
func (f *FieldFilter) Contains(s string) *Filter { return Contains(f.name, s) }
func (f *FieldFilter) Exists() *Filter          { return Exists(f.name) }

// Matches evaluates the tree against a single payload, post-filter style.
func (f *Filter) Matches(p payload.Payload) bool {
	if f == nil {
		return true
	}
	switch f.Op {
	case OpEq:
		v, ok := p.Get(f.Field)
		return ok && payload.Equal(v, f.Value)
	case OpNe:
		v, ok := p.Get(f.Field)
		if !ok {
			return true
		}
		return !payload.Equal(v, f.Value)
	case OpLt:
		return numericCompare(p, f.Field, f.Value, func(a, b float64) bool { return a < b })
	case OpLte:
		return numericCompare(p, f.Field, f.Value, func(a, b float64) bool { return a <= b })
	case OpGt:
		return numericCompare(p, f.Field, f.Value, func(a, b float64) bool { return a > b })
	case OpGte:
		return numericCompare(p, f.Field, f.Value, func(a, b float64) bool { return a >= b })
	case OpIn:
		v, ok := p.Get(f.Field)
		if !ok {
			return false
		}
		for _, candidate := range f.Values {
			if payload.Equal(v, candidate) {
				return true
			}
		}
		return false
	case OpContains:
		s, ok := p.GetString(f.Field)
		if !ok {
			return false
		}
		sub, _ := f.Value.(string)
		return strings.Contains(s, sub)
	case OpExists:
		return p.Has(f.Field)
	case OpAnd:
		return f.Children[0].Matches(p) && f.Children[1].Matches(p)
	case OpOr:
		return f.Children[0].Matches(p) || f.Children[1].Matches(p)
	case OpNot:
		return !f.Children[0].Matches(p)
	default:
		return false
	}
}

func numericCompare(p payload.Payload, field string, target any, cmp func(a, b float64) bool) bool {
	v, ok := p.Get(field)
	if !ok {
		return false
	}
	a, aOK := toFloat64(v)
	b, bOK := toFloat64(target)
	if !aOK || !bOK {
		return false
	}
	return cmp(a, b)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
