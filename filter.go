package polarisdb

import "github.com/polarisdb/polarisdb/internal/filter"

// Filter is a node in the boolean metadata filter expression tree:
// comparison leaves (eq, ne, lt, lte, gt, gte, in, contains, exists)
// combined with and/or/not. Build one with Field(...) or the Eq/Ne/...
// constructors, and pass it to Collection.SearchWithFilter.
type Filter = filter.Filter

// FieldFilter is the builder-style entry point returned by Field.
type FieldFilter = filter.FieldFilter

// Field starts a builder-style filter on the named payload field, e.g.
// polarisdb.Field("year").Gte(2024).
func Field(name string) *FieldFilter { return filter.Field(name) }

// Eq builds an equality leaf filter.
func Eq(field string, value any) *Filter { return filter.Eq(field, value) }

// Ne builds an inequality leaf filter.
func Ne(field string, value any) *Filter { return filter.Ne(field, value) }

// Lt builds a less-than numeric leaf filter.
func Lt(field string, value any) *Filter { return filter.Lt(field, value) }

// Lte builds a less-than-or-equal numeric leaf filter.
func Lte(field string, value any) *Filter { return filter.Lte(field, value) }

// Gt builds a greater-than numeric leaf filter.
func Gt(field string, value any) *Filter { return filter.Gt(field, value) }

// Gte builds a greater-than-or-equal numeric leaf filter.
func Gte(field string, value any) *Filter { return filter.Gte(field, value) }

// In builds a membership leaf filter.
func In(field string, values ...any) *Filter { return filter.In(field, values...) }

// Contains builds a substring leaf filter.
func Contains(field, substr string) *Filter { return filter.Contains(field, substr) }

// Exists builds a key-presence leaf filter.
func Exists(field string) *Filter { return filter.Exists(field) }

// And combines two filters conjunctively.
func And(a, b *Filter) *Filter { return filter.And(a, b) }

// Or combines two filters disjunctively.
func Or(a, b *Filter) *Filter { return filter.Or(a, b) }

// Not negates a filter.
func Not(a *Filter) *Filter { return filter.Not(a) }
