// Package bitmap implements the per-field, per-value inverted index backing
// prefiltered search: a map from (field, canonical value string) to a
// roaring bitmap of ids, plus an all_ids bitmap, evaluated against a filter
// tree to produce the admissible-id set a search restricts itself to.
// Backed by github.com/RoaringBitmap/roaring/v2.
package bitmap

import (
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/polarisdb/polarisdb/internal/filter"
	"github.com/polarisdb/polarisdb/internal/payload"
)

// Index is the bitmap inverted index. Zero value is not usable; use New.
type Index struct {
	fields map[string]map[string]*roaring.Bitmap
	allIDs *roaring.Bitmap
}

// New returns an empty bitmap index.
func New() *Index {
	return &Index{
		fields: make(map[string]map[string]*roaring.Bitmap),
		allIDs: roaring.New(),
	}
}

// Insert adds id to all_ids and to the (field, value) bitmap for every
// field present in payload.
func (idx *Index) Insert(id uint64, p payload.Payload) {
	idx.allIDs.Add(uint32(id))
	for field, value := range p {
		idx.bitmapFor(field, payload.CanonicalString(value), true).Add(uint32(id))
	}
}

// Delete removes id from all_ids and from every (field, value) bitmap the
// given payload references. Callers must pass the payload the id was last
// inserted with, since that is what determines which bitmaps to touch.
func (idx *Index) Delete(id uint64, p payload.Payload) {
	idx.allIDs.Remove(uint32(id))
	for field, value := range p {
		if bm := idx.bitmapFor(field, payload.CanonicalString(value), false); bm != nil {
			bm.Remove(uint32(id))
		}
	}
}

func (idx *Index) bitmapFor(field, value string, create bool) *roaring.Bitmap {
	values, ok := idx.fields[field]
	if !ok {
		if !create {
			return nil
		}
		values = make(map[string]*roaring.Bitmap)
		idx.fields[field] = values
	}
	bm, ok := values[value]
	if !ok {
		if !create {
			return nil
		}
		bm = roaring.New()
		values[value] = bm
	}
	return bm
}

func (idx *Index) getBitmap(field, value string) *roaring.Bitmap {
	if bm := idx.bitmapFor(field, value, false); bm != nil {
		return bm
	}
	return roaring.New()
}

func (idx *Index) unionAllValues(field string) *roaring.Bitmap {
	out := roaring.New()
	for _, bm := range idx.fields[field] {
		out.Or(bm)
	}
	return out
}

// Query evaluates f against the index, returning the admissible id bitmap.
// A nil filter matches everything.
func (idx *Index) Query(f *filter.Filter) *roaring.Bitmap {
	if f == nil {
		return idx.allIDs.Clone()
	}
	switch f.Op {
	case filter.OpEq:
		return idx.getBitmap(f.Field, payload.CanonicalString(f.Value))
	case filter.OpNe:
		eq := idx.getBitmap(f.Field, payload.CanonicalString(f.Value))
		out := idx.allIDs.Clone()
		out.AndNot(eq)
		return out
	case filter.OpIn:
		out := roaring.New()
		for _, v := range f.Values {
			out.Or(idx.getBitmap(f.Field, payload.CanonicalString(v)))
		}
		return out
	case filter.OpExists:
		return idx.unionAllValues(f.Field)
	case filter.OpContains:
		// Cannot substring-match a bitmap; degrade to exists and let the
		// caller pair this with a post-filter pass on the payload.
		return idx.unionAllValues(f.Field)
	case filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
		return idx.rangeQuery(f)
	case filter.OpAnd:
		out := idx.Query(f.Children[0])
		out.And(idx.Query(f.Children[1]))
		return out
	case filter.OpOr:
		out := idx.Query(f.Children[0])
		out.Or(idx.Query(f.Children[1]))
		return out
	case filter.OpNot:
		out := idx.allIDs.Clone()
		out.AndNot(idx.Query(f.Children[0]))
		return out
	default:
		return roaring.New()
	}
}

// rangeQuery unions every (field, value) bitmap whose key parses as a
// number satisfying the predicate against f.Value. Keys that fail to parse
// numerically are silently excluded, matching the Rust original's
// range_query: a field holding mixed numeric and non-numeric values simply
// ignores the non-numeric entries rather than erroring.
func (idx *Index) rangeQuery(f *filter.Filter) *roaring.Bitmap {
	target, ok := toFloat64(f.Value)
	out := roaring.New()
	if !ok {
		return out
	}
	for value, bm := range idx.fields[f.Field] {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		if satisfies(f.Op, n, target) {
			out.Or(bm)
		}
	}
	return out
}

func satisfies(op filter.Op, n, target float64) bool {
	switch op {
	case filter.OpGt:
		return n > target
	case filter.OpGte:
		return n >= target
	case filter.OpLt:
		return n < target
	case filter.OpLte:
		return n <= target
	default:
		return false
	}
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
