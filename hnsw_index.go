package polarisdb

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/polarisdb/polarisdb/internal/hnsw"
)

// Bitmap is a set of ids used to pre-filter HNSWIndex.SearchWithBitmap.
type Bitmap = roaring.Bitmap

// NewBitmap returns an empty Bitmap.
func NewBitmap() *Bitmap { return roaring.New() }

// HNSWIndex is the direct, unpersisted HNSW graph API: the same surface a
// Collection builds on, without a backing WAL or record file.
type HNSWIndex struct {
	inner *hnsw.Index
}

// NewHNSWIndex returns an empty HNSW index over vectors of the given
// dimension.
func NewHNSWIndex(dimension int, metric Metric, cfg HNSWConfig) *HNSWIndex {
	return &HNSWIndex{inner: hnsw.New(dimension, metric, cfg)}
}

// Insert adds a new node. Returns DimensionMismatch or DuplicateID.
func (h *HNSWIndex) Insert(id VectorID, vector []float32, p Payload) error {
	return h.inner.Insert(id, vector, p)
}

// Search returns up to k nearest results, optionally restricted by
// filterFn (applied after the beam). ef overrides ef_search when > 0.
func (h *HNSWIndex) Search(query []float32, k, ef int, filterFn func(Payload) bool) []Result {
	return h.inner.Search(query, k, ef, filterFn)
}

// SearchWithBitmap widens the layer-0 beam to 2*ef and restricts results
// to validIDs after the beam, leaving graph traversal itself unfiltered.
func (h *HNSWIndex) SearchWithBitmap(query []float32, k, ef int, validIDs *Bitmap) []Result {
	return h.inner.SearchWithBitmap(query, k, ef, validIDs)
}

// Get returns the stored vector and payload for id.
func (h *HNSWIndex) Get(id VectorID) ([]float32, Payload, bool) { return h.inner.Get(id) }

// Delete removes id and every back-reference to it, returning whether it
// was present.
func (h *HNSWIndex) Delete(id VectorID) bool { return h.inner.Delete(id) }

// Len returns the number of live nodes.
func (h *HNSWIndex) Len() int { return h.inner.Len() }

// IsEmpty reports whether the graph has no nodes.
func (h *HNSWIndex) IsEmpty() bool { return h.inner.IsEmpty() }

// Clear removes every node and resets the entry point.
func (h *HNSWIndex) Clear() { h.inner.Clear() }

// Stats summarizes graph shape: node count, max level, average layer-0
// degree.
func (h *HNSWIndex) Stats() hnsw.Stats { return h.inner.Stats() }

// Dimension returns the configured vector dimension.
func (h *HNSWIndex) Dimension() int { return h.inner.Dimension() }

// IndexMetric returns the configured distance metric.
func (h *HNSWIndex) IndexMetric() Metric { return h.inner.Metric() }
