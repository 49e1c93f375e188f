package polarisdb

import "github.com/polarisdb/polarisdb/internal/bruteforce"

// BruteForceIndex is the direct, unpersisted exact (linear-scan) index API:
// a trivial oracle over the same data model, useful as ground truth when
// measuring HNSWIndex recall or when a dataset is small enough that exact
// search is cheap enough outright.
type BruteForceIndex struct {
	inner *bruteforce.Index
}

// NewBruteForceIndex returns an empty brute-force index over vectors of
// the given dimension.
func NewBruteForceIndex(dimension int, metric Metric) *BruteForceIndex {
	return &BruteForceIndex{inner: bruteforce.New(dimension, metric)}
}

// Insert adds a new vector under id. Returns DimensionMismatch or
// DuplicateID.
func (b *BruteForceIndex) Insert(id VectorID, vector []float32, p Payload) error {
	return b.inner.Insert(id, vector, p)
}

// InsertAuto allocates the next id and inserts under it.
func (b *BruteForceIndex) InsertAuto(vector []float32, p Payload) (VectorID, error) {
	return b.inner.InsertAuto(vector, p)
}

// Update replaces the vector and payload for an existing id. Unlike
// Collection.Update, this returns NotFound when id is absent.
func (b *BruteForceIndex) Update(id VectorID, vector []float32, p Payload) error {
	return b.inner.Update(id, vector, p)
}

// Delete removes id, returning whether it was present.
func (b *BruteForceIndex) Delete(id VectorID) bool { return b.inner.Delete(id) }

// Get returns the stored vector and payload for id.
func (b *BruteForceIndex) Get(id VectorID) ([]float32, Payload, bool) { return b.inner.Get(id) }

// Search scans every vector, applies f if given, and returns the k closest
// results ascending by distance.
func (b *BruteForceIndex) Search(query []float32, k int, f *Filter) []BruteForceResult {
	return b.inner.Search(query, k, f)
}

// BruteForceResult is one hit from BruteForceIndex.Search.
type BruteForceResult = bruteforce.Result

// IDs returns every id currently stored, in no particular order.
func (b *BruteForceIndex) IDs() []VectorID { return b.inner.IDs() }

// Len returns the number of stored vectors.
func (b *BruteForceIndex) Len() int { return b.inner.Len() }

// IsEmpty reports whether the index has no vectors.
func (b *BruteForceIndex) IsEmpty() bool { return b.inner.IsEmpty() }

// Clear removes every vector and resets the auto-id counter.
func (b *BruteForceIndex) Clear() { b.inner.Clear() }

// Dimension returns the configured vector dimension.
func (b *BruteForceIndex) Dimension() int { return b.inner.Dimension() }

// IndexMetric returns the configured distance metric.
func (b *BruteForceIndex) IndexMetric() Metric { return b.inner.Metric() }
