// Package bruteforce implements the exact, linear-scan index: a direct
// API distinct from the collection's HNSW-backed approximate search.
package bruteforce

import (
	"sort"
	"sync"

	"github.com/polarisdb/polarisdb/internal/dberr"
	"github.com/polarisdb/polarisdb/internal/distance"
	"github.com/polarisdb/polarisdb/internal/filter"
	"github.com/polarisdb/polarisdb/internal/payload"
)

// Result is one hit from a search.
type Result struct {
	ID       uint64
	Distance float32
	Payload  payload.Payload
}

type entry struct {
	vector  []float32
	payload payload.Payload
}

// Index is an exact, unpersisted linear-scan index. Safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	dimension int
	metric    distance.Metric
	vectors   map[uint64]entry
	nextID    uint64
}

// New returns an empty brute-force index.
func New(dimension int, metric distance.Metric) *Index {
	return &Index{dimension: dimension, metric: metric, vectors: make(map[uint64]entry), nextID: 1}
}

// Dimension returns the configured vector dimension.
func (idx *Index) Dimension() int { return idx.dimension }

// Metric returns the configured distance metric.
func (idx *Index) Metric() distance.Metric { return idx.metric }

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// IsEmpty reports whether the index has no vectors.
func (idx *Index) IsEmpty() bool { return idx.Len() == 0 }

// Insert adds a new vector under id. Rejects dimension mismatch and
// duplicate ids.
func (idx *Index) Insert(id uint64, vector []float32, p payload.Payload) error {
	if len(vector) != idx.dimension {
		return dberr.DimensionMismatch(idx.dimension, len(vector))
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.vectors[id]; exists {
		return dberr.DuplicateID(id)
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	idx.vectors[id] = entry{vector: v, payload: p.Clone()}
	if id+1 > idx.nextID {
		idx.nextID = id + 1
	}
	return nil
}

// InsertAuto allocates the next id and inserts under it.
func (idx *Index) InsertAuto(vector []float32, p payload.Payload) (uint64, error) {
	idx.mu.Lock()
	id := idx.nextID
	idx.mu.Unlock()
	if err := idx.Insert(id, vector, p); err != nil {
		return 0, err
	}
	return id, nil
}

// Update replaces the vector and payload for an existing id. Unlike
// Collection's idempotent apply path, this returns NotFound when id is
// absent: the brute-force index is a direct, validation-strict API, not a
// WAL-replay target.
func (idx *Index) Update(id uint64, vector []float32, p payload.Payload) error {
	if len(vector) != idx.dimension {
		return dberr.DimensionMismatch(idx.dimension, len(vector))
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.vectors[id]; !exists {
		return dberr.NotFound(id)
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	idx.vectors[id] = entry{vector: v, payload: p.Clone()}
	return nil
}

// Delete removes id, returning whether it was present.
func (idx *Index) Delete(id uint64) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.vectors[id]; !exists {
		return false
	}
	delete(idx.vectors, id)
	return true
}

// Get returns the stored vector and payload for id.
func (idx *Index) Get(id uint64) ([]float32, payload.Payload, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.vectors[id]
	if !ok {
		return nil, nil, false
	}
	v := make([]float32, len(e.vector))
	copy(v, e.vector)
	return v, e.payload.Clone(), true
}

// Search scans every vector, applies f if given, and returns the k closest
// results ascending by distance. Returns empty (not an error) when query's
// dimension disagrees with the index.
func (idx *Index) Search(query []float32, k int, f *filter.Filter) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(query) != idx.dimension {
		return nil
	}
	results := make([]Result, 0, len(idx.vectors))
	for id, e := range idx.vectors {
		if f != nil && !f.Matches(e.payload) {
			continue
		}
		d := distance.Compute(idx.metric, query, e.vector)
		results = append(results, Result{ID: id, Distance: d, Payload: e.payload.Clone()})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// IDs returns every id currently stored, in no particular order.
func (idx *Index) IDs() []uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]uint64, 0, len(idx.vectors))
	for id := range idx.vectors {
		out = append(out, id)
	}
	return out
}

// Clear removes every vector and resets the auto-id counter. This index is
// standalone and unpersisted, so resetting nextID here has no bearing on a
// Collection's own next_id invariant.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = make(map[uint64]entry)
	idx.nextID = 1
}
