// Package hnsw implements the Hierarchical Navigable Small World proximity
// graph: the primary in-memory index wired into Collection. Insert, search,
// and delete follow the standard multi-layer algorithm: layered
// entry-point descent down to layer 1, then ef-bounded beam search with
// per-layer neighbor caps.
package hnsw

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/polarisdb/polarisdb/internal/dberr"
	"github.com/polarisdb/polarisdb/internal/distance"
	"github.com/polarisdb/polarisdb/internal/filter"
	"github.com/polarisdb/polarisdb/internal/payload"
)

// Config holds the graph's tuning parameters.
type Config struct {
	M              int
	MMax0          int
	EfConstruction int
	EfSearch       int
}

// DefaultConfig returns typical parameters: M=16, M_max0=2M,
// ef_construction=100, ef_search=50.
func DefaultConfig() Config {
	return Config{M: 16, MMax0: 32, EfConstruction: 100, EfSearch: 50}
}

// WithM returns a copy of cfg with M set and MMax0 derived as 2*M, matching
// the Rust original's with_m constructor.
func (c Config) WithM(m int) Config {
	c.M = m
	c.MMax0 = 2 * m
	return c
}

// Result is one hit from a search, ascending-sorted by Distance.
type Result struct {
	ID       uint64
	Distance float32
	Payload  payload.Payload
}

type node struct {
	vector    []float32
	payload   payload.Payload
	level     int
	neighbors [][]uint64 // neighbors[layer]
}

// Index is the multi-layer HNSW graph. The zero value is not usable; use
// New. Safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	dimension int
	metric    distance.Metric
	cfg       Config
	ml        float64

	hasEntry   bool
	entryPoint uint64
	maxLevel   int

	nodes map[uint64]*node
	rng   *rand.Rand
}

// New returns an empty HNSW index over vectors of the given dimension.
func New(dimension int, metric distance.Metric, cfg Config) *Index {
	return &Index{
		dimension: dimension,
		metric:    metric,
		cfg:       cfg,
		ml:        1.0 / math.Log(float64(cfg.M)),
		nodes:     make(map[uint64]*node),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Dimension returns the configured vector dimension.
func (idx *Index) Dimension() int { return idx.dimension }

// Metric returns the configured distance metric.
func (idx *Index) Metric() distance.Metric { return idx.metric }

// Len returns the number of live nodes.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// IsEmpty reports whether the graph has no nodes.
func (idx *Index) IsEmpty() bool { return idx.Len() == 0 }

// Clear removes every node and resets the entry point.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.nodes = make(map[uint64]*node)
	idx.hasEntry = false
	idx.maxLevel = 0
}

// Stats summarizes graph shape for observability; exposed so a caller-side
// rebuild-on-threshold policy could be layered on without this package
// committing to one itself.
type Stats struct {
	NodeCount   int
	MaxLevel    int
	AverageDeg0 float64
	HasEntry    bool
}

// Stats computes a cheap summary of the current graph shape.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	s := Stats{NodeCount: len(idx.nodes), MaxLevel: idx.maxLevel, HasEntry: idx.hasEntry}
	if len(idx.nodes) == 0 {
		return s
	}
	total := 0
	for _, n := range idx.nodes {
		total += len(n.neighbors[0])
	}
	s.AverageDeg0 = float64(total) / float64(len(idx.nodes))
	return s
}

func (idx *Index) randomLevel() int {
	r := 1 - idx.rng.Float64() // (0,1]
	return int(math.Floor(-math.Log(r) * idx.ml))
}

func (idx *Index) dist(a, b []float32) float32 {
	return distance.Compute(idx.metric, a, b)
}

// Insert adds a new node. Rejects dimension mismatch and duplicate ids.
func (idx *Index) Insert(id uint64, vector []float32, p payload.Payload) error {
	if len(vector) != idx.dimension {
		return dberr.DimensionMismatch(idx.dimension, len(vector))
	}
	if len(vector) == 0 {
		return dberr.ErrEmptyVector
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.nodes[id]; exists {
		return dberr.DuplicateID(id)
	}

	vecCopy := make([]float32, len(vector))
	copy(vecCopy, vector)
	level := idx.randomLevel()

	if len(idx.nodes) == 0 {
		idx.nodes[id] = &node{
			vector:    vecCopy,
			payload:   p.Clone(),
			level:     level,
			neighbors: make([][]uint64, level+1),
		}
		idx.entryPoint = id
		idx.hasEntry = true
		idx.maxLevel = level
		return nil
	}

	ep := idx.entryPoint
	for l := idx.maxLevel; l > level; l-- {
		ep = idx.searchLayer1(vecCopy, ep, l)
	}

	neighborsPerLayer := make([][]uint64, level+1)
	entryPoints := []uint64{ep}
	top := level
	if idx.maxLevel < top {
		top = idx.maxLevel
	}
	for l := top; l >= 0; l-- {
		candidates := idx.searchLayerLocked(vecCopy, entryPoints, idx.cfg.EfConstruction, l)
		m := idx.cfg.M
		if l == 0 {
			m = idx.cfg.MMax0
		}
		selected := selectNeighbors(candidates, m)
		neighborsPerLayer[l] = selected

		for _, nb := range selected {
			nnode := idx.nodes[nb]
			nnode.neighbors[l] = append(nnode.neighbors[l], id)
			if len(nnode.neighbors[l]) > m {
				rebuilt := idx.candidatesFromNeighbors(nnode, l, id, vecCopy)
				nnode.neighbors[l] = selectNeighbors(rebuilt, m)
			}
		}
		if len(candidates) > 0 {
			ids := make([]uint64, len(candidates))
			for i, c := range candidates {
				ids[i] = c.id
			}
			entryPoints = ids
		}
	}

	idx.nodes[id] = &node{
		vector:    vecCopy,
		payload:   p.Clone(),
		level:     level,
		neighbors: neighborsPerLayer,
	}

	if level > idx.maxLevel {
		idx.entryPoint = id
		idx.maxLevel = level
	}
	return nil
}

// candidatesFromNeighbors re-scores n's current neighbor list at layer for
// the neighbor-set-exceeded-cap recompute step. newID is the node being
// inserted, which is not in idx.nodes yet, so its vector is passed in.
func (idx *Index) candidatesFromNeighbors(n *node, layer int, newID uint64, newVec []float32) []candidate {
	out := make([]candidate, 0, len(n.neighbors[layer]))
	for _, nb := range n.neighbors[layer] {
		vec := newVec
		if nb != newID {
			nn, ok := idx.nodes[nb]
			if !ok {
				continue
			}
			vec = nn.vector
		}
		out = append(out, candidate{id: nb, dist: idx.dist(n.vector, vec)})
	}
	sort.Slice(out, func(i, j int) bool { return lessDist(out[i].dist, out[j].dist) })
	return out
}

// selectNeighbors sorts candidates ascending by distance (already sorted by
// searchLayer) and takes the first m; no diversity heuristic.
func selectNeighbors(candidates []candidate, m int) []uint64 {
	if len(candidates) > m {
		candidates = candidates[:m]
	}
	out := make([]uint64, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}

// searchLayer1 is the greedy single-best descent used to narrow down to a
// single entry point for the layer below.
func (idx *Index) searchLayer1(query []float32, entry uint64, layer int) uint64 {
	current := entry
	cn, ok := idx.nodes[current]
	if !ok {
		return entry
	}
	currentDist := idx.dist(query, cn.vector)
	for {
		improved := false
		for _, nb := range idx.nodes[current].neighbors[layer] {
			nn, ok := idx.nodes[nb]
			if !ok {
				continue
			}
			d := idx.dist(query, nn.vector)
			if lessDist(d, currentDist) {
				currentDist = d
				current = nb
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return current
}

// searchLayerLocked runs beam search at layer, assuming idx.mu is already
// held (by the caller's Lock or RLock).
func (idx *Index) searchLayerLocked(query []float32, entryPoints []uint64, ef, layer int) []candidate {
	visited := make(map[uint64]bool)
	frontier := &minHeap{}
	results := &maxHeap{}

	for _, ep := range entryPoints {
		n, ok := idx.nodes[ep]
		if !ok || visited[ep] {
			continue
		}
		visited[ep] = true
		d := idx.dist(query, n.vector)
		c := candidate{id: ep, dist: d}
		heap.Push(frontier, c)
		heap.Push(results, c)
	}

	for frontier.Len() > 0 {
		c := heap.Pop(frontier).(candidate)
		if results.Len() >= ef {
			worst := (*results)[0]
			if !lessDist(c.dist, worst.dist) {
				break
			}
		}
		n, ok := idx.nodes[c.id]
		if !ok {
			continue
		}
		for _, nb := range n.neighbors[layer] {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			nn, ok := idx.nodes[nb]
			if !ok {
				continue
			}
			d := idx.dist(query, nn.vector)
			improves := results.Len() < ef
			if !improves {
				worst := (*results)[0]
				improves = lessDist(d, worst.dist)
			}
			if improves {
				cand := candidate{id: nb, dist: d}
				heap.Push(frontier, cand)
				heap.Push(results, cand)
				for results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	copy(out, *results)
	sort.Slice(out, func(i, j int) bool { return lessDist(out[i].dist, out[j].dist) })
	return out
}

// Search returns up to k nearest results to query, optionally restricted by
// filterFn (applied after the beam, i.e. post-filter).
func (idx *Index) Search(query []float32, k int, efOverride int, filterFn func(payload.Payload) bool) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.nodes) == 0 || len(query) != idx.dimension {
		return nil
	}

	ef := idx.cfg.EfSearch
	if efOverride > 0 {
		ef = efOverride
	}
	if k > ef {
		ef = k
	}

	ep := idx.entryPoint
	for l := idx.maxLevel; l >= 1; l-- {
		ep = idx.searchLayer1(query, ep, l)
	}
	candidates := idx.searchLayerLocked(query, []uint64{ep}, ef, 0)

	out := make([]Result, 0, k)
	for _, c := range candidates {
		n := idx.nodes[c.id]
		if filterFn != nil && !filterFn(n.payload) {
			continue
		}
		out = append(out, Result{ID: c.id, Distance: c.dist, Payload: n.payload.Clone()})
		if len(out) >= k {
			break
		}
	}
	return out
}

// SearchWithBitmap mirrors Search but widens the layer-0 beam to 2*ef and
// restricts results to validIDs after the beam instead of during traversal,
// keeping the graph navigation itself unfiltered so it stays well-connected.
func (idx *Index) SearchWithBitmap(query []float32, k int, efOverride int, validIDs *roaring.Bitmap) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.nodes) == 0 || len(query) != idx.dimension {
		return nil
	}

	ef := idx.cfg.EfSearch
	if efOverride > 0 {
		ef = efOverride
	}
	if k > ef {
		ef = k
	}

	ep := idx.entryPoint
	for l := idx.maxLevel; l >= 1; l-- {
		ep = idx.searchLayer1(query, ep, l)
	}
	candidates := idx.searchLayerLocked(query, []uint64{ep}, ef*2, 0)

	out := make([]Result, 0, k)
	for _, c := range candidates {
		if validIDs != nil && !validIDs.Contains(uint32(c.id)) {
			continue
		}
		n := idx.nodes[c.id]
		out = append(out, Result{ID: c.id, Distance: c.dist, Payload: n.payload.Clone()})
		if len(out) >= k {
			break
		}
	}
	return out
}

// SearchFilter is a convenience wrapper evaluating a filter.Filter tree
// post-beam.
func (idx *Index) SearchFilter(query []float32, k int, efOverride int, f *filter.Filter) []Result {
	if f == nil {
		return idx.Search(query, k, efOverride, nil)
	}
	return idx.Search(query, k, efOverride, f.Matches)
}

// Get returns the stored vector and payload for id.
func (idx *Index) Get(id uint64) ([]float32, payload.Payload, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n, ok := idx.nodes[id]
	if !ok {
		return nil, nil, false
	}
	v := make([]float32, len(n.vector))
	copy(v, n.vector)
	return v, n.payload.Clone(), true
}

// Delete removes id and every back-reference to it. If id was the entry
// point, an arbitrary remaining node becomes the new one and max_level is
// recomputed as the maximum level among survivors. This is a soft repair:
// remaining connectivity is never re-augmented.
func (idx *Index) Delete(id uint64) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.nodes[id]; !ok {
		return false
	}
	// Edges are not always bidirectional (the overflow prune can drop one
	// direction), so every node is scanned rather than only n's neighbors.
	delete(idx.nodes, id)
	for _, nn := range idx.nodes {
		for layer := range nn.neighbors {
			nn.neighbors[layer] = removeID(nn.neighbors[layer], id)
		}
	}

	if id == idx.entryPoint {
		if len(idx.nodes) == 0 {
			idx.hasEntry = false
			idx.maxLevel = 0
			return true
		}
		first := true
		maxLvl := 0
		var newEntry uint64
		for nid, nd := range idx.nodes {
			if first {
				newEntry = nid
				first = false
			}
			if nd.level > maxLvl {
				maxLvl = nd.level
			}
		}
		idx.entryPoint = newEntry
		idx.maxLevel = maxLvl
	}
	return true
}

func removeID(ids []uint64, target uint64) []uint64 {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// lessDist is strict less-than with NaN treated as the maximum value.
func lessDist(a, b float32) bool {
	if math.IsNaN(float64(a)) {
		return false
	}
	if math.IsNaN(float64(b)) {
		return true
	}
	return a < b
}

type candidate struct {
	id   uint64
	dist float32
}

// minHeap pops the closest candidate first.
type minHeap []candidate

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return lessDist(h[i].dist, h[j].dist) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxHeap pops the furthest candidate first, used to bound results to ef.
type maxHeap []candidate

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return lessDist(h[j].dist, h[i].dist) }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
