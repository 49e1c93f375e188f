package hnsw

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/polarisdb/polarisdb/internal/dberr"
	"github.com/polarisdb/polarisdb/internal/distance"
	"github.com/polarisdb/polarisdb/internal/payload"
)

func TestInsertAndSearchExact(t *testing.T) {
	idx := New(3, distance.Euclidean, DefaultConfig())
	vectors := map[uint64][]float32{
		1: {0, 0, 0},
		2: {1, 0, 0},
		3: {0, 1, 0},
		4: {5, 5, 5},
	}
	for id, v := range vectors {
		if err := idx.Insert(id, v, payload.New()); err != nil {
			t.Fatalf("Insert(%d) failed: %v", id, err)
		}
	}

	results := idx.Search([]float32{0, 0, 0}, 1, 0, nil)
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("expected exact match id=1, got %+v", results)
	}
	if results[0].Distance != 0 {
		t.Fatalf("expected distance 0 for exact match, got %v", results[0].Distance)
	}
}

func TestInsertDimensionMismatch(t *testing.T) {
	idx := New(3, distance.Euclidean, DefaultConfig())
	err := idx.Insert(1, []float32{1, 2}, payload.New())
	if !errors.Is(err, dberr.ErrDimensionMismatch) {
		t.Fatalf("expected DimensionMismatch, got %v", err)
	}
}

func TestInsertDuplicateID(t *testing.T) {
	idx := New(2, distance.Euclidean, DefaultConfig())
	if err := idx.Insert(1, []float32{1, 2}, payload.New()); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	err := idx.Insert(1, []float32{3, 4}, payload.New())
	if !errors.Is(err, dberr.ErrDuplicateID) {
		t.Fatalf("expected DuplicateID, got %v", err)
	}
}

func TestDeleteRemovesFromResults(t *testing.T) {
	idx := New(2, distance.Euclidean, DefaultConfig())
	for i := uint64(1); i <= 10; i++ {
		v := []float32{float32(i), float32(i)}
		if err := idx.Insert(i, v, payload.New()); err != nil {
			t.Fatalf("Insert(%d) failed: %v", i, err)
		}
	}
	if ok := idx.Delete(5); !ok {
		t.Fatalf("Delete(5) should report found")
	}
	if ok := idx.Delete(5); ok {
		t.Fatalf("second Delete(5) should report not found")
	}
	results := idx.Search([]float32{5, 5}, 10, 0, nil)
	for _, r := range results {
		if r.ID == 5 {
			t.Fatalf("deleted id 5 still present in search results")
		}
	}
	if idx.Len() != 9 {
		t.Fatalf("Len() = %d, want 9", idx.Len())
	}
}

func TestDeleteEntryPointReassigns(t *testing.T) {
	idx := New(2, distance.Euclidean, DefaultConfig())
	for i := uint64(1); i <= 5; i++ {
		idx.Insert(i, []float32{float32(i), 0}, payload.New())
	}
	ep := idx.entryPoint
	idx.Delete(ep)
	if !idx.hasEntry {
		t.Fatalf("hasEntry should remain true while nodes exist")
	}
	if _, ok := idx.nodes[idx.entryPoint]; !ok {
		t.Fatalf("new entry point %d is not a live node", idx.entryPoint)
	}
}

func TestDeleteLastNodeClearsEntry(t *testing.T) {
	idx := New(2, distance.Euclidean, DefaultConfig())
	idx.Insert(1, []float32{1, 1}, payload.New())
	idx.Delete(1)
	if idx.hasEntry {
		t.Fatalf("hasEntry should be false after deleting the only node")
	}
	if !idx.IsEmpty() {
		t.Fatalf("index should be empty")
	}
}

// TestGraphInvariants checks properties that must hold regardless of the
// neighbor-overflow recompute's effect on strict bidirectionality: no
// self-loops, no duplicate neighbor entries, and a neighbor cap respected
// per layer.
func TestGraphInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := DefaultConfig()
	idx := New(8, distance.Euclidean, cfg)
	for i := uint64(1); i <= 200; i++ {
		idx.Insert(i, randVec(rng, 8), payload.New())
	}
	for i := uint64(1); i <= 40; i += 4 {
		idx.Delete(i)
	}

	for id, n := range idx.nodes {
		for layer, neighbors := range n.neighbors {
			limit := cfg.M
			if layer == 0 {
				limit = cfg.MMax0
			}
			if len(neighbors) > limit {
				t.Fatalf("node %d layer %d has %d neighbors, cap is %d", id, layer, len(neighbors), limit)
			}
			seen := make(map[uint64]bool, len(neighbors))
			for _, nb := range neighbors {
				if nb == id {
					t.Fatalf("node %d has a self-loop at layer %d", id, layer)
				}
				if seen[nb] {
					t.Fatalf("node %d has duplicate neighbor %d at layer %d", id, nb, layer)
				}
				seen[nb] = true
				if _, ok := idx.nodes[nb]; !ok {
					t.Fatalf("node %d references deleted neighbor %d at layer %d", id, nb, layer)
				}
			}
		}
	}

	maxLvl := 0
	for _, n := range idx.nodes {
		if n.level > maxLvl {
			maxLvl = n.level
		}
	}
	if maxLvl != idx.maxLevel {
		t.Fatalf("maxLevel = %d, recomputed max among nodes = %d", idx.maxLevel, maxLvl)
	}
}

// TestRecallAgainstExhaustiveSearch builds a modest HNSW graph and checks
// that its approximate results agree with exhaustive distance computation
// often enough to be useful: average recall@10 over several queries should
// clear a conservative floor.
func TestRecallAgainstExhaustiveSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(1234))
	const (
		dim = 8
		n   = 200
		k   = 10
		nq  = 10
	)
	cfg := Config{M: 16, MMax0: 32, EfConstruction: 200, EfSearch: 100}
	idx := New(dim, distance.Euclidean, cfg)

	vectors := make(map[uint64][]float32, n)
	for i := uint64(1); i <= n; i++ {
		v := randVec(rng, dim)
		vectors[i] = v
		if err := idx.Insert(i, v, payload.New()); err != nil {
			t.Fatalf("Insert(%d) failed: %v", i, err)
		}
	}

	var totalRecall float64
	for q := 0; q < nq; q++ {
		query := randVec(rng, dim)

		exact := exhaustiveTopK(vectors, query, k)
		approx := idx.Search(query, k, 0, nil)

		approxIDs := make(map[uint64]bool, len(approx))
		for _, r := range approx {
			approxIDs[r.ID] = true
		}
		hits := 0
		for _, id := range exact {
			if approxIDs[id] {
				hits++
			}
		}
		totalRecall += float64(hits) / float64(k)
	}

	avgRecall := totalRecall / float64(nq)
	if avgRecall < 0.70 {
		t.Fatalf("average recall@%d = %.2f, want >= 0.70", k, avgRecall)
	}
}

func exhaustiveTopK(vectors map[uint64][]float32, query []float32, k int) []uint64 {
	type scored struct {
		id   uint64
		dist float32
	}
	all := make([]scored, 0, len(vectors))
	for id, v := range vectors {
		all = append(all, scored{id: id, dist: distance.EuclideanDistance(query, v)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].dist < all[j].dist })
	if len(all) > k {
		all = all[:k]
	}
	out := make([]uint64, len(all))
	for i, s := range all {
		out[i] = s.id
	}
	return out
}

func randVec(rng *rand.Rand, n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(rng.Float64()*2 - 1)
	}
	return v
}
