package collection

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/polarisdb/polarisdb/internal/distance"
	"github.com/polarisdb/polarisdb/internal/filter"
	"github.com/polarisdb/polarisdb/internal/payload"
)

func openTestCollection(t *testing.T, dim int, metric distance.Metric) (*Collection, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig(dim)
	cfg.Metric = metric
	c, err := Open(dir, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return c, dir
}

// Scenario 1: exact search in 3 dimensions under Euclidean distance returns
// the inserted point itself at distance zero.
func TestExactSearchEuclidean(t *testing.T) {
	c, _ := openTestCollection(t, 3, distance.Euclidean)
	defer c.Close()

	if err := c.Insert(1, []float32{1, 2, 3}, payload.New()); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := c.Insert(2, []float32{10, 10, 10}, payload.New()); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	results := c.Search([]float32{1, 2, 3}, 1, nil)
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("expected exact match id=1, got %+v", results)
	}
	if results[0].Distance != 0 {
		t.Fatalf("expected distance 0, got %v", results[0].Distance)
	}
}

// Scenario 2: under cosine distance, two vectors pointing the same direction
// but with different magnitude are equally close to a query along that
// direction.
func TestCosineDirectionInvariance(t *testing.T) {
	c, _ := openTestCollection(t, 2, distance.Cosine)
	defer c.Close()

	if err := c.Insert(1, []float32{1, 0}, payload.New()); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := c.Insert(2, []float32{100, 0}, payload.New()); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := c.Insert(3, []float32{0, 1}, payload.New()); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	results := c.Search([]float32{5, 0}, 3, nil)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if math.Abs(float64(results[0].Distance-results[1].Distance)) > 1e-4 {
		t.Fatalf("expected same-direction vectors at equal cosine distance, got %+v", results[:2])
	}
	if results[0].ID == 3 || results[1].ID == 3 {
		t.Fatalf("orthogonal vector should rank last, got %+v", results)
	}
}

// Scenario 3: a filtered search only returns vectors whose payload satisfies
// the filter, even when a closer but non-matching vector exists.
func TestFilteredSearch(t *testing.T) {
	c, _ := openTestCollection(t, 2, distance.Euclidean)
	defer c.Close()

	c.Insert(1, []float32{0, 0}, payload.FromMap(map[string]any{"category": "a"}))
	c.Insert(2, []float32{0.1, 0}, payload.FromMap(map[string]any{"category": "b"}))
	c.Insert(3, []float32{0.2, 0}, payload.FromMap(map[string]any{"category": "b"}))

	results := c.Search([]float32{0, 0}, 5, filter.Eq("category", "b"))
	if len(results) != 2 {
		t.Fatalf("expected 2 filtered results, got %+v", results)
	}
	for _, r := range results {
		if r.ID == 1 {
			t.Fatalf("non-matching id=1 should have been excluded")
		}
	}
}

// Scenario 4: without an explicit Flush, a crash (simulated by closing file
// handles and reopening from the same directory) still recovers every
// mutation via WAL replay.
func TestCrashRecoveryWithoutFlush(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(2)
	c, err := Open(dir, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for i := uint64(1); i <= 5; i++ {
		if err := c.Insert(i, []float32{float32(i), float32(i)}, payload.New()); err != nil {
			t.Fatalf("Insert(%d) failed: %v", i, err)
		}
	}
	// No Flush: simulate a crash by closing the raw file handles directly.
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	c2, err := Open(dir, cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer c2.Close()

	if c2.Len() != 5 {
		t.Fatalf("Len() after recovery = %d, want 5", c2.Len())
	}
	for i := uint64(1); i <= 5; i++ {
		v, _, ok := c2.Get(i)
		if !ok {
			t.Fatalf("id %d missing after recovery", i)
		}
		if v[0] != float32(i) {
			t.Fatalf("id %d vector mismatch after recovery: %v", i, v)
		}
	}
}

// Scenario 5: an Update to an existing id supersedes the prior vector and
// payload entirely, including after a recovery cycle.
func TestUpdateSupersedes(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(2)
	c, err := Open(dir, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := c.Insert(1, []float32{1, 1}, payload.FromMap(map[string]any{"v": float64(1)})); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := c.Update(1, []float32{9, 9}, payload.FromMap(map[string]any{"v": float64(2)})); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	v, p, ok := c.Get(1)
	if !ok || v[0] != 9 {
		t.Fatalf("expected updated vector, got %v", v)
	}
	if got, _ := p.GetFloat64("v"); got != 2 {
		t.Fatalf("expected updated payload, got %v", p)
	}
	if c.Len() != 1 {
		t.Fatalf("Update should not change the live count, got %d", c.Len())
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	c2, err := Open(dir, cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer c2.Close()
	v2, _, ok := c2.Get(1)
	if !ok || v2[0] != 9 {
		t.Fatalf("expected updated vector to survive recovery, got %v", v2)
	}
}

func TestInsertIsIdempotentUpsert(t *testing.T) {
	c, _ := openTestCollection(t, 2, distance.Euclidean)
	defer c.Close()

	if err := c.Insert(1, []float32{1, 1}, payload.New()); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	// Re-inserting the same id must overwrite, not error, so WAL replay of
	// an insert that was already applied is always safe.
	if err := c.Insert(1, []float32{2, 2}, payload.New()); err != nil {
		t.Fatalf("second Insert should not error: %v", err)
	}
	v, _, _ := c.Get(1)
	if v[0] != 2 {
		t.Fatalf("expected overwritten vector, got %v", v)
	}
}

func TestDeleteThenSearch(t *testing.T) {
	c, _ := openTestCollection(t, 2, distance.Euclidean)
	defer c.Close()

	c.Insert(1, []float32{1, 1}, payload.New())
	c.Insert(2, []float32{2, 2}, payload.New())

	ok, err := c.Delete(1)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected Delete to report found")
	}
	results := c.Search([]float32{1, 1}, 5, nil)
	for _, r := range results {
		if r.ID == 1 {
			t.Fatalf("deleted id should not appear in search results")
		}
	}
}

func TestOpenRejectsDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir, DefaultConfig(3)); err != nil {
		t.Fatalf("initial Open failed: %v", err)
	}
	if _, err := Open(dir, DefaultConfig(4)); err == nil {
		t.Fatalf("expected dimension mismatch error on reopen with a different dimension")
	}
}

func TestFlushPersistsMeta(t *testing.T) {
	c, dir := openTestCollection(t, 2, distance.Euclidean)
	c.Insert(1, []float32{1, 1}, payload.New())
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	c.Close()

	if _, err := os.Stat(filepath.Join(dir, "meta.json")); err != nil {
		t.Fatalf("expected meta.json to exist after Flush: %v", err)
	}
	c2, err := Open(dir, DefaultConfig(2))
	if err != nil {
		t.Fatalf("reopen after flush failed: %v", err)
	}
	defer c2.Close()
	if c2.Len() != 1 {
		t.Fatalf("Len() after reopen = %d, want 1", c2.Len())
	}
}
