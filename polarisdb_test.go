package polarisdb

import (
	"errors"
	"testing"
)

func TestCollectionOpenInsertSearch(t *testing.T) {
	dir := t.TempDir()
	col, err := Open(dir, DefaultConfig(3))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer col.Close()

	if err := col.Insert(1, []float32{1, 0, 0}, NewPayload().With("kind", "a")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	id2, err := col.InsertAuto([]float32{0, 1, 0}, NewPayload().With("kind", "b"))
	if err != nil {
		t.Fatalf("InsertAuto failed: %v", err)
	}
	if id2 == 1 {
		t.Fatalf("auto-assigned id collided with explicit id 1")
	}

	results := col.Search([]float32{1, 0, 0}, 1)
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("expected id=1, got %+v", results)
	}

	filtered := col.SearchWithFilter([]float32{1, 0, 0}, 5, Field("kind").Eq("b"))
	if len(filtered) != 1 || filtered[0].ID != id2 {
		t.Fatalf("expected filtered result id=%d, got %+v", id2, filtered)
	}
}

func TestCollectionDeleteAndFlush(t *testing.T) {
	dir := t.TempDir()
	col, err := Open(dir, DefaultConfig(2))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer col.Close()

	col.Insert(1, []float32{1, 1}, NewPayload())
	ok, err := col.Delete(1)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if err := col.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if col.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", col.Len())
	}
}

func TestHNSWIndexDirectAPI(t *testing.T) {
	idx := NewHNSWIndex(2, Euclidean, DefaultHNSWConfig())
	if err := idx.Insert(1, []float32{0, 0}, NewPayload()); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := idx.Insert(1, []float32{1, 1}, NewPayload()); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	results := idx.Search([]float32{0, 0}, 1, 0, nil)
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("expected id=1, got %+v", results)
	}
	if !idx.Delete(1) {
		t.Fatalf("Delete should report found")
	}
	if !idx.IsEmpty() {
		t.Fatalf("expected empty index after delete")
	}
}

func TestBruteForceIndexDirectAPI(t *testing.T) {
	idx := NewBruteForceIndex(2, Cosine)
	id, err := idx.InsertAuto([]float32{1, 0}, NewPayload())
	if err != nil {
		t.Fatalf("InsertAuto failed: %v", err)
	}
	v, _, ok := idx.Get(id)
	if !ok || v[0] != 1 {
		t.Fatalf("Get mismatch: %v, %v", v, ok)
	}
	results := idx.Search([]float32{1, 0}, 1, nil)
	if len(results) != 1 || results[0].ID != id {
		t.Fatalf("expected id=%d, got %+v", id, results)
	}
}

func TestFilterBuildersCompose(t *testing.T) {
	p := NewPayload().With("year", float64(2024)).With("category", "books")
	f := And(Eq("category", "books"), Gte("year", float64(2020)))
	if !f.Matches(p) {
		t.Fatalf("expected composed filter to match")
	}
	if Not(f).Matches(p) {
		t.Fatalf("expected negated filter to mismatch")
	}
}
