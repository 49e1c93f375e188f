// Package polarisdb is an embedded vector database engine: an in-process
// library that stores dense float32 vectors together with structured
// metadata, indexes them with an HNSW graph for approximate k-nearest
// neighbor search (optionally pre-filtered by a bitmap inverted index over
// payload fields), and persists state durably across crashes via an
// append-only record file plus a write-ahead log.
//
// A Collection is the unit of storage: a directory holding meta.json,
// data.pdb, and wal.log. Direct, unpersisted HNSWIndex and BruteForceIndex
// types are also exported for callers who want the graph or the exact
// oracle without a backing collection.
package polarisdb

import (
	"github.com/polarisdb/polarisdb/internal/collection"
	"github.com/polarisdb/polarisdb/internal/distance"
	"github.com/polarisdb/polarisdb/internal/hnsw"
	"github.com/polarisdb/polarisdb/internal/payload"
	"github.com/polarisdb/polarisdb/internal/storage"
)

// VectorID identifies a vector, unique within a collection or index.
type VectorID = uint64

// Metric selects the distance function a collection or index compares
// vectors with. All metrics are normalized so lower means more similar.
type Metric = distance.Metric

const (
	Euclidean  = distance.Euclidean
	Cosine     = distance.Cosine
	DotProduct = distance.DotProduct
	Hamming    = distance.Hamming
)

// Payload is the schemaless metadata map attached to a vector: field name
// to a JSON-like value (string, number, bool, nil, array, object).
type Payload = payload.Payload

// NewPayload returns an empty payload.
func NewPayload() Payload { return payload.New() }

// SyncModeKind selects how aggressively the WAL fsyncs.
type SyncModeKind = storage.SyncModeKind

const (
	Immediate = storage.Immediate
	Batched   = storage.Batched
	NoSync    = storage.NoSync
)

// SyncMode configures fsync cadence for WAL appends.
type SyncMode = storage.SyncMode

// DefaultSyncMode is Batched with a batch size of 100.
func DefaultSyncMode() SyncMode { return storage.DefaultSyncMode() }

// HNSWConfig holds the HNSW graph's tuning parameters.
type HNSWConfig = hnsw.Config

// DefaultHNSWConfig returns M=16, M_max0=32, ef_construction=100,
// ef_search=50.
func DefaultHNSWConfig() HNSWConfig { return hnsw.DefaultConfig() }

// Config configures a collection at open time.
type Config = collection.Config

// DefaultConfig returns a Cosine-metric, batched-fsync configuration with
// default HNSW parameters for a collection of the given dimension.
func DefaultConfig(dimension int) Config { return collection.DefaultConfig(dimension) }

// Result is one hit from a search, ascending-sorted by Distance.
type Result = hnsw.Result

// Collection is a durable, crash-recoverable vector collection: WAL,
// append-only record file, and in-memory HNSW plus bitmap indexes.
type Collection struct {
	inner *collection.Collection
}

// Open opens an existing collection directory or creates a new one at
// path, rebuilding in-memory state from the data file and replaying the
// WAL. Rejects with a CollectionError if the directory already holds a
// collection of a different dimension.
func Open(path string, cfg Config) (*Collection, error) {
	inner, err := collection.Open(path, cfg)
	if err != nil {
		return nil, err
	}
	return &Collection{inner: inner}, nil
}

// Insert stores (id, vector, payload). If id is already present its prior
// record is superseded: this is an idempotent upsert, not a duplicate-id
// error, so that WAL replay during recovery is always safe.
func (c *Collection) Insert(id VectorID, vector []float32, p Payload) error {
	return c.inner.Insert(id, vector, p)
}

// InsertAuto allocates the next id from the collection's monotonic counter
// and inserts under it.
func (c *Collection) InsertAuto(vector []float32, p Payload) (VectorID, error) {
	return c.inner.InsertAuto(vector, p)
}

// Update replaces the vector and payload stored under id; equivalent to
// Insert for an existing id.
func (c *Collection) Update(id VectorID, vector []float32, p Payload) error {
	return c.inner.Update(id, vector, p)
}

// Delete removes id, reporting whether it was present.
func (c *Collection) Delete(id VectorID) (bool, error) {
	return c.inner.Delete(id)
}

// Search returns up to k nearest results to query.
func (c *Collection) Search(query []float32, k int) []Result {
	return c.inner.Search(query, k, nil)
}

// SearchWithFilter returns up to k nearest results to query whose payload
// satisfies f. The bitmap inverted index pre-filters the HNSW beam; an
// exact post-filter pass covers operators the bitmap can only
// over-approximate (contains).
func (c *Collection) SearchWithFilter(query []float32, k int, f *Filter) []Result {
	return c.inner.Search(query, k, f)
}

// Get returns the stored vector and payload for id.
func (c *Collection) Get(id VectorID) ([]float32, Payload, bool) {
	return c.inner.Get(id)
}

// Len returns the number of live vectors.
func (c *Collection) Len() int { return c.inner.Len() }

// IsEmpty reports whether the collection has no live vectors.
func (c *Collection) IsEmpty() bool { return c.inner.IsEmpty() }

// Flush fsyncs the data file, checkpoints the WAL, and persists metadata.
// After a successful Flush, a crash leaves nothing to replay.
func (c *Collection) Flush() error { return c.inner.Flush() }

// Dir returns the collection's on-disk directory.
func (c *Collection) Dir() string { return c.inner.Dir() }

// Dimension returns the collection's configured vector dimension.
func (c *Collection) Dimension() int { return c.inner.Dimension() }

// CollectionMetric returns the collection's configured distance metric.
func (c *Collection) CollectionMetric() Metric { return c.inner.Metric() }

// Close releases the underlying file handles without flushing. Call Flush
// first for a durable shutdown.
func (c *Collection) Close() error { return c.inner.Close() }
