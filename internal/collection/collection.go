// Package collection implements the orchestration layer: WAL-first
// mutation ordering, the append-only record file, the in-memory HNSW and
// bitmap indexes, and crash recovery on open.
package collection

import (
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/polarisdb/polarisdb/internal/bitmap"
	"github.com/polarisdb/polarisdb/internal/dberr"
	"github.com/polarisdb/polarisdb/internal/distance"
	"github.com/polarisdb/polarisdb/internal/filter"
	"github.com/polarisdb/polarisdb/internal/hnsw"
	"github.com/polarisdb/polarisdb/internal/payload"
	"github.com/polarisdb/polarisdb/internal/storage"
)

// Config configures a collection at open time.
type Config struct {
	Dimension int
	Metric    distance.Metric
	SyncMode  storage.SyncMode
	HNSW      hnsw.Config
}

// DefaultConfig returns sane defaults for a collection of the given
// dimension: cosine metric, batched fsync, default HNSW parameters.
func DefaultConfig(dimension int) Config {
	return Config{
		Dimension: dimension,
		Metric:    distance.Cosine,
		SyncMode:  storage.DefaultSyncMode(),
		HNSW:      hnsw.DefaultConfig(),
	}
}

// meta is the on-disk meta.json shape: forward-compatible, unknown fields
// ignored on read.
type meta struct {
	Dimension   uint64 `json:"dimension"`
	Metric      string `json:"metric"`
	VectorCount uint64 `json:"vector_count"`
	NextID      uint64 `json:"next_id"`
}

// Collection composes the WAL, data file, HNSW index, and bitmap index
// under a fixed lock acquisition order whenever more than one is needed:
// wal -> dataFile -> index -> offsets -> nextID.
type Collection struct {
	dir string
	cfg Config

	walMu sync.Mutex
	wal   *storage.WAL

	dataMu sync.RWMutex
	data   *storage.DataFile

	indexMu sync.Mutex // serializes the index+bitmap delete-then-insert step
	index   *hnsw.Index
	bmIdx   *bitmap.Index

	offsetsMu sync.RWMutex
	offsets   map[uint64]int64

	nextIDMu sync.Mutex
	nextID   uint64
}

// Open opens an existing collection directory or creates a new one,
// rebuilding in-memory state from the data file and replaying the WAL.
func Open(dir string, cfg Config) (*Collection, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dberr.IOError("mkdir collection dir", err)
	}

	metaPath := filepath.Join(dir, "meta.json")
	var m meta
	isNew := false
	raw, err := os.ReadFile(metaPath)
	switch {
	case err == nil:
		if jerr := json.Unmarshal(raw, &m); jerr != nil {
			return nil, dberr.CollectionErrorf("parse meta.json: %v", jerr)
		}
		if m.Dimension != uint64(cfg.Dimension) {
			return nil, dberr.CollectionErrorf("dimension mismatch: collection has %d, requested %d", m.Dimension, cfg.Dimension)
		}
		if stored, ok := distance.ParseMetric(m.Metric); ok {
			cfg.Metric = stored
		}
	case os.IsNotExist(err):
		isNew = true
		m = meta{Dimension: uint64(cfg.Dimension), Metric: cfg.Metric.String(), VectorCount: 0, NextID: 1}
	default:
		return nil, dberr.IOError("read meta.json", err)
	}

	wal, err := storage.OpenWAL(filepath.Join(dir, "wal.log"), cfg.SyncMode)
	if err != nil {
		return nil, err
	}
	data, err := storage.OpenDataFile(filepath.Join(dir, "data.pdb"))
	if err != nil {
		wal.Close()
		return nil, err
	}

	c := &Collection{
		dir:     dir,
		cfg:     cfg,
		wal:     wal,
		data:    data,
		index:   hnsw.New(cfg.Dimension, cfg.Metric, cfg.HNSW),
		bmIdx:   bitmap.New(),
		offsets: make(map[uint64]int64),
		nextID:  m.NextID,
	}

	if err := c.recover(filepath.Join(dir, "wal.log")); err != nil {
		data.Close()
		wal.Close()
		return nil, err
	}

	if isNew {
		if err := c.saveMeta(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// recover rebuilds in-memory state: first from the data file's live
// records in file order, then by replaying every WAL entry in order
// through the same apply paths used at runtime (with the WAL write itself
// suppressed).
func (c *Collection) recover(walPath string) error {
	records, err := c.data.IterActive()
	if err != nil {
		return err
	}
	var maxID uint64
	haveAny := false
	for _, r := range records {
		if err := c.applyLiveRecord(r.ID, r.Vector, r.Payload, r.Offset); err != nil {
			return err
		}
		if r.ID > maxID || !haveAny {
			maxID = r.ID
			haveAny = true
		}
	}
	if haveAny && maxID+1 > c.nextID {
		c.nextID = maxID + 1
	}

	entries, err := storage.ReadAllWAL(walPath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		switch e.Kind {
		case storage.EntryInsert:
			if err := c.applyInsertNoWAL(e.ID, e.Vector, e.Payload); err != nil {
				return err
			}
		case storage.EntryUpdate:
			if err := c.applyUpdateNoWAL(e.ID, e.Vector, e.Payload); err != nil {
				return err
			}
		case storage.EntryDelete:
			c.applyDeleteNoWAL(e.ID)
		case storage.EntryCheckpoint:
			// Checkpoints are markers only; no-op during replay.
		}
	}
	return nil
}

// applyLiveRecord seeds the index/bitmap/offsets from a record already
// known live in the data file, without re-appending it.
func (c *Collection) applyLiveRecord(id uint64, vector []float32, p payload.Payload, offset int64) error {
	if err := c.index.Insert(id, vector, p); err != nil {
		// A duplicate live id should not occur from a well-formed file, but
		// tolerate it by overwriting, matching the idempotent apply paths.
		if _, oldPayload, exists := c.index.Get(id); exists {
			c.bmIdx.Delete(id, oldPayload)
		}
		c.index.Delete(id)
		if err := c.index.Insert(id, vector, p); err != nil {
			return err
		}
	}
	c.bmIdx.Insert(id, p)
	c.offsets[id] = offset
	return nil
}

func (c *Collection) validateVector(vector []float32) error {
	if len(vector) == 0 {
		return dberr.ErrEmptyVector
	}
	if len(vector) != c.cfg.Dimension {
		return dberr.DimensionMismatch(c.cfg.Dimension, len(vector))
	}
	return nil
}

// Insert appends a WAL entry then applies the mutation. Unlike the direct
// HNSW/brute-force index APIs, this never returns DuplicateID: the apply
// path is an idempotent upsert so that WAL replay is always safe.
func (c *Collection) Insert(id uint64, vector []float32, p payload.Payload) error {
	if err := c.validateVector(vector); err != nil {
		return err
	}
	c.walMu.Lock()
	err := c.wal.Append(storage.NewInsertEntry(id, vector, p))
	c.walMu.Unlock()
	if err != nil {
		return err
	}
	return c.applyInsertNoWAL(id, vector, p)
}

// InsertAuto allocates the next id from the monotonic counter and inserts
// under it.
func (c *Collection) InsertAuto(vector []float32, p payload.Payload) (uint64, error) {
	if err := c.validateVector(vector); err != nil {
		return 0, err
	}
	c.nextIDMu.Lock()
	id := c.nextID
	c.nextID++
	c.nextIDMu.Unlock()
	if err := c.Insert(id, vector, p); err != nil {
		return 0, err
	}
	return id, nil
}

// Update appends a WAL entry then tombstones the prior record (if tracked)
// and applies as an insert of the new version.
func (c *Collection) Update(id uint64, vector []float32, p payload.Payload) error {
	if err := c.validateVector(vector); err != nil {
		return err
	}
	c.walMu.Lock()
	err := c.wal.Append(storage.NewUpdateEntry(id, vector, p))
	c.walMu.Unlock()
	if err != nil {
		return err
	}
	return c.applyUpdateNoWAL(id, vector, p)
}

// Delete appends a WAL entry then applies the deletion, returning whether
// id was present.
func (c *Collection) Delete(id uint64) (bool, error) {
	c.walMu.Lock()
	err := c.wal.Append(storage.NewDeleteEntry(id))
	c.walMu.Unlock()
	if err != nil {
		return false, err
	}
	return c.applyDeleteNoWAL(id), nil
}

// applyInsertNoWAL is the idempotent apply path shared by Insert and
// Update: append a fresh record, then overwrite any prior index/bitmap
// entry for id, then record the new offset, advance nextID, and tombstone
// the prior record's offset if one was tracked.
func (c *Collection) applyInsertNoWAL(id uint64, vector []float32, p payload.Payload) error {
	c.dataMu.Lock()
	offset, err := c.data.Append(id, vector, p)
	c.dataMu.Unlock()
	if err != nil {
		return err
	}

	c.indexMu.Lock()
	if _, oldPayload, exists := c.index.Get(id); exists {
		c.bmIdx.Delete(id, oldPayload)
		c.index.Delete(id)
	}
	insertErr := c.index.Insert(id, vector, p)
	if insertErr == nil {
		c.bmIdx.Insert(id, p)
	}
	c.indexMu.Unlock()
	if insertErr != nil {
		return insertErr
	}

	c.offsetsMu.Lock()
	oldOffset, hadOld := c.offsets[id]
	c.offsets[id] = offset
	c.offsetsMu.Unlock()

	c.nextIDMu.Lock()
	if id+1 > c.nextID {
		c.nextID = id + 1
	}
	c.nextIDMu.Unlock()

	if hadOld && oldOffset != offset {
		c.dataMu.RLock()
		err := c.data.MarkDeleted(oldOffset)
		c.dataMu.RUnlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// applyUpdateNoWAL tombstones the old on-disk record (if its offset is
// still tracked) before delegating to the same steps as an insert. A
// crash between the tombstone write and the new append leaves no live copy
// of id on disk until WAL replay appends it again. A crash between an
// append and the tombstone that follows it can leave two live records for
// id; recovery keeps the one read last in file order and does not
// tombstone the other (there is no recovery-time reconciliation pass).
func (c *Collection) applyUpdateNoWAL(id uint64, vector []float32, p payload.Payload) error {
	c.offsetsMu.RLock()
	oldOffset, hasOld := c.offsets[id]
	c.offsetsMu.RUnlock()
	if hasOld {
		c.dataMu.RLock()
		err := c.data.MarkDeleted(oldOffset)
		c.dataMu.RUnlock()
		if err != nil {
			return err
		}
	}
	return c.applyInsertNoWAL(id, vector, p)
}

// applyDeleteNoWAL tombstones the tracked offset, removes the index and
// bitmap entries, and drops the offset mapping.
func (c *Collection) applyDeleteNoWAL(id uint64) bool {
	c.offsetsMu.Lock()
	offset, hasOffset := c.offsets[id]
	delete(c.offsets, id)
	c.offsetsMu.Unlock()

	if hasOffset {
		c.dataMu.RLock()
		c.data.MarkDeleted(offset)
		c.dataMu.RUnlock()
	}

	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	_, oldPayload, exists := c.index.Get(id)
	removed := c.index.Delete(id)
	if exists {
		c.bmIdx.Delete(id, oldPayload)
	}
	return removed
}

// Search takes the index read path, optionally restricting by filter. When
// a filter is given the bitmap inverted index pre-filters the candidate
// set (widening the HNSW beam to compensate), and an exact post-filter
// pass on the payload covers operators (like contains) the bitmap can only
// over-approximate.
func (c *Collection) Search(query []float32, k int, f *filter.Filter) []hnsw.Result {
	if f == nil {
		return c.index.Search(query, k, 0, nil)
	}
	valid := c.bmIdx.Query(f)
	results := c.index.SearchWithBitmap(query, k, 0, valid)
	out := make([]hnsw.Result, 0, len(results))
	for _, r := range results {
		if f.Matches(r.Payload) {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the stored vector and payload for id.
func (c *Collection) Get(id uint64) ([]float32, payload.Payload, bool) {
	return c.index.Get(id)
}

// Len returns the number of live vectors.
func (c *Collection) Len() int { return c.index.Len() }

// IsEmpty reports whether the collection has no live vectors.
func (c *Collection) IsEmpty() bool { return c.index.IsEmpty() }

// Flush fsyncs the data file, checkpoints the WAL, and persists metadata,
// in that exact order: after a successful flush, a subsequent recovery
// sees every mutation via the data file alone and finds an empty WAL.
func (c *Collection) Flush() error {
	c.dataMu.Lock()
	err := c.data.Flush()
	c.dataMu.Unlock()
	if err != nil {
		return err
	}

	c.walMu.Lock()
	err = c.wal.Checkpoint()
	c.walMu.Unlock()
	if err != nil {
		return err
	}

	return c.saveMeta()
}

func (c *Collection) saveMeta() error {
	c.nextIDMu.Lock()
	nextID := c.nextID
	c.nextIDMu.Unlock()

	m := meta{
		Dimension:   uint64(c.cfg.Dimension),
		Metric:      c.cfg.Metric.String(),
		VectorCount: uint64(c.index.Len()),
		NextID:      nextID,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return dberr.CollectionErrorf("encode meta.json: %v", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, "meta.json"), data, 0o644); err != nil {
		return dberr.IOError("write meta.json", err)
	}
	return nil
}

// Dir returns the collection's on-disk directory.
func (c *Collection) Dir() string { return c.dir }

// Dimension returns the collection's configured vector dimension.
func (c *Collection) Dimension() int { return c.cfg.Dimension }

// Metric returns the collection's configured distance metric.
func (c *Collection) Metric() distance.Metric { return c.cfg.Metric }

// Close releases the underlying file handles without flushing. Callers
// that want a durable shutdown should call Flush first.
func (c *Collection) Close() error {
	dataErr := c.data.Close()
	walErr := c.wal.Close()
	if dataErr != nil {
		return dataErr
	}
	return walErr
}
