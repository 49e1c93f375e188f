package storage

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"

	json "github.com/goccy/go-json"

	"github.com/polarisdb/polarisdb/internal/dberr"
	"github.com/polarisdb/polarisdb/internal/payload"
)

// EntryKind tags a WAL entry's operation.
type EntryKind uint8

const (
	EntryInsert EntryKind = iota + 1
	EntryUpdate
	EntryDelete
	EntryCheckpoint
)

// Entry is a tagged op-log record: (kind, id, optional vector, optional
// payload). JSON-encoded, matching the Rust original's serde_json framing
// rather than a hand-rolled binary tagged union.
type Entry struct {
	Kind    EntryKind       `json:"kind"`
	ID      uint64          `json:"id"`
	Vector  []float32       `json:"vector,omitempty"`
	Payload payload.Payload `json:"payload,omitempty"`
}

func NewInsertEntry(id uint64, vector []float32, p payload.Payload) Entry {
	return Entry{Kind: EntryInsert, ID: id, Vector: vector, Payload: p}
}

func NewUpdateEntry(id uint64, vector []float32, p payload.Payload) Entry {
	return Entry{Kind: EntryUpdate, ID: id, Vector: vector, Payload: p}
}

func NewDeleteEntry(id uint64) Entry {
	return Entry{Kind: EntryDelete, ID: id}
}

func NewCheckpointEntry() Entry {
	return Entry{Kind: EntryCheckpoint}
}

// SyncModeKind selects how aggressively the WAL fsyncs.
type SyncModeKind uint8

const (
	// Immediate fsyncs after every append.
	Immediate SyncModeKind = iota
	// Batched fsyncs after every BatchSize appends and on explicit Sync.
	Batched
	// NoSync never fsyncs; relies on the OS to flush eventually.
	NoSync
)

// SyncMode configures fsync cadence for WAL appends.
type SyncMode struct {
	Kind      SyncModeKind
	BatchSize int
}

// DefaultSyncMode is Batched with a default batch size of 100.
func DefaultSyncMode() SyncMode { return SyncMode{Kind: Batched, BatchSize: 100} }

// WAL is the write-ahead log: length-prefixed, CRC32-guarded frames
// [crc32:u32][len:u32][payload]. Not safe for concurrent use; callers
// (Collection) serialize access with their own lock.
type WAL struct {
	path             string
	f                *os.File
	syncMode         SyncMode
	entriesSinceSync int
}

// OpenWAL opens or creates the WAL file at path.
func OpenWAL(path string, mode SyncMode) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, dberr.IOError("open wal", err)
	}
	return &WAL{path: path, f: f, syncMode: mode}, nil
}

// Append encodes entry, writes its frame, and syncs per the configured
// sync mode.
func (w *WAL) Append(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return dberr.PayloadErrorf("encode wal entry: %v", err)
	}
	checksum := crc32.ChecksumIEEE(data)

	frame := make([]byte, 8+len(data))
	binary.LittleEndian.PutUint32(frame[0:4], checksum)
	binary.LittleEndian.PutUint32(frame[4:8], uint32(len(data)))
	copy(frame[8:], data)

	if _, err := w.f.Write(frame); err != nil {
		return dberr.IOError("append wal frame", err)
	}
	w.entriesSinceSync++

	switch w.syncMode.Kind {
	case Immediate:
		return w.Sync()
	case Batched:
		if w.entriesSinceSync >= w.syncMode.BatchSize {
			return w.Sync()
		}
	case NoSync:
	}
	return nil
}

// Sync flushes and fsyncs the WAL, resetting the batch counter.
func (w *WAL) Sync() error {
	if err := w.f.Sync(); err != nil {
		return dberr.IOError("fsync wal", err)
	}
	w.entriesSinceSync = 0
	return nil
}

// Checkpoint appends a Checkpoint entry, syncs, then truncates the file to
// zero length: a write barrier meaning every prior entry is now redundant
// because it has been incorporated into the record file and metadata.
func (w *WAL) Checkpoint() error {
	if err := w.Append(NewCheckpointEntry()); err != nil {
		return err
	}
	if err := w.Sync(); err != nil {
		return err
	}
	if err := w.f.Truncate(0); err != nil {
		return dberr.IOError("truncate wal", err)
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return dberr.IOError("seek wal", err)
	}
	w.entriesSinceSync = 0
	return nil
}

// Close closes the underlying file handle.
func (w *WAL) Close() error {
	return w.f.Close()
}

// ReadAllWAL replays every frame in path in order. A missing or empty file
// yields no entries. A clean EOF at a frame boundary, or a partial frame at
// the tail, stops reading cleanly (a torn write after a crash); a CRC
// mismatch within an otherwise complete frame is reported as corruption.
func ReadAllWAL(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dberr.IOError("open wal for recovery", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, dberr.IOError("stat wal", err)
	}
	if info.Size() == 0 {
		return nil, nil
	}

	r := bufio.NewReader(f)
	var entries []Entry
	for {
		var header [8]byte
		n, err := io.ReadFull(r, header[:])
		if err != nil {
			if n == 0 {
				break // clean EOF at a frame boundary
			}
			break // partial frame at the tail: torn write, stop cleanly
		}
		checksum := binary.LittleEndian.Uint32(header[0:4])
		length := binary.LittleEndian.Uint32(header[4:8])

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			break // torn tail
		}
		if crc32.ChecksumIEEE(data) != checksum {
			return nil, dberr.WALCorrupted("checksum mismatch")
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, dberr.WALCorrupted("malformed entry: " + err.Error())
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
