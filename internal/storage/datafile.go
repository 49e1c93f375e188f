// Package storage implements the two on-disk primitives a collection is
// built from: the append-only record file (this file) and the write-ahead
// log (wal.go).
package storage

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	json "github.com/goccy/go-json"

	"github.com/polarisdb/polarisdb/internal/dberr"
	"github.com/polarisdb/polarisdb/internal/payload"
)

const (
	tombLive      byte = 0
	tombTombstone byte = 1
)

// Record is one parsed entry from the data file.
type Record struct {
	Offset  int64
	Deleted bool
	ID      uint64
	Vector  []float32
	Payload payload.Payload
}

// DataFile is the append-only record log:
// [tomb:u8][id:u64][dim:u32][v:f32*dim][plen:u32][payload_json].
// Appends are strictly monotonic in offset; the only in-place mutation is
// the single tombstone byte written by MarkDeleted.
type DataFile struct {
	path     string
	f        *os.File
	writePos int64
}

// OpenDataFile opens or creates the record file at path for append.
func OpenDataFile(path string) (*DataFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, dberr.IOError("open data file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dberr.IOError("stat data file", err)
	}
	return &DataFile{path: path, f: f, writePos: info.Size()}, nil
}

// Append serializes (id, vector, payload) and writes it at the current end
// of file, returning the offset the record started at.
func (d *DataFile) Append(id uint64, vector []float32, p payload.Payload) (int64, error) {
	payloadJSON, err := json.Marshal(p)
	if err != nil {
		return 0, dberr.PayloadErrorf("encode payload: %v", err)
	}
	dim := uint32(len(vector))
	size := 1 + 8 + 4 + int(dim)*4 + 4 + len(payloadJSON)
	buf := make([]byte, size)
	off := 0
	buf[off] = tombLive
	off++
	binary.LittleEndian.PutUint64(buf[off:], id)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], dim)
	off += 4
	for i := 0; i < len(vector); i++ {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(vector[i]))
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(payloadJSON)))
	off += 4
	copy(buf[off:], payloadJSON)

	offset := d.writePos
	if _, err := d.f.Write(buf); err != nil {
		return 0, dberr.IOError("append record", err)
	}
	d.writePos += int64(size)
	return offset, nil
}

// MarkDeleted flips the tombstone byte at offset in place. A record's
// tombstoning is durable and irreversible at that offset.
func (d *DataFile) MarkDeleted(offset int64) error {
	f, err := os.OpenFile(d.path, os.O_WRONLY, 0o644)
	if err != nil {
		return dberr.IOError("open data file for tombstone", err)
	}
	defer f.Close()
	if _, err := f.WriteAt([]byte{tombTombstone}, offset); err != nil {
		return dberr.IOError("write tombstone", err)
	}
	return f.Sync()
}

// ReadAt parses exactly one record at offset.
func (d *DataFile) ReadAt(offset int64) (Record, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return Record{}, dberr.IOError("open data file for read", err)
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return Record{}, dberr.IOError("seek data file", err)
	}
	return readRecord(f, offset)
}

func readRecord(r io.Reader, offset int64) (Record, error) {
	var header [13]byte // tomb(1) + id(8) + dim(4)
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Record{}, err
	}
	tomb := header[0]
	id := binary.LittleEndian.Uint64(header[1:9])
	dim := binary.LittleEndian.Uint32(header[9:13])

	vecBytes := make([]byte, int(dim)*4)
	if _, err := io.ReadFull(r, vecBytes); err != nil {
		return Record{}, err
	}
	vector := make([]float32, dim)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(vecBytes[i*4:]))
	}

	var plenBytes [4]byte
	if _, err := io.ReadFull(r, plenBytes[:]); err != nil {
		return Record{}, err
	}
	plen := binary.LittleEndian.Uint32(plenBytes[:])
	payloadBytes := make([]byte, plen)
	if _, err := io.ReadFull(r, payloadBytes); err != nil {
		return Record{}, err
	}
	var p payload.Payload
	if err := json.Unmarshal(payloadBytes, &p); err != nil {
		return Record{}, err
	}

	return Record{
		Offset:  offset,
		Deleted: tomb == tombTombstone,
		ID:      id,
		Vector:  vector,
		Payload: p,
	}, nil
}

// IterActive sequentially walks the file from offset 0, returning only live
// records. Any parse failure (a torn tail after a crash) stops iteration
// cleanly rather than surfacing an error.
func (d *DataFile) IterActive() ([]Record, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return nil, dberr.IOError("open data file for scan", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, dberr.IOError("stat data file", err)
	}
	size := info.Size()

	r := bufio.NewReader(f)
	var out []Record
	var offset int64
	for offset < size {
		rec, err := readRecord(r, offset)
		if err != nil {
			break
		}
		recordSize := int64(1+8+4+4) + int64(len(rec.Vector)*4)
		payloadJSON, merr := json.Marshal(rec.Payload)
		if merr == nil {
			recordSize += int64(len(payloadJSON))
		}
		offset += recordSize
		if !rec.Deleted {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Flush flushes and fsyncs the data file.
func (d *DataFile) Flush() error {
	if err := d.f.Sync(); err != nil {
		return dberr.IOError("fsync data file", err)
	}
	return nil
}

// Close closes the underlying file handle.
func (d *DataFile) Close() error {
	return d.f.Close()
}
