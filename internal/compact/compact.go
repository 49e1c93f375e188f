// Package compact implements operator-invoked compaction of a collection's
// data file: iterate active records via the file's own traversal and
// re-append them into a fresh file, reclaiming space held by tombstoned
// and superseded records.
package compact

import (
	"os"
	"path/filepath"

	"github.com/polarisdb/polarisdb/internal/dberr"
	"github.com/polarisdb/polarisdb/internal/storage"
)

// Result reports what a Compact call did.
type Result struct {
	RecordsKept int
	BytesBefore int64
	BytesAfter  int64
}

// Compact rewrites <dir>/data.pdb keeping only live records, then renames
// the result into place. The caller must ensure no Collection has the
// directory open concurrently: this operates directly on the file, not
// through a Collection's in-memory offsets.
func Compact(dir string) (Result, error) {
	dataPath := filepath.Join(dir, "data.pdb")
	before, err := os.Stat(dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, nil
		}
		return Result{}, dberr.IOError("stat data file", err)
	}

	src, err := storage.OpenDataFile(dataPath)
	if err != nil {
		return Result{}, err
	}
	records, err := src.IterActive()
	closeErr := src.Close()
	if err != nil {
		return Result{}, err
	}
	if closeErr != nil {
		return Result{}, dberr.IOError("close source data file", closeErr)
	}

	tmpPath := dataPath + ".compact"
	os.Remove(tmpPath)
	dst, err := storage.OpenDataFile(tmpPath)
	if err != nil {
		return Result{}, err
	}
	for _, r := range records {
		if _, err := dst.Append(r.ID, r.Vector, r.Payload); err != nil {
			dst.Close()
			os.Remove(tmpPath)
			return Result{}, err
		}
	}
	if err := dst.Flush(); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return Result{}, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return Result{}, dberr.IOError("close compacted data file", err)
	}

	if err := os.Rename(tmpPath, dataPath); err != nil {
		return Result{}, dberr.IOError("rename compacted data file", err)
	}

	after, err := os.Stat(dataPath)
	if err != nil {
		return Result{}, dberr.IOError("stat compacted data file", err)
	}

	return Result{
		RecordsKept: len(records),
		BytesBefore: before.Size(),
		BytesAfter:  after.Size(),
	}, nil
}
