package polarisdb

import "github.com/polarisdb/polarisdb/internal/dberr"

// Error is the error type returned by every operation in this package. Use
// errors.Is against the Err* sentinels below, or errors.As to recover the
// Kind and wrapped cause directly.
type Error = dberr.Error

// ErrorKind classifies an Error for errors.Is-style branching.
type ErrorKind = dberr.Kind

const (
	KindDimensionMismatch = dberr.KindDimensionMismatch
	KindDuplicateID       = dberr.KindDuplicateID
	KindNotFound          = dberr.KindNotFound
	KindInvalidFilter     = dberr.KindInvalidFilter
	KindPayloadError      = dberr.KindPayloadError
	KindEmptyVector       = dberr.KindEmptyVector
	KindIOError           = dberr.KindIOError
	KindWALCorrupted      = dberr.KindWALCorrupted
	KindCollectionError   = dberr.KindCollectionError
)

// Sentinel errors, one per Kind, for use with errors.Is.
var (
	ErrDimensionMismatch = dberr.ErrDimensionMismatch
	ErrDuplicateID       = dberr.ErrDuplicateID
	ErrNotFound          = dberr.ErrNotFound
	ErrInvalidFilter     = dberr.ErrInvalidFilter
	ErrPayloadError      = dberr.ErrPayloadError
	ErrEmptyVector       = dberr.ErrEmptyVector
	ErrIOError           = dberr.ErrIOError
	ErrWALCorrupted      = dberr.ErrWALCorrupted
	ErrCollectionError   = dberr.ErrCollectionError
)
