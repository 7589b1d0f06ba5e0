// Package volume is the change-journal volume adapter contract (spec.md
// §4.1): an opaque handle type plus the small set of operations the journal
// replayer and snapshot builder need. Concrete implementations live in
// volume_windows.go (the real USN journal, grounded in the ioctl sequence
// used by fsnotify's Windows backend), volume_other.go (a stub that reports
// the journal as unsupported on platforms without one), and memory.go (an
// in-process fake used by tests on any platform).
package volume

import (
	"errors"
	"io"
)

// FRN is a volume-local file reference number, stable across renames.
type FRN uint64

// RootFRN is the FRN of the volume root directory; FrnMap treats it as
// having no parent.
const RootFRN FRN = 0

// AttrDirectory marks a Record as describing a directory rather than a file.
const AttrDirectory uint32 = 1 << 0

// Record is the projection of a raw USN/MFT record onto the five fields
// spec.md §3 says are actually consumed: record FRN, parent FRN, USN,
// attributes, and name. The adapter is responsible for discarding
// everything else at the boundary (spec.md §9, "ad-hoc duck-typed tuples").
type Record struct {
	RecordFRN FRN
	ParentFRN FRN
	USN       uint64
	Attr      uint32
	Name      string
}

// IsDir reports whether the record's attributes mark it a directory.
func (r Record) IsDir() bool {
	return r.Attr&AttrDirectory != 0
}

// Handle is an opaque, adapter-specific reference to an open volume.
type Handle interface{}

// RecordIterator yields Records in the order documented by the contract
// that produced it (FRN order for EnumerateMFT, increasing USN order for
// ReadJournal). Next returns io.EOF once exhausted. The iterator must be
// drained or Closed before another operation is issued against the same
// Handle.
type RecordIterator interface {
	Next() (Record, error)
	Close() error
}

// ErrUnsupported is returned by Open (and by every other journal operation)
// on platforms with no change-journal primitive; Hardlink and DirSymlink
// still work there. The journal replayer returns it to the snapshot session,
// which treats it as "run with the journal disabled for this invocation"
// rather than a fatal error — spec.md §9 requires falling back to
// manifest-only incremental rather than refusing to run.
var ErrUnsupported = errors.New("volume: change journal not supported on this platform")

// Adapter is the volume-level contract spec.md §4.1 describes. Errors
// surfaced from Hardlink/DirSymlink must be distinguishable via
// errors.Is(err, errkind.AlreadyExists) when the destination already exists.
type Adapter interface {
	Open(volumeRoot string) (Handle, error)
	Close(h Handle) error

	// QueryJournal returns the journal's current id and USN range. It
	// returns an error satisfying errors.Is(err, errkind.JournalNotActive)
	// when no journal exists yet.
	QueryJournal(h Handle) (journalID FRN, firstUSN, nextUSN uint64, err error)

	// CreateJournal creates a new journal on the volume so a subsequent
	// QueryJournal succeeds.
	CreateJournal(h Handle) error

	// EnumerateMFT yields every extant file/directory record with a USN
	// strictly less than upperUSN, in FRN order.
	EnumerateMFT(h Handle, upperUSN uint64) (RecordIterator, error)

	// ReadJournal yields journal records in increasing USN order starting
	// at or after fromUSN, for the given journal id.
	ReadJournal(h Handle, journalID FRN, fromUSN uint64) (RecordIterator, error)

	// Hardlink creates dst as a hard link to the file at src.
	Hardlink(src, dst string) error

	// DirSymlink creates dst as a directory symbolic link (or reparse-point
	// equivalent) pointing at src.
	DirSymlink(src, dst string) error
}

// sliceIterator adapts a pre-built slice of Records to RecordIterator; used
// by the memory adapter and convenient for tests of callers.
type sliceIterator struct {
	records []Record
	pos     int
}

// NewSliceIterator returns a RecordIterator over a fixed slice of records.
func NewSliceIterator(records []Record) RecordIterator {
	return &sliceIterator{records: records}
}

func (it *sliceIterator) Next() (Record, error) {
	if it.pos >= len(it.records) {
		return Record{}, io.EOF
	}
	r := it.records[it.pos]
	it.pos++
	return r, nil
}

func (it *sliceIterator) Close() error { return nil }
