// Package errkind defines the closed set of error kinds from spec.md §7 and
// the disposition (fatal vs. recovered vs. warn-and-continue) each carries.
// Callers attach a kind to an underlying error with Wrap, so the cause's
// message survives while errors.Is(err, errkind.X) keeps working.
package errkind

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Each is returned (optionally attached to a cause via
// Wrap) by the component that detects it.
var (
	// NameCollision: target/name already exists. Fatal; abort before any write.
	NameCollision = errors.New("target name already exists")

	// JournalNotActive: first query_journal call found no journal. Recovered
	// locally by creating the journal and retrying once.
	JournalNotActive = errors.New("journal not active")

	// JournalRotated: journal_id from the volume no longer matches the
	// recorded journal_id. Recovered by a full MFT replay.
	JournalRotated = errors.New("journal rotated")

	// UsnGap: the first USN available on the volume is newer than the last
	// USN this replayer had recorded. Recovered by a full MFT replay.
	UsnGap = errors.New("usn gap")

	// EnumerationFailure: listing a source directory failed. Warn; treat as
	// empty.
	EnumerationFailure = errors.New("enumeration failure")

	// LinkFailure: hard link or directory symlink creation failed. For a
	// file the builder warns and falls back to a copy; for a directory it
	// creates the directory and backs up each child on its own.
	LinkFailure = errors.New("link failure")

	// ManifestMiss: stat of a manifest candidate failed. Warn; drop
	// candidate.
	ManifestMiss = errors.New("manifest candidate missing")

	// SizeMismatch: a manifest candidate's on-disk size doesn't match the
	// recorded size. Warn; candidate retained for other consumers.
	SizeMismatch = errors.New("manifest candidate size mismatch")

	// NameEncoding: a USN record's file name could not be decoded. Warn;
	// skip the record.
	NameEncoding = errors.New("name encoding failure")

	// CopyFailure: a read or write during file copy failed. Fatal; abort.
	CopyFailure = errors.New("copy failure")

	// StateLoadFailure: a present state file (previous/journal/manifest)
	// could not be read. Fatal; abort. Absence of the file is not this kind.
	StateLoadFailure = errors.New("state load failure")

	// AlreadyExists: a hard-link or directory-symlink primitive found the
	// destination already present. The builder never attempts an overwrite.
	AlreadyExists = errors.New("already exists")
)

// Wrap attaches kind to cause so that errors.Is(result, kind) holds while
// the message still reports cause. Used at the few boundaries (spec.md §7)
// where an underlying error (a failed read, a failed stat) must be
// reclassified as one of the fixed kinds above.
func Wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, cause)
}
