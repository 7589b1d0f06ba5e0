//go:build !windows

package volume

// NewJournalAdapter returns the platform change-journal adapter. On
// non-Windows platforms there is no USN-style journal available, so every
// journal-related operation reports ErrUnsupported; Hardlink/DirSymlink
// still work via LocalLinks since those don't depend on a journal. The
// snapshot session treats ErrUnsupported from the replayer as "disable
// reuse-by-journal for this run" rather than a fatal error (spec.md §9).
func NewJournalAdapter() Adapter {
	return unsupportedAdapter{}
}

type unsupportedAdapter struct {
	LocalLinks
}

func (unsupportedAdapter) Open(string) (Handle, error) {
	return nil, ErrUnsupported
}

func (unsupportedAdapter) Close(Handle) error {
	return nil
}

func (unsupportedAdapter) QueryJournal(Handle) (FRN, uint64, uint64, error) {
	return 0, 0, 0, ErrUnsupported
}

func (unsupportedAdapter) CreateJournal(Handle) error {
	return ErrUnsupported
}

func (unsupportedAdapter) EnumerateMFT(Handle, uint64) (RecordIterator, error) {
	return nil, ErrUnsupported
}

func (unsupportedAdapter) ReadJournal(Handle, FRN, uint64) (RecordIterator, error) {
	return nil, ErrUnsupported
}
