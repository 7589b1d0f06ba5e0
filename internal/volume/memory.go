package volume

import (
	"sort"

	"github.com/ejrh/backup/internal/errkind"
)

// Memory is an in-process fake Adapter used by tests (and by any run where
// no real platform journal is wired in but deterministic journal behaviour
// is still wanted, e.g. integration tests of the replayer). It models a
// volume as a fixed MFT snapshot plus an append-only journal of records,
// both supplied by the test.
type Memory struct {
	LocalLinks

	JournalID FRN
	// MFT holds every record EnumerateMFT may yield, unsorted; Memory sorts
	// by RecordFRN before returning an iterator, matching the contract.
	MFT []Record
	// Journal holds every record ReadJournal may yield, in USN order.
	Journal []Record

	active  bool
	created bool
}

type memoryHandle struct{}

// NewMemory returns a Memory adapter with its journal inactive; call
// Activate (or let CreateJournal be invoked through the normal
// JournalNotActive recovery path) before QueryJournal succeeds.
func NewMemory() *Memory {
	return &Memory{}
}

// Activate marks the journal as already created, so QueryJournal succeeds
// immediately instead of requiring a CreateJournal round-trip.
func (m *Memory) Activate() *Memory {
	m.active = true
	m.created = true
	return m
}

func (m *Memory) Open(string) (Handle, error) {
	return memoryHandle{}, nil
}

func (m *Memory) Close(Handle) error { return nil }

func (m *Memory) QueryJournal(Handle) (FRN, uint64, uint64, error) {
	if !m.active {
		return 0, 0, 0, errkind.JournalNotActive
	}
	first, next := m.usnRange()
	return m.JournalID, first, next, nil
}

func (m *Memory) CreateJournal(Handle) error {
	m.created = true
	m.active = true
	return nil
}

// usnRange reports the journal's first USN and a next USN one past the
// highest USN in either the journal or the MFT.
func (m *Memory) usnRange() (first, next uint64) {
	for _, r := range m.MFT {
		if r.USN+1 > next {
			next = r.USN + 1
		}
	}
	if len(m.Journal) == 0 {
		return 0, next
	}
	first = m.Journal[0].USN
	if last := m.Journal[len(m.Journal)-1].USN + 1; last > next {
		next = last
	}
	return first, next
}

func (m *Memory) EnumerateMFT(_ Handle, upperUSN uint64) (RecordIterator, error) {
	var rows []Record
	for _, r := range m.MFT {
		if r.USN < upperUSN {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RecordFRN < rows[j].RecordFRN })
	return NewSliceIterator(rows), nil
}

func (m *Memory) ReadJournal(_ Handle, _ FRN, fromUSN uint64) (RecordIterator, error) {
	var rows []Record
	for _, r := range m.Journal {
		if r.USN >= fromUSN {
			rows = append(rows, r)
		}
	}
	return NewSliceIterator(rows), nil
}
