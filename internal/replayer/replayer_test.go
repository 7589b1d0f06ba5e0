package replayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrh/backup/internal/notify"
	"github.com/ejrh/backup/internal/volume"
)

func TestProcessFirstRunFullReplay(t *testing.T) {
	mem := volume.NewMemory()
	mem.JournalID = 42
	mem.MFT = []volume.Record{
		{RecordFRN: 1, ParentFRN: volume.RootFRN, USN: 1, Attr: volume.AttrDirectory, Name: "dir1"},
		{RecordFRN: 2, ParentFRN: 1, USN: 2, Attr: 0, Name: "file1.txt"},
	}
	mem.Journal = []volume.Record{
		{RecordFRN: 1, ParentFRN: volume.RootFRN, USN: 1, Attr: volume.AttrDirectory, Name: "dir1"},
		{RecordFRN: 2, ParentFRN: 1, USN: 2, Attr: 0, Name: "file1.txt"},
	}

	r := New(mem, "C:", NewState(), notify.NewLogrus(nil))
	require.NoError(t, r.Process())

	assert.True(t, r.Affected("C:/dir1/file1.txt"))
	assert.True(t, r.Affected(`C:\DIR1\file1.txt`))
	assert.True(t, r.Affected("C:/dir1"))
	// dir1's own record was replayed, so everything beneath it counts as
	// affected, even a file the journal never mentioned.
	assert.True(t, r.Affected("C:/dir1/other.txt"))

	state := r.State()
	assert.True(t, state.HasJournalID)
	assert.Equal(t, volume.FRN(42), state.JournalID)
	assert.Equal(t, uint64(2), state.LastUSN)
}

func TestProcessIncrementalOnlyNewRecords(t *testing.T) {
	mem := volume.NewMemory().Activate()
	mem.JournalID = 7
	mem.Journal = []volume.Record{
		{RecordFRN: 1, ParentFRN: volume.RootFRN, USN: 1, Attr: volume.AttrDirectory, Name: "dir1"},
		{RecordFRN: 2, ParentFRN: 1, USN: 2, Attr: 0, Name: "old.txt"},
		{RecordFRN: 3, ParentFRN: 1, USN: 3, Attr: 0, Name: "new.txt"},
	}

	state := NewState()
	state.HasJournalID = true
	state.JournalID = 7
	state.HasLastUSN = true
	state.LastUSN = 2
	state.FrnMap.Set(1, volume.RootFRN, "dir1")

	r := New(mem, "C:", state, notify.NewLogrus(nil))
	require.NoError(t, r.Process())

	assert.False(t, r.Affected("C:/dir1/old.txt"))
	assert.True(t, r.Affected("C:/dir1/new.txt"))

	assert.Equal(t, uint64(3), r.State().LastUSN)
}

func TestProcessJournalRotationTriggersFullReplay(t *testing.T) {
	mem := volume.NewMemory().Activate()
	mem.JournalID = 99 // different from the recorded journal id below
	mem.MFT = []volume.Record{
		{RecordFRN: 1, ParentFRN: volume.RootFRN, USN: 10, Attr: 0, Name: "survivor.txt"},
	}

	state := NewState()
	state.HasJournalID = true
	state.JournalID = 1
	state.HasLastUSN = true
	state.LastUSN = 500

	r := New(mem, "C:", state, notify.NewLogrus(nil))
	require.NoError(t, r.Process())

	assert.True(t, r.Affected("C:/survivor.txt"))
	assert.Equal(t, volume.FRN(99), r.State().JournalID)
}

func TestProcessUnsupportedPropagates(t *testing.T) {
	adapter := unsupportedStub{}
	r := New(adapter, "C:", NewState(), notify.NewLogrus(nil))

	err := r.Process()
	assert.ErrorIs(t, err, volume.ErrUnsupported)
}

// unsupportedStub is a minimal volume.Adapter that reports every operation
// as unsupported, standing in for volume_other.go's adapter without
// depending on its unexported type.
type unsupportedStub struct {
	volume.LocalLinks
}

func (unsupportedStub) Open(string) (volume.Handle, error) { return nil, volume.ErrUnsupported }
func (unsupportedStub) Close(volume.Handle) error          { return nil }
func (unsupportedStub) QueryJournal(volume.Handle) (volume.FRN, uint64, uint64, error) {
	return 0, 0, 0, volume.ErrUnsupported
}
func (unsupportedStub) CreateJournal(volume.Handle) error { return volume.ErrUnsupported }
func (unsupportedStub) EnumerateMFT(volume.Handle, uint64) (volume.RecordIterator, error) {
	return nil, volume.ErrUnsupported
}
func (unsupportedStub) ReadJournal(volume.Handle, volume.FRN, uint64) (volume.RecordIterator, error) {
	return nil, volume.ErrUnsupported
}
