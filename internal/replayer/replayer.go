// Package replayer implements the journal replayer (spec.md §4.3): it
// drives a volume.Adapter through a full-MFT or incremental USN replay and
// produces the changed/affected path sets the snapshot builder consults via
// Affected.
package replayer

import (
	"errors"
	"io"
	"unicode/utf8"

	"github.com/ejrh/backup/internal/errkind"
	"github.com/ejrh/backup/internal/frnmap"
	"github.com/ejrh/backup/internal/notify"
	"github.com/ejrh/backup/internal/pathutil"
	"github.com/ejrh/backup/internal/volume"
)

// State is the persisted (journal_id, last_usn, frn_map) triple spec.md §3
// calls "journal state". JournalID and LastUSN are both optional: a zero
// State means no journal has ever been replayed.
type State struct {
	HasJournalID bool
	JournalID    volume.FRN
	HasLastUSN   bool
	LastUSN      uint64
	FrnMap       *frnmap.Map
}

// NewState returns an empty State ready for a first-ever run.
func NewState() State {
	return State{FrnMap: frnmap.New()}
}

// Replayer is the journal replayer. It owns the volume handle only for the
// duration of Process, per spec.md §5.
type Replayer struct {
	adapter    volume.Adapter
	volumeRoot string
	notifier   notify.Notifier

	state State

	changedPaths map[string]bool
	affectedDirs map[string]bool
}

// New returns a Replayer over the given adapter and volume root, carrying
// forward previously persisted state.
func New(adapter volume.Adapter, volumeRoot string, state State, notifier notify.Notifier) *Replayer {
	if state.FrnMap == nil {
		state.FrnMap = frnmap.New()
	}
	return &Replayer{adapter: adapter, volumeRoot: volumeRoot, notifier: notifier, state: state}
}

// State returns the replayer's current (possibly just-updated) state, for
// the session to persist.
func (r *Replayer) State() State {
	return r.state
}

// Process implements spec.md §4.3's six-step procedure. If the underlying
// adapter reports volume.ErrUnsupported, Process returns it unwrapped so
// the session can fall back to a journal-disabled run (spec.md §9) instead
// of treating it as fatal.
func (r *Replayer) Process() error {
	r.changedPaths = map[string]bool{}
	r.affectedDirs = map[string]bool{}

	h, err := r.adapter.Open(r.volumeRoot)
	if err != nil {
		return err
	}
	defer r.adapter.Close(h)

	qid, firstUSN, nextUSN, err := r.adapter.QueryJournal(h)
	if errors.Is(err, errkind.JournalNotActive) {
		r.notifier.Notice(r.volumeRoot, "journal not active, creating")
		if err := r.adapter.CreateJournal(h); err != nil {
			return err
		}
		qid, firstUSN, nextUSN, err = r.adapter.QueryJournal(h)
	}
	if err != nil {
		return err
	}

	replayAll := !r.state.HasJournalID || r.state.JournalID != qid || firstUSN > r.state.LastUSN
	if replayAll {
		r.notifier.Notice(r.volumeRoot, "full MFT replay (journal id 0x%x, first usn %d)", qid, firstUSN)
		r.state.HasJournalID = true
		r.state.JournalID = qid
		r.state.LastUSN = firstUSN
		r.state.HasLastUSN = true

		if err := r.enumerateMFT(h, nextUSN); err != nil {
			return err
		}

		_, _, nextUSN2, err := r.adapter.QueryJournal(h)
		if err != nil {
			return err
		}
		nextUSN = nextUSN2
	}

	if err := r.readJournal(h, r.state.JournalID, r.state.LastUSN, replayAll, nextUSN); err != nil {
		return err
	}

	return nil
}

func (r *Replayer) enumerateMFT(h volume.Handle, upperUSN uint64) error {
	it, err := r.adapter.EnumerateMFT(h, upperUSN)
	if err != nil {
		return err
	}
	defer it.Close()
	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		r.processRecord(rec)
		if rec.USN > r.state.LastUSN {
			r.state.LastUSN = rec.USN
		}
	}
}

func (r *Replayer) readJournal(h volume.Handle, journalID volume.FRN, startUSN uint64, takeAll bool, upperUSN uint64) error {
	it, err := r.adapter.ReadJournal(h, journalID, startUSN)
	if err != nil {
		return err
	}
	defer it.Close()
	for {
		rec, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if takeAll || r.state.LastUSN < rec.USN {
			r.processRecord(rec)
			r.state.LastUSN = rec.USN
		}
	}
}

// processRecord implements spec.md §4.3's process_record.
func (r *Replayer) processRecord(rec volume.Record) {
	if !utf8.ValidString(rec.Name) {
		r.notifier.Warning("", "skipping record with undecodable name (frn=%d)", rec.RecordFRN)
		return
	}

	if rec.IsDir() {
		r.state.FrnMap.Set(rec.RecordFRN, rec.ParentFRN, rec.Name)
	}

	parentPath := r.state.FrnMap.BuildPath(rec.ParentFRN)
	path := parentPath + "/" + rec.Name
	norm := pathutil.Normalise(path)

	r.changedPaths[norm] = true
	for _, ancestor := range pathutil.Ancestors(norm) {
		r.affectedDirs[ancestor] = true
	}
}

// Affected reports whether path may have changed according to the journal:
// either it is itself in affectedDirs (exact match only), or it (or any
// ancestor of it) was itself directly reported changed. The asymmetry is
// deliberate (spec.md §4.3): a directory rename invalidates everything
// beneath it, but a plain file change only invalidates that file and its
// own ancestor chain.
func (r *Replayer) Affected(path string) bool {
	norm := pathutil.Normalise(path)

	if r.affectedDirs[norm] {
		return true
	}
	if r.changedPaths[norm] {
		return true
	}
	for _, ancestor := range pathutil.Ancestors(norm) {
		if r.changedPaths[ancestor] {
			return true
		}
	}
	return false
}
