package snapshot

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ejrh/backup/internal/frnmap"
	"github.com/ejrh/backup/internal/volume"
)

// journalMeta is the serialisable form of the replayer's (journal_id,
// last_usn) pair, stored under journalMetaKey alongside the FRN map entries
// in the journal KV store.
type journalMeta struct {
	JournalID volume.FRN
	LastUSN   uint64
}

func encodeJournalMeta(m journalMeta) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "marshal journal meta")
	}
	return b, nil
}

func decodeJournalMeta(b []byte) (journalMeta, error) {
	var m journalMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return journalMeta{}, errors.Wrap(err, "unmarshal journal meta")
	}
	return m, nil
}

// frnEntryValue is the serialisable form of one frnmap.Entry's payload; the
// FRN itself is carried in the KV key rather than duplicated in the value.
type frnEntryValue struct {
	ParentFRN volume.FRN
	Name      string
}

// encodeFrnEntry renders e as a (key, value) pair suitable for KV.Put. The
// key is the decimal FRN, distinct from journalMetaKey by construction
// (journalMetaKey is not a valid base-10 integer).
func encodeFrnEntry(e frnmap.Entry) (key string, value []byte, err error) {
	key = strconv.FormatUint(uint64(e.FRN), 10)
	value, err = json.Marshal(frnEntryValue{ParentFRN: e.ParentFRN, Name: e.Name})
	if err != nil {
		return "", nil, errors.Wrapf(err, "marshal frn entry %d", e.FRN)
	}
	return key, value, nil
}

// decodeFrnEntry parses a (key, value) pair produced by encodeFrnEntry back
// into a frnmap.Entry.
func decodeFrnEntry(key string, value []byte) (frnmap.Entry, error) {
	n, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return frnmap.Entry{}, errors.Wrapf(err, "parse frn key %q", key)
	}
	var v frnEntryValue
	if err := json.Unmarshal(value, &v); err != nil {
		return frnmap.Entry{}, errors.Wrapf(err, "unmarshal frn entry %q", key)
	}
	return frnmap.Entry{FRN: volume.FRN(n), ParentFRN: v.ParentFRN, Name: v.Name}, nil
}
