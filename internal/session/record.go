package session

import (
	"github.com/samber/oops"

	"sessionkit/internal/util/logger"
)

var log = logger.GetLogger()

const (
	// ArchivedStatesMax bounds how many previous states a Record keeps.
	ArchivedStatesMax = 40

	recordFormatVersion byte = 1

	tagCurrentState  byte = 0x01
	tagPreviousState byte = 0x02
)

var recordTags = map[byte]bool{
	tagCurrentState:  true,
	tagPreviousState: true,
}

// Record is the current session with a peer plus archived ones, newest
// first. It is not safe for concurrent use.
type Record struct {
	current  *State
	previous []*State
}

// NewRecord returns a record whose current state is s. s may be nil for a
// fresh, empty record.
func NewRecord(s *State) *Record {
	return &Record{current: s}
}

// State returns the current state, or nil.
func (r *Record) State() *State { return r.current }

// PreviousStates returns archived states, newest first.
func (r *Record) PreviousStates() []*State {
	return append([]*State(nil), r.previous...)
}

func (r *Record) IsFresh() bool { return r.current == nil && len(r.previous) == 0 }

// HasSessionState reports whether the current or an archived state has the
// given version and initiator base key.
func (r *Record) HasSessionState(version uint8, baseKey []byte) bool {
	match := func(s *State) bool {
		if s == nil || s.version != version {
			return false
		}
		return string(s.baseKey.Serialize()) == string(baseKey)
	}
	if match(r.current) {
		return true
	}
	for _, s := range r.previous {
		if match(s) {
			return true
		}
	}
	return false
}

// ArchiveCurrentState moves the current state to the front of the archive.
func (r *Record) ArchiveCurrentState() {
	if r.current == nil {
		return
	}
	r.previous = append([]*State{r.current}, r.previous...)
	r.current = nil
	if len(r.previous) > ArchivedStatesMax {
		r.previous = r.previous[:ArchivedStatesMax]
	}
	log.WithField("archived", len(r.previous)).Debug("Archived session state")
}

// PromoteState archives the current state and makes s current.
func (r *Record) PromoteState(s *State) {
	r.ArchiveCurrentState()
	r.current = s
}

// Serialize encodes the record deterministically.
func (r *Record) Serialize() []byte {
	w := newTLVWriter(recordFormatVersion)
	if r.current != nil {
		w.put(tagCurrentState, r.current.Serialize())
	}
	for _, s := range r.previous {
		w.put(tagPreviousState, s.Serialize())
	}
	return w.bytes()
}

// DeserializeRecord parses the output of Record.Serialize.
func DeserializeRecord(b []byte) (*Record, error) {
	fields, err := decodeTLVs(b, recordFormatVersion)
	if err != nil {
		return nil, err
	}
	m, prev, err := indexFields(fields, recordTags, tagPreviousState)
	if err != nil {
		return nil, err
	}
	if len(prev) > ArchivedStatesMax {
		return nil, oops.In("session").
			With("archived", len(prev)).
			Wrapf(ErrMalformed, "too many archived states")
	}

	r := &Record{}
	if raw, ok := m[tagCurrentState]; ok {
		if r.current, err = DeserializeState(raw); err != nil {
			return nil, oops.In("session").Wrapf(err, "current state")
		}
	}
	for i, raw := range prev {
		s, err := DeserializeState(raw)
		if err != nil {
			return nil, oops.In("session").With("index", i).Wrapf(err, "archived state")
		}
		r.previous = append(r.previous, s)
	}
	return r, nil
}
