// Package tables implements component B: loading and looking up
// descriptor metadata keyed by (master_table, originating_centre,
// local_table, master_version, local_version), per spec.md §2/§6.2.
package tables

import (
	"fmt"
	"sync"

	"github.com/dsnet/bufr/descriptor"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "tables: " + string(e) }

// Version identifies the negotiated table set for one message, per
// §2's key tuple.
type Version struct {
	MasterTable       int
	OriginatingCentre int
	LocalTable        int
	MasterVersion     int
	LocalVersion      int
}

func (v Version) String() string {
	return fmt.Sprintf("m%d/c%d/l%d/mv%d/lv%d",
		v.MasterTable, v.OriginatingCentre, v.LocalTable, v.MasterVersion, v.LocalVersion)
}

// Store is the provider interface consumed by the engine. Its one
// method hands out a per-version Snapshot, which carries the spec.md
// §6.2 lookups (LookupElement, LookupSequence, LookupCode) plus a
// flag-table lookup (LookupFlag).
type Store interface {
	// Snapshot returns a read-only, concurrency-safe view of the
	// tables negotiated for v. Snapshot is the only method the engine
	// calls per-message; implementations are free to load lazily
	// and/or combine caching here (§5: "the Tables store is read-only
	// after load and is safely shareable").
	Snapshot(v Version) (*Snapshot, error)
}

// Snapshot is a per-version view over element, sequence, code, and
// flag tables, plus the component-H trace cache (§4.7, §9 addendum:
// both are keyed the same way, so they share a lifetime). The tables
// are fixed once loaded; the trace cache fills as templates are first
// decoded and is guarded by traceMu, so concurrent decodes may share
// one Snapshot.
type Snapshot struct {
	Version Version

	elements  map[descriptor.ID]*descriptor.Element
	sequences map[descriptor.ID]*descriptor.Sequence
	codes     map[codeKey]string
	flags     map[codeKey]string

	traceMu sync.RWMutex
	traces  map[string]*Trace // keyed by the joined unexpanded descriptor list
}

type codeKey struct {
	ID    descriptor.ID
	Value int64
}

// NewSnapshot builds an empty snapshot for v, to be populated by a
// Store implementation's loader.
func NewSnapshot(v Version) *Snapshot {
	return &Snapshot{
		Version:   v,
		elements:  make(map[descriptor.ID]*descriptor.Element),
		sequences: make(map[descriptor.ID]*descriptor.Sequence),
		codes:     make(map[codeKey]string),
		flags:     make(map[codeKey]string),
		traces:    make(map[string]*Trace),
	}
}

// AddElement registers an element definition.
func (s *Snapshot) AddElement(e *descriptor.Element) { s.elements[e.ID] = e }

// AddSequence registers a sequence expansion.
func (s *Snapshot) AddSequence(seq *descriptor.Sequence) { s.sequences[seq.ID] = seq }

// AddCode registers a code-table entry (id, value) -> meaning text.
func (s *Snapshot) AddCode(id descriptor.ID, value int64, meaning string) {
	s.codes[codeKey{id, value}] = meaning
}

// AddFlag registers a flag-table entry (id, bit position) -> meaning text.
func (s *Snapshot) AddFlag(id descriptor.ID, bit int64, meaning string) {
	s.flags[codeKey{id, bit}] = meaning
}

// LookupElement implements spec.md §6.2's lookup_element.
func (s *Snapshot) LookupElement(id descriptor.ID) (*descriptor.Element, error) {
	e, ok := s.elements[id]
	if !ok {
		return nil, Error(fmt.Sprintf("unknown element descriptor %s for %s", id, s.Version))
	}
	return e, nil
}

// LookupSequence implements spec.md §6.2's lookup_sequence.
func (s *Snapshot) LookupSequence(id descriptor.ID) (*descriptor.Sequence, error) {
	seq, ok := s.sequences[id]
	if !ok {
		return nil, Error(fmt.Sprintf("unknown sequence descriptor %s for %s", id, s.Version))
	}
	return seq, nil
}

// LookupCode implements spec.md §6.2's lookup_code.
func (s *Snapshot) LookupCode(id descriptor.ID, value int64) (string, bool) {
	m, ok := s.codes[codeKey{id, value}]
	return m, ok
}

// LookupFlag resolves a single flag bit's meaning text.
func (s *Snapshot) LookupFlag(id descriptor.ID, bit int64) (string, bool) {
	m, ok := s.flags[codeKey{id, bit}]
	return m, ok
}

// Trace returns the cached compiled trace for a template keyed by its
// joined unexpanded descriptor list, if one has been recorded.
func (s *Snapshot) Trace(key string) (*Trace, bool) {
	s.traceMu.RLock()
	defer s.traceMu.RUnlock()
	t, ok := s.traces[key]
	return t, ok
}

// StoreTrace records a compiled trace for later replay (component H).
func (s *Snapshot) StoreTrace(key string, t *Trace) {
	s.traceMu.Lock()
	defer s.traceMu.Unlock()
	s.traces[key] = t
}
