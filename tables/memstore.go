package tables

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dsnet/bufr/descriptor"
)

// MemStore is a read-after-load, in-memory Store, the default table
// provider. It is loaded once from CSV table dumps (the common WMO
// BUFR table distribution format) and is safe for concurrent read
// access across engine instances afterward (§5).
type MemStore struct {
	mu        sync.RWMutex
	snapshots map[Version]*Snapshot
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{snapshots: make(map[Version]*Snapshot)}
}

// Snapshot implements Store.
func (m *MemStore) Snapshot(v Version) (*Snapshot, error) {
	m.mu.RLock()
	snap, ok := m.snapshots[v]
	m.mu.RUnlock()
	if !ok {
		return nil, Error(fmt.Sprintf("no tables loaded for %s", v))
	}
	return snap, nil
}

// VersionCount reports how many distinct table versions have been
// loaded, for the CLI's "tables load" diagnostic subcommand.
func (m *MemStore) VersionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}

// LoadElements registers v's snapshot (creating it if absent) with
// element definitions read from a CSV stream with columns:
// f,x,y,nbits,scale,reference,units,type
// where type is one of "numeric", "code", "flag", "string".
func (m *MemStore) LoadElements(v Version, r io.Reader) error {
	snap := m.snapshotFor(v)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, ",")
		if len(cols) != 8 {
			return Error("malformed element table row: " + line)
		}
		f, err := strconv.Atoi(cols[0])
		if err != nil {
			return Error("malformed F: " + line)
		}
		x, err := strconv.Atoi(cols[1])
		if err != nil {
			return Error("malformed X: " + line)
		}
		y, err := strconv.Atoi(cols[2])
		if err != nil {
			return Error("malformed Y: " + line)
		}
		nbits, err := strconv.Atoi(cols[3])
		if err != nil {
			return Error("malformed nbits: " + line)
		}
		scale, err := strconv.Atoi(cols[4])
		if err != nil {
			return Error("malformed scale: " + line)
		}
		ref, err := strconv.ParseInt(cols[5], 10, 64)
		if err != nil {
			return Error("malformed reference: " + line)
		}
		units := cols[6]
		typ, err := parseElementType(cols[7])
		if err != nil {
			return err
		}
		snap.AddElement(&descriptor.Element{
			ID:        descriptor.Native(f, x, y),
			NBits:     nbits,
			Scale:     scale,
			Reference: ref,
			Units:     units,
			Type:      typ,
		})
	}
	return sc.Err()
}

// LoadSequences registers v's snapshot with sequence expansions read
// from a CSV stream with columns: f,x,y,children
// where children is a semicolon-joined list of "f.x.y" dotted triplets.
func (m *MemStore) LoadSequences(v Version, r io.Reader) error {
	snap := m.snapshotFor(v)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.SplitN(line, ",", 4)
		if len(cols) != 4 {
			return Error("malformed sequence table row: " + line)
		}
		f, _ := strconv.Atoi(cols[0])
		x, _ := strconv.Atoi(cols[1])
		y, _ := strconv.Atoi(cols[2])
		var children []descriptor.ID
		for _, child := range strings.Split(cols[3], ";") {
			child = strings.TrimSpace(child)
			if child == "" {
				continue
			}
			parts := strings.Split(child, ".")
			if len(parts) != 3 {
				return Error("malformed child descriptor: " + child)
			}
			cf, _ := strconv.Atoi(parts[0])
			cx, _ := strconv.Atoi(parts[1])
			cy, _ := strconv.Atoi(parts[2])
			children = append(children, descriptor.Native(cf, cx, cy))
		}
		snap.AddSequence(&descriptor.Sequence{
			ID:       descriptor.Native(f, x, y),
			Children: children,
		})
	}
	return sc.Err()
}

// LoadCodes registers v's snapshot with code/flag meanings read from a
// CSV stream with columns: f,x,y,value,meaning.
func (m *MemStore) LoadCodes(v Version, r io.Reader) error {
	snap := m.snapshotFor(v)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.SplitN(line, ",", 5)
		if len(cols) != 5 {
			return Error("malformed code table row: " + line)
		}
		f, _ := strconv.Atoi(cols[0])
		x, _ := strconv.Atoi(cols[1])
		y, _ := strconv.Atoi(cols[2])
		value, err := strconv.ParseInt(cols[3], 10, 64)
		if err != nil {
			return Error("malformed code value: " + line)
		}
		snap.AddCode(descriptor.Native(f, x, y), value, cols[4])
	}
	return sc.Err()
}

func (m *MemStore) snapshotFor(v Version) *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[v]
	if !ok {
		snap = NewSnapshot(v)
		m.snapshots[v] = snap
	}
	return snap
}

func parseElementType(s string) (descriptor.ElementType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric":
		return descriptor.TypeNumeric, nil
	case "code":
		return descriptor.TypeCode, nil
	case "flag":
		return descriptor.TypeFlag, nil
	case "string", "ccitt_ia5":
		return descriptor.TypeString, nil
	default:
		return 0, Error("unknown element type: " + s)
	}
}
