package tables

import (
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	// Registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"

	"github.com/dsnet/bufr/descriptor"
)

// SQLStore loads descriptor tables from a SQLite database, for
// deployments that keep master/local tables centrally rather than as
// loose CSV files. Grounded on ClusterCockpit-cc-backend's
// repository package, which wraps database/sql with sqlx for its own
// metadata tables; this is the same pattern applied to BUFR table
// storage (SPEC_FULL.md §6.2).
//
// Expected schema:
//
//	CREATE TABLE elements(
//	  master_table, centre, local_table, master_version, local_version,
//	  f, x, y, nbits, scale, reference, units, type);
//	CREATE TABLE sequences(
//	  master_table, centre, local_table, master_version, local_version,
//	  f, x, y, child_index, child_f, child_x, child_y);
//	CREATE TABLE codes(
//	  master_table, centre, local_table, master_version, local_version,
//	  f, x, y, value, meaning);
type SQLStore struct {
	db *sqlx.DB

	mu        sync.Mutex
	snapshots map[Version]*Snapshot
}

// OpenSQLStore opens (and pings) a SQLite database at dsn.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("tables: opening sqlite store: %w", err)
	}
	return &SQLStore{db: db, snapshots: make(map[Version]*Snapshot)}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error { return s.db.Close() }

type elementRow struct {
	F         int    `db:"f"`
	X         int    `db:"x"`
	Y         int    `db:"y"`
	NBits     int    `db:"nbits"`
	Scale     int    `db:"scale"`
	Reference int64  `db:"reference"`
	Units     string `db:"units"`
	Type      string `db:"type"`
}

type sequenceChildRow struct {
	F          int `db:"f"`
	X          int `db:"x"`
	Y          int `db:"y"`
	ChildIndex int `db:"child_index"`
	ChildF     int `db:"child_f"`
	ChildX     int `db:"child_x"`
	ChildY     int `db:"child_y"`
}

type codeRow struct {
	F       int    `db:"f"`
	X       int    `db:"x"`
	Y       int    `db:"y"`
	Value   int64  `db:"value"`
	Meaning string `db:"meaning"`
}

// Snapshot implements Store, loading and caching tables for v on first
// use. Once built a Snapshot is never mutated, matching §5's
// "logically immutable snapshot per version tuple" requirement even
// though the backing store is a shared SQL database.
func (s *SQLStore) Snapshot(v Version) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.snapshots[v]; ok {
		return snap, nil
	}

	snap := NewSnapshot(v)
	args := map[string]any{
		"master_table":   v.MasterTable,
		"centre":         v.OriginatingCentre,
		"local_table":    v.LocalTable,
		"master_version": v.MasterVersion,
		"local_version":  v.LocalVersion,
	}

	var elems []elementRow
	const elemQuery = `SELECT f, x, y, nbits, scale, reference, units, type FROM elements
		WHERE master_table = :master_table AND centre = :centre AND local_table = :local_table
		AND master_version = :master_version AND local_version = :local_version`
	if err := namedSelect(s.db, &elems, elemQuery, args); err != nil {
		return nil, fmt.Errorf("tables: loading elements for %s: %w", v, err)
	}
	for _, r := range elems {
		typ, err := parseElementType(r.Type)
		if err != nil {
			return nil, err
		}
		snap.AddElement(&descriptor.Element{
			ID:        descriptor.Native(r.F, r.X, r.Y),
			NBits:     r.NBits,
			Scale:     r.Scale,
			Reference: r.Reference,
			Units:     r.Units,
			Type:      typ,
		})
	}

	var childRows []sequenceChildRow
	const seqQuery = `SELECT f, x, y, child_index, child_f, child_x, child_y FROM sequences
		WHERE master_table = :master_table AND centre = :centre AND local_table = :local_table
		AND master_version = :master_version AND local_version = :local_version
		ORDER BY f, x, y, child_index`
	if err := namedSelect(s.db, &childRows, seqQuery, args); err != nil {
		return nil, fmt.Errorf("tables: loading sequences for %s: %w", v, err)
	}
	seqChildren := map[descriptor.ID][]descriptor.ID{}
	var seqOrder []descriptor.ID
	for _, r := range childRows {
		id := descriptor.Native(r.F, r.X, r.Y)
		if _, ok := seqChildren[id]; !ok {
			seqOrder = append(seqOrder, id)
		}
		seqChildren[id] = append(seqChildren[id], descriptor.Native(r.ChildF, r.ChildX, r.ChildY))
	}
	for _, id := range seqOrder {
		snap.AddSequence(&descriptor.Sequence{ID: id, Children: seqChildren[id]})
	}

	var codes []codeRow
	const codeQuery = `SELECT f, x, y, value, meaning FROM codes
		WHERE master_table = :master_table AND centre = :centre AND local_table = :local_table
		AND master_version = :master_version AND local_version = :local_version`
	if err := namedSelect(s.db, &codes, codeQuery, args); err != nil {
		return nil, fmt.Errorf("tables: loading codes for %s: %w", v, err)
	}
	for _, r := range codes {
		snap.AddCode(descriptor.Native(r.F, r.X, r.Y), r.Value, r.Meaning)
	}

	s.snapshots[v] = snap
	return snap, nil
}

// namedSelect runs a named query and scans results into dest,
// mirroring the sqlx.NamedQuery + StructScan loop used throughout
// ClusterCockpit-cc-backend's repository package.
func namedSelect[T any](db *sqlx.DB, dest *[]T, query string, args map[string]any) error {
	rows, err := db.NamedQuery(query, args)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var row T
		if err := rows.StructScan(&row); err != nil {
			return err
		}
		*dest = append(*dest, row)
	}
	return rows.Err()
}
