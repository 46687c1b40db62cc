package tables

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadMemStoreDir builds a MemStore by scanning each directory in
// paths for table dumps named "<m>.<c>.<l>.<mv>.<lv>.<kind>.csv",
// where kind is one of "elements", "sequences", "codes" and the
// leading dotted fields are the tables.Version tuple (§2/§6.2). This
// is the CLI/server's default table-discovery convention layered over
// MemStore's existing per-kind CSV loaders; it adds no new wire
// format, just a directory-scan dispatcher so cmd/bufrcodec and
// cmd/bufrsrv don't have to name every version tuple by hand.
func LoadMemStoreDir(paths []string) (*MemStore, error) {
	store := NewMemStore()
	for _, dir := range paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, de := range entries {
			if de.IsDir() || !strings.HasSuffix(de.Name(), ".csv") {
				continue
			}
			v, kind, err := parseTableFilename(de.Name())
			if err != nil {
				continue // not one of ours; skip silently, like a glob would
			}
			f, err := os.Open(filepath.Join(dir, de.Name()))
			if err != nil {
				return nil, err
			}
			switch kind {
			case "elements":
				err = store.LoadElements(v, f)
			case "sequences":
				err = store.LoadSequences(v, f)
			case "codes":
				err = store.LoadCodes(v, f)
			}
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("tables: loading %s: %w", de.Name(), err)
			}
		}
	}
	return store, nil
}

func parseTableFilename(name string) (Version, string, error) {
	base := strings.TrimSuffix(name, ".csv")
	parts := strings.Split(base, ".")
	if len(parts) != 6 {
		return Version{}, "", Error("not a table filename: " + name)
	}
	nums := make([]int, 5)
	for i := 0; i < 5; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return Version{}, "", Error("malformed version field in " + name)
		}
		nums[i] = n
	}
	kind := parts[5]
	if kind != "elements" && kind != "sequences" && kind != "codes" {
		return Version{}, "", Error("unknown table kind in " + name)
	}
	return Version{
		MasterTable:       nums[0],
		OriginatingCentre: nums[1],
		LocalTable:        nums[2],
		MasterVersion:     nums[3],
		LocalVersion:      nums[4],
	}, kind, nil
}
