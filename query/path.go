// Package query implements path-grammar querying over a decoded data
// tree (component J) and an expr-lang predicate adapter over decoded
// values (component K), per spec.md §6.3.
package query

import (
	"strconv"
	"strings"

	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tree"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "query: " + string(e) }

// Slice is an optional `@start:end` (or `@index`) selector following a
// path segment.
type Slice struct {
	Has      bool
	Start    int
	End      int
	IsSingle bool
}

// Sep identifies one of the three path separators named in §6.3.
type Sep byte

const (
	SepChild      Sep = '/' // direct child of template root / sequence
	SepDescendant Sep = '>' // any descendant
	SepAttribute  Sep = '.' // attribute of the owning node
)

// Segment is one `<sep><id>[<slice>]` step of a Path.
type Segment struct {
	Sep   Sep
	ID    descriptor.ID // meaningful for SepChild/SepDescendant
	Attr  tree.AttrKind // meaningful for SepAttribute
	Slice Slice
}

// Path is a parsed query expression, per §6.3's grammar:
// `[@<slice>] (<sep><id>[<slice>])+`.
type Path struct {
	RootSlice Slice
	Segments  []Segment
}

var attrNames = map[string]tree.AttrKind{
	"associated":   tree.AttrAssociatedField,
	"q_info":       tree.AttrQualityInfo,
	"substitution": tree.AttrSubstitution,
	"first_order":  tree.AttrFirstOrderStat,
	"difference":   tree.AttrDifferenceStat,
	"replacement":  tree.AttrReplacement,
}

// ParsePath compiles a path expression string into a Path.
func ParsePath(s string) (*Path, error) {
	p := &Path{}
	rest := s
	if strings.HasPrefix(rest, "@") {
		slice, tail, err := parseSlice(rest[1:])
		if err != nil {
			return nil, err
		}
		p.RootSlice = slice
		rest = tail
	}
	for len(rest) > 0 {
		sep := Sep(rest[0])
		if sep != SepChild && sep != SepDescendant && sep != SepAttribute {
			return nil, Error("expected one of '/', '>', '.' at: " + rest)
		}
		rest = rest[1:]
		name, tail := takeToken(rest)
		if name == "" {
			return nil, Error("empty path segment after separator")
		}
		seg := Segment{Sep: sep}
		if sep == SepAttribute {
			kind, ok := attrNames[name]
			if !ok {
				return nil, Error("unknown attribute name: " + name)
			}
			seg.Attr = kind
		} else {
			id, err := parseDescriptorToken(name)
			if err != nil {
				return nil, err
			}
			seg.ID = id
		}
		rest = tail
		if strings.HasPrefix(rest, "@") {
			slice, tail2, err := parseSlice(rest[1:])
			if err != nil {
				return nil, err
			}
			seg.Slice = slice
			rest = tail2
		}
		p.Segments = append(p.Segments, seg)
	}
	if len(p.Segments) == 0 {
		return nil, Error("path has no segments")
	}
	return p, nil
}

func takeToken(s string) (token, rest string) {
	i := 0
	for i < len(s) && s[i] != '/' && s[i] != '>' && s[i] != '.' && s[i] != '@' {
		i++
	}
	return s[:i], s[i:]
}

func parseDescriptorToken(s string) (descriptor.ID, error) {
	if len(s) != 6 {
		return descriptor.ID{}, Error("descriptor token must be 6 digits: " + s)
	}
	f, err1 := strconv.Atoi(s[0:1])
	x, err2 := strconv.Atoi(s[1:3])
	y, err3 := strconv.Atoi(s[3:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return descriptor.ID{}, Error("malformed descriptor token: " + s)
	}
	return descriptor.Native(f, x, y), nil
}

func parseSlice(s string) (Slice, string, error) {
	token, rest := s, ""
	for i, c := range s {
		if c == '/' || c == '>' || c == '.' {
			token, rest = s[:i], s[i:]
			break
		}
	}
	if token == "" {
		return Slice{}, s, Error("empty slice expression")
	}
	if idx := strings.IndexByte(token, ':'); idx >= 0 {
		start, err1 := strconv.Atoi(token[:idx])
		end, err2 := strconv.Atoi(token[idx+1:])
		if err1 != nil || err2 != nil {
			return Slice{}, rest, Error("malformed slice range: " + token)
		}
		return Slice{Has: true, Start: start, End: end}, rest, nil
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return Slice{}, rest, Error("malformed slice index: " + token)
	}
	return Slice{Has: true, Start: n, End: n + 1, IsSingle: true}, rest, nil
}
