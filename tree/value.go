// Package tree implements the template data tree (component F): the
// ordered node structure a decode produces and an encode consumes.
package tree

import (
	"encoding/json"
	"fmt"
)

// ValueKind tags the active member of Value, replacing a bare
// interface{} so EncodeTypeMismatch can be raised without a type
// switch at every call site (SPEC_FULL.md §3 NEW note).
type ValueKind int

const (
	KindMissing ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindBytes
)

// Value is a single data-node slot: an int, a float, a string, raw
// bytes, or the BUFR "missing" marker (§3.2).
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Str   string
	Bytes []byte
}

// Missing is the canonical missing value.
var Missing = Value{Kind: KindMissing}

// IntValue builds a numeric integer value.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// FloatValue builds a numeric floating-point value (post scale/reference).
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }

// StringValue builds a character-element value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// BytesValue builds a raw-bytes value (e.g. an associated field).
func BytesValue(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// IsMissing reports whether v is the missing-value marker.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

func (v Value) String() string {
	switch v.Kind {
	case KindMissing:
		return "<missing>"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	case KindBytes:
		return fmt.Sprintf("% x", v.Bytes)
	default:
		return "<invalid>"
	}
}

// MarshalJSON renders a Value as its scalar reading rather than the
// tagged-union struct encoding/json would otherwise produce (component
// M's JSON rendering), so a decoded tree reads naturally as JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindMissing:
		return []byte("null"), nil
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindString:
		return json.Marshal(v.Str)
	case KindBytes:
		return json.Marshal(v.Bytes)
	default:
		return []byte("null"), nil
	}
}
