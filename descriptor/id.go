// Package descriptor implements the BUFR descriptor model: the typed
// entities (element, replication, operator, sequence) that a template
// is built from, plus the four derived kinds the engine produces in
// its output tree (associated field, skipped local, and the marker
// family).
package descriptor

import (
	"fmt"
	"strconv"
)

// ID is a native six-digit BUFR descriptor, FXXYYY, or one of the four
// synthetic output-only IDs the engine derives during a walk (§3.1).
// Native IDs compare and format like the WMO convention; synthetic IDs
// carry a one-letter prefix instead of the F digit.
type ID struct {
	// Synthetic is empty for native FXXYYY descriptors, or one of
	// "A" (associated), "S" (skipped local), "T"/"F"/"D"/"R" (marker
	// kinds: substitution, first-order stat, difference stat,
	// replacement/retain) for derived descriptors.
	Synthetic string
	F         int // 0-3 for native descriptors; unused for synthetic
	X         int // 0-63
	Y         int // 0-255, or the last-five for synthetic IDs
}

// Native builds a native FXXYYY descriptor ID.
func Native(f, x, y int) ID {
	return ID{F: f, X: x, Y: y}
}

// FromUint16 decodes the 16-bit (F:2, X:6, Y:8) wire encoding used in
// section 3's unexpanded descriptor list (§6.1).
func FromUint16(v uint16) ID {
	return ID{F: int(v >> 14), X: int((v >> 8) & 0x3F), Y: int(v & 0xFF)}
}

// Uint16 re-encodes a native descriptor into its wire form.
func (d ID) Uint16() uint16 {
	return uint16(d.F)<<14 | uint16(d.X)<<8 | uint16(d.Y)
}

// Synthetic5 builds a derived descriptor carrying the last five digits
// of a native element ID under the given prefix, per §3.1.
func Synthetic5(prefix string, elem ID) ID {
	return ID{Synthetic: prefix, X: elem.X, Y: elem.Y}
}

// IsNative reports whether d is a native FXXYYY descriptor.
func (d ID) IsNative() bool { return d.Synthetic == "" }

// YYY returns the three-digit Y-class operator argument. Only
// meaningful for F==2 operator descriptors.
func (d ID) YYY() int { return d.Y }

// String renders the descriptor in its conventional six-character form.
func (d ID) String() string {
	if d.IsNative() {
		return fmt.Sprintf("%01d%02d%03d", d.F, d.X, d.Y)
	}
	return fmt.Sprintf("%s%02d%03d", d.Synthetic, d.X, d.Y)
}

// Class returns the X (class) component, used for the class-0/class-31
// checks throughout §4.
func (d ID) Class() int { return d.X }

// MarshalJSON renders d as its conventional six-character string
// (component M's JSON rendering), rather than the zero-value-heavy
// struct encoding encoding/json would otherwise produce.
func (d ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses the six-character form MarshalJSON produces,
// native or synthetic, so an ID round-trips through JSON. tree.Value
// has no matching UnmarshalJSON, so a decoded tree's full JSON
// rendering does not load back into a tree.Message.
func (d *ID) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("descriptor: invalid ID JSON %s: %w", b, err)
	}
	if len(s) != 6 {
		return fmt.Errorf("descriptor: ID %q must be six characters", s)
	}
	yyy, err := strconv.Atoi(s[3:6])
	if err != nil {
		return fmt.Errorf("descriptor: malformed ID %q", s)
	}
	xx, err := strconv.Atoi(s[1:3])
	if err != nil {
		return fmt.Errorf("descriptor: malformed ID %q", s)
	}
	if s[0] >= '0' && s[0] <= '9' {
		f, _ := strconv.Atoi(s[0:1])
		*d = ID{F: f, X: xx, Y: yyy}
		return nil
	}
	*d = ID{Synthetic: s[0:1], X: xx, Y: yyy}
	return nil
}
