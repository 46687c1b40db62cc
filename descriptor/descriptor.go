package descriptor

// ElementType classifies how an Element's bits are interpreted once
// read, per §3.1's element carry-set (nbits, scale, reference, units,
// type).
type ElementType int

const (
	TypeNumeric ElementType = iota
	TypeCode
	TypeFlag
	TypeString
)

// Element is the table-resolved definition of an F=0 descriptor.
type Element struct {
	ID        ID
	NBits     int
	Scale     int
	Reference int64
	Units     string
	Type      ElementType
}

// Sequence is the table-resolved expansion of an F=3 descriptor.
type Sequence struct {
	ID       ID
	Children []ID
}

// Replication describes an F=1 descriptor: replicate the next Count
// descriptors Times times. Delayed replications carry Times == 0 in
// the static template; the engine resolves the actual repeat count
// from the stream at walk time (§3.1, §4.4 rule 4).
type Replication struct {
	ID      ID
	Count   int // number of descriptors replicated (XX)
	Times   int // static repeat count (YYY); 0 means delayed
	Delayed bool
}

// ParseReplication decodes a 1XXYYY descriptor.
func ParseReplication(d ID) Replication {
	return Replication{ID: d, Count: d.X, Times: d.Y, Delayed: d.Y == 0}
}

// Operator is a 2XXYYY descriptor; XX identifies the operator family,
// YYY is its argument (0 is the cancel/reset form for most families).
type Operator struct {
	ID     ID
	Family int // the XX component
	Arg    int // the YYY component
}

// ParseOperator decodes a 2XXYYY descriptor.
func ParseOperator(d ID) Operator {
	return Operator{ID: d, Family: d.X, Arg: d.Y}
}

// Operator families named in §4.2.
const (
	OpChangeDataWidth       = 1  // 201YYY
	OpChangeScale           = 2  // 202YYY
	OpChangeReference       = 3  // 203YYY
	OpAssociatedField       = 4  // 204YYY
	OpInlineCharacter       = 5  // 205YYY
	OpSkipLocal             = 6  // 206YYY
	OpChangeRefAndWidth     = 7  // 207YYY
	OpChangeStringWidth     = 8  // 208YYY
	OpDataNotPresent        = 21 // 221YYY
	OpQualityInfoBitmap     = 22 // 222000
	OpSubstitutionBitmap    = 23 // 223000
	OpFirstOrderBitmap      = 24 // 224000
	OpDifferenceBitmap      = 25 // 225000
	OpReplacementBitmap     = 32 // 232000
	OpCancelBackref         = 35 // 235000
	OpDefineBitmap          = 36 // 236000
	OpReuseBitmap           = 37 // 237000 / 237255
)

// IsClassZero reports whether an element ID belongs to class 0, the
// class eligible for back-referenceable bitmap candidacy (§4.5).
// 203YYY reference capture covers classes 0-9 and does not use this.
func (d ID) IsClassZero() bool { return d.IsNative() && d.F == 0 && d.X == 0 }

// IsClassThirtyOne reports whether an element ID belongs to class 31,
// the bitmap-bearing class (§3.1, §4.4 rule 3/4).
func (d ID) IsClassThirtyOne() bool { return d.IsNative() && d.F == 0 && d.X == 31 }

// EligibleForDataNotPresent reports whether d falls in the class range
// eligible for 221YYY's data-not-present counting (§4.2: "class 1-9,
// 11-").
func (d ID) EligibleForDataNotPresent() bool {
	if !d.IsNative() {
		return false
	}
	c := d.Class()
	return (c >= 1 && c <= 9) || c >= 11
}
