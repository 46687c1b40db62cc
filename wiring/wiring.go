// Package wiring implements component G: verifying that a completed
// template walk left no unresolved bitmap/marker obligations. The
// actual attribute attachment happens inline during the walk (engine's
// walker calls coder.State.ConsumeMarkerSlot as it emits each
// candidate leaf); this package is the closing half of that
// mechanism — the check that every bitmap's declared cardinality was
// satisfied by the data that followed it (§3.4, §8 invariant 5).
package wiring

import "github.com/dsnet/bufr/coder"

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "wiring: " + string(e) }

// ErrUnresolvedMarkers reports that a subset walk ended with a bitmap
// still expecting marker values that never arrived — the "too few
// markers followed the bitmap" half of §8 invariant 5 (BitmapMismatch,
// the "only one marker follows" case in scenario S5).
var ErrUnresolvedMarkers = Error("bitmap resolved but fewer marker values followed than its cardinality required")

// Verify checks a subset's final coder.State for unresolved wiring
// obligations, called once a subset's template walk completes. A
// bitmap whose cardinality demanded more marker values than the
// template actually supplied leaves pendingRemaining > 0; the engine
// has no other point at which to detect that imbalance, since it only
// discovers the shortfall by running out of template, not out of bits.
func Verify(s *coder.State) error {
	if s.PendingMarkerCount() > 0 {
		return ErrUnresolvedMarkers
	}
	return nil
}
