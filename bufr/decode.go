package bufr

import (
	"strings"

	"github.com/dsnet/bufr/bitio"
	"github.com/dsnet/bufr/coder"
	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/engine"
	"github.com/dsnet/bufr/tables"
	"github.com/dsnet/bufr/tree"
	"github.com/dsnet/bufr/wiring"
)

// Decode implements spec.md §6.3's decode(bytes) -> message_tree,
// framing sections 0-5 and driving one Template Processing Engine walk
// per subset (or one compressed walk over all of them), per §2's data
// flow: "bytes -> section-framing -> Engine ... -> Data Tree; Wiring
// then folds attributes under owners." Wiring's attribute attachment
// happens inline during the walk (see wiring package doc); Decode's
// own call into it is the closing cardinality check.
func Decode(store tables.Store, buf []byte) (msg *tree.Message, err error) {
	var ctx *engine.Context
	defer func() {
		// A reader underrun panics out of bitio; report it as
		// InsufficientBits at the position the walk had reached.
		if err == bitio.ErrUnderrun && ctx != nil {
			de := wrapDecodeErr(ctx, err)
			de.Kind = KindInsufficientBits
			msg, err = nil, de
		}
	}()
	defer errRecover(&err)

	totalLen, edition, err := parseSection0(buf)
	if err != nil {
		return nil, err
	}
	if totalLen != len(buf) {
		return nil, &DecodeError{Kind: KindMalformedHeader, Cause: Error("section 0 total length disagrees with buffer size")}
	}

	msg = tree.NewMessage()
	off := 8
	len1, err := parseSection1(buf[off:], edition, msg)
	if err != nil {
		return nil, err
	}
	off += len1

	if msg.OptionalSection {
		if off+3 > len(buf) {
			return nil, &DecodeError{Kind: KindMalformedHeader, Cause: Error("buffer truncated at section 2")}
		}
		off += uint24(buf[off : off+3])
	}

	len3, err := parseSection3(buf[off:], msg)
	if err != nil {
		return nil, err
	}
	off += len3

	if off+4 > len(buf) {
		return nil, &DecodeError{Kind: KindMalformedHeader, Cause: Error("buffer truncated at section 4")}
	}
	len4 := uint24(buf[off : off+3])
	if off+len4 > len(buf) {
		return nil, &DecodeError{Kind: KindMalformedHeader, Cause: Error("section 4 length exceeds buffer")}
	}
	payload := buf[off+4 : off+len4]
	off += len4

	if off+4 > len(buf) || string(buf[off:off+4]) != "7777" {
		return nil, &DecodeError{Kind: KindValidationFailed, Cause: Error("missing 7777 terminator")}
	}

	version := tables.Version{
		MasterTable:       msg.MasterTable,
		OriginatingCentre: msg.OriginatingCentre,
		LocalTable:        msg.OriginatingSubCentre,
		MasterVersion:     msg.MasterTableVersion,
		LocalVersion:      msg.LocalTableVersion,
	}
	snap, err := store.Snapshot(version)
	if err != nil {
		return nil, &DecodeError{Kind: KindUnknownDescriptor, Cause: err}
	}

	ctx = engine.NewDecodeContext(snap, msg.NSubsets, msg.Compressed, payload)
	policy := selectDecodePolicy(snap, msg)

	if msg.Compressed {
		nodes, err := engine.Walk(ctx, policy, msg.Descriptors, engine.AllSubsets, nil)
		if err != nil {
			return nil, wrapDecodeErr(ctx, err)
		}
		if err := wiring.Verify(ctx.State); err != nil {
			return nil, wrapDecodeErr(ctx, err)
		}
		msg.Root.Children = nodes
	} else {
		for s := 0; s < msg.NSubsets; s++ {
			ctx.State = coder.New(false)
			nodes, err := engine.Walk(ctx, policy, msg.Descriptors, s, msg.Root.Children)
			if err != nil {
				return nil, wrapDecodeErr(ctx, err)
			}
			if err := wiring.Verify(ctx.State); err != nil {
				return nil, wrapDecodeErr(ctx, err)
			}
			msg.Root.Children = nodes
		}
	}

	pad := ctx.Reader.SkipPad()
	if pad != 0 {
		return nil, &DecodeError{Kind: KindExcessBits, Cause: Error("non-zero pad bits before section 4 end")}
	}
	if ctx.Reader.BitsRemaining() >= 8 {
		return nil, &DecodeError{Kind: KindExcessBits, Cause: Error("section 4 payload has unconsumed whole bytes")}
	}

	if rec, ok := policy.(*engine.RecorderPolicy); ok {
		snap.StoreTrace(traceKey(msg.Descriptors), rec.Trace)
	}

	return msg, nil
}

func wrapDecodeErr(ctx *engine.Context, err error) *DecodeError {
	byteOff, bitOff := ctx.Offset()
	de := &DecodeError{
		Kind:       classifyErr(err),
		Cause:      err,
		ByteOffset: byteOff,
		BitOffset:  bitOff,
		Trail:      ctx.Trail(),
	}
	if err == engine.ErrMissingAssocMeaning {
		// §9 Open Question: a 204YYY not immediately followed by 031021
		// is rejected rather than silently repaired (e.g. a 114000 that
		// was meant to be 116000). Report what the trail shows instead
		// of guessing.
		de.Diagnostic = "204YYY must be immediately followed by 031021; check for a transcribed sequence descriptor near " + trailString(de.Trail)
	}
	return de
}

func trailString(trail []descriptor.ID) string {
	var b strings.Builder
	for i, id := range trail {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(id.String())
	}
	return b.String()
}

func classifyErr(err error) ErrorKind {
	switch err {
	case engine.ErrUnbalancedOperator, engine.ErrMissingAssocMeaning:
		return KindUnbalancedOperator
	case engine.ErrBitmapMismatch, wiring.ErrUnresolvedMarkers:
		return KindBitmapMismatch
	case engine.ErrEncodeTypeMismatch:
		return KindEncodeTypeMismatch
	case engine.ErrStructureMismatch:
		return KindStructureMismatch
	default:
		return KindUnknownDescriptor
	}
}

func traceKey(ids []descriptor.ID) string {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id.String())
		b.WriteByte(',')
	}
	return b.String()
}

func selectDecodePolicy(snap *tables.Snapshot, msg *tree.Message) engine.Policy {
	key := traceKey(msg.Descriptors)
	if t, ok := snap.Trace(key); ok {
		return &engine.ReplayPolicy{Trace: t}
	}
	return &engine.RecorderPolicy{Trace: &tables.Trace{}}
}
