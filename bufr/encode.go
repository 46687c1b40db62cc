package bufr

import (
	"github.com/dsnet/bufr/bitio"
	"github.com/dsnet/bufr/coder"
	"github.com/dsnet/bufr/engine"
	"github.com/dsnet/bufr/tables"
	"github.com/dsnet/bufr/tree"
)

// Encode implements spec.md §6.3's encode(message_tree) -> bytes,
// consuming the hierarchical data tree in template (flat) order —
// Wiring's round-trip invariant (§4.6: "encode therefore consumes the
// hierarchical tree but emits its leaves in template order") — and
// re-assembling sections 0-5 around the written payload.
func Encode(store tables.Store, msg *tree.Message) (buf []byte, err error) {
	defer errRecover(&err)

	version := tables.Version{
		MasterTable:       msg.MasterTable,
		OriginatingCentre: msg.OriginatingCentre,
		LocalTable:        msg.OriginatingSubCentre,
		MasterVersion:     msg.MasterTableVersion,
		LocalVersion:      msg.LocalTableVersion,
	}
	snap, err := store.Snapshot(version)
	if err != nil {
		return nil, &EncodeError{Kind: KindUnknownDescriptor, Cause: err}
	}

	w := bitio.NewWriter()
	ctx := engine.NewEncodeContext(snap, msg.NSubsets, msg.Compressed, w)
	policy := engine.EncodePolicy{}

	if msg.Compressed {
		if _, err := engine.Walk(ctx, policy, msg.Descriptors, engine.AllSubsets, msg.Root.Children); err != nil {
			return nil, wrapEncodeErr(ctx, err)
		}
	} else {
		for s := 0; s < msg.NSubsets; s++ {
			ctx.State = coder.New(false)
			if _, err := engine.Walk(ctx, policy, msg.Descriptors, s, msg.Root.Children); err != nil {
				return nil, wrapEncodeErr(ctx, err)
			}
		}
	}
	w.Pad()
	payload := w.Bytes()

	out := writeSection0(out0(), msg.Edition)
	out = writeSection1(out, msg)
	out = writeSection3(out, msg)

	sec4Start := len(out)
	out = append(out, 0, 0, 0, 0) // length + reserved placeholder
	out = append(out, payload...)
	putUint24(out[sec4Start:sec4Start+3], len(out)-sec4Start)

	out = append(out, "7777"...)

	putUint24(out[4:7], len(out))
	return out, nil
}

func out0() []byte { return make([]byte, 0, 64) }

func wrapEncodeErr(ctx *engine.Context, err error) *EncodeError {
	return &EncodeError{Kind: classifyErr(err), Cause: err, Trail: ctx.Trail()}
}
