package tables

import "github.com/dsnet/bufr/descriptor"

// TraceAction is one resolved leaf action recorded during a dry-run
// walk, per §4.7: "(leaf_kind, elem_id, effective_nbits,
// effective_scale, effective_reference) tuples plus branch points".
type TraceAction struct {
	ElemID             descriptor.ID
	Kind               descriptor.Kind
	EffectiveNBits     int
	EffectiveScale     int
	EffectiveReference int64

	// Branch marks this action as a decision point where the
	// interpreted walk and the replay may diverge (a delayed
	// replication count read, or a bitmap definition/consumption).
	// The replay recomputes these live rather than trusting the trace.
	Branch bool
}

// Trace is the recorded sequence of leaf actions for one template,
// used by component H to skip descriptor lookup and operator
// interpretation between branch points on subsequent decodes of the
// same template (§4.7). A Trace is only valid for inputs that take the
// same delayed-replication/bitmap path recorded here; the engine falls
// back to an interpreted walk at the first divergence.
type Trace struct {
	Actions []TraceAction
}
