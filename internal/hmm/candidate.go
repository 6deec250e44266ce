package hmm

// CandidateNode is one state at one time step of the Viterbi engine's
// back-pointer DAG: the state itself, the predecessor it was reached
// through (nil only at t=0 or immediately after a break), the
// observation bound to this step, and the transition descriptor that
// led here.
//
// A node is immutable once constructed. Ownership is shared through
// the Go garbage collector: a node stays alive for as long as any
// current-step candidate transitively points to it through Back, and
// is collected once nothing does. Cycles are impossible because Back
// always addresses a strictly earlier time step.
type CandidateNode[S comparable, O any, D any] struct {
	State       S
	Back        *CandidateNode[S, O, D]
	Observation O
	Descriptor  D
}

// NewCandidateNode constructs a node for state, extending back (which
// may be nil) through the given observation and descriptor.
func NewCandidateNode[S comparable, O any, D any](state S, back *CandidateNode[S, O, D], observation O, descriptor D) *CandidateNode[S, O, D] {
	return &CandidateNode[S, O, D]{
		State:       state,
		Back:        back,
		Observation: observation,
		Descriptor:  descriptor,
	}
}

// Path walks Back pointers from n to the root and returns the states
// in chronological order. It follows the same chain that
// Viterbi.ComputeMostLikelySequence walks (which does its own walk
// rather than calling Path) and is useful in tests and debug tooling.
func (n *CandidateNode[S, O, D]) Path() []S {
	if n == nil {
		return nil
	}
	var reverse []S
	for c := n; c != nil; c = c.Back {
		reverse = append(reverse, c.State)
	}
	path := make([]S, len(reverse))
	for i, s := range reverse {
		path[len(reverse)-1-i] = s
	}
	return path
}
