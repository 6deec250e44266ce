package hmm

import "math"

// SequenceState is one immutable entry of a decoded sequence: the
// chosen state, the observation it was matched against, the
// transition descriptor that led to it (the zero value of D when
// there is no predecessor), and the forward-backward smoothing
// probability, which is NaN when smoothing was never enabled.
type SequenceState[S comparable, O any, D any] struct {
	State                S
	Observation          O
	TransitionDescriptor D
	SmoothingProbability float64
}

// NewSequenceState builds a sequence entry with smoothing disabled
// (SmoothingProbability = NaN).
func NewSequenceState[S comparable, O any, D any](state S, observation O, descriptor D) SequenceState[S, O, D] {
	return SequenceState[S, O, D]{
		State:                state,
		Observation:          observation,
		TransitionDescriptor: descriptor,
		SmoothingProbability: math.NaN(),
	}
}

// WithSmoothingProbability returns a copy of s with its smoothing
// probability set to p.
func (s SequenceState[S, O, D]) WithSmoothingProbability(p float64) SequenceState[S, O, D] {
	s.SmoothingProbability = p
	return s
}

// HasSmoothingProbability reports whether s carries a real (non-NaN)
// smoothing probability.
func (s SequenceState[S, O, D]) HasSmoothingProbability() bool {
	return !math.IsNaN(s.SmoothingProbability)
}
