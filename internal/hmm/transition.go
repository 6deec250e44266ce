package hmm

// TransitionKey addresses one (previous, current) state pair. It is
// value-equal — two keys are equal iff both components are equal — so
// it can be used directly as a map key for transition probabilities
// and transition descriptors without a custom hash function; Go's
// built-in struct equality and map hashing already give us that for a
// comparable S.
type TransitionKey[S comparable] struct {
	From S
	To   S
}

// NewTransitionKey builds the key addressing the transition from prev
// to cur.
func NewTransitionKey[S comparable](prev, cur S) TransitionKey[S] {
	return TransitionKey[S]{From: prev, To: cur}
}
