package hmm

import "errors"

// Sentinel errors for the fail-fast conditions of §7. HmmBreak is
// deliberately not one of these: a break latches the engine's Broken
// flag instead of returning an error, per the spec's error table.
var (
	// ErrNotStarted is returned when NextStep is called before Start.
	ErrNotStarted = errors.New("hmm: engine not started")

	// ErrAlreadyStarted is returned when Start is called twice on the
	// same engine instance.
	ErrAlreadyStarted = errors.New("hmm: engine already started")

	// ErrBrokenSequence is returned when NextStep is called on an
	// engine whose Broken latch is already set.
	ErrBrokenSequence = errors.New("hmm: sequence is broken")

	// ErrMissingEmission is returned when an emission-probability map
	// omits a candidate the caller listed for the current step.
	ErrMissingEmission = errors.New("hmm: missing emission probability for candidate")

	// ErrMissingInitialProbability is returned when an initial-state
	// probability map omits a listed state.
	ErrMissingInitialProbability = errors.New("hmm: missing initial probability for state")

	// ErrOutOfOrderUpdate is returned by k-State when an update carries
	// a sample earlier than the last retained one.
	ErrOutOfOrderUpdate = errors.New("hmm: out-of-order update")

	// ErrInconsistentUpdate is returned by k-State when a candidate's
	// predecessor is not present in the previous vector and registry.
	ErrInconsistentUpdate = errors.New("hmm: inconsistent update")

	// ErrHistoryUnavailable is returned when the message history is
	// queried on an engine that was not started with history enabled.
	ErrHistoryUnavailable = errors.New("hmm: message history not recorded")
)
