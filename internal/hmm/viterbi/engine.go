// Package viterbi implements the log-domain Viterbi decoder (§4.E):
// the most-likely-sequence recursion over a time-inhomogeneous HMM,
// with an optional embedded forward-backward smoother and an optional
// message-history trace for debugging.
package viterbi

import (
	"fmt"
	"math"

	"github.com/seanlee928/mapmatchingkit/internal/hmm"
	"github.com/seanlee928/mapmatchingkit/internal/hmm/forwardbackward"
)

type phase int

const (
	unstarted phase = iota
	running
	broken
)

// Engine is a single-use, single-threaded Viterbi decoder. Construct
// one with New per observation sequence; it must not be restarted once
// Start has been called.
type Engine[S comparable, O any, D any] struct {
	message  map[S]hmm.LogProb
	extended map[S]*hmm.CandidateNode[S, O, D]
	order    []S // defensive copy of the current step's iteration order

	historyEnabled bool
	history        []map[S]hmm.LogProb

	smoothingEnabled bool
	fb               *forwardbackward.Engine[S]

	phase phase
}

// New returns an unstarted engine.
func New[S comparable, O any, D any]() *Engine[S, O, D] {
	return &Engine[S, O, D]{phase: unstarted}
}

// EnableMessageHistory turns on message-history recording. It must be
// called before Start.
func (e *Engine[S, O, D]) EnableMessageHistory() error {
	if e.phase != unstarted {
		return hmm.ErrAlreadyStarted
	}
	e.historyEnabled = true
	return nil
}

// EnableSmoothing attaches an embedded forward-backward engine so that
// ComputeMostLikelySequence also fills in smoothing probabilities. It
// must be called before Start.
func (e *Engine[S, O, D]) EnableSmoothing() error {
	if e.phase != unstarted {
		return hmm.ErrAlreadyStarted
	}
	e.smoothingEnabled = true
	e.fb = forwardbackward.New[S]()
	return nil
}

// Start seeds the forward message directly from a map of initial
// log-probabilities and creates one back-pointer-free candidate node
// per state.
func (e *Engine[S, O, D]) Start(states []S, initialLogProbs map[S]hmm.LogProb) error {
	if e.phase != unstarted {
		return hmm.ErrAlreadyStarted
	}
	var zeroObs O
	var zeroDesc D
	message := make(map[S]hmm.LogProb, hmm.InitialCapacityHint(len(states)))
	extended := make(map[S]*hmm.CandidateNode[S, O, D], hmm.InitialCapacityHint(len(states)))
	for _, s := range states {
		lp, ok := initialLogProbs[s]
		if !ok {
			return fmt.Errorf("viterbi: %w: %v", hmm.ErrMissingInitialProbability, s)
		}
		message[s] = lp
		extended[s] = hmm.NewCandidateNode[S, O, D](s, nil, zeroObs, zeroDesc)
	}
	return e.commitStart(states, message, extended)
}

// StartWithEmissions seeds the forward message from emission
// log-probabilities for the given observation, binding the
// observation into every candidate node it creates.
func (e *Engine[S, O, D]) StartWithEmissions(obs O, candidates []S, emissionLogProbs map[S]hmm.LogProb) error {
	if e.phase != unstarted {
		return hmm.ErrAlreadyStarted
	}
	var zeroDesc D
	message := make(map[S]hmm.LogProb, hmm.InitialCapacityHint(len(candidates)))
	extended := make(map[S]*hmm.CandidateNode[S, O, D], hmm.InitialCapacityHint(len(candidates)))
	for _, s := range candidates {
		lp, ok := emissionLogProbs[s]
		if !ok {
			return fmt.Errorf("viterbi: %w: %v", hmm.ErrMissingEmission, s)
		}
		message[s] = lp
		extended[s] = hmm.NewCandidateNode[S, O, D](s, nil, obs, zeroDesc)
	}
	return e.commitStart(candidates, message, extended)
}

func (e *Engine[S, O, D]) commitStart(states []S, message map[S]hmm.LogProb, extended map[S]*hmm.CandidateNode[S, O, D]) error {
	e.order = append([]S(nil), states...)
	e.message = message
	e.extended = extended
	e.phase = running
	if e.historyEnabled {
		e.history = append(e.history, copyLog(message))
	}
	if e.smoothingEnabled {
		if err := e.fb.Start(states, hmm.LogToLinear(message)); err != nil {
			return fmt.Errorf("viterbi: %w", err)
		}
	}
	if hmm.IsBreak(message) {
		e.phase = broken
	}
	return nil
}

// NextStep advances the decoder by one observation. candidates and
// their transitions must be supplied in a stable iteration order:
// ties in the max-score computation are broken in favor of the first
// predecessor encountered in that order. transitionDescriptors may be
// nil, in which case every transition uses the zero value of D.
func (e *Engine[S, O, D]) NextStep(
	obs O,
	candidates []S,
	emissionLogProbs map[S]hmm.LogProb,
	transitionLogProbs map[hmm.TransitionKey[S]]hmm.LogProb,
	transitionDescriptors map[hmm.TransitionKey[S]]D,
) error {
	switch e.phase {
	case unstarted:
		return hmm.ErrNotStarted
	case broken:
		return hmm.ErrBrokenSequence
	}

	newMessage := make(map[S]hmm.LogProb, hmm.InitialCapacityHint(len(candidates)))
	newExtended := make(map[S]*hmm.CandidateNode[S, O, D], hmm.InitialCapacityHint(len(candidates)))

	for _, cur := range candidates {
		bestScore := hmm.NegInf
		var bestPrev S
		for _, prev := range e.order {
			transLog := hmm.NegInf
			if v, ok := transitionLogProbs[hmm.TransitionKey[S]{From: prev, To: cur}]; ok {
				transLog = v
			}
			score := e.message[prev] + transLog
			if score > bestScore {
				bestScore = score
				bestPrev = prev
			}
		}

		emissionLog, ok := emissionLogProbs[cur]
		if !ok {
			return fmt.Errorf("viterbi: %w: %v", hmm.ErrMissingEmission, cur)
		}
		newMessage[cur] = bestScore + emissionLog

		if bestScore > hmm.NegInf {
			var descriptor D
			if transitionDescriptors != nil {
				if d, ok := transitionDescriptors[hmm.TransitionKey[S]{From: bestPrev, To: cur}]; ok {
					descriptor = d
				}
			}
			newExtended[cur] = hmm.NewCandidateNode[S, O, D](cur, e.extended[bestPrev], obs, descriptor)
		}
	}

	if hmm.IsBreak(newMessage) {
		e.phase = broken
		return nil
	}

	e.message = newMessage
	e.extended = newExtended
	e.order = append([]S(nil), candidates...)

	if e.historyEnabled {
		e.history = append(e.history, copyLog(newMessage))
	}
	if e.smoothingEnabled {
		if err := forwardbackward.NextStep(e.fb, obs, candidates, hmm.LogToLinear(emissionLogProbs), linearizeTransitions(transitionLogProbs)); err != nil {
			return fmt.Errorf("viterbi: %w", err)
		}
	}
	return nil
}

// IsBroken reports whether the sequence has latched broken. Once true
// it remains true for the lifetime of this engine instance.
func (e *Engine[S, O, D]) IsBroken() bool {
	return e.phase == broken
}

// MessageHistory returns every forward message recorded so far, in
// chronological order. It fails unless EnableMessageHistory was called
// before Start.
func (e *Engine[S, O, D]) MessageHistory() ([]map[S]hmm.LogProb, error) {
	if !e.historyEnabled {
		return nil, hmm.ErrHistoryUnavailable
	}
	return e.history, nil
}

// ComputeMostLikelySequence returns the most likely state sequence
// given every observation processed so far. It returns an empty slice
// if the engine was never started, or if it broke immediately at step
// zero. After a later break it returns the best path up to the step
// before the break, per §7's HmmBreak policy. Calling it twice without
// an intervening NextStep returns equal results.
func (e *Engine[S, O, D]) ComputeMostLikelySequence() ([]hmm.SequenceState[S, O, D], error) {
	// A break at step zero leaves the broken start message in place
	// (later breaks keep the last good one), so this covers both cases.
	if e.phase == unstarted || len(e.order) == 0 || hmm.IsBreak(e.message) {
		return nil, nil
	}

	var last S
	bestVal := hmm.NegInf
	found := false
	for _, s := range e.order {
		v := e.message[s]
		if !found || v > bestVal {
			bestVal, last, found = v, s, true
		}
	}
	if !found {
		return nil, nil
	}

	node := e.extended[last]
	if node == nil {
		return nil, nil
	}

	var chainNewestFirst []*hmm.CandidateNode[S, O, D]
	for c := node; c != nil; c = c.Back {
		chainNewestFirst = append(chainNewestFirst, c)
	}
	n := len(chainNewestFirst)
	result := make([]hmm.SequenceState[S, O, D], n)
	for i, c := range chainNewestFirst {
		result[n-1-i] = hmm.NewSequenceState[S, O, D](c.State, c.Observation, c.Descriptor)
	}

	if e.smoothingEnabled {
		if gammas, err := e.fb.ComputeSmoothingProbabilities(); err == nil && len(gammas) == n {
			for i := range result {
				if g, ok := gammas[i][result[i].State]; ok {
					result[i] = result[i].WithSmoothingProbability(g)
				}
			}
		}
	}
	return result, nil
}

func copyLog[S comparable](m map[S]hmm.LogProb) map[S]hmm.LogProb {
	out := make(map[S]hmm.LogProb, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func linearizeTransitions[S comparable](m map[hmm.TransitionKey[S]]hmm.LogProb) map[hmm.TransitionKey[S]]float64 {
	out := make(map[hmm.TransitionKey[S]]float64, len(m))
	for k, v := range m {
		out[k] = math.Exp(v)
	}
	return out
}
