// Package estimator provides the two convenience drivers of §4.I: a
// batch estimator over the Viterbi engine (with optional
// forward-backward smoothing), and a streaming estimator over the
// online filter backed by k-State memory. Both simply wire together
// components from the other hmm packages; neither adds inference
// logic of its own.
package estimator

import (
	"time"

	"github.com/seanlee928/mapmatchingkit/internal/hmm"
	"github.com/seanlee928/mapmatchingkit/internal/hmm/filter"
	"github.com/seanlee928/mapmatchingkit/internal/hmm/kstate"
	"github.com/seanlee928/mapmatchingkit/internal/hmm/viterbi"
)

// BatchEstimator drives a viterbi.Engine over a full observation
// sequence. Its methods mirror the underlying engine directly; it adds
// nothing but a single owned instance.
type BatchEstimator[S comparable, O any, D any] struct {
	engine *viterbi.Engine[S, O, D]
}

// NewBatchEstimator returns a batch estimator. withSmoothing attaches
// an embedded forward-backward pass; withHistory records every message
// for later inspection.
func NewBatchEstimator[S comparable, O any, D any](withSmoothing, withHistory bool) (*BatchEstimator[S, O, D], error) {
	e := viterbi.New[S, O, D]()
	if withSmoothing {
		if err := e.EnableSmoothing(); err != nil {
			return nil, err
		}
	}
	if withHistory {
		if err := e.EnableMessageHistory(); err != nil {
			return nil, err
		}
	}
	return &BatchEstimator[S, O, D]{engine: e}, nil
}

// Start seeds the sequence from initial-state log-probabilities.
func (b *BatchEstimator[S, O, D]) Start(states []S, initialLogProbs map[S]hmm.LogProb) error {
	return b.engine.Start(states, initialLogProbs)
}

// StartWithEmissions seeds the sequence from the first observation's
// emission log-probabilities.
func (b *BatchEstimator[S, O, D]) StartWithEmissions(obs O, candidates []S, emissionLogProbs map[S]hmm.LogProb) error {
	return b.engine.StartWithEmissions(obs, candidates, emissionLogProbs)
}

// Update advances the sequence by one observation.
func (b *BatchEstimator[S, O, D]) Update(
	obs O,
	candidates []S,
	emissionLogProbs map[S]hmm.LogProb,
	transitionLogProbs map[hmm.TransitionKey[S]]hmm.LogProb,
	transitionDescriptors map[hmm.TransitionKey[S]]D,
) error {
	return b.engine.NextStep(obs, candidates, emissionLogProbs, transitionLogProbs, transitionDescriptors)
}

// Broken reports whether the underlying engine has latched broken.
func (b *BatchEstimator[S, O, D]) Broken() bool {
	return b.engine.IsBroken()
}

// Result returns the most likely sequence decoded so far.
func (b *BatchEstimator[S, O, D]) Result() ([]hmm.SequenceState[S, O, D], error) {
	return b.engine.ComputeMostLikelySequence()
}

// StreamingEstimator drives the online filter one sample at a time,
// retaining its output in bounded k-State memory. Unlike the batch
// estimator it needs no explicit Start: the first Update call passes
// an empty predecessor vector to the filter, which takes the
// break-recovery path of §4.F and so initializes itself.
type StreamingEstimator[S comparable, T any, Smpl kstate.Sample] struct {
	filter *filter.Filter[S, T, Smpl]
	memory *kstate.Memory[S, T, Smpl]

	hasLast    bool
	lastSample Smpl
}

// NewStreamingEstimator returns a streaming estimator backed by cfg's
// oracles, retaining at most kappa+1 steps spanning at most tau.
func NewStreamingEstimator[S comparable, T any, Smpl kstate.Sample](cfg filter.Config[S, T, Smpl], kappa int, tau time.Duration) *StreamingEstimator[S, T, Smpl] {
	return &StreamingEstimator[S, T, Smpl]{
		filter: filter.New(cfg),
		memory: kstate.New[S, T, Smpl](kappa, tau),
	}
}

// Update filters sample against the current memory vector and appends
// the result to the k-State memory.
func (s *StreamingEstimator[S, T, Smpl]) Update(sample Smpl) error {
	var predecessors []*filter.StateCandidate[S, T]
	var previousSample Smpl
	if s.hasLast {
		predecessors = s.memory.Vector()
		previousSample = s.lastSample
	}

	candidates, err := s.filter.Execute(predecessors, previousSample, sample)
	if err != nil {
		return err
	}
	if err := s.memory.Update(candidates, sample); err != nil {
		return err
	}
	s.lastSample = sample
	s.hasLast = true
	return nil
}

// Estimate returns the current vector's highest-filter-probability
// candidate.
func (s *StreamingEstimator[S, T, Smpl]) Estimate() *filter.StateCandidate[S, T] {
	return s.memory.Estimate()
}

// Result returns the most likely chain retained in memory, in
// chronological order.
func (s *StreamingEstimator[S, T, Smpl]) Result() []kstate.Record[S, T, Smpl] {
	return s.memory.Sequence()
}
