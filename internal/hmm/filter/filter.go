// Package filter implements the online HMM filter (§4.F): a
// per-sample posterior update over candidate states, driven by two
// caller-supplied oracles (candidate generation with emissions, and
// pairwise transitions) instead of subclassing. The inference loop
// itself is concrete; only the oracles vary between callers.
package filter

import (
	"math"

	"github.com/seanlee928/mapmatchingkit/internal/hmm"
)

// CandidateEmission is one candidate state paired with its
// linear-domain emission probability.
type CandidateEmission[C any] struct {
	Candidate C
	Emission  float64
}

// TransitionResult is one pairwise transition: its opaque payload and
// its linear-domain probability. A probability of 0 means "no
// transition".
type TransitionResult[T any] struct {
	Object      T
	Probability float64
}

// PredecessorPoint pairs a candidate with the sample it was observed
// at, which is what the transition oracle is keyed on.
type PredecessorPoint[C any, Sample any] struct {
	Sample    Sample
	Candidate C
}

// StateCandidate is one candidate of the online filter: its filter
// probability (linear, normalized across the current vector once
// Execute returns), its running sequence log-probability (base 10,
// unnormalized), and the predecessor/transition it was reached
// through, if any.
type StateCandidate[C any, T any] struct {
	Candidate              C
	FilterProbability      float64
	SequenceLogProbability float64
	Predecessor            *StateCandidate[C, T]
	Transition             *T
}

// CandidatesFunc produces the candidate set for a sample given the
// previous step's surviving candidates.
type CandidatesFunc[C any, T any, Sample any] func(predecessors []*StateCandidate[C, T], sample Sample) ([]CandidateEmission[C], error)

// TransitionFunc computes the transition between one predecessor point
// and one current point.
type TransitionFunc[C any, T any, Sample any] func(prev, cur PredecessorPoint[C, Sample]) (T, float64)

// TransitionsFunc computes transitions in bulk; the default formed from
// TransitionFunc is the full cross product of predecessors × candidates.
type TransitionsFunc[C comparable, T any, Sample any] func(predecessors []PredecessorPoint[C, Sample], candidates []PredecessorPoint[C, Sample]) (map[hmm.TransitionKey[C]]TransitionResult[T], error)

// Config bundles the two required oracles and the optional bulk
// transitions override. Candidates is required; either Transition or
// Transitions must be set.
type Config[C comparable, T any, Sample any] struct {
	Candidates  CandidatesFunc[C, T, Sample]
	Transition  TransitionFunc[C, T, Sample]
	Transitions TransitionsFunc[C, T, Sample]
}

// Filter is the concrete inference loop that executes one sample at a
// time against a Config's oracles.
type Filter[C comparable, T any, Sample any] struct {
	cfg Config[C, T, Sample]
}

// New builds a Filter from cfg.
func New[C comparable, T any, Sample any](cfg Config[C, T, Sample]) *Filter[C, T, Sample] {
	return &Filter[C, T, Sample]{cfg: cfg}
}

// Execute runs one filter step (§4.F). previousSample is the sample
// the predecessors were computed for; sample is the current one.
func (f *Filter[C, T, Sample]) Execute(predecessors []*StateCandidate[C, T], previousSample, sample Sample) ([]*StateCandidate[C, T], error) {
	emissions, err := f.cfg.Candidates(predecessors, sample)
	if err != nil {
		return nil, err
	}

	if len(predecessors) > 0 {
		transitions, err := f.transitions(predecessors, previousSample, emissions, sample)
		if err != nil {
			return nil, err
		}

		survivors := make([]*StateCandidate[C, T], 0, len(emissions))
		var sum float64
		for _, ce := range emissions {
			c := &StateCandidate[C, T]{Candidate: ce.Candidate, SequenceLogProbability: hmm.NegInf}
			for _, p := range predecessors {
				tr, ok := transitions[hmm.TransitionKey[C]{From: p.Candidate, To: ce.Candidate}]
				if !ok || tr.Probability == 0 {
					continue
				}
				c.FilterProbability += tr.Probability * p.FilterProbability

				seq := p.SequenceLogProbability + math.Log10(tr.Probability) + math.Log10(ce.Emission)
				if seq > c.SequenceLogProbability {
					c.Predecessor = p
					object := tr.Object
					c.Transition = &object
					c.SequenceLogProbability = seq
				}
			}
			if c.FilterProbability == 0 {
				continue
			}
			c.FilterProbability *= ce.Emission
			sum += c.FilterProbability
			survivors = append(survivors, c)
		}

		if len(survivors) > 0 {
			normalize(survivors, sum)
			return survivors, nil
		}
		// No candidate survived with a predecessor: fall through to
		// the break-recovery path below, exactly as if predecessors
		// had been empty to begin with.
	}

	survivors := make([]*StateCandidate[C, T], 0, len(emissions))
	var sum float64
	for _, ce := range emissions {
		if ce.Emission == 0 {
			continue
		}
		c := &StateCandidate[C, T]{
			Candidate:              ce.Candidate,
			FilterProbability:      ce.Emission,
			SequenceLogProbability: math.Log10(ce.Emission),
		}
		sum += c.FilterProbability
		survivors = append(survivors, c)
	}
	normalize(survivors, sum)
	return survivors, nil
}

func (f *Filter[C, T, Sample]) transitions(predecessors []*StateCandidate[C, T], previousSample Sample, emissions []CandidateEmission[C], sample Sample) (map[hmm.TransitionKey[C]]TransitionResult[T], error) {
	prevPoints := make([]PredecessorPoint[C, Sample], len(predecessors))
	for i, p := range predecessors {
		prevPoints[i] = PredecessorPoint[C, Sample]{Sample: previousSample, Candidate: p.Candidate}
	}
	curPoints := make([]PredecessorPoint[C, Sample], len(emissions))
	for i, ce := range emissions {
		curPoints[i] = PredecessorPoint[C, Sample]{Sample: sample, Candidate: ce.Candidate}
	}

	if f.cfg.Transitions != nil {
		return f.cfg.Transitions(prevPoints, curPoints)
	}

	out := make(map[hmm.TransitionKey[C]]TransitionResult[T], hmm.InitialCapacityHint(len(prevPoints)*len(curPoints)))
	for _, p := range prevPoints {
		for _, c := range curPoints {
			object, prob := f.cfg.Transition(p, c)
			out[hmm.TransitionKey[C]{From: p.Candidate, To: c.Candidate}] = TransitionResult[T]{Object: object, Probability: prob}
		}
	}
	return out, nil
}

func normalize[C any, T any](candidates []*StateCandidate[C, T], sum float64) {
	if sum <= 0 {
		return
	}
	for _, c := range candidates {
		c.FilterProbability /= sum
	}
}
