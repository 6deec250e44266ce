// Package forwardbackward implements the linear-domain forward-backward
// recursion (§4.D) that produces per-step smoothing posteriors for a
// time-inhomogeneous HMM. It keeps the full α-history of a sequence and
// only runs the β pass when ComputeSmoothingProbabilities is called.
package forwardbackward

import (
	"fmt"

	"github.com/seanlee928/mapmatchingkit/internal/hmm"
)

// step is one recorded time slice of the sequence: the candidate
// states in the caller's iteration order, the α values at this step,
// and — for every step after the first — the emission and transition
// probabilities that were used to compute it, which the β pass walks
// back over.
type step[S comparable] struct {
	states     []S
	alpha      map[S]float64
	emission   map[S]float64
	transition map[hmm.TransitionKey[S]]float64
}

// Engine runs the forward-backward recursion over a sequence of
// candidate sets whose state alphabet may change at every step.
type Engine[S comparable] struct {
	steps   []step[S]
	started bool
}

// New returns an unstarted engine.
func New[S comparable]() *Engine[S] {
	return &Engine[S]{}
}

// Start seeds α₀ directly from the initial-state probabilities.
func (e *Engine[S]) Start(states []S, initialProbs map[S]float64) error {
	if e.started {
		return hmm.ErrAlreadyStarted
	}
	alpha, err := seedAlpha(states, initialProbs)
	if err != nil {
		return fmt.Errorf("forwardbackward: %w", err)
	}
	e.steps = append(e.steps, step[S]{states: append([]S(nil), states...), alpha: alpha})
	e.started = true
	return nil
}

// StartWithEmissions seeds α₀ = emissionProbs(candidates). The
// observation plays no role in the linear-domain recursion itself; it
// is accepted only so this call is shaped like the candidate
// generation contract the Viterbi engine shares with it. It is a free
// function, not a method, because Go methods cannot add type
// parameters beyond the receiver's.
func StartWithEmissions[S comparable, O any](e *Engine[S], obs O, candidates []S, emissionProbs map[S]float64) error {
	_ = obs
	if e.started {
		return hmm.ErrAlreadyStarted
	}
	for _, s := range candidates {
		if _, ok := emissionProbs[s]; !ok {
			return fmt.Errorf("forwardbackward: %w: %v", hmm.ErrMissingEmission, s)
		}
	}
	alpha, err := seedAlpha(candidates, emissionProbs)
	if err != nil {
		return fmt.Errorf("forwardbackward: %w", err)
	}
	e.steps = append(e.steps, step[S]{states: append([]S(nil), candidates...), alpha: alpha})
	e.started = true
	return nil
}

func seedAlpha[S comparable](states []S, probs map[S]float64) (map[S]float64, error) {
	alpha := make(map[S]float64, hmm.InitialCapacityHint(len(states)))
	for _, s := range states {
		p, ok := probs[s]
		if !ok {
			return nil, fmt.Errorf("%w: %v", hmm.ErrMissingInitialProbability, s)
		}
		alpha[s] = p
	}
	return alpha, nil
}

// NextStep advances the recursion by one observation:
//
//	α_t(s) = emissionProbs(s) · Σ_s' α_{t-1}(s') · transitionProbs(s'→s)
//
// A transition absent from transitionProbs contributes 0. The
// observation is retained only for signature parity with the
// candidate-generation contract, same as StartWithEmissions.
func NextStep[S comparable, O any](e *Engine[S], obs O, candidates []S, emissionProbs map[S]float64, transitionProbs map[hmm.TransitionKey[S]]float64) error {
	_ = obs
	if !e.started {
		return hmm.ErrNotStarted
	}
	prev := e.steps[len(e.steps)-1]
	alpha := make(map[S]float64, hmm.InitialCapacityHint(len(candidates)))
	for _, cur := range candidates {
		var sum float64
		for _, p := range prev.states {
			trans, ok := transitionProbs[hmm.TransitionKey[S]{From: p, To: cur}]
			if !ok || trans == 0 {
				continue
			}
			sum += prev.alpha[p] * trans
		}
		emission, ok := emissionProbs[cur]
		if !ok {
			return fmt.Errorf("forwardbackward: %w: %v", hmm.ErrMissingEmission, cur)
		}
		alpha[cur] = emission * sum
	}
	e.steps = append(e.steps, step[S]{
		states:     append([]S(nil), candidates...),
		alpha:      alpha,
		emission:   copyMap(emissionProbs),
		transition: copyTransitionMap(transitionProbs),
	})
	return nil
}

// ComputeSmoothingProbabilities runs the backward pass and returns,
// for every recorded step in chronological order, the normalized
// posterior γ_t(s) ∝ α_t(s) · β_t(s). Its length equals the number of
// steps recorded so far (Start counts as step 0).
func (e *Engine[S]) ComputeSmoothingProbabilities() ([]map[S]float64, error) {
	if !e.started {
		return nil, hmm.ErrNotStarted
	}
	n := len(e.steps)
	betas := make([]map[S]float64, n)
	last := e.steps[n-1]
	beta := make(map[S]float64, len(last.states))
	for _, s := range last.states {
		beta[s] = 1
	}
	betas[n-1] = beta

	for t := n - 2; t >= 0; t-- {
		cur := e.steps[t]
		next := e.steps[t+1]
		nextBeta := betas[t+1]
		beta = make(map[S]float64, len(cur.states))
		for _, s := range cur.states {
			var sum float64
			for _, sNext := range next.states {
				trans, ok := next.transition[hmm.TransitionKey[S]{From: s, To: sNext}]
				if !ok || trans == 0 {
					continue
				}
				sum += trans * next.emission[sNext] * nextBeta[sNext]
			}
			beta[s] = sum
		}
		betas[t] = beta
	}

	gammas := make([]map[S]float64, n)
	for t, st := range e.steps {
		gamma := make(map[S]float64, len(st.states))
		var total float64
		for _, s := range st.states {
			v := st.alpha[s] * betas[t][s]
			gamma[s] = v
			total += v
		}
		if total > 0 {
			for s := range gamma {
				gamma[s] /= total
			}
		}
		gammas[t] = gamma
	}
	return gammas, nil
}

func copyMap[S comparable](m map[S]float64) map[S]float64 {
	out := make(map[S]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTransitionMap[S comparable](m map[hmm.TransitionKey[S]]float64) map[hmm.TransitionKey[S]]float64 {
	out := make(map[hmm.TransitionKey[S]]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
