package hmmapi

import (
	"errors"
	"fmt"

	"github.com/seanlee928/mapmatchingkit/internal/hmm"
	"github.com/seanlee928/mapmatchingkit/internal/hmm/estimator"
	"github.com/seanlee928/mapmatchingkit/internal/hmm/filter"
	"github.com/seanlee928/mapmatchingkit/internal/hmmconfig"
)

// StreamDecodeRequest is a full observation sequence to run through the
// online filter and k-State memory instead of the batch Viterbi engine
// (§4.F/§4.G). It reuses StepRequest so both decode paths accept the
// same wire shape. KappaSteps and TauSeconds bound retention exactly
// as hmmconfig.HMMConfig does: KappaSteps < 0 is unbounded length,
// TauSeconds <= 0 is unbounded span.
type StreamDecodeRequest struct {
	Steps      []StepRequest `json:"steps" binding:"required,min=1"`
	KappaSteps int           `json:"kappa_steps"`
	TauSeconds int           `json:"tau_seconds"`
}

// StreamStateResult is one reconstructed entry of StreamDecodeResponse.
type StreamStateResult struct {
	State string `json:"state"`
	Fix   Fix    `json:"fix"`
}

// StreamDecodeResponse is the k-State memory's reconstructed chain plus
// the current step's highest-filter-probability estimate.
type StreamDecodeResponse struct {
	States   []StreamStateResult `json:"states"`
	Estimate string              `json:"estimate,omitempty"`
}

type streamingStep struct {
	candidates  []filter.CandidateEmission[string]
	transitions map[hmm.TransitionKey[string]]filter.TransitionResult[string]
}

func buildStreamingSteps(steps []StepRequest) ([]streamingStep, error) {
	out := make([]streamingStep, len(steps))
	for i, step := range steps {
		candidates := make([]filter.CandidateEmission[string], len(step.Candidates))
		for j, c := range step.Candidates {
			candidates[j] = filter.CandidateEmission[string]{Candidate: c, Emission: step.Emissions[c]}
		}

		transitions := make(map[hmm.TransitionKey[string]]filter.TransitionResult[string], len(step.Transitions))
		for key, prob := range step.Transitions {
			tk, err := parseTransitionKey(key)
			if err != nil {
				return nil, err
			}
			transitions[tk] = filter.TransitionResult[string]{Object: tk.To, Probability: prob}
		}

		out[i] = streamingStep{candidates: candidates, transitions: transitions}
	}
	return out, nil
}

// StreamDecode runs a full observation sequence through the online
// filter, retaining its output in bounded k-State memory, and returns
// the reconstructed chain plus the most recent step's estimate.
func StreamDecode(req StreamDecodeRequest) (StreamDecodeResponse, error) {
	if len(req.Steps) == 0 {
		return StreamDecodeResponse{}, errors.New("hmmapi: stream request has no steps")
	}

	stepsData, err := buildStreamingSteps(req.Steps)
	if err != nil {
		return StreamDecodeResponse{}, err
	}

	idx := 0
	cfg := filter.Config[string, string, Fix]{
		Candidates: func(_ []*filter.StateCandidate[string, string], _ Fix) ([]filter.CandidateEmission[string], error) {
			if idx >= len(stepsData) {
				return nil, fmt.Errorf("hmmapi: streaming filter called beyond %d steps", len(stepsData))
			}
			c := stepsData[idx].candidates
			idx++
			return c, nil
		},
		Transitions: func(_, _ []filter.PredecessorPoint[string, Fix]) (map[hmm.TransitionKey[string]]filter.TransitionResult[string], error) {
			return stepsData[idx-1].transitions, nil
		},
	}

	tau := hmmconfig.HMMConfig{TauSeconds: req.TauSeconds}.Tau()
	est := estimator.NewStreamingEstimator(cfg, req.KappaSteps, tau)

	for _, step := range req.Steps {
		if err := est.Update(step.Fix); err != nil {
			return StreamDecodeResponse{}, fmt.Errorf("hmmapi: %w", err)
		}
	}

	records := est.Result()
	states := make([]StreamStateResult, 0, len(records))
	for _, r := range records {
		if r.Candidate == "" {
			continue
		}
		states = append(states, StreamStateResult{State: r.Candidate, Fix: r.Sample})
	}

	resp := StreamDecodeResponse{States: states}
	if best := est.Estimate(); best != nil {
		resp.Estimate = best.Candidate
	}
	return resp, nil
}
