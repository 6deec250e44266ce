package hmmapi

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/seanlee928/mapmatchingkit/internal/hmm"
	"github.com/seanlee928/mapmatchingkit/internal/hmm/viterbi"
	"github.com/seanlee928/mapmatchingkit/internal/util"
)

// StepRequest is one time step of a decode request. Candidates,
// Emissions and Transitions are exactly the pluggable-oracle outputs
// §6 describes — this service does not generate candidates itself, it
// only decodes whatever the caller already scored. Probabilities are
// linear-domain on the wire; the service converts to log domain
// internally.
type StepRequest struct {
	Fix                  Fix                `json:"fix"`
	Candidates           []string           `json:"candidates" binding:"required,min=1"`
	Emissions            map[string]float64 `json:"emissions" binding:"required"`
	Transitions          map[string]float64 `json:"transitions"`
	InitialProbabilities map[string]float64 `json:"initial_probabilities,omitempty"`
}

// DecodeRequest is a full observation sequence to decode.
type DecodeRequest struct {
	Steps           []StepRequest `json:"steps" binding:"required,min=1"`
	EnableSmoothing bool          `json:"enable_smoothing"`
}

// StateResult is one entry of a decoded sequence.
type StateResult struct {
	State                string   `json:"state"`
	SmoothingProbability *float64 `json:"smoothing_probability,omitempty"`
}

// DecodeResponse is the decoded sequence, in chronological order.
type DecodeResponse struct {
	States []StateResult `json:"states"`
	Broken bool          `json:"broken"`
}

const transitionKeySeparator = "->"

// transitionKey formats a transition map key the way the wire protocol
// expects: "from->to".
func transitionKey(from, to string) string {
	return from + transitionKeySeparator + to
}

func parseTransitionKey(key string) (hmm.TransitionKey[string], error) {
	from, to, ok := strings.Cut(key, transitionKeySeparator)
	if !ok {
		return hmm.TransitionKey[string]{}, fmt.Errorf("hmmapi: malformed transition key %q, want \"from%sto\"", key, transitionKeySeparator)
	}
	return hmm.NewTransitionKey(from, to), nil
}

func logMap(linear map[string]float64) map[string]hmm.LogProb {
	out := make(map[string]hmm.LogProb, len(linear))
	for k, v := range linear {
		out[k] = math.Log(v)
	}
	return out
}

func logTransitionMap(linear map[string]float64) (map[hmm.TransitionKey[string]]hmm.LogProb, error) {
	out := make(map[hmm.TransitionKey[string]]hmm.LogProb, len(linear))
	for k, v := range linear {
		tk, err := parseTransitionKey(k)
		if err != nil {
			return nil, err
		}
		out[tk] = math.Log(v)
	}
	return out, nil
}

// Decode runs a full observation sequence through the Viterbi engine
// and returns the most likely state sequence.
func Decode(req DecodeRequest) (DecodeResponse, error) {
	if len(req.Steps) == 0 {
		return DecodeResponse{}, errors.New("hmmapi: decode request has no steps")
	}

	engine := viterbi.New[string, Fix, string]()
	if req.EnableSmoothing {
		if err := engine.EnableSmoothing(); err != nil {
			return DecodeResponse{}, fmt.Errorf("hmmapi: %w", err)
		}
	}

	first := req.Steps[0]
	if len(first.InitialProbabilities) > 0 {
		if err := engine.Start(first.Candidates, logMap(first.InitialProbabilities)); err != nil {
			return DecodeResponse{}, fmt.Errorf("hmmapi: %w", err)
		}
	} else {
		if err := engine.StartWithEmissions(first.Fix, first.Candidates, logMap(first.Emissions)); err != nil {
			return DecodeResponse{}, fmt.Errorf("hmmapi: %w", err)
		}
	}

	for _, step := range req.Steps[1:] {
		transitionLogProbs, err := logTransitionMap(step.Transitions)
		if err != nil {
			return DecodeResponse{}, err
		}
		if err := engine.NextStep(step.Fix, step.Candidates, logMap(step.Emissions), transitionLogProbs, nil); err != nil {
			return DecodeResponse{}, fmt.Errorf("hmmapi: %w", err)
		}
	}

	sequence, err := engine.ComputeMostLikelySequence()
	if err != nil {
		return DecodeResponse{}, fmt.Errorf("hmmapi: %w", err)
	}

	resp := DecodeResponse{States: make([]StateResult, len(sequence)), Broken: engine.IsBroken()}
	for i, s := range sequence {
		r := StateResult{State: s.State}
		if s.HasSmoothingProbability() {
			r.SmoothingProbability = util.Ptr(s.SmoothingProbability)
		}
		resp.States[i] = r
	}
	return resp, nil
}
