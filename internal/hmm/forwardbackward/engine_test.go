package forwardbackward

import (
	"math"
	"testing"

	"github.com/seanlee928/mapmatchingkit/internal/hmm"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestEngineTwoStateSmoothing(t *testing.T) {
	e := New[string]()
	states := []string{"A", "B"}
	if err := e.Start(states, map[string]float64{"A": 0.6, "B": 0.4}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	trans := map[hmm.TransitionKey[string]]float64{
		hmm.NewTransitionKey("A", "A"): 0.7,
		hmm.NewTransitionKey("A", "B"): 0.3,
		hmm.NewTransitionKey("B", "A"): 0.4,
		hmm.NewTransitionKey("B", "B"): 0.6,
	}
	emissions := map[string]float64{"A": 0.9, "B": 0.2}
	if err := NextStep[string, struct{}](e, struct{}{}, states, emissions, trans); err != nil {
		t.Fatalf("NextStep: %v", err)
	}

	gammas, err := e.ComputeSmoothingProbabilities()
	if err != nil {
		t.Fatalf("ComputeSmoothingProbabilities: %v", err)
	}
	if len(gammas) != 2 {
		t.Fatalf("len(gammas) = %d, want 2", len(gammas))
	}
	for i, g := range gammas {
		var sum float64
		for _, v := range g {
			sum += v
		}
		if !almostEqual(sum, 1.0, 1e-9) {
			t.Errorf("step %d: smoothing probabilities sum to %v, want 1", i, sum)
		}
	}
}

func TestEngineMissingInitialProbability(t *testing.T) {
	e := New[string]()
	err := e.Start([]string{"A", "B"}, map[string]float64{"A": 1.0})
	if err == nil {
		t.Fatal("expected an error for a missing initial probability")
	}
}

func TestEngineNextStepBeforeStart(t *testing.T) {
	e := New[string]()
	err := NextStep[string, struct{}](e, struct{}{}, []string{"A"}, map[string]float64{"A": 1}, nil)
	if err == nil {
		t.Fatal("expected an error calling NextStep before Start")
	}
}

func TestEngineMissingTransitionContributesZero(t *testing.T) {
	e := New[string]()
	if err := e.Start([]string{"A", "B"}, map[string]float64{"A": 1.0, "B": 0.0}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// No transition into B is supplied, so alpha(B) should come out to
	// zero regardless of B's emission.
	trans := map[hmm.TransitionKey[string]]float64{
		hmm.NewTransitionKey("A", "A"): 1.0,
	}
	if err := NextStep[string, struct{}](e, struct{}{}, []string{"A", "B"}, map[string]float64{"A": 1, "B": 1}, trans); err != nil {
		t.Fatalf("NextStep: %v", err)
	}
	gammas, err := e.ComputeSmoothingProbabilities()
	if err != nil {
		t.Fatalf("ComputeSmoothingProbabilities: %v", err)
	}
	if got := gammas[1]["B"]; got != 0 {
		t.Errorf("gammas[1][B] = %v, want 0", got)
	}
}
