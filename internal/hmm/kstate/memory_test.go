package kstate

import (
	"testing"
	"time"

	"github.com/seanlee928/mapmatchingkit/internal/hmm/filter"
)

type testSample struct {
	at time.Time
}

func (s testSample) Timestamp() time.Time { return s.at }

func sampleAt(seconds int) testSample {
	return testSample{at: time.Unix(int64(seconds), 0)}
}

// TestPruningKeepsOnlyLastTwoSteps is scenario 5 of §8: kappa=1, three
// pushes of a two-candidate vector with a single winning chain; after
// the third update only the survivors of the last two steps remain and
// the new front's candidates are cut loose as sequence roots.
func TestPruningKeepsOnlyLastTwoSteps(t *testing.T) {
	m := New[string, string, testSample](1, UnboundedDuration)

	a1 := &filter.StateCandidate[string, string]{Candidate: "A1", SequenceLogProbability: -1}
	b1 := &filter.StateCandidate[string, string]{Candidate: "B1", SequenceLogProbability: -2}
	if err := m.Update([]*filter.StateCandidate[string, string]{a1, b1}, sampleAt(0)); err != nil {
		t.Fatalf("update 1: %v", err)
	}

	a2 := &filter.StateCandidate[string, string]{Candidate: "A2", Predecessor: a1, SequenceLogProbability: -1}
	b2 := &filter.StateCandidate[string, string]{Candidate: "B2", Predecessor: b1, SequenceLogProbability: -5}
	if err := m.Update([]*filter.StateCandidate[string, string]{a2, b2}, sampleAt(1)); err != nil {
		t.Fatalf("update 2: %v", err)
	}

	a3 := &filter.StateCandidate[string, string]{Candidate: "A3", Predecessor: a2, SequenceLogProbability: -1}
	b3 := &filter.StateCandidate[string, string]{Candidate: "B3", Predecessor: b2, SequenceLogProbability: -8}
	if err := m.Update([]*filter.StateCandidate[string, string]{a3, b3}, sampleAt(2)); err != nil {
		t.Fatalf("update 3: %v", err)
	}

	if got := m.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2 (front entry dropped)", got)
	}

	if _, ok := m.registry[a1]; ok {
		t.Errorf("registry still holds a step-0 candidate a1 after trim")
	}
	if _, ok := m.registry[b1]; ok {
		t.Errorf("registry still holds a step-0 candidate b1 after trim")
	}
	if _, ok := m.registry[a2]; !ok {
		t.Errorf("registry dropped a2, a surviving step-1 candidate")
	}

	if a2.Predecessor != nil {
		t.Errorf("a2.Predecessor = %v, want nil (new front becomes a root)", a2.Predecessor)
	}
	if b2.Predecessor != nil {
		t.Errorf("b2.Predecessor = %v, want nil (new front becomes a root)", b2.Predecessor)
	}
}

func TestUpdateRejectsOutOfOrderSample(t *testing.T) {
	m := New[string, string, testSample](UnboundedSteps, UnboundedDuration)
	a := &filter.StateCandidate[string, string]{Candidate: "A"}
	if err := m.Update([]*filter.StateCandidate[string, string]{a}, sampleAt(5)); err != nil {
		t.Fatalf("update 1: %v", err)
	}
	b := &filter.StateCandidate[string, string]{Candidate: "B"}
	err := m.Update([]*filter.StateCandidate[string, string]{b}, sampleAt(1))
	if err == nil {
		t.Fatal("expected an error for an out-of-order sample")
	}
}

func TestUpdateRejectsUnknownPredecessor(t *testing.T) {
	m := New[string, string, testSample](UnboundedSteps, UnboundedDuration)
	a := &filter.StateCandidate[string, string]{Candidate: "A"}
	if err := m.Update([]*filter.StateCandidate[string, string]{a}, sampleAt(0)); err != nil {
		t.Fatalf("update 1: %v", err)
	}
	stray := &filter.StateCandidate[string, string]{Candidate: "STRAY"}
	b := &filter.StateCandidate[string, string]{Candidate: "B", Predecessor: stray}
	err := m.Update([]*filter.StateCandidate[string, string]{b}, sampleAt(1))
	if err == nil {
		t.Fatal("expected an error for a predecessor outside the previous vector")
	}
}

func TestUpdateIsNoOpOnEmptyVector(t *testing.T) {
	m := New[string, string, testSample](UnboundedSteps, UnboundedDuration)
	if err := m.Update(nil, sampleAt(0)); err != nil {
		t.Fatalf("Update(nil, ...) = %v, want nil", err)
	}
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", m.Len())
	}
}

func TestEstimateUsesFilterProbability(t *testing.T) {
	m := New[string, string, testSample](UnboundedSteps, UnboundedDuration)
	a := &filter.StateCandidate[string, string]{Candidate: "A", FilterProbability: 0.3, SequenceLogProbability: -9}
	b := &filter.StateCandidate[string, string]{Candidate: "B", FilterProbability: 0.7, SequenceLogProbability: -1}
	if err := m.Update([]*filter.StateCandidate[string, string]{a, b}, sampleAt(0)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := m.Estimate(); got == nil || got.Candidate != "B" {
		t.Errorf("Estimate() = %v, want B (highest filter probability)", got)
	}
}

func TestSamplesIteratesChronologically(t *testing.T) {
	m := New[string, string, testSample](UnboundedSteps, UnboundedDuration)
	a := &filter.StateCandidate[string, string]{Candidate: "A"}
	b := &filter.StateCandidate[string, string]{Candidate: "B", Predecessor: a}
	if err := m.Update([]*filter.StateCandidate[string, string]{a}, sampleAt(0)); err != nil {
		t.Fatalf("update 1: %v", err)
	}
	if err := m.Update([]*filter.StateCandidate[string, string]{b}, sampleAt(1)); err != nil {
		t.Fatalf("update 2: %v", err)
	}

	var seconds []int
	for s := range m.Samples() {
		seconds = append(seconds, int(s.Timestamp().Unix()))
	}
	if len(seconds) != 2 || seconds[0] != 0 || seconds[1] != 1 {
		t.Fatalf("Samples() yielded %v, want [0 1]", seconds)
	}
}
