package hmm

import (
	"reflect"
	"testing"
)

func TestCandidateNodePath(t *testing.T) {
	root := NewCandidateNode[string, int, string]("A", nil, 0, "")
	mid := NewCandidateNode[string, int, string]("B", root, 1, "A->B")
	leaf := NewCandidateNode[string, int, string]("C", mid, 2, "B->C")

	got := leaf.Path()
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Path() = %v, want %v", got, want)
	}
}

func TestCandidateNodePathNil(t *testing.T) {
	var n *CandidateNode[string, int, string]
	if got := n.Path(); got != nil {
		t.Errorf("Path() on nil node = %v, want nil", got)
	}
}

func TestTransitionKeyEquality(t *testing.T) {
	a := NewTransitionKey("x", "y")
	b := NewTransitionKey("x", "y")
	c := NewTransitionKey("y", "x")
	if a != b {
		t.Errorf("equal keys compared unequal: %v != %v", a, b)
	}
	if a == c {
		t.Errorf("reversed keys compared equal: %v == %v", a, c)
	}
	m := map[TransitionKey[string]]int{a: 1}
	if _, ok := m[b]; !ok {
		t.Errorf("key %v not found via equal value %v", a, b)
	}
}

func TestSequenceStateSmoothing(t *testing.T) {
	s := NewSequenceState[string, int, string]("A", 1, "")
	if s.HasSmoothingProbability() {
		t.Errorf("fresh sequence state reports HasSmoothingProbability = true")
	}
	s2 := s.WithSmoothingProbability(0.75)
	if !s2.HasSmoothingProbability() {
		t.Errorf("WithSmoothingProbability did not mark HasSmoothingProbability")
	}
	if s2.SmoothingProbability != 0.75 {
		t.Errorf("SmoothingProbability = %v, want 0.75", s2.SmoothingProbability)
	}
	if s.HasSmoothingProbability() {
		t.Errorf("WithSmoothingProbability mutated the receiver")
	}
}
