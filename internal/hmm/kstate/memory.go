// Package kstate implements the bounded-history state memory (§4.G):
// a deque of candidate vectors produced by the online filter, retained
// for at most κ+1 time steps or a τ-duration window, with a
// reference-counted registry that prunes candidates no longer
// reachable from any surviving back-pointer chain.
package kstate

import (
	"fmt"
	"iter"
	"time"

	"github.com/seanlee928/mapmatchingkit/internal/hmm"
	"github.com/seanlee928/mapmatchingkit/internal/hmm/filter"
)

// UnboundedSteps disables the κ retention bound.
const UnboundedSteps = -1

// UnboundedDuration disables the τ retention bound.
const UnboundedDuration time.Duration = -1

// Sample is the timestamp protocol every sample pushed through Update
// must satisfy.
type Sample interface {
	Timestamp() time.Time
}

// Record is one reconstructed entry of Sequence: a candidate's state
// paired with the sample it was observed at and the transition that
// led to it (nil at a sequence root).
type Record[C any, T any, Smpl Sample] struct {
	Candidate  C
	Sample     Smpl
	Transition *T
}

type entry[C comparable, T any, Smpl Sample] struct {
	vector    []*filter.StateCandidate[C, T]
	sample    Smpl
	estimated *filter.StateCandidate[C, T]
}

// Memory is the k-State retention structure. Construct with New; it is
// not safe for concurrent use by multiple goroutines.
type Memory[C comparable, T any, Smpl Sample] struct {
	kappa int
	tau   time.Duration

	entries  []entry[C, T, Smpl]
	registry map[*filter.StateCandidate[C, T]]int
}

// New returns an empty memory bounded to the last kappa+1 steps (pass
// UnboundedSteps for no bound) spanning at most tau of observation
// time (pass UnboundedDuration for no bound).
func New[C comparable, T any, Smpl Sample](kappa int, tau time.Duration) *Memory[C, T, Smpl] {
	return &Memory[C, T, Smpl]{
		kappa:    kappa,
		tau:      tau,
		registry: make(map[*filter.StateCandidate[C, T]]int),
	}
}

// Update pushes a new candidate vector for sample (§4.G). It is a
// no-op on an empty vector. It fails if sample is older than the last
// recorded sample, or if a candidate's predecessor was not part of the
// previous vector.
func (m *Memory[C, T, Smpl]) Update(vector []*filter.StateCandidate[C, T], sample Smpl) error {
	if len(vector) == 0 {
		return nil
	}
	if n := len(m.entries); n > 0 {
		last := m.entries[n-1]
		if sample.Timestamp().Before(last.sample.Timestamp()) {
			return fmt.Errorf("kstate: %w", hmm.ErrOutOfOrderUpdate)
		}
	}

	var lastVector []*filter.StateCandidate[C, T]
	if n := len(m.entries); n > 0 {
		lastVector = m.entries[n-1].vector
	}

	for _, c := range vector {
		if _, ok := m.registry[c]; !ok {
			m.registry[c] = 0
		}
		if c.Predecessor == nil {
			continue
		}
		if !inVector(lastVector, c.Predecessor) {
			return fmt.Errorf("kstate: %w", hmm.ErrInconsistentUpdate)
		}
		if _, ok := m.registry[c.Predecessor]; !ok {
			return fmt.Errorf("kstate: %w", hmm.ErrInconsistentUpdate)
		}
		m.registry[c.Predecessor]++
	}

	estimated := argmaxBySequenceLogProbability(vector)
	newEntry := entry[C, T, Smpl]{vector: vector, sample: sample, estimated: estimated}

	if n := len(m.entries); n > 0 {
		lastIdx := n - 1
		last := m.entries[lastIdx]
		var zero []*filter.StateCandidate[C, T]
		for _, c := range last.vector {
			if m.registry[c] == 0 {
				zero = append(zero, c)
			}
		}
		// Ambiguous case (§9 open question): every candidate of the
		// last entry, including its own estimated, shows a zero
		// counter. Conservatively keep the entry untouched rather
		// than risk pruning the estimated tail.
		if len(zero) < len(last.vector) {
			for _, c := range zero {
				m.remove(c, lastIdx)
			}
		}
	}

	m.entries = append(m.entries, newEntry)
	m.trim()
	return nil
}

// remove drops candidate from entries[index] and the registry, unless
// it is that entry's estimated candidate. Dropping decrements its
// predecessor's counter, cascading into entries[index-1] when that
// counter reaches zero.
func (m *Memory[C, T, Smpl]) remove(candidate *filter.StateCandidate[C, T], index int) {
	if index < 0 || index >= len(m.entries) {
		return
	}
	e := &m.entries[index]
	if candidate == e.estimated {
		return
	}
	delete(m.registry, candidate)
	e.vector = removeFromSlice(e.vector, candidate)

	if candidate.Predecessor == nil {
		return
	}
	pred := candidate.Predecessor
	if _, ok := m.registry[pred]; !ok {
		return
	}
	m.registry[pred]--
	if m.registry[pred] <= 0 {
		m.remove(pred, index-1)
	}
}

// trim enforces the κ and τ retention bounds by popping the oldest
// entries, clearing their candidates from the registry, and cutting
// the new front entry's candidates loose from any predecessor so they
// become sequence roots.
func (m *Memory[C, T, Smpl]) trim() {
	popped := false
	for m.overLength() || m.overSpan() {
		if len(m.entries) <= 1 {
			break
		}
		front := m.entries[0]
		for _, c := range front.vector {
			delete(m.registry, c)
		}
		m.entries = m.entries[1:]
		popped = true
	}
	if popped && len(m.entries) > 0 {
		newFront := &m.entries[0]
		for _, c := range newFront.vector {
			c.Predecessor = nil
			c.Transition = nil
		}
	}
}

func (m *Memory[C, T, Smpl]) overLength() bool {
	return m.kappa >= 0 && len(m.entries) > m.kappa+1
}

func (m *Memory[C, T, Smpl]) overSpan() bool {
	if m.tau < 0 || len(m.entries) < 2 {
		return false
	}
	span := m.entries[len(m.entries)-1].sample.Timestamp().Sub(m.entries[0].sample.Timestamp())
	return span > m.tau
}

// Vector returns the most recent candidate vector, or nil if Update
// has never been called.
func (m *Memory[C, T, Smpl]) Vector() []*filter.StateCandidate[C, T] {
	if len(m.entries) == 0 {
		return nil
	}
	return m.entries[len(m.entries)-1].vector
}

// Estimate returns the most recent vector's highest-filter-probability
// candidate, distinct from the sequence-log-probability-based
// estimated candidate used for chain reconstruction.
func (m *Memory[C, T, Smpl]) Estimate() *filter.StateCandidate[C, T] {
	if len(m.entries) == 0 {
		return nil
	}
	return argmaxByFilterProbability(m.entries[len(m.entries)-1].vector)
}

// Sequence reconstructs the most likely chain by walking each entry's
// estimated candidate and its predecessor back from the last entry to
// the first, falling back to that step's own estimated candidate
// whenever the chain breaks. The result is in chronological order.
func (m *Memory[C, T, Smpl]) Sequence() []Record[C, T, Smpl] {
	n := len(m.entries)
	if n == 0 {
		return nil
	}
	nodes := make([]*filter.StateCandidate[C, T], n)
	nodes[n-1] = m.entries[n-1].estimated
	for i := n - 2; i >= 0; i-- {
		cur := nodes[i+1]
		if cur != nil && cur.Predecessor != nil {
			nodes[i] = cur.Predecessor
		} else {
			nodes[i] = m.entries[i].estimated
		}
	}

	result := make([]Record[C, T, Smpl], n)
	for i, node := range nodes {
		if node == nil {
			continue
		}
		result[i] = Record[C, T, Smpl]{
			Candidate:  node.Candidate,
			Sample:     m.entries[i].sample,
			Transition: node.Transition,
		}
	}
	return result
}

// Samples lazily yields every sample recorded in the memory, oldest
// first.
func (m *Memory[C, T, Smpl]) Samples() iter.Seq[Smpl] {
	return func(yield func(Smpl) bool) {
		for _, e := range m.entries {
			if !yield(e.sample) {
				return
			}
		}
	}
}

// Len reports how many time steps are currently retained.
func (m *Memory[C, T, Smpl]) Len() int {
	return len(m.entries)
}

func inVector[C comparable, T any](vector []*filter.StateCandidate[C, T], c *filter.StateCandidate[C, T]) bool {
	for _, v := range vector {
		if v == c {
			return true
		}
	}
	return false
}

func removeFromSlice[C comparable, T any](vector []*filter.StateCandidate[C, T], c *filter.StateCandidate[C, T]) []*filter.StateCandidate[C, T] {
	out := vector[:0:0]
	for _, v := range vector {
		if v != c {
			out = append(out, v)
		}
	}
	return out
}

func argmaxBySequenceLogProbability[C comparable, T any](vector []*filter.StateCandidate[C, T]) *filter.StateCandidate[C, T] {
	var best *filter.StateCandidate[C, T]
	for _, c := range vector {
		if best == nil || c.SequenceLogProbability > best.SequenceLogProbability {
			best = c
		}
	}
	return best
}

func argmaxByFilterProbability[C comparable, T any](vector []*filter.StateCandidate[C, T]) *filter.StateCandidate[C, T] {
	var best *filter.StateCandidate[C, T]
	for _, c := range vector {
		if best == nil || c.FilterProbability > best.FilterProbability {
			best = c
		}
	}
	return best
}
