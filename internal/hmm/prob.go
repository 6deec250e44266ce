package hmm

import "math"

// LogProb is a log-domain probability in [-Inf, 0]. NegInf denotes
// impossibility.
type LogProb = float64

// NegInf is the log-probability of an impossible outcome.
var NegInf LogProb = math.Inf(-1)

// IsBreak reports whether a forward message has broken: it is empty,
// or every value in it equals NegInf. A broken message carries no
// information a subsequent step could condition on.
func IsBreak[S comparable](message map[S]LogProb) bool {
	if len(message) == 0 {
		return true
	}
	for _, v := range message {
		if v != NegInf {
			return false
		}
	}
	return true
}

// LogToLinear exponentiates every value of a log-domain message,
// preserving its keys, to move it into the linear domain the
// forward-backward engine operates in.
func LogToLinear[S comparable](message map[S]LogProb) map[S]float64 {
	linear := make(map[S]float64, len(message))
	for s, lp := range message {
		linear[s] = math.Exp(lp)
	}
	return linear
}

// InitialCapacityHint returns a hash-table sizing hint for a map
// expected to hold n candidates, leaving enough slack that the
// runtime's load-factor growth doesn't force an early rehash while the
// map is being populated one candidate at a time.
func InitialCapacityHint(n int) int {
	if n <= 0 {
		return 0
	}
	return n + n/4 + 1
}
