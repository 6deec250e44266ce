// Package hmm holds the types shared by the Viterbi engine, the
// forward-backward smoother, the online filter and the k-state memory:
// log-probability helpers, the transition key, the candidate node, the
// sequence-state record, and the sentinel errors the engines and the
// memory report (the filter itself returns only its oracles' errors).
//
// Everything here is generic over the caller's state, observation and
// descriptor types; the package never imports its own subpackages.
package hmm
