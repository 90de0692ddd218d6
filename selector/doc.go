// Package selector decides which slice of a conversation's history is fed
// into an adapter call. Selection is a pure function of the history and the
// requested mode: the same input always yields the same output, so repeated
// calls are reproducible and testable. The store is never mutated.
package selector
