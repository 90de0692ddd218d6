// Package adapter manages the configured external LLM commands and their
// invocation. The registry is process-wide read-only state: it is built
// once from validated configuration and never mutated by a running call;
// constructing a new registry is the explicit reload point.
//
// Invocation models "call an external LLM" as a single capability —
// render a prompt, run a fresh process, capture the outcome — so future
// adapter kinds (direct network calls, for example) can implement the same
// Capability interface without touching the orchestrator.
package adapter
