// Package bridge ties the conversation store, context selector, adapter
// registry, and invoker together into the operations exposed to a calling
// agent: single adapter calls, concurrent fan-out across several adapters,
// summarization, and conversation listing/inspection.
//
// A parallel call computes its context snapshot once before fan-out so
// every participant sees an identical starting point, then joins the
// independent invocations at a single barrier that collects per-adapter
// outcomes. One adapter's failure never cancels its siblings; partial
// success is a valid terminal outcome.
package bridge
