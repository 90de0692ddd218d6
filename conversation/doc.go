// Package conversation implements the durable conversation store: one
// append-only JSON message log per conversation plus a cached metadata
// record, both human-inspectable on disk.
//
// Appends to a single conversation are serialized through a per-conversation
// lock arena so that concurrent adapter results never interleave partially.
// Appends to different conversations proceed independently. All log writes
// go through an atomic temp-file-plus-rename so a concurrent reader observes
// either the pre- or post-append state, never a torn record.
package conversation
