// Package monitor runs the ingestion loop.
//
// On a fixed tick it walks every registered source, polls the ones whose
// interval elapsed, and pushes each new message through the pipeline:
// per-source dedup, keyword matching, persistence, then alert dispatch for
// hits. Each source polls on its own goroutine with an in-flight guard, so a
// slow source delays only itself and a tick never stacks polls on top of a
// running one.
package monitor
