// Package trace provides the logging and tracing subsystem for bbg.
//
// Block-graph construction is a pure computation, so tracing is the only
// place where progress and tolerated anomalies become visible.
//
// # Usage
//
//	bbg blocks --trace=- --trace-level=detail body.bbl
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is disabled
//   - StreamTracer: writes every event immediately (text or NDJSON)
//   - RingTracer: keeps the last N events in memory
//   - MultiTracer: fans events out to several tracers
//
// # Levels and scopes
//
// Scopes order events from coarse to fine: ScopeDriver (CLI batch),
// ScopeBody (one procedure body), ScopeStage (leaders, partition, wiring) and
// ScopeBlock (per-block notes such as predecessor-less handler blocks).
// LevelPhase admits driver and body events, LevelDetail adds stages and
// LevelDebug admits everything.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeStage, "leaders", parentID)
//	defer span.End("")
package trace
