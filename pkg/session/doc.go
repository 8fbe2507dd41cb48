// Package session runs resolution for one declaration module.
//
// A [Session] owns every per-run cache: the container cache and closure
// cache of the container resolver, the DependencyGraphNode cache, and the
// processed-graph cache. Processing a graph walks the state machine
//
//	Unprocessed -> NodeComputed -> GraphBuilt -> Sealed
//
// and memoizes the terminal [Result] by graph name, so a graph reached twice
// is built and sealed once and reports its diagnostics once.
//
// [Session.ProcessAll] computes the nodes of every root graph sequentially
// in discovery order. Generation and sealing then run either sequentially
// or, with Options.Parallel, one goroutine per root graph. Extensions are
// always processed inside their parent's goroutine.
//
// A [Runner] caches whole reports keyed by the hash of the declarations,
// adapted for the CLI and the HTTP API.
package session
