// Package pkg provides the libraries behind bindgraph, a resolver for
// compile-time dependency-injection binding graphs.
//
// # Overview
//
// bindgraph reads declarations of binding containers, dependency graphs and
// injectable classes and turns every graph into a complete, validated and
// ordered binding graph. The pkg directory is organized into four areas:
//
//  1. Model: [key], [decl], [binding], [diag]
//  2. Resolution: [container], [graphnode], [generate], [bindingstack], [dag], [seal]
//  3. Orchestration: [session], [metadata], [cache]
//  4. Surfaces: [render], [api], [httputil], [config], [observability]
//
// # Architecture
//
// The typical data flow:
//
//	Declaration files (YAML / TOML / JSON)
//	         ↓
//	    [decl] package (schema validation, module model)
//	         ↓
//	    [container] package (binding containers, includes, metadata)
//	         ↓
//	    [graphnode] package (graph composition, extensions)
//	         ↓
//	    [generate] package (lazy binding resolution, diagnostics)
//	         ↓
//	    [seal] package (cycles, scopes, initialization order)
//	         ↓
//	    Plan JSON / DOT / SVG
//
// [session] drives these steps for every root graph of a module, children
// before parents, and [session.Runner] caches the resulting reports.
package pkg
