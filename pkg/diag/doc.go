// Package diag defines graph-level diagnostics.
//
// Problems found while building or sealing a binding graph are not
// returned as they are found. They are collected in a [Collector] and
// reported together, so one run surfaces every independent error. A
// [List] implements error; a graph whose list is non-empty produces no
// wiring plan.
//
// # Kinds
//
//   - [MissingBinding]: nothing can satisfy a request
//   - [DuplicateBinding]: two declarations produce one non-multibinding key
//   - [EmptyMultibinding]: a multibinding without contributions or allowEmpty
//   - [IncompatiblyScopedBindings]: a scoped binding outside its graph's scopes
//   - [DependencyCycle]: an eager cycle between bindings
//   - [GraphDependencyCycle]: a graph that includes itself
//   - [ExternalMetadataMissing]: an external container without metadata
//   - [StructuralViolation]: a malformed declaration
//
// # Rendering
//
// [Diagnostic.Render] output is deterministic. Every diagnostic names a
// location, falling back to "unknown location, possibly contributed", and
// carries the request trace that reached the offending binding.
package diag
