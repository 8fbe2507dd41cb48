// Package generate builds the binding graph of one DependencyGraphNode.
//
// Generation is a recursive worklist over requested keys. It is seeded with
// every accessor, every injector target's injected members, and every
// declared @Binds and @Multibinds key. Each request is unwrapped to its raw
// key and resolved in this order:
//
//  1. an explicit binding of the graph: a provider, an alias, a bound
//     instance or an accessor of an included graph (exact type and
//     qualifier)
//  2. a binding an ancestor graph already declares
//  3. the eligible constructor of an injectable class, deferred to the
//     ancestor owning the class scope when there is one
//  4. a Set or Map multibinding aggregated from its contributions
//  5. any binding an ancestor can resolve
//  6. an Absent binding when the request has a default value
//
// An extension that declares or contributes to a multibinding aggregates it
// itself: the ancestors' contributions, as graph dependencies, followed by
// its own. A default value only ever creates an Absent binding in the
// requesting graph.
//
// A request nothing satisfies is reported as a MissingBinding with similar
// bindings as hints. Problems are accumulated in a [diag.Collector] so that
// one pass reports every independent error; see the seal package for the
// cycle and scope checks that need the finished graph.
//
// A Generator is not safe for concurrent use. When extensions are
// generated, they mutate the parent generator, so a parent and its children
// must be generated from one goroutine.
package generate
