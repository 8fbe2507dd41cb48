// Package seal validates a generated binding graph and turns it into a
// wiring plan.
//
// Sealing runs after generation has finished:
//
//  1. Generation problems short-circuit: all of them are returned together.
//  2. The dependency graph is checked for eager cycles with the SCC engine
//     in pkg/dag. Cycles broken by a Provider or Lazy edge are allowed and
//     become break points of the initialization order.
//  3. Every scoped binding must use a scope of the graph or one of its
//     ancestors.
//  4. Bindings are ordered for field initialization, dependencies first.
//
// A [Sealed] graph exposes a deterministic [Plan], the JSON contract for
// code generators: one field per binding, the initialization order, the
// break points and the accessor and injector entry points.
package seal
