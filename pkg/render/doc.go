// Package render draws sealed binding graphs.
//
// [ToDOT] converts a wiring plan to Graphviz DOT: one box per binding field,
// one arrow per dependency. Deferred (Provider or Lazy) dependencies are
// dashed, break points of the initialization order are red, scoped bindings
// are filled, and bindings that come from another graph have a dashed
// outline.
//
//	dot := render.ToDOT(plan, render.Options{Detailed: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// [RenderSVG] uses the WebAssembly build of Graphviz bundled with
// github.com/goccy/go-graphviz, so no system installation is needed.
package render
