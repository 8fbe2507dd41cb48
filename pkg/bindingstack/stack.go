// Package bindingstack tracks the chain of requests that led to the
// binding currently being resolved. It is used to render "requested at /
// injected at" traces in diagnostics.
package bindingstack

import (
	"fmt"
	"strings"

	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/key"
)

// Entry is one request on the stack.
type Entry struct {
	Request key.Contextual
	// Site is the declaration making the request, e.g.
	// com.example.AppContainer#provideGreeting.
	Site string
	// Param is the parameter or member name at the site, if any.
	Param    string
	Location decl.Location
	Graph    string
	// Exposed marks entry points: accessors and injector targets.
	Exposed bool
}

// Stack is a mutable request stack for one graph. It is not safe for
// concurrent use.
type Stack struct {
	graph   string
	entries []Entry
}

// New returns an empty stack for graph.
func New(graph string) *Stack { return &Stack{graph: graph} }

// Graph returns the graph the stack belongs to.
func (s *Stack) Graph() string { return s.graph }

// Push adds e on top. Prefer With, which guarantees the matching Pop.
func (s *Stack) Push(e Entry) {
	if e.Graph == "" {
		e.Graph = s.graph
	}
	s.entries = append(s.entries, e)
}

// Pop removes the top entry. Popping an empty stack panics.
func (s *Stack) Pop() {
	if len(s.entries) == 0 {
		panic("bindingstack: pop of empty stack")
	}
	s.entries = s.entries[:len(s.entries)-1]
}

// With pushes e, runs fn and pops e again, also when fn returns an error
// or panics.
func (s *Stack) With(e Entry, fn func() error) error {
	s.Push(e)
	defer s.Pop()
	return fn()
}

// Do is With for work that cannot fail.
func (s *Stack) Do(e Entry, fn func()) {
	s.Push(e)
	defer s.Pop()
	fn()
}

// Depth returns the number of entries.
func (s *Stack) Depth() int { return len(s.entries) }

// Top returns the innermost entry.
func (s *Stack) Top() (Entry, bool) {
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Find returns the outermost index at which k is requested, or -1.
func (s *Stack) Find(k key.TypeKey) int {
	for i, e := range s.entries {
		if e.Request.Raw() == k {
			return i
		}
	}
	return -1
}

// Snapshot copies the current entries, outermost first.
func (s *Stack) Snapshot() Trace {
	out := make(Trace, len(s.entries))
	copy(out, s.entries)
	return out
}

// Trace is a recorded stack, outermost entry first.
type Trace []Entry

// Lines renders the trace innermost first:
//
//	kotlin.Int is injected at
//	    [com.example.AppGraph] com.example.AppContainer#provideString(value)
//	kotlin.String is requested at
//	    [com.example.AppGraph] com.example.AppGraph#value
func (t Trace) Lines(short bool) []string {
	lines := make([]string, 0, 2*len(t))
	for i := len(t) - 1; i >= 0; i-- {
		e := t[i]
		verb := "injected at"
		if e.Exposed {
			verb = "requested at"
		}
		site := e.Site
		if e.Param != "" {
			site = fmt.Sprintf("%s(%s)", site, e.Param)
		}
		lines = append(lines,
			fmt.Sprintf("%s is %s", e.Request.Render(short), verb),
			fmt.Sprintf("    [%s] %s", e.Graph, site),
		)
	}
	return lines
}

// String renders the trace with fully qualified names, one line per row.
func (t Trace) String() string { return strings.Join(t.Lines(false), "\n") }

// Keys returns the raw keys on the trace, outermost first.
func (t Trace) Keys() []key.TypeKey {
	out := make([]key.TypeKey, len(t))
	for i, e := range t {
		out[i] = e.Request.Raw()
	}
	return out
}
