package diag

import (
	"fmt"
	"strings"
	"sync"

	"github.com/matzehuels/bindgraph/pkg/decl"
)

// Kind classifies a diagnostic.
type Kind string

const (
	MissingBinding             Kind = "MissingBinding"
	DuplicateBinding           Kind = "DuplicateBinding"
	EmptyMultibinding          Kind = "EmptyMultibinding"
	IncompatiblyScopedBindings Kind = "IncompatiblyScopedBindings"
	DependencyCycle            Kind = "DependencyCycle"
	GraphDependencyCycle       Kind = "GraphDependencyCycle"
	ExternalMetadataMissing    Kind = "ExternalMetadataMissing"
	StructuralViolation        Kind = "StructuralViolation"
)

// Similar is a near-miss reported with a MissingBinding.
type Similar struct {
	Key      string        `json:"key"`
	Reason   string        `json:"reason"`
	Kind     string        `json:"kind,omitempty"`
	Location decl.Location `json:"location,omitzero"`
}

// Reasons for similar bindings.
const (
	DifferentQualifier = "Different qualifier"
	MultibindingOf     = "Multibinding"
	Subtype            = "Subtype"
	Supertype          = "Supertype"
)

// Diagnostic is one reported problem.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Graph   string `json:"graph,omitempty"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message"`
	// Locations lists every offending site; an unknown location renders as
	// "unknown location, possibly contributed".
	Locations []decl.Location `json:"locations,omitempty"`
	// Details are extra lines such as the conflicting declarations or the
	// rendered cycle.
	Details []string  `json:"details,omitempty"`
	Trace   []string  `json:"trace,omitempty"`
	Similar []Similar `json:"similar,omitempty"`
}

// Render writes the full multi-line report.
func (d Diagnostic) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", d.Kind, d.Message)
	if d.Graph != "" {
		fmt.Fprintf(&b, " (in %s)", d.Graph)
	}
	b.WriteByte('\n')
	if len(d.Locations) > 0 {
		b.WriteString("\n")
		for _, l := range d.Locations {
			fmt.Fprintf(&b, "  at %s\n", l)
		}
	}
	if len(d.Details) > 0 {
		b.WriteString("\n")
		for _, line := range d.Details {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	if len(d.Trace) > 0 {
		b.WriteString("\n")
		for _, line := range d.Trace {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	if len(d.Similar) > 0 {
		b.WriteString("\nSimilar bindings:\n")
		for _, s := range d.Similar {
			fmt.Fprintf(&b, "  - %s (%s)", s.Key, s.Reason)
			if s.Kind != "" {
				fmt.Fprintf(&b, ". Type: %s", s.Kind)
			}
			fmt.Fprintf(&b, ". Source: %s\n", s.Location)
		}
	}
	return b.String()
}

// String is the one-line summary.
func (d Diagnostic) String() string {
	if d.Graph != "" {
		return fmt.Sprintf("%s: %s (in %s)", d.Kind, d.Message, d.Graph)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// List is an ordered batch of diagnostics. A non-empty List is an error.
type List []Diagnostic

// Error joins the one-line summaries.
func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no diagnostics"
	case 1:
		return l[0].String()
	}
	parts := make([]string, len(l))
	for i, d := range l {
		parts[i] = d.String()
	}
	return fmt.Sprintf("%d errors: %s", len(l), strings.Join(parts, "; "))
}

// Render joins the full reports, separated by blank lines.
func (l List) Render() string {
	parts := make([]string, len(l))
	for i, d := range l {
		parts[i] = d.Render()
	}
	return strings.Join(parts, "\n")
}

// Count returns the number of diagnostics of kind k.
func (l List) Count(k Kind) int {
	n := 0
	for _, d := range l {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Of returns the diagnostics of kind k.
func (l List) Of(k Kind) List {
	var out List
	for _, d := range l {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

// Err returns l as an error, or nil when empty.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Collector accumulates diagnostics in report order. It is safe for
// concurrent use.
type Collector struct {
	mu   sync.Mutex
	list List
	seen map[string]bool
}

// NewCollector returns an empty collector.
func NewCollector() *Collector { return &Collector{seen: make(map[string]bool)} }

// Add records d.
func (c *Collector) Add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = append(c.list, d)
}

// AddOnce records d unless a diagnostic with the same dedup key was already
// recorded. It reports whether d was added.
func (c *Collector) AddOnce(dedup string, d Diagnostic) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[dedup] {
		return false
	}
	c.seen[dedup] = true
	c.list = append(c.list, d)
	return true
}

// Merge appends every diagnostic of l.
func (c *Collector) Merge(l List) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = append(c.list, l...)
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.list)
}

// List returns a copy of the recorded diagnostics.
func (c *Collector) List() List {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(List, len(c.list))
	copy(out, c.list)
	return out
}
