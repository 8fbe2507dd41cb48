package session

import (
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/seal"
)

// Report is the serializable outcome of a session.
type Report struct {
	Module  string        `json:"module,omitempty"`
	Session string        `json:"session"`
	OK      bool          `json:"ok"`
	Graphs  []GraphReport `json:"graphs"`
}

// GraphReport is the outcome of one graph and its extensions.
type GraphReport struct {
	Graph       string        `json:"graph"`
	OK          bool          `json:"ok"`
	Plan        *seal.Plan    `json:"plan,omitempty"`
	Diagnostics diag.List     `json:"diagnostics,omitempty"`
	Extensions  []GraphReport `json:"extensions,omitempty"`
}

// NewReport summarizes results.
func NewReport(module, sessionID string, results []*Result) *Report {
	rep := &Report{Module: module, Session: sessionID, OK: true, Graphs: make([]GraphReport, 0, len(results))}
	for _, r := range results {
		gr := graphReport(r)
		rep.OK = rep.OK && r.OK()
		rep.Graphs = append(rep.Graphs, gr)
	}
	return rep
}

func graphReport(r *Result) GraphReport {
	gr := GraphReport{Graph: r.Graph, OK: r.OK(), Diagnostics: r.Diagnostics}
	if r.Sealed != nil {
		gr.Plan = r.Sealed.Plan()
	}
	for _, e := range r.Extensions {
		gr.Extensions = append(gr.Extensions, graphReport(e))
	}
	return gr
}

// Diagnostics returns every diagnostic in the report, depth first.
func (r *Report) Diagnostics() diag.List {
	var out diag.List
	var walk func([]GraphReport)
	walk = func(gs []GraphReport) {
		for _, g := range gs {
			out = append(out, g.Diagnostics...)
			walk(g.Extensions)
		}
	}
	walk(r.Graphs)
	return out
}

// Find returns the report of the graph at path, searching extensions too.
func (r *Report) Find(path string) (*GraphReport, bool) {
	var find func([]GraphReport) *GraphReport
	find = func(gs []GraphReport) *GraphReport {
		for i := range gs {
			if gs[i].Graph == path {
				return &gs[i]
			}
			if f := find(gs[i].Extensions); f != nil {
				return f
			}
		}
		return nil
	}
	g := find(r.Graphs)
	return g, g != nil
}

// Paths lists every graph path in the report, depth first.
func (r *Report) Paths() []string {
	var out []string
	var walk func([]GraphReport)
	walk = func(gs []GraphReport) {
		for _, g := range gs {
			out = append(out, g.Graph)
			walk(g.Extensions)
		}
	}
	walk(r.Graphs)
	return out
}
