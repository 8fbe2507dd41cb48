package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/bindgraph/pkg/binding"
	"github.com/matzehuels/bindgraph/pkg/seal"
)

// Options configures rendering.
type Options struct {
	// Detailed adds the binding kind, scope and declaration to labels.
	// When false, only the key is shown.
	Detailed bool
}

// ToDOT converts a plan to Graphviz DOT format.
func ToDOT(p *seal.Plan, opts Options) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", p.Graph)
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, b := range p.Bindings {
		attrs := fmtAttrs(b, fmtLabel(b, opts.Detailed))
		fmt.Fprintf(&buf, "  %q [%s];\n", b.Field, strings.Join(attrs, ", "))
	}

	breaks := make(map[[2]string]bool, len(p.BreakPoints))
	for _, bp := range p.BreakPoints {
		breaks[[2]string{bp.From, bp.To}] = true
	}

	buf.WriteString("\n")
	for _, b := range p.Bindings {
		for _, d := range b.Deps {
			if d.Field == "" {
				continue
			}
			var attrs []string
			if d.Wrap != "" {
				attrs = append(attrs, "style=dashed", fmt.Sprintf("label=%q", d.Wrap))
			}
			if breaks[[2]string{b.Field, d.Field}] {
				attrs = append(attrs, "color=red")
			}
			if len(attrs) == 0 {
				fmt.Fprintf(&buf, "  %q -> %q;\n", b.Field, d.Field)
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", b.Field, d.Field, strings.Join(attrs, ", "))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(b seal.PlanBinding, detailed bool) string {
	if !detailed {
		return b.Key
	}
	parts := []string{b.Key, b.Kind}
	if b.Scope != "" {
		parts = append(parts, "@"+b.Scope)
	}
	if b.Declaration != "" {
		parts = append(parts, b.Declaration)
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(b seal.PlanBinding, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case b.Kind == binding.GraphDependency.String():
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	case b.Scope != "":
		attrs = append(attrs, "fillcolor=lightblue", "penwidth=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing scales with its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
