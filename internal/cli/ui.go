package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/seal"
	"github.com/matzehuels/bindgraph/pkg/session"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - scopes
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for diagnostics.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleScope    = lipgloss.NewStyle().Foreground(colorBlue)
	styleKind     = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleHeader   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

// printError prints an error message.
func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints a detail line (indented).
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// =============================================================================
// Reports
// =============================================================================

// printReport prints one line per graph and the diagnostics of failed
// graphs.
func printReport(w io.Writer, rep *session.Report, cached bool) {
	var walk func(gs []session.GraphReport, depth int)
	walk = func(gs []session.GraphReport, depth int) {
		for _, g := range gs {
			indent := strings.Repeat("  ", depth)
			if g.OK {
				n := 0
				if g.Plan != nil {
					n = len(g.Plan.Bindings)
				}
				printSuccess(w, "%s%s %s", indent, g.Graph, StyleDim.Render(fmt.Sprintf("%d bindings", n)))
			} else {
				printError(w, "%s%s %s", indent, g.Graph, StyleError.Render(fmt.Sprintf("%d diagnostics", len(g.Diagnostics))))
			}
			walk(g.Extensions, depth+1)
		}
	}
	walk(rep.Graphs, 0)
	printStats(w, len(rep.Paths()), len(rep.Diagnostics()), cached)

	for _, d := range rep.Diagnostics() {
		fmt.Fprintln(w)
		printDiagnostic(w, d)
	}
}

// printDiagnostic prints the full report of d with the kind highlighted.
func printDiagnostic(w io.Writer, d diag.Diagnostic) {
	rendered := d.Render()
	prefix := "[" + string(d.Kind) + "]"
	if rest, ok := strings.CutPrefix(rendered, prefix); ok {
		rendered = styleKind.Render(prefix) + rest
	}
	fmt.Fprint(w, rendered)
}

// printStats prints report statistics on a single line.
func printStats(w io.Writer, graphs, diagnostics int, cached bool) {
	parts := []string{fmt.Sprintf("%d graphs", graphs)}
	if diagnostics > 0 {
		parts = append(parts, fmt.Sprintf("%d diagnostics", diagnostics))
	}

	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	line += StyleDim.Render(" · ") + statusStyle.Render(status)
	fmt.Fprintln(w, line)
}

// planTable renders the bindings of a plan in initialization order.
func planTable(p *seal.Plan) string {
	rows := make([][]string, 0, len(p.Bindings))
	for i, b := range p.Bindings {
		deps := make([]string, 0, len(b.Deps))
		for _, d := range b.Deps {
			name := d.Key
			if d.Wrap != "" {
				name = d.Wrap + "<" + d.Key + ">"
			}
			deps = append(deps, name)
		}
		rows = append(rows, []string{fmt.Sprint(i + 1), b.Key, b.Kind, b.Scope, strings.Join(deps, ", ")})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Key", "Kind", "Scope", "Dependencies").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader
			case col == 3:
				return styleScope
			case col == 0 || col == 4:
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}
