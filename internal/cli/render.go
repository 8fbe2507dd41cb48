package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
	"github.com/matzehuels/bindgraph/pkg/render"
	"github.com/matzehuels/bindgraph/pkg/session"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts resolveOpts
	var graph, format, output string
	var detailed, pick bool

	cmd := &cobra.Command{
		Use:   "render [files...]",
		Short: "Render a sealed binding graph as DOT or SVG",
		Long: `Render resolves the module and draws one graph: bindings are nodes, edges
point at dependencies, deferred (Provider/Lazy) edges are dashed and deferred
edges that break a cycle are red.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatDOT && format != formatSVG {
				return bgerrors.New(bgerrors.ErrCodeInvalidInput, "invalid format: %s (must be 'dot' or 'svg')", format)
			}
			ctx := cmd.Context()
			rep, _, err := c.runResolve(ctx, args, opts.sessionOptions(cmd, c.cfg.SessionOptions()), &opts)
			if err != nil {
				return err
			}

			path, err := chooseGraph(rep, graph, pick)
			if err != nil {
				return err
			}
			g, ok := rep.Find(path)
			if !ok {
				return bgerrors.New(bgerrors.ErrCodeNotFound, "graph %q not in module (have %v)", path, rep.Paths())
			}
			if g.Plan == nil {
				out := cmd.OutOrStdout()
				for _, d := range g.Diagnostics {
					printDiagnostic(out, d)
				}
				return errDiagnostics
			}

			dot := render.ToDOT(g.Plan, render.Options{Detailed: detailed})
			data := []byte(dot)
			if format == formatSVG {
				spin := newSpinnerWithContext(ctx, os.Stderr, "Rendering "+path)
				spin.Start()
				data, err = render.RenderSVG(ctx, dot)
				spin.Stop()
				if err != nil {
					return err
				}
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if output == "" {
				output = outputName(path, format)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Rendered %s", path)
			printFile(cmd.OutOrStdout(), output)
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&graph, "graph", "g", "", "graph path to render (default: first root graph)")
	cmd.Flags().StringVarP(&format, "format", "f", formatSVG, "output format: svg or dot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: <graph>.<format>)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show binding kind, scope and declaration in labels")
	cmd.Flags().BoolVar(&pick, "pick", false, "choose the graph interactively")

	return cmd
}

// chooseGraph resolves the graph to render from the flags.
func chooseGraph(rep *session.Report, graph string, pick bool) (string, error) {
	switch {
	case graph != "":
		return graph, nil
	case pick:
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return "", bgerrors.New(bgerrors.ErrCodeInvalidInput, "--pick needs an interactive terminal")
		}
		return pickGraph(rep)
	case len(rep.Graphs) == 0:
		return "", bgerrors.New(bgerrors.ErrCodeNotFound, "module declares no root graphs")
	}
	return rep.Graphs[0].Graph, nil
}

// outputName derives a file name from a graph path, e.g.
// "com.example.App>LoggedIn" becomes "App_LoggedIn.svg".
func outputName(path, format string) string {
	parts := strings.Split(path, ">")
	for i, p := range parts {
		if dot := strings.LastIndexByte(p, '.'); dot >= 0 {
			parts[i] = p[dot+1:]
		}
	}
	return filepath.Clean(strings.Join(parts, "_") + "." + format)
}
