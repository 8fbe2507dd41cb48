package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
	"github.com/matzehuels/bindgraph/pkg/session"
)

// resolveOpts holds the flags shared by resolve and render.
type resolveOpts struct {
	name       string // module name when merging several files
	noCache    bool   // bypass the report cache
	refresh    bool   // recompute and overwrite the cached report
	shortNames bool   // render keys without package prefixes
	parallel   bool   // resolve root graphs concurrently
	workers    int    // bound on concurrent root graphs
}

func (o *resolveOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.name, "name", "", "module name when merging several files")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "do not read or write the report cache")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "recompute and overwrite the cached report")
	cmd.Flags().BoolVar(&o.shortNames, "short", false, "render keys without package prefixes")
	cmd.Flags().BoolVar(&o.parallel, "parallel", false, "resolve root graphs concurrently")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "maximum concurrent root graphs (0 = unbounded)")
}

// sessionOptions merges the flags over the configured defaults.
func (o *resolveOpts) sessionOptions(cmd *cobra.Command, base session.Options) session.Options {
	if cmd.Flags().Changed("short") {
		base.ShortNames = o.shortNames
	}
	if cmd.Flags().Changed("parallel") {
		base.Parallel = o.parallel
	}
	if cmd.Flags().Changed("workers") {
		base.Workers = o.workers
	}
	return base
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOpts
	var output, graph string
	var asJSON, showPlan bool

	cmd := &cobra.Command{
		Use:   "resolve [files...]",
		Short: "Resolve, validate and seal the binding graphs of a module",
		Long: `Resolve reads one or more declaration files (YAML, TOML or JSON), merges
them into one module and resolves every root graph and its extensions.

Missing, duplicate, cyclic and incompatibly scoped bindings are reported with
the request trace that led to them. The command fails when any graph has
diagnostics.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rep, cached, err := c.runResolve(ctx, args, opts.sessionOptions(cmd, c.cfg.SessionOptions()), &opts)
			if err != nil {
				return err
			}

			if graph != "" {
				g, ok := rep.Find(graph)
				if !ok {
					return bgerrors.New(bgerrors.ErrCodeNotFound, "graph %q not in module (have %v)", graph, rep.Paths())
				}
				rep = &session.Report{Module: rep.Module, Session: rep.Session, OK: g.OK, Graphs: []session.GraphReport{*g}}
			}

			out := cmd.OutOrStdout()
			if output != "" {
				if err := writeJSONFile(output, rep); err != nil {
					return err
				}
				printFile(out, output)
			}
			switch {
			case asJSON:
				if err := writeJSON(out, rep); err != nil {
					return err
				}
			default:
				printReport(out, rep, cached)
				if showPlan {
					for _, p := range rep.Paths() {
						if g, _ := rep.Find(p); g.Plan != nil {
							fmt.Fprintln(out)
							fmt.Fprintln(out, StyleTitle.Render(p))
							fmt.Fprintln(out, planTable(g.Plan))
						}
					}
				}
			}
			if !rep.OK {
				return errDiagnostics
			}
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the JSON report to a file")
	cmd.Flags().StringVarP(&graph, "graph", "g", "", "only report this graph path (e.g. AppGraph>LoggedIn)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the JSON report instead of a summary")
	cmd.Flags().BoolVar(&showPlan, "plan", false, "print the initialization order of every sealed graph")

	return cmd
}

// runResolve loads the module and resolves it through the runner.
func (c *CLI) runResolve(ctx context.Context, files []string, sopts session.Options, opts *resolveOpts) (*session.Report, bool, error) {
	logger := loggerFromContext(ctx)

	m, err := c.loadModule(opts.name, files)
	if err != nil {
		return nil, false, err
	}
	runner, store, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return nil, false, err
	}
	defer store.Close()

	prog := newProgress(logger)
	spin := newSpinnerWithContext(ctx, os.Stderr, "Resolving "+m.Name)
	if logger.GetLevel() > LogDebug {
		spin.Start()
	}
	rep, cached, err := runner.Resolve(ctx, m, sopts, opts.refresh)
	spin.Stop()
	if err != nil {
		return nil, false, err
	}
	prog.done(fmt.Sprintf("Resolved %d graphs", len(rep.Paths())))
	return rep, cached, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
