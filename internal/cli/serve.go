package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/bindgraph/pkg/api"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve binding-graph resolution over HTTP",
		Long: `Serve runs the HTTP API (see package api for the routes). Reports and
metadata use the configured backend; set metadata.backend to redis or mongo
to share them between replicas. Prometheus metrics are served on /metrics
when metrics are enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("addr") {
				c.cfg.Server.Addr = addr
			}
			runner, store, err := c.newRunner(ctx, false)
			if err != nil {
				return err
			}
			defer store.Close()

			opts := []api.Option{
				api.WithLogger(c.Logger),
				api.WithOptions(c.cfg.SessionOptions()),
				api.WithMaxBody(c.cfg.Server.MaxBodyBytes),
			}
			if c.metrics != nil {
				opts = append(opts, api.WithMetrics(c.metrics.Handler()))
			}
			srv := api.New(runner, store, opts...)
			s := c.cfg.Server
			return srv.ListenAndServe(ctx, s.Addr, s.ReadTimeout, s.WriteTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
