// Package cli implements the bindgraph command-line interface.
//
// # Commands
//
//   - resolve: build, validate and seal the binding graphs of a module
//   - render: draw one sealed graph as DOT or SVG
//   - validate / schema: check declaration files, print the schema
//   - metadata: inspect and clear persisted container metadata
//   - serve: run the HTTP API
//   - completion: shell completion scripts
//
// # Configuration
//
// Settings come from an optional YAML file (--config) and BINDGRAPH_*
// environment variables; see package config. Flags override both.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/matzehuels/bindgraph/pkg/buildinfo"
	"github.com/matzehuels/bindgraph/pkg/cache"
	"github.com/matzehuels/bindgraph/pkg/config"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/metadata"
	"github.com/matzehuels/bindgraph/pkg/observability"
	"github.com/matzehuels/bindgraph/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "bindgraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// errDiagnostics is returned when a command finished but reported
// diagnostics. The diagnostics themselves are already printed.
var errDiagnostics = errors.New("binding graph has errors")

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	cfg       *config.Config
	cfgPath   string
	logFormat string
	verbose   bool

	metrics  *observability.PrometheusHooks
	closers  []func(context.Context) error
	levelSet bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level, "text"),
		cfg:    config.Default(),
	}
}

// SetLogLevel pins the logger's level; the configured level no longer
// applies.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	c.levelSet = true
}

// Config returns the loaded configuration.
func (c *CLI) Config() *config.Config { return c.cfg }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "bindgraph resolves and validates dependency-injection binding graphs",
		Long: `bindgraph reads declarations of binding containers, graphs and injectable
classes, resolves every graph into a complete, validated binding graph and
reports missing, duplicate, cyclic and mis-scoped bindings.`,
		Version:            buildinfo.Version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.setup(cmd.Context()); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error { return c.teardown(cmd.Context()) },
	}
	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.cfgPath, "config", "c", os.Getenv("BINDGRAPH_CONFIG"), "configuration file (YAML)")
	pf.StringVar(&c.logFormat, "log-format", "", "log format: text, json or logfmt")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.schemaCommand())
	root.AddCommand(c.metadataCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration and wires logging and observability.
func (c *CLI) setup(ctx context.Context) error {
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if c.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	out, closer := logOutput(cfg.Log)
	if closer != nil {
		c.closers = append(c.closers, func(context.Context) error { return closer.Close() })
	}
	configureLogger(c.Logger, out, cfg.Log)
	if !c.levelSet || c.verbose {
		c.Logger.SetLevel(parseLevel(cfg.Log.Level))
	}
	log.SetDefault(c.Logger)

	if cfg.Metrics.Enabled {
		prom, err := observability.NewPrometheusHooks(cfg.ObservabilityMetrics())
		if err != nil {
			return err
		}
		observability.SetResolveHooks(prom)
		observability.SetCacheHooks(prom)
		observability.SetHTTPHooks(prom)
		c.metrics = prom
		if cfg.Metrics.PushgatewayURL != "" {
			c.closers = append(c.closers, prom.Push)
		}
	}
	if cfg.Tracing.Enabled {
		shutdown, err := observability.NewTracerProvider(ctx, cfg.ObservabilityTracing(buildinfo.Version))
		if err != nil {
			return err
		}
		observability.SetTraceHooks(observability.NewOTelTraceHooks(otel.GetTracerProvider()))
		c.closers = append(c.closers, shutdown)
	}
	return nil
}

// teardown flushes metrics and traces and closes the log file, in
// reverse order of setup.
func (c *CLI) teardown(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// =============================================================================
// Factories
// =============================================================================

// openStore opens the configured metadata backend.
func (c *CLI) openStore(ctx context.Context) (*metadata.Store, cache.Cache, error) {
	opts := c.cfg.CacheOptions()
	if (opts.Backend == cache.BackendFile || opts.Backend == "") && opts.Dir == "" {
		dir, err := metadataDir()
		if err != nil {
			return nil, nil, err
		}
		opts.Dir = dir
	}
	backend, err := cache.Open(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	storeOpts := []metadata.Option{metadata.WithLogger(c.Logger), metadata.WithTTL(c.cfg.Metadata.TTL)}
	if p := c.cfg.Metadata.Prefix; p != "" && opts.Backend != cache.BackendRedis {
		storeOpts = append(storeOpts, metadata.WithKeyer(cache.NewScopedKeyer(nil, p)))
	}
	c.Logger.Debug("opened metadata store", "backend", opts.Backend, "dir", opts.Dir)
	return metadata.NewStore(backend, storeOpts...), backend, nil
}

// newRunner creates a session runner. With noCache the report cache is
// bypassed, but metadata is still read and written.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*session.Runner, *metadata.Store, error) {
	store, backend, err := c.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	var reports cache.Cache = backend
	if noCache {
		reports = nil
	}
	var keyer cache.Keyer
	if p := c.cfg.Metadata.Prefix; p != "" && c.cfg.Metadata.Backend != cache.BackendRedis {
		keyer = cache.NewScopedKeyer(nil, p)
	}
	r := session.NewRunner(reports, keyer, store, c.Logger)
	r.TTL = c.cfg.Metadata.TTL
	return r, store, nil
}

// loadModule reads and merges declaration files.
func (c *CLI) loadModule(name string, paths []string) (*decl.Module, error) {
	prog := newProgress(c.Logger)
	m, err := decl.LoadFiles(name, paths...)
	if err != nil {
		return nil, err
	}
	prog.done("Loaded " + m.Name)
	return m, nil
}

// =============================================================================
// Paths
// =============================================================================

// metadataDir returns the metadata directory using XDG standard (~/.cache/bindgraph/).
func metadataDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// IsDiagnostics reports whether err only signals that the graphs had
// diagnostics, which commands print themselves.
func IsDiagnostics(err error) bool { return errors.Is(err, errDiagnostics) }
