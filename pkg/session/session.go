package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/bindgraph/pkg/cache"
	"github.com/matzehuels/bindgraph/pkg/container"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/generate"
	"github.com/matzehuels/bindgraph/pkg/graphnode"
	"github.com/matzehuels/bindgraph/pkg/metadata"
	"github.com/matzehuels/bindgraph/pkg/observability"
	"github.com/matzehuels/bindgraph/pkg/seal"
)

// ErrExtensionGraph is returned when an extension graph is processed on
// its own; extensions are processed through their parent.
var ErrExtensionGraph = errors.New("graph extensions are processed through their parent")

// State is the processing state of one graph.
type State int

const (
	Unprocessed State = iota
	NodeComputed
	GraphBuilt
	Sealed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unprocessed:
		return "unprocessed"
	case NodeComputed:
		return "node-computed"
	case GraphBuilt:
		return "graph-built"
	case Sealed:
		return "sealed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is the terminal state of one graph.
type Result struct {
	Graph string
	State State
	Node  *graphnode.Node
	// Generated is nil when the node could not be computed.
	Generated *generate.Graph
	// Sealed is nil when the graph has diagnostics.
	Sealed      *seal.Sealed
	Diagnostics diag.List
	Extensions  []*Result
	Duration    time.Duration
}

// OK reports whether the graph and all of its extensions sealed cleanly.
func (r *Result) OK() bool {
	if r.Sealed == nil || len(r.Diagnostics) > 0 {
		return false
	}
	for _, e := range r.Extensions {
		if !e.OK() {
			return false
		}
	}
	return true
}

// AllDiagnostics returns the diagnostics of r and its extensions.
func (r *Result) AllDiagnostics() diag.List {
	out := append(diag.List(nil), r.Diagnostics...)
	for _, e := range r.Extensions {
		out = append(out, e.AllDiagnostics()...)
	}
	return out
}

// Options controls processing.
type Options struct {
	// Parallel processes independent root graphs concurrently.
	Parallel bool
	// Workers bounds the parallelism; zero means one goroutine per root.
	Workers int
	// ShortNames renders keys without package prefixes.
	ShortNames bool
}

// Session is one resolution run over a module. It is safe for concurrent
// use once constructed.
type Session struct {
	ID string

	module   *decl.Module
	resolver *container.Resolver
	builder  *graphnode.Builder
	logger   *log.Logger
	opts     Options

	processed *cache.Memo[string, *Result]
}

// Option configures a Session.
type Option func(*config)

type config struct {
	store  *metadata.Store
	logger *log.Logger
	opts   Options
}

// WithStore sets the metadata store shared with other modules.
func WithStore(s *metadata.Store) Option { return func(c *config) { c.store = s } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(c *config) { c.logger = l } }

// WithOptions sets the processing options.
func WithOptions(o Options) Option { return func(c *config) { c.opts = o } }

// New starts a session over m.
func New(m *decl.Module, opts ...Option) *Session {
	cfg := config{logger: log.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	id := uuid.NewString()
	logger := cfg.logger.With("session", id[:8])

	ropts := []container.Option{container.WithLogger(logger)}
	if cfg.store != nil {
		ropts = append(ropts, container.WithStore(cfg.store))
	}
	r := container.NewResolver(m, ropts...)
	return &Session{
		ID:        id,
		module:    m,
		resolver:  r,
		builder:   graphnode.NewBuilder(r, logger),
		logger:    logger,
		opts:      cfg.opts,
		processed: cache.NewMemo[string, *Result](),
	}
}

// Module returns the module being resolved.
func (s *Session) Module() *decl.Module { return s.module }

// Resolver returns the session's container resolver.
func (s *Session) Resolver() *container.Resolver { return s.resolver }

// Process builds and seals the root graph name. The result is memoized.
func (s *Session) Process(ctx context.Context, name string) (*Result, error) {
	g, ok := s.module.Graph(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", graphnode.ErrNotAGraph, name)
	}
	if g.Extension {
		return nil, fmt.Errorf("%w: %s", ErrExtensionGraph, name)
	}
	res, _, err := s.processed.Get(name, func() (*Result, error) {
		return s.process(ctx, name)
	})
	return res, err
}

// ProcessAll processes every root graph in discovery order.
func (s *Session) ProcessAll(ctx context.Context) ([]*Result, error) {
	roots := s.module.Roots()

	// Nodes are composed sequentially; graphs that include each other wait
	// on one another's nodes.
	for _, g := range roots {
		if _, err := s.builder.Node(ctx, g.Name); err != nil {
			return nil, err
		}
	}

	results := make([]*Result, len(roots))
	if !s.opts.Parallel {
		for i, g := range roots {
			res, err := s.Process(ctx, g.Name)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
		return results, nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	if s.opts.Workers > 0 {
		eg.SetLimit(s.opts.Workers)
	}
	for i, g := range roots {
		eg.Go(func() error {
			res, err := s.Process(ctx, g.Name)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Processed returns the number of memoized graph results.
func (s *Session) Processed() int { return s.processed.Len() }

func (s *Session) process(ctx context.Context, name string) (res *Result, err error) {
	ctx, end := observability.Trace().StartSpan(ctx, "bindgraph.process",
		observability.Attr{Key: "graph", Value: name},
		observability.Attr{Key: "session", Value: s.ID})
	defer func() { end(err) }()

	n, err := s.builder.Node(ctx, name)
	if err != nil {
		return nil, err
	}
	gen := generate.New(n, s.module, generate.WithLogger(s.logger), generate.WithShortNames(s.opts.ShortNames))
	return s.run(ctx, gen)
}

// run generates the graph of gen, then its extensions, then seals them
// children first so the parent also seals what its children keep.
func (s *Session) run(ctx context.Context, gen *generate.Generator) (*Result, error) {
	start := time.Now()
	n := gen.Graph().Node
	observability.Resolve().OnGraphStart(ctx, n.Path)
	res := &Result{Graph: n.Path, State: NodeComputed, Node: n}

	_, end := observability.Trace().StartSpan(ctx, "bindgraph.generate", observability.Attr{Key: "graph", Value: n.Path})
	res.Generated = gen.Generate(ctx)
	end(nil)
	res.State = GraphBuilt

	for _, child := range n.Extensions {
		cn, err := s.builder.Extension(ctx, n, child)
		if err != nil {
			return nil, err
		}
		cg := generate.New(cn, s.module, generate.WithParent(gen), generate.WithLogger(s.logger),
			generate.WithShortNames(s.opts.ShortNames))
		cres, err := s.run(ctx, cg)
		if err != nil {
			return nil, err
		}
		res.Extensions = append(res.Extensions, cres)
	}

	_, end = observability.Trace().StartSpan(ctx, "bindgraph.seal", observability.Attr{Key: "graph", Value: n.Path})
	sealed, err := seal.Seal(res.Generated, seal.Options{ShortNames: s.opts.ShortNames})
	end(nil)
	var dl diag.List
	switch {
	case errors.As(err, &dl):
		res.Diagnostics = dl
	case err != nil:
		return nil, err
	default:
		res.Sealed = sealed
	}
	res.State = Sealed
	res.Duration = time.Since(start)

	for _, d := range res.Diagnostics {
		observability.Resolve().OnDiagnostic(ctx, n.Path, string(d.Kind))
	}
	observability.Resolve().OnGraphSealed(ctx, n.Path, len(res.Generated.Bindings), len(res.Diagnostics), res.Duration)
	if len(res.Diagnostics) > 0 {
		s.logger.Warn("graph has errors", "graph", n.Path, "diagnostics", len(res.Diagnostics))
	} else {
		s.logger.Info("sealed graph", "graph", n.Path, "bindings", len(res.Generated.Bindings), "duration", res.Duration)
	}
	return res, nil
}
