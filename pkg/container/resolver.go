package container

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bindgraph/pkg/cache"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/key"
	"github.com/matzehuels/bindgraph/pkg/metadata"
	"github.com/matzehuels/bindgraph/pkg/observability"
)

// Resolver resolves containers of one module. It is safe for concurrent use.
type Resolver struct {
	module *decl.Module
	store  *metadata.Store
	logger *log.Logger

	containers *cache.Memo[string, *Container]
	closures   *cache.Memo[string, []string]
	roots      *cache.Memo[string, []*Container]
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStore sets the metadata store used for external containers and for
// publishing resolved ones.
func WithStore(s *metadata.Store) Option { return func(r *Resolver) { r.store = s } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(r *Resolver) { r.logger = l } }

// NewResolver creates a resolver for m.
func NewResolver(m *decl.Module, opts ...Option) *Resolver {
	r := &Resolver{
		module:     m,
		logger:     log.Default(),
		containers: cache.NewMemo[string, *Container](),
		closures:   cache.NewMemo[string, []string](),
		roots:      cache.NewMemo[string, []*Container](),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = metadata.NewStore(nil, metadata.WithLogger(r.logger))
	}
	return r
}

// Module returns the module being resolved.
func (r *Resolver) Module() *decl.Module { return r.module }

// Store returns the metadata store.
func (r *Resolver) Store() *metadata.Store { return r.store }

// FindContainer resolves the container name. It returns (nil, nil) for a
// known-empty container. Problems with the declaration are returned as a
// diag.List; other errors come from the metadata backend.
func (r *Resolver) FindContainer(ctx context.Context, name string) (*Container, error) {
	c, hit, err := r.containers.Get(name, func() (*Container, error) {
		return r.compute(ctx, name)
	})
	if hit {
		observability.Cache().OnCacheHit(ctx, "container")
		return c, err
	}
	observability.Cache().OnCacheMiss(ctx, "container")
	if err != nil || c == nil {
		return c, err
	}

	observability.Resolve().OnContainerResolved(ctx, name, len(c.Providers), c.FromMetadata)
	if !c.FromMetadata {
		if perr := r.publish(ctx, c); perr != nil {
			return c, perr
		}
	}
	return c, nil
}

func (r *Resolver) compute(ctx context.Context, name string) (*Container, error) {
	d, ok := r.module.Container(name)
	if !ok {
		if g, isGraph := r.module.Graph(name); isGraph {
			d = g.AsContainer()
		}
	}

	if d == nil || d.External {
		return r.load(ctx, name, d)
	}

	if problems := r.structural(d); len(problems) > 0 {
		return nil, problems
	}

	c := &Container{
		Name:         d.Name,
		Includes:     d.Includes,
		IsGraph:      d.IsGraph(),
		CanBeManaged: d.CanBeManaged(),
		Location:     d.Location,
	}
	var problems diag.List
	r.collect(c, d.Name, d.Members, &problems)
	if d.Companion != nil {
		r.collect(c, d.CompanionName(), d.Companion.Members, &problems)
	}
	if len(problems) > 0 {
		return nil, problems
	}
	if c.Empty() {
		r.logger.Debug("container is empty", "container", name)
		return nil, nil
	}
	r.logger.Debug("resolved container", "container", name, "providers", len(c.Providers), "binds", len(c.Binds), "includes", len(c.Includes))
	return c, nil
}

func (r *Resolver) load(ctx context.Context, name string, d *decl.Container) (*Container, error) {
	rec, ok, err := r.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if ok {
		r.logger.Debug("loaded container from metadata", "container", name, "providers", len(rec.Providers))
		if rec.Empty() {
			return nil, nil
		}
		return FromRecord(rec), nil
	}
	switch {
	case d == nil:
		return nil, diag.List{{
			Kind:      diag.StructuralViolation,
			Key:       name,
			Message:   fmt.Sprintf("%s is not a declared binding container and no metadata was found for it", name),
			Locations: []decl.Location{{}},
		}}
	case d.Annotated:
		return nil, diag.List{{
			Kind:      diag.ExternalMetadataMissing,
			Key:       name,
			Message:   fmt.Sprintf("no binding metadata found for %s; was its module compiled with bindgraph?", name),
			Locations: []decl.Location{d.Location},
		}}
	}
	// An unannotated external class contributes nothing.
	return nil, nil
}

// structural reports declaration shapes the resolver cannot handle.
func (r *Resolver) structural(d *decl.Container) diag.List {
	var out diag.List
	for _, st := range d.Supertypes {
		if _, ok := r.module.Container(st); ok {
			out = append(out, diag.Diagnostic{
				Kind:      diag.StructuralViolation,
				Key:       d.Name,
				Message:   fmt.Sprintf("binding container %s cannot extend binding container %s", d.Name, st),
				Locations: []decl.Location{d.Location},
			})
		}
	}
	if len(d.TypeParams) > 0 && !d.Abstract && !d.HasNoArgConstructor {
		out = append(out, diag.Diagnostic{
			Kind:      diag.StructuralViolation,
			Key:       d.Name,
			Message:   fmt.Sprintf("generic binding container %s must have a no-arg constructor", d.Name),
			Locations: []decl.Location{d.Location},
		})
	}
	return out
}

func (r *Resolver) collect(c *Container, declaring string, members []decl.Member, problems *diag.List) {
	violation := func(m decl.Member, format string, args ...any) {
		*problems = append(*problems, diag.Diagnostic{
			Kind:      diag.StructuralViolation,
			Key:       declaring + "#" + m.Name,
			Message:   fmt.Sprintf(format, args...),
			Locations: []decl.Location{m.Location},
		})
	}

	for _, m := range members {
		if m.Synthetic {
			continue
		}
		id := declaring + "#" + m.Name
		annotations := 0
		for _, set := range []bool{m.Provides, m.Binds, m.Multibinds} {
			if set {
				annotations++
			}
		}
		if annotations > 1 {
			violation(m, "%s combines @Provides, @Binds and @Multibinds", id)
			continue
		}

		switch {
		case m.Provides:
			pf, err := providerFactory(id, m)
			if err != nil {
				violation(m, "%s: %v", id, err)
				continue
			}
			c.Providers = append(c.Providers, pf)

		case m.Binds:
			bd, err := bindsDescriptor(id, m)
			if err != nil {
				violation(m, "%s: %v", id, err)
				continue
			}
			c.Binds = append(c.Binds, bd)

		case m.Multibinds:
			t, err := key.ParseType(m.Type)
			if err != nil {
				violation(m, "%s: %v", id, err)
				continue
			}
			if !t.Is(key.SetName, 1) && !t.Is(key.MapName, 2) {
				violation(m, "@Multibinds %s must declare a Set or Map, not %s", id, m.Type)
				continue
			}
			c.Binds = append(c.Binds, metadata.BindsDescriptor{
				ID:         id,
				Target:     key.Of(t, m.Qualifier),
				Multibinds: true,
				AllowEmpty: m.AllowEmpty,
				Location:   m.Location,
			})
		}
	}
}

var (
	errMissingMapKey   = errors.New("@IntoMap requires a map key")
	errElementsNotSet  = errors.New("@ElementsIntoSet must produce a Set")
	errMissingSource   = errors.New("@Binds needs a receiver or exactly one parameter")
	errSelfAlias       = errors.New("@Binds cannot alias a type to itself")
	errUnknownContrib  = errors.New("unknown multibinding contribution")
	errDeferredProduct = errors.New("a binding cannot produce Provider or Lazy")
)

func checkContribution(m decl.Member, produced key.Type) error {
	switch m.Into {
	case decl.NoContribution, decl.IntoSet:
	case decl.ElementsIntoSet:
		if !produced.Is(key.SetName, 1) {
			return errElementsNotSet
		}
	case decl.IntoMap:
		if m.MapKey == nil {
			return errMissingMapKey
		}
	default:
		return fmt.Errorf("%w %q", errUnknownContrib, m.Into)
	}
	return nil
}

func providerFactory(id string, m decl.Member) (metadata.ProviderFactory, error) {
	t, err := key.ParseType(m.Type)
	if err != nil {
		return metadata.ProviderFactory{}, err
	}
	if t.Name == key.ProviderName || t.Name == key.LazyName {
		return metadata.ProviderFactory{}, errDeferredProduct
	}
	if err := checkContribution(m, t); err != nil {
		return metadata.ProviderFactory{}, err
	}
	pf := metadata.ProviderFactory{
		ID:           id,
		Key:          key.Of(t, m.Qualifier),
		Scope:        decl.NormalizeScope(m.Scope),
		Contribution: m.Into,
		MapKey:       m.MapKey,
		Location:     m.Location,
	}
	for _, p := range m.Params {
		req, err := p.Request()
		if err != nil {
			return metadata.ProviderFactory{}, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		pf.Params = append(pf.Params, metadata.Param{Name: p.Name, Request: req})
	}
	return pf, nil
}

func bindsDescriptor(id string, m decl.Member) (metadata.BindsDescriptor, error) {
	srcType, srcQual, ok := m.BindsSource()
	if !ok {
		return metadata.BindsDescriptor{}, errMissingSource
	}
	t, err := key.ParseType(m.Type)
	if err != nil {
		return metadata.BindsDescriptor{}, err
	}
	if err := checkContribution(m, t); err != nil {
		return metadata.BindsDescriptor{}, err
	}
	st, err := key.ParseType(srcType)
	if err != nil {
		return metadata.BindsDescriptor{}, err
	}
	bd := metadata.BindsDescriptor{
		ID:           id,
		Target:       key.Of(t, m.Qualifier),
		Source:       key.Of(st, srcQual),
		Scope:        decl.NormalizeScope(m.Scope),
		Contribution: m.Into,
		MapKey:       m.MapKey,
		Location:     m.Location,
	}
	if bd.Source == bd.Target && bd.Contribution == decl.NoContribution {
		return metadata.BindsDescriptor{}, errSelfAlias
	}
	return bd, nil
}

// publish writes metadata for a resolved local container.
func (r *Resolver) publish(ctx context.Context, c *Container) error {
	closure, err := r.Closure(ctx, c.Name)
	var dl diag.List
	if err != nil && !errors.As(err, &dl) {
		return err
	}
	return r.store.Save(ctx, c.Record(closure))
}

// Closure returns every container transitively included by name, in
// breadth-first discovery order, excluding name itself. Known-empty and
// unresolvable includes are listed; the latter are also reported as a
// diag.List alongside the partial closure.
func (r *Resolver) Closure(ctx context.Context, name string) ([]string, error) {
	// Resolving name publishes its metadata, which computes this closure.
	// That must happen before the memo entry for name is in flight.
	if _, err := r.FindContainer(ctx, name); err != nil {
		var dl diag.List
		if !errors.As(err, &dl) {
			return nil, err
		}
	}
	out, _, err := r.closures.Get(name, func() ([]string, error) {
		seen := map[string]bool{name: true}
		var out []string
		var problems diag.List
		if err := r.union(ctx, name, seen, &out, &problems); err != nil {
			return out, err
		}
		return out, problems.Err()
	})
	return out, err
}

// union appends the includes of name, reusing finished closures of
// intermediate containers. seen guards against include cycles.
func (r *Resolver) union(ctx context.Context, name string, seen map[string]bool, out *[]string, problems *diag.List) error {
	c, err := r.FindContainer(ctx, name)
	var dl diag.List
	if errors.As(err, &dl) {
		*problems = append(*problems, dl...)
		return nil
	}
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	for _, inc := range c.Includes {
		if seen[inc] {
			continue
		}
		seen[inc] = true
		*out = append(*out, inc)
		if cached, ok := r.closures.Peek(inc); ok {
			for _, n := range cached {
				if !seen[n] {
					seen[n] = true
					*out = append(*out, n)
				}
			}
			continue
		}
		if err := r.union(ctx, inc, seen, out, problems); err != nil {
			return err
		}
	}
	return nil
}

// ResolveAllCached returns every non-empty container reachable from roots,
// roots first, in breadth-first order without duplicates. Results are
// memoized per root set. Diagnostics for unresolvable containers are
// returned as a diag.List together with the containers that did resolve.
func (r *Resolver) ResolveAllCached(ctx context.Context, roots []string) ([]*Container, error) {
	id := strings.Join(roots, "\x00")
	out, _, err := r.roots.Get(id, func() ([]*Container, error) {
		return r.resolveAll(ctx, roots)
	})
	return out, err
}

func (r *Resolver) resolveAll(ctx context.Context, roots []string) ([]*Container, error) {
	visited := make(map[string]bool, len(roots))
	queue := make([]string, 0, len(roots))
	for _, n := range roots {
		if !visited[n] {
			visited[n] = true
			queue = append(queue, n)
		}
	}

	var out []*Container
	var problems diag.List
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		c, err := r.FindContainer(ctx, name)
		var dl diag.List
		if errors.As(err, &dl) {
			problems = append(problems, dl...)
			continue
		}
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		out = append(out, c)
		for _, inc := range c.Includes {
			if !visited[inc] {
				visited[inc] = true
				queue = append(queue, inc)
			}
		}
	}
	return out, problems.Err()
}
