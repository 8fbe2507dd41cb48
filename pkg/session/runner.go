package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bindgraph/pkg/cache"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/metadata"
	"github.com/matzehuels/bindgraph/pkg/observability"
)

// Runner resolves modules with a report cache.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for its cache, store and logger; every
// call starts a fresh Session. Multiple goroutines can use the same Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  *metadata.Store
	Logger *log.Logger
	// TTL bounds how long reports stay cached; zero never expires.
	TTL time.Duration
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, store *metadata.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Store: store, Logger: logger}
}

// Resolve processes every root graph of m. The report is served from the
// cache when the same declarations were resolved with the same options,
// unless refresh is set. The second result reports a cache hit.
func (r *Runner) Resolve(ctx context.Context, m *decl.Module, opts Options, refresh bool) (*Report, bool, error) {
	hash, err := cache.HashJSON(m)
	if err != nil {
		return nil, false, fmt.Errorf("hash declarations: %w", err)
	}
	cacheKey := r.Keyer.PlanKey(hash, cache.PlanKeyOpts{ShortNames: opts.ShortNames})

	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var rep Report
			if err := json.Unmarshal(data, &rep); err == nil {
				observability.Cache().OnCacheHit(ctx, "plan")
				r.Logger.Debug("report cache hit", "module", m.Name, "key", cacheKey)
				return &rep, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "plan")
	}

	s := New(m, WithStore(r.Store), WithLogger(r.Logger), WithOptions(opts))
	results, err := s.ProcessAll(ctx)
	if err != nil {
		return nil, false, err
	}
	rep := NewReport(m.Name, s.ID, results)

	if data, err := json.Marshal(rep); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, r.TTL); err != nil {
			r.Logger.Warn("failed to cache report", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "plan", len(data))
		}
	}
	return rep, false, nil
}
